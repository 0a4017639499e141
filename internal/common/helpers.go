// Package common содержит общие утилиты, используемые во всём проекте:
// ошибки, работа со временем (окна лимитов считаются в UTC), форматирование.
package common

import (
	"fmt"
	"time"
)

// Clock — источник текущего времени. В тестах подменяется на фиксированный.
type Clock interface {
	Now() time.Time
}

// SystemClock возвращает реальное время в UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock всегда возвращает одно и то же время.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }

// Advance сдвигает часы вперёд.
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// StartOfDayUTC возвращает начало календарных суток UTC для момента t.
// Именно эта граница используется для daily_limit.
func StartOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysAgo возвращает момент ровно n суток назад.
func DaysAgo(now time.Time, n int) time.Time {
	return now.Add(-time.Duration(n) * 24 * time.Hour)
}

// FormatDateTime форматирует время в формат "2006-01-02 15:04 UTC".
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04") + " UTC"
}

// humanizeDuration округляет длительность до понятной человеку величины:
// дни, часы или минуты (минимум 1 минута).
func humanizeDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		days := int((d + 23*time.Hour) / (24 * time.Hour))
		return fmt.Sprintf("%d %s", days, Pluralize(int64(days), "day", "days"))
	case d >= time.Hour:
		hours := int((d + time.Hour - 1) / time.Hour)
		return fmt.Sprintf("%d %s", hours, Pluralize(int64(hours), "hour", "hours"))
	default:
		minutes := int((d + time.Minute - 1) / time.Minute)
		if minutes < 1 {
			minutes = 1
		}
		return fmt.Sprintf("%d %s", minutes, Pluralize(int64(minutes), "minute", "minutes"))
	}
}
