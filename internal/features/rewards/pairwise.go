// Package rewards — pairwise.go: попарный ограничитель.
// Не даёт двум аккаунтам накручивать друг другу репутацию повторными
// благодарностями. Направленный: A→B не ограничивает B→A.
package rewards

import (
	"context"
	"time"

	"serotonyl.ru/orbit-points/internal/common"
)

// InteractionStore — журнал попарных действий.
type InteractionStore interface {
	LastInteraction(ctx context.Context, senderID, receiverID int64, actionType string) (*time.Time, error)
	RecordInteraction(ctx context.Context, senderID, receiverID int64, actionType string, at time.Time) error
}

// PairwiseLimiter ограничивает действие action одной паре раз в windowDays суток.
type PairwiseLimiter struct {
	action     string
	windowDays int
	clock      common.Clock
}

// NewPairwiseLimiter создаёт ограничитель.
func NewPairwiseLimiter(action string, windowDays int, clock common.Clock) *PairwiseLimiter {
	return &PairwiseLimiter{action: action, windowDays: windowDays, clock: clock}
}

// HasSentRecently сообщает, было ли действие sender → receiver за последние windowDays суток.
func (l *PairwiseLimiter) HasSentRecently(ctx context.Context, q InteractionStore, senderID, receiverID int64, windowDays int) (bool, error) {
	last, err := q.LastInteraction(ctx, senderID, receiverID, l.action)
	if err != nil {
		return false, common.Persistence("проверка попарного лимита", err)
	}
	if last == nil {
		return false, nil
	}
	return last.After(common.DaysAgo(l.clock.Now(), windowDays)), nil
}

// Check возвращает *common.RateLimitError с оставшимся временем, если кулдаун активен.
func (l *PairwiseLimiter) Check(ctx context.Context, q InteractionStore, senderID, receiverID int64) error {
	if l.windowDays <= 0 {
		return nil
	}
	last, err := q.LastInteraction(ctx, senderID, receiverID, l.action)
	if err != nil {
		return common.Persistence("проверка попарного лимита", err)
	}
	if last == nil {
		return nil
	}

	now := l.clock.Now()
	if !last.After(common.DaysAgo(now, l.windowDays)) {
		return nil
	}
	gateDenials.WithLabelValues("pairwise").Inc()
	window := time.Duration(l.windowDays) * 24 * time.Hour
	return &common.RateLimitError{RetryAfter: last.Add(window).Sub(now)}
}

// Record фиксирует действие sender → receiver текущим временем.
func (l *PairwiseLimiter) Record(ctx context.Context, q InteractionStore, senderID, receiverID int64) error {
	if err := q.RecordInteraction(ctx, senderID, receiverID, l.action, l.clock.Now()); err != nil {
		return common.Persistence("запись попарного действия", err)
	}
	return nil
}
