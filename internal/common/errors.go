// Package common — errors.go определяет ошибки, которые используются во всех
// модулях сервиса. Обработчики различают их через errors.Is / errors.As
// и отдают клиенту нужный HTTP-статус с понятным сообщением.
package common

import (
	"errors"
	"fmt"
	"time"
)

// Ошибки входных данных и доступа
var (
	// ErrInvalidInput — запрос не прошёл валидацию
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized — не передан или не найден идентификатор пользователя
	ErrUnauthorized = errors.New("unauthenticated")
	// ErrForbidden — нет прав (админка)
	ErrForbidden = errors.New("forbidden")
	// ErrSelfAction — попытка поблагодарить самого себя
	ErrSelfAction = errors.New("you cannot send a thank-you note to yourself")
)

// Ошибки хранилища
var (
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("user not found")
	// ErrNotFound — запись не найдена
	ErrNotFound = errors.New("not found")
	// ErrDuplicate — нарушение уникальности (повторное начисление по тому же source_id)
	ErrDuplicate = errors.New("duplicate entry")
	// ErrPersistence — любая ошибка БД; клиенту детали не показываем
	ErrPersistence = errors.New("internal error")
)

// Ошибки бизнес-правил
var (
	// ErrUnknownAction — action_type отсутствует в reward_config или выключен
	ErrUnknownAction = errors.New("unknown or inactive action")
	// ErrLimitExceeded — дневной лимит действия исчерпан (только для strict-вызовов)
	ErrLimitExceeded = errors.New("daily limit for this action reached")
	// ErrInsufficientCredibility — баланс ниже порога доверия
	ErrInsufficientCredibility = errors.New("insufficient credibility")
	// ErrRateLimited — попарный кулдаун ещё не истёк
	ErrRateLimited = errors.New("rate limited")
)

// UnknownActionError уточняет, какой именно action_type не найден.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown or inactive action %q", e.Action)
}

func (e *UnknownActionError) Is(target error) bool { return target == ErrUnknownAction }

// CredibilityError — отказ шлюза доверия. Порог раскрывать можно.
type CredibilityError struct {
	Required int64
	Current  int64
}

func (e *CredibilityError) Error() string {
	return fmt.Sprintf("you need %d+ orbit points to do this (you have %d)", e.Required, e.Current)
}

func (e *CredibilityError) Is(target error) bool { return target == ErrInsufficientCredibility }

// RateLimitError — кулдаун между одной и той же парой пользователей.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("you already thanked this member recently, try again in %s", humanizeDuration(e.RetryAfter))
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// PersistenceError оборачивает сбой БД. Op и Err попадают только в лог.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Persistence превращает ошибку хранилища в PersistenceError, если она
// ещё не относится к известным классам (пользователь не найден, дубликат и т.д.).
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrUserNotFound, ErrNotFound, ErrDuplicate, ErrPersistence,
		ErrUnknownAction, ErrLimitExceeded, ErrInsufficientCredibility,
		ErrRateLimited, ErrInvalidInput, ErrSelfAction, ErrUnauthorized, ErrForbidden,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return &PersistenceError{Op: op, Err: err}
}
