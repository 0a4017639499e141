// Package ledger — store.go описывает контракт хранилища.
// Все мутации журнала и баланса идут через Queries, полученный из WithTx:
// вызывающий код сам решает, сколько операций собрать в одну транзакцию
// (например, благодарность начисляет отправителю и получателю одним коммитом).
package ledger

import (
	"context"
	"time"
)

// Queries — операции над журналом, балансами и конфигурацией наград.
// Одинаково работают на пуле (чтение) и внутри транзакции.
type Queries interface {
	// --- users ---
	GetUser(ctx context.Context, userID int64) (*User, error)
	// LockUser читает пользователя с блокировкой строки до конца транзакции.
	LockUser(ctx context.Context, userID int64) (*User, error)
	// AddToBalance атомарно меняет кешированный баланс и возвращает новое значение.
	AddToBalance(ctx context.Context, userID, delta int64) (int64, error)
	// CountUsersAbove — сколько пользователей имеют баланс строго больше points.
	CountUsersAbove(ctx context.Context, points int64) (int, error)

	// --- reward_config ---
	RewardConfig(ctx context.Context, actionType string) (*RewardConfig, error)
	ListRewardConfigs(ctx context.Context) ([]RewardConfig, error)

	// --- point_transactions ---
	InsertTransaction(ctx context.Context, tx *PointTransaction) error
	CountActionsSince(ctx context.Context, userID int64, actionType string, since time.Time) (int, error)
	SumPoints(ctx context.Context, userID int64) (int64, error)
	SumPointsByCategories(ctx context.Context, userID int64, categories []Category) (int64, error)
	ActionTotals(ctx context.Context, userID int64) ([]ActionTotal, error)
	// ListTransactions — последние записи, новые первыми. limit <= 0 — без ограничения.
	ListTransactions(ctx context.Context, userID int64, limit int) ([]*PointTransaction, error)
	// LatestActivity — время последней записи журнала (nil, если записей нет).
	LatestActivity(ctx context.Context, userID int64) (*time.Time, error)
	// InactiveUsers — пользователи с положительным балансом и без записей с момента since.
	InactiveUsers(ctx context.Context, since time.Time) ([]int64, error)

	// --- pairwise_interactions ---
	LastInteraction(ctx context.Context, senderID, receiverID int64, actionType string) (*time.Time, error)
	RecordInteraction(ctx context.Context, senderID, receiverID int64, actionType string, at time.Time) error

	// --- thank_you_notes ---
	InsertThankYouNote(ctx context.Context, note *ThankYouNote) error
}

// Store — хранилище с поддержкой транзакций.
// Методы Queries самого Store выполняются вне транзакции.
type Store interface {
	Queries
	// WithTx выполняет fn в одной транзакции: ошибка fn — откат всех записей.
	WithTx(ctx context.Context, fn func(q Queries) error) error
	// ReadSnapshot выполняет fn только на чтение: все запросы видят одно
	// согласованное состояние, параллельные коммиты между ними не видны.
	ReadSnapshot(ctx context.Context, fn func(q Queries) error) error
}
