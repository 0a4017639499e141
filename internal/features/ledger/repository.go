// Package ledger — repository.go выполняет операции с таблицами users,
// point_transactions, reward_config, pairwise_interactions и thank_you_notes.
// Журнал только дополняется: UPDATE/DELETE для point_transactions здесь нет.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"serotonyl.ru/orbit-points/internal/common"
	"serotonyl.ru/orbit-points/internal/db/postgres"
)

// Repository реализует Queries поверх пула или транзакции pgx.
type Repository struct {
	db postgres.DBTX
}

// NewRepository создаёт репозиторий журнала.
func NewRepository(db postgres.DBTX) *Repository {
	return &Repository{db: db}
}

// PostgresStore — Store на PostgreSQL. Чтения идут через пул,
// WithTx создаёт Repository поверх pgx.Tx.
type PostgresStore struct {
	*Repository
	pool postgres.TxBeginner
}

// NewPostgresStore создаёт хранилище поверх пула соединений.
func NewPostgresStore(pool interface {
	postgres.DBTX
	postgres.TxBeginner
}) *PostgresStore {
	return &PostgresStore{Repository: NewRepository(pool), pool: pool}
}

// WithTx выполняет fn в транзакции БД.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(q Queries) error) error {
	return postgres.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(NewRepository(tx))
	})
}

// ReadSnapshot выполняет fn в read-only транзакции REPEATABLE READ.
func (s *PostgresStore) ReadSnapshot(ctx context.Context, fn func(q Queries) error) error {
	return postgres.WithTxOptions(ctx, s.pool, postgres.SnapshotTxOptions, func(tx pgx.Tx) error {
		return fn(NewRepository(tx))
	})
}

const userColumns = `id, name, orbit_points, created_at`

// GetUser возвращает пользователя с текущим кешированным балансом.
func (r *Repository) GetUser(ctx context.Context, userID int64) (*User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

// LockUser читает пользователя с блокировкой строки (SELECT ... FOR UPDATE).
// Все конкурентные мутации баланса одного пользователя выстраиваются в очередь.
func (r *Repository) LockUser(ctx context.Context, userID int64) (*User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID)
}

func (r *Repository) scanUser(ctx context.Context, query string, userID int64) (*User, error) {
	var u User
	err := r.db.QueryRow(ctx, query, userID).Scan(&u.ID, &u.Name, &u.OrbitPoints, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user_id=%d: %w", userID, common.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return &u, nil
}

// AddToBalance атомарно меняет orbit_points (инкремент на стороне БД,
// без схемы «прочитал — записал»).
func (r *Repository) AddToBalance(ctx context.Context, userID, delta int64) (int64, error) {
	query := `
		UPDATE users
		SET orbit_points = orbit_points + $2
		WHERE id = $1
		RETURNING orbit_points
	`
	var balance int64
	err := r.db.QueryRow(ctx, query, userID, delta).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("user_id=%d: %w", userID, common.ErrUserNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка обновления баланса: %w", err)
	}
	return balance, nil
}

// CountUsersAbove возвращает число пользователей с балансом строго больше points.
func (r *Repository) CountUsersAbove(ctx context.Context, points int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE orbit_points > $1`, points).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта рейтинга: %w", err)
	}
	return count, nil
}

// RewardConfig возвращает настройку действия или common.ErrNotFound.
func (r *Repository) RewardConfig(ctx context.Context, actionType string) (*RewardConfig, error) {
	query := `
		SELECT action_type, points, daily_limit, category, is_active
		FROM reward_config
		WHERE action_type = $1
	`
	var (
		c        RewardConfig
		category string
	)
	err := r.db.QueryRow(ctx, query, actionType).Scan(&c.ActionType, &c.Points, &c.DailyLimit, &category, &c.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reward_config %q: %w", actionType, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения reward_config: %w", err)
	}
	c.Category = Category(category)
	return &c, nil
}

// ListRewardConfigs возвращает всю таблицу наград.
func (r *Repository) ListRewardConfigs(ctx context.Context) ([]RewardConfig, error) {
	rows, err := r.db.Query(ctx, `
		SELECT action_type, points, daily_limit, category, is_active
		FROM reward_config
		ORDER BY action_type
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения reward_config: %w", err)
	}
	defer rows.Close()

	var configs []RewardConfig
	for rows.Next() {
		var (
			c        RewardConfig
			category string
		)
		if err := rows.Scan(&c.ActionType, &c.Points, &c.DailyLimit, &category, &c.IsActive); err != nil {
			return nil, fmt.Errorf("ошибка сканирования reward_config: %w", err)
		}
		c.Category = Category(category)
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// InsertTransaction добавляет запись в журнал.
// Повтор с тем же (user_id, action_type, source_id) — common.ErrDuplicate.
func (r *Repository) InsertTransaction(ctx context.Context, t *PointTransaction) error {
	query := `
		INSERT INTO point_transactions
			(id, user_id, points, action_type, category, description, source_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		t.ID, t.UserID, t.Points, t.ActionType, string(t.Category), t.Description, t.SourceID, t.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("начисление %s/%s уже записано: %w", t.ActionType, derefOr(t.SourceID, "-"), common.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}
	return nil
}

// CountActionsSince считает записи действия пользователя с момента since.
func (r *Repository) CountActionsSince(ctx context.Context, userID int64, actionType string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM point_transactions
		WHERE user_id = $1 AND action_type = $2 AND created_at >= $3
	`
	var count int
	if err := r.db.QueryRow(ctx, query, userID, actionType, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта действий: %w", err)
	}
	return count, nil
}

// SumPoints — сумма всего журнала пользователя.
func (r *Repository) SumPoints(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(points), 0)::BIGINT FROM point_transactions WHERE user_id = $1`, userID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("ошибка суммирования журнала: %w", err)
	}
	return sum, nil
}

// SumPointsByCategories — сумма записей указанных категорий.
func (r *Repository) SumPointsByCategories(ctx context.Context, userID int64, categories []Category) (int64, error) {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, string(c))
	}
	var sum int64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(points), 0)::BIGINT FROM point_transactions
		WHERE user_id = $1 AND category = ANY($2)
	`, userID, names).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("ошибка суммирования по категориям: %w", err)
	}
	return sum, nil
}

// ActionTotals группирует журнал пользователя по action_type.
func (r *Repository) ActionTotals(ctx context.Context, userID int64) ([]ActionTotal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT action_type, category, COALESCE(SUM(points), 0)::BIGINT, COUNT(*)
		FROM point_transactions
		WHERE user_id = $1
		GROUP BY action_type, category
		ORDER BY action_type
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации журнала: %w", err)
	}
	defer rows.Close()

	var totals []ActionTotal
	for rows.Next() {
		var (
			t        ActionTotal
			category string
		)
		if err := rows.Scan(&t.ActionType, &category, &t.Points, &t.Count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования агрегата: %w", err)
		}
		t.Category = Category(category)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// ListTransactions возвращает последние записи пользователя, новые первыми.
func (r *Repository) ListTransactions(ctx context.Context, userID int64, limit int) ([]*PointTransaction, error) {
	query := `
		SELECT id, user_id, points, action_type, category, description, source_id, created_at
		FROM point_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения транзакций: %w", err)
	}
	defer rows.Close()

	var txs []*PointTransaction
	for rows.Next() {
		var (
			t        PointTransaction
			category string
		)
		err := rows.Scan(&t.ID, &t.UserID, &t.Points, &t.ActionType, &category, &t.Description, &t.SourceID, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		t.Category = Category(category)
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}

// LatestActivity возвращает время последней записи журнала пользователя.
func (r *Repository) LatestActivity(ctx context.Context, userID int64) (*time.Time, error) {
	var latest *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT MAX(created_at) FROM point_transactions WHERE user_id = $1`, userID,
	).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения последней активности: %w", err)
	}
	return latest, nil
}

// InactiveUsers возвращает пользователей с положительным балансом,
// у которых нет ни одной записи журнала начиная с since.
func (r *Repository) InactiveUsers(ctx context.Context, since time.Time) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id
		FROM users u
		WHERE u.orbit_points > 0
		  AND NOT EXISTS (
			SELECT 1 FROM point_transactions pt
			WHERE pt.user_id = u.id AND pt.created_at >= $1
		  )
		ORDER BY u.id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки неактивных пользователей: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LastInteraction — время последнего действия sender → receiver (nil, если не было).
func (r *Repository) LastInteraction(ctx context.Context, senderID, receiverID int64, actionType string) (*time.Time, error) {
	var last *time.Time
	err := r.db.QueryRow(ctx, `
		SELECT MAX(created_at) FROM pairwise_interactions
		WHERE sender_id = $1 AND receiver_id = $2 AND action_type = $3
	`, senderID, receiverID, actionType).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки попарного лимита: %w", err)
	}
	return last, nil
}

// RecordInteraction записывает действие sender → receiver.
func (r *Repository) RecordInteraction(ctx context.Context, senderID, receiverID int64, actionType string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO pairwise_interactions (sender_id, receiver_id, action_type, created_at)
		VALUES ($1, $2, $3, $4)
	`, senderID, receiverID, actionType, at)
	if err != nil {
		return fmt.Errorf("ошибка записи взаимодействия: %w", err)
	}
	return nil
}

// InsertThankYouNote сохраняет благодарность.
func (r *Repository) InsertThankYouNote(ctx context.Context, note *ThankYouNote) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO thank_you_notes (id, sender_id, receiver_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, note.ID, note.SenderID, note.ReceiverID, note.Message, note.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("благодарность %s: %w", note.ID, common.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("ошибка записи благодарности: %w", err)
	}
	return nil
}

// isUniqueViolation проверяет код PostgreSQL 23505 (unique_violation).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
