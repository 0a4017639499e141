// Package members — repository.go синхронизирует таблицу users
// с сервисом идентификации (регистрация и смена имени).
package members

import (
	"context"
	"fmt"
	"time"

	"serotonyl.ru/orbit-points/internal/db/postgres"
	"serotonyl.ru/orbit-points/internal/features/ledger"
)

type Repository struct {
	db postgres.DBTX
}

func NewRepository(db postgres.DBTX) *Repository {
	return &Repository{db: db}
}

// UpsertUser добавляет пользователя. На конфликте по id обновляет только
// имя: баланс и дата регистрации не трогаются.
func (r *Repository) UpsertUser(ctx context.Context, userID int64, name string, now time.Time) (*ledger.User, error) {
	query := `
		INSERT INTO users (id, name, orbit_points, created_at)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name
		RETURNING id, name, orbit_points, created_at
	`
	var u ledger.User
	err := r.db.QueryRow(ctx, query, userID, name, now).Scan(&u.ID, &u.Name, &u.OrbitPoints, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания/обновления пользователя (user_id=%d): %w", userID, err)
	}
	return &u, nil
}
