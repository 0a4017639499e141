// Package members — каталог пользователей для слоя HTTP.
// Сами пользователи принадлежат сервису идентификации; здесь только
// кешированное чтение и синхронизация имени.
package members

import (
	"time"

	"serotonyl.ru/orbit-points/internal/features/ledger"
)

// Profile — то, что нужно middleware и обработчикам о пользователе.
// Баланс сюда не попадает: он всегда читается из хранилища.
type Profile struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func profileFromUser(u *ledger.User) Profile {
	return Profile{ID: u.ID, Name: u.Name, CreatedAt: u.CreatedAt}
}

// RegisterRequest — тело PUT /api/admin/members/{id}.
type RegisterRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}
