package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"serotonyl.ru/orbit-points/internal/api/httpx"
	"serotonyl.ru/orbit-points/internal/common"
	"serotonyl.ru/orbit-points/internal/features/members"
)

// HeaderUserID выставляет шлюз аутентификации перед сервисом.
// Сам сервис пользователей не аутентифицирует и доверяет этому заголовку.
const HeaderUserID = "X-User-ID"

type userIDKey struct{}

// UserDirectory — источник профилей (members.Directory с кешем).
type UserDirectory interface {
	Get(ctx context.Context, userID int64) (*members.Profile, error)
}

// WithUserID кладёт идентификатор пользователя в контекст.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID достаёт идентификатор вызывающего из контекста.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey{}).(int64)
	return id, ok
}

// Identity читает X-User-ID и проверяет, что такой пользователь существует.
// Нет заголовка или пользователя — 401.
func Identity(dir UserDirectory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(HeaderUserID)
			userID, err := strconv.ParseInt(raw, 10, 64)
			if raw == "" || err != nil || userID <= 0 {
				httpx.Error(w, r, common.ErrUnauthorized)
				return
			}

			if _, err := dir.Get(r.Context(), userID); err != nil {
				if errors.Is(err, common.ErrUserNotFound) {
					httpx.Error(w, r, common.ErrUnauthorized)
					return
				}
				httpx.Error(w, r, err)
				return
			}

			if slot, ok := r.Context().Value(logSlotKey{}).(*logSlot); ok {
				slot.userID = userID
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
