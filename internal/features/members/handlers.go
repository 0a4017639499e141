// Package members — handlers.go: админские эндпоинты синхронизации
// пользователей и управления кешем каталога.
package members

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/orbit-points/internal/api/httpx"
	"serotonyl.ru/orbit-points/internal/common"
)

// Handler обслуживает /api/admin/members и /api/admin/cache.
type Handler struct {
	dir *Directory
}

// NewHandler создаёт обработчик синхронизации участников и кеша.
func NewHandler(dir *Directory) *Handler {
	return &Handler{dir: dir}
}

// Register — PUT /api/admin/members/{id}.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var req RegisterRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	u, err := h.dir.Register(r.Context(), userID, req.Name)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{
		"id":          u.ID,
		"name":        u.Name,
		"orbitPoints": u.OrbitPoints,
		"createdAt":   u.CreatedAt,
	}, nil)
}

// EvictUser — DELETE /api/admin/cache/users/{id}.
func (h *Handler) EvictUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	removed := h.dir.Invalidate(userID)
	log.WithFields(log.Fields{"user_id": userID, "removed": removed}).Info("Запись кеша пользователей сброшена")
	httpx.OK(w, map[string]bool{"evicted": removed}, nil)
}

// PurgeCache — DELETE /api/admin/cache/users.
func (h *Handler) PurgeCache(w http.ResponseWriter, r *http.Request) {
	n := h.dir.Len()
	h.dir.Purge()
	log.WithField("entries", n).Info("Кеш пользователей очищен")
	httpx.OK(w, map[string]int{"evicted": n}, nil)
}

func userIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", common.ErrInvalidInput)
	}
	return id, nil
}
