package summary

import (
	"net/http"

	"serotonyl.ru/orbit-points/internal/api/httpx"
	"serotonyl.ru/orbit-points/internal/common"
	"serotonyl.ru/orbit-points/internal/features/rewards"
)

// Handler — GET /api/points/summary.
type Handler struct {
	service *Service
	userID  rewards.UserIDFunc
}

// NewHandler создаёт обработчик сводки.
func NewHandler(service *Service, userID rewards.UserIDFunc) *Handler {
	return &Handler{service: service, userID: userID}
}

// Summary — GET /api/points/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		httpx.Error(w, r, common.ErrUnauthorized)
		return
	}
	sum, err := h.service.Summarize(r.Context(), userID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, sum, nil)
}
