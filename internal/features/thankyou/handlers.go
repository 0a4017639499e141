package thankyou

import (
	"net/http"

	"serotonyl.ru/orbit-points/internal/api/httpx"
	"serotonyl.ru/orbit-points/internal/common"
	"serotonyl.ru/orbit-points/internal/features/rewards"
)

// Handler — POST /api/thank-you.
type Handler struct {
	service *Service
	userID  rewards.UserIDFunc
	enabled bool
}

// NewHandler создаёт обработчик; enabled=false — ручка отвечает 404.
func NewHandler(service *Service, userID rewards.UserIDFunc, enabled bool) *Handler {
	return &Handler{service: service, userID: userID, enabled: enabled}
}

// Send — POST /api/thank-you. pointsAwarded — баллы отправителя.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		httpx.Error(w, r, common.ErrNotFound)
		return
	}
	senderID, ok := h.userID(r)
	if !ok {
		httpx.Error(w, r, common.ErrUnauthorized)
		return
	}

	var body sendBody
	if err := httpx.Decode(r, &body); err != nil {
		httpx.Error(w, r, err)
		return
	}

	result, err := h.service.Send(r.Context(), SendRequest{
		SenderID:   senderID,
		ReceiverID: body.ReceiverID,
		Message:    body.Message,
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	awarded := result.SenderAward.Awarded
	httpx.OK(w, result, &awarded)
}
