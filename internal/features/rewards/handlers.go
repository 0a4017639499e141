// Package rewards — handlers.go: HTTP-эндпоинты наград.
package rewards

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"serotonyl.ru/orbit-points/internal/api/httpx"
	"serotonyl.ru/orbit-points/internal/common"
	"serotonyl.ru/orbit-points/internal/features/ledger"
)

// SelfServiceActions — действия, о которых пользователь сообщает сам.
// Остальные начисляются только внутренними потоками (благодарности, админка, decay).
var SelfServiceActions = map[string]bool{
	ledger.ActionDailyLogin:      true,
	ledger.ActionProfileUpdate:   true,
	ledger.ActionChapterPost:     true,
	ledger.ActionEventAttendance: true,
	ledger.ActionEventFeedback:   true,
}

// UserIDFunc достаёт id вызывающего из контекста запроса.
type UserIDFunc func(r *http.Request) (int64, bool)

// TrackRequest — тело POST /api/actions/{action}.
type TrackRequest struct {
	Description string  `json:"description" validate:"max=500"`
	SourceID    *string `json:"sourceId" validate:"omitempty,min=1,max=128"`
}

// Handler обслуживает эндпоинты наград и доверия.
type Handler struct {
	engine *Engine
	gate   *Gate
	store  ledger.Queries
	userID UserIDFunc
}

// NewHandler создаёт обработчик; store используется только для чтения конфигурации.
func NewHandler(engine *Engine, gate *Gate, store ledger.Queries, userID UserIDFunc) *Handler {
	return &Handler{engine: engine, gate: gate, store: store, userID: userID}
}

// Config — GET /api/rewards/config: активные действия и их стоимость.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	configs, err := h.store.ListRewardConfigs(r.Context())
	if err != nil {
		httpx.Error(w, r, common.Persistence("список reward_config", err))
		return
	}
	active := make([]ledger.RewardConfig, 0, len(configs))
	for _, c := range configs {
		if c.IsActive {
			active = append(active, c)
		}
	}
	httpx.OK(w, active, nil)
}

// Credibility — GET /api/points/credibility.
func (h *Handler) Credibility(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		httpx.Error(w, r, common.ErrUnauthorized)
		return
	}
	httpx.OK(w, map[string]any{
		"credible":  h.gate.IsCredible(r.Context(), userID),
		"threshold": h.gate.Threshold(),
	}, nil)
}

// Track — POST /api/actions/{action}: самостоятельно заявленное действие.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		httpx.Error(w, r, common.ErrUnauthorized)
		return
	}
	action := chi.URLParam(r, "action")
	if !SelfServiceActions[action] {
		httpx.Error(w, r, fmt.Errorf("%w: action %q cannot be reported directly", common.ErrForbidden, action))
		return
	}

	var req TrackRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}

	result, err := h.engine.AwardOne(r.Context(), AwardRequest{
		UserID:      userID,
		ActionType:  action,
		Description: req.Description,
		SourceID:    req.SourceID,
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	awarded := result.Awarded
	httpx.OK(w, result, &awarded)
}
