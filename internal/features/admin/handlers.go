package admin

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/orbit-points/internal/api/httpx"
	"serotonyl.ru/orbit-points/internal/common"
	"serotonyl.ru/orbit-points/internal/features/decay"
	"serotonyl.ru/orbit-points/internal/features/rewards"
)

// DecayRunner — то, что запускает затухание (decay.Service).
type DecayRunner interface {
	Run(ctx context.Context) (*decay.Report, error)
}

// AwardBody — тело POST /api/admin/awards.
type AwardBody struct {
	UserID      int64   `json:"userId" validate:"required,gt=0"`
	ActionType  string  `json:"actionType" validate:"required,max=64"`
	Points      *int64  `json:"points" validate:"omitempty,ne=0"`
	Description string  `json:"description" validate:"max=500"`
	SourceID    *string `json:"sourceId" validate:"omitempty,min=1,max=128"`
	Strict      bool    `json:"strict"`
}

// Handler — админские ручки: ручные начисления и запуск затухания.
type Handler struct {
	engine       *rewards.Engine
	decay        DecayRunner
	decayEnabled bool
}

// NewHandler создаёт обработчик; при decayEnabled=false RunDecay отвечает 404.
func NewHandler(engine *rewards.Engine, decay DecayRunner, decayEnabled bool) *Handler {
	return &Handler{engine: engine, decay: decay, decayEnabled: decayEnabled}
}

// Award — POST /api/admin/awards: начисление от имени системы
// (консультации, корректировки с явной суммой).
func (h *Handler) Award(w http.ResponseWriter, r *http.Request) {
	var body AwardBody
	if err := httpx.Decode(r, &body); err != nil {
		httpx.Error(w, r, err)
		return
	}

	result, err := h.engine.AwardOne(r.Context(), rewards.AwardRequest{
		UserID:      body.UserID,
		ActionType:  body.ActionType,
		Description: body.Description,
		SourceID:    body.SourceID,
		Points:      body.Points,
		Strict:      body.Strict,
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	log.WithFields(log.Fields{
		"user_id": body.UserID,
		"action":  body.ActionType,
		"awarded": result.Awarded,
	}).Info("Ручное начисление через админку")
	awarded := result.Awarded
	httpx.OK(w, result, &awarded)
}

// RunDecay — POST /api/admin/decay/run.
func (h *Handler) RunDecay(w http.ResponseWriter, r *http.Request) {
	if !h.decayEnabled {
		httpx.Error(w, r, common.ErrNotFound)
		return
	}
	report, err := h.decay.Run(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, report, nil)
}
