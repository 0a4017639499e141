// Package rewards — engine.go: единая точка начисления баллов.
// Запись в журнал и изменение кешированного баланса происходят в одной
// транзакции, поэтому сумма журнала и orbit_points не расходятся.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/orbit-points/internal/common"
	"serotonyl.ru/orbit-points/internal/features/ledger"
)

// Engine начисляет баллы по reward_config.
type Engine struct {
	store   ledger.Store
	clock   common.Clock
	timeout time.Duration
}

// NewEngine создаёт движок наград.
func NewEngine(store ledger.Store, clock common.Clock, timeout time.Duration) *Engine {
	return &Engine{store: store, clock: clock, timeout: timeout}
}

// Award начисляет баллы внутри транзакции вызывающего кода (q из Store.WithTx).
//
// Алгоритм:
//  1. Проверяем входные данные (до любого обращения к БД)
//  2. Ищем reward_config; нет или выключен — UnknownActionError
//  3. Сумма = req.Points, если задана, иначе config.points
//  4. Блокируем строку пользователя (FOR UPDATE)
//  5. Если есть daily_limit — считаем записи за текущие сутки UTC;
//     лимит исчерпан: Strict → ErrLimitExceeded, иначе начисляем 0
//  6. Пишем запись журнала и увеличиваем orbit_points
func (e *Engine) Award(ctx context.Context, q ledger.Queries, req AwardRequest) (*AwardResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	cfg, err := q.RewardConfig(ctx, req.ActionType)
	if errors.Is(err, common.ErrNotFound) {
		return nil, &common.UnknownActionError{Action: req.ActionType}
	}
	if err != nil {
		return nil, common.Persistence("загрузка reward_config", err)
	}
	if !cfg.IsActive {
		return nil, &common.UnknownActionError{Action: req.ActionType}
	}

	amount := cfg.Points
	if req.Points != nil {
		amount = *req.Points
	}

	user, err := q.LockUser(ctx, req.UserID)
	if err != nil {
		return nil, common.Persistence("блокировка пользователя", err)
	}

	result := &AwardResult{Attempted: amount, Balance: user.OrbitPoints}
	if amount == 0 {
		return result, nil
	}

	now := e.clock.Now()
	if cfg.DailyLimit != nil {
		count, err := q.CountActionsSince(ctx, req.UserID, req.ActionType, common.StartOfDayUTC(now))
		if err != nil {
			return nil, common.Persistence("подсчёт дневного лимита", err)
		}
		if count >= *cfg.DailyLimit {
			if req.Strict {
				return nil, fmt.Errorf("%w: %s allows %d per day", common.ErrLimitExceeded, req.ActionType, *cfg.DailyLimit)
			}
			result.Capped = true
			log.WithFields(log.Fields{
				"user_id": req.UserID,
				"action":  req.ActionType,
				"limit":   *cfg.DailyLimit,
			}).Debug("Дневной лимит исчерпан, начисляем 0")
			return result, nil
		}
	}

	entry := &ledger.PointTransaction{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Points:      amount,
		ActionType:  req.ActionType,
		Category:    cfg.Category,
		Description: req.Description,
		SourceID:    req.SourceID,
		CreatedAt:   now,
	}
	if err := q.InsertTransaction(ctx, entry); err != nil {
		return nil, common.Persistence("запись в журнал", err)
	}

	balance, err := q.AddToBalance(ctx, req.UserID, amount)
	if err != nil {
		return nil, common.Persistence("обновление баланса", err)
	}

	result.Awarded = amount
	result.TransactionID = entry.ID
	result.Balance = balance
	return result, nil
}

// AwardOne начисляет баллы в собственной транзакции с таймаутом OPERATION_TIMEOUT.
func (e *Engine) AwardOne(ctx context.Context, req AwardRequest) (*AwardResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var result *AwardResult
	err := e.store.WithTx(ctx, func(q ledger.Queries) error {
		var err error
		result, err = e.Award(ctx, q, req)
		return err
	})
	RecordOutcome(req.ActionType, result, err)
	if err != nil {
		err = common.Persistence("начисление", err)
		logAwardError(req, err)
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":   req.UserID,
		"action":    req.ActionType,
		"attempted": result.Attempted,
		"awarded":   result.Awarded,
		"balance":   result.Balance,
	}).Info("Начисление выполнено")
	return result, nil
}

// RecordOutcome обновляет метрики после коммита (или отката) транзакции.
func RecordOutcome(action string, result *AwardResult, err error) {
	switch {
	case err == nil && result != nil && result.Capped:
		awardOutcomes.WithLabelValues(action, "capped").Inc()
	case err == nil && result != nil:
		awardOutcomes.WithLabelValues(action, "awarded").Inc()
		if result.Awarded > 0 {
			pointsAwarded.WithLabelValues(action).Add(float64(result.Awarded))
		}
	case errors.Is(err, common.ErrLimitExceeded):
		awardOutcomes.WithLabelValues(action, "limit_exceeded").Inc()
	case errors.Is(err, common.ErrUnknownAction):
		awardOutcomes.WithLabelValues(action, "unknown_action").Inc()
	case err != nil:
		awardOutcomes.WithLabelValues(action, "error").Inc()
	}
}

func logAwardError(req AwardRequest, err error) {
	entry := log.WithError(err).WithFields(log.Fields{
		"user_id": req.UserID,
		"action":  req.ActionType,
	})
	if errors.Is(err, common.ErrPersistence) {
		entry.Error("Ошибка начисления")
		return
	}
	entry.Debug("Начисление отклонено")
}

func validateRequest(req AwardRequest) error {
	if req.UserID <= 0 {
		return fmt.Errorf("%w: user id must be positive", common.ErrInvalidInput)
	}
	if req.ActionType == "" {
		return fmt.Errorf("%w: action type is required", common.ErrInvalidInput)
	}
	if req.Points != nil && *req.Points == 0 {
		return fmt.Errorf("%w: explicit points must be non-zero", common.ErrInvalidInput)
	}
	return nil
}
