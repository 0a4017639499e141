// Package thankyou — service.go: отправка благодарности.
package thankyou

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/orbit-points/internal/common"
	"serotonyl.ru/orbit-points/internal/features/ledger"
	"serotonyl.ru/orbit-points/internal/features/rewards"
)

// Service проводит благодарность целиком: проверки, запись, начисления.
type Service struct {
	store     ledger.Store
	engine    *rewards.Engine
	gate      *rewards.Gate
	limiter   *rewards.PairwiseLimiter
	clock     common.Clock
	maxLength int
	timeout   time.Duration
}

// NewService создаёт сервис благодарностей; maxLength — лимит сообщения в символах.
func NewService(
	store ledger.Store,
	engine *rewards.Engine,
	gate *rewards.Gate,
	limiter *rewards.PairwiseLimiter,
	clock common.Clock,
	maxLength int,
	timeout time.Duration,
) *Service {
	return &Service{
		store:     store,
		engine:    engine,
		gate:      gate,
		limiter:   limiter,
		clock:     clock,
		maxLength: maxLength,
		timeout:   timeout,
	}
}

// Send записывает благодарность и начисляет баллы обеим сторонам.
//
// Всё в одной транзакции:
//  1. Блокируем обоих пользователей в порядке возрастания id
//  2. Получатель должен существовать, себя благодарить нельзя
//  3. Шлюз доверия для отправителя, затем попарный кулдаун
//  4. Пишем благодарность и попарное действие
//  5. send_thank_you отправителю, receive_thank_you получателю
//     (source_id обеих записей — id благодарности)
func (s *Service) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	message, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var result *SendResult
	err = s.store.WithTx(ctx, func(q ledger.Queries) error {
		if err := lockPair(ctx, q, req.SenderID, req.ReceiverID); err != nil {
			return err
		}
		if err := s.gate.Require(ctx, q, req.SenderID); err != nil {
			return err
		}
		if err := s.limiter.Check(ctx, q, req.SenderID, req.ReceiverID); err != nil {
			return err
		}

		note := ledger.ThankYouNote{
			ID:         uuid.NewString(),
			SenderID:   req.SenderID,
			ReceiverID: req.ReceiverID,
			Message:    message,
			CreatedAt:  s.clock.Now(),
		}
		if err := q.InsertThankYouNote(ctx, &note); err != nil {
			return common.Persistence("запись благодарности", err)
		}
		if err := s.limiter.Record(ctx, q, req.SenderID, req.ReceiverID); err != nil {
			return err
		}

		sent, err := s.engine.Award(ctx, q, rewards.AwardRequest{
			UserID:      req.SenderID,
			ActionType:  ledger.ActionSendThankYou,
			Description: fmt.Sprintf("Thank-you note to user %d", req.ReceiverID),
			SourceID:    &note.ID,
		})
		if err != nil {
			return err
		}
		received, err := s.engine.Award(ctx, q, rewards.AwardRequest{
			UserID:      req.ReceiverID,
			ActionType:  ledger.ActionReceiveThankYou,
			Description: fmt.Sprintf("Thank-you note from user %d", req.SenderID),
			SourceID:    &note.ID,
		})
		if err != nil {
			return err
		}

		result = &SendResult{Note: note, SenderAward: sent, ReceiverAward: received}
		return nil
	})
	if err != nil {
		err = common.Persistence("отправка благодарности", err)
		rewards.RecordOutcome(ledger.ActionSendThankYou, nil, err)
		logSendError(req, err)
		return nil, err
	}

	rewards.RecordOutcome(ledger.ActionSendThankYou, result.SenderAward, nil)
	rewards.RecordOutcome(ledger.ActionReceiveThankYou, result.ReceiverAward, nil)
	log.WithFields(log.Fields{
		"note_id":     result.Note.ID,
		"sender_id":   req.SenderID,
		"receiver_id": req.ReceiverID,
		"sender_pts":  result.SenderAward.Awarded,
	}).Info("Благодарность отправлена")
	return result, nil
}

func (s *Service) validate(req SendRequest) (string, error) {
	if req.SenderID <= 0 || req.ReceiverID <= 0 {
		return "", fmt.Errorf("%w: sender and receiver ids must be positive", common.ErrInvalidInput)
	}
	if req.SenderID == req.ReceiverID {
		return "", common.ErrSelfAction
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return "", fmt.Errorf("%w: message is required", common.ErrInvalidInput)
	}
	if utf8.RuneCountInString(message) > s.maxLength {
		return "", fmt.Errorf("%w: message must be at most %d characters", common.ErrInvalidInput, s.maxLength)
	}
	return message, nil
}

// lockPair блокирует строки обоих пользователей в порядке возрастания id,
// чтобы встречные благодарности A→B и B→A не взаимоблокировались.
func lockPair(ctx context.Context, q ledger.Queries, senderID, receiverID int64) error {
	first, second := senderID, receiverID
	if first > second {
		first, second = second, first
	}
	for _, id := range []int64{first, second} {
		_, err := q.LockUser(ctx, id)
		if err == nil {
			continue
		}
		if errors.Is(err, common.ErrUserNotFound) && id == senderID {
			return common.ErrUnauthorized
		}
		return common.Persistence("блокировка участников", err)
	}
	return nil
}

func logSendError(req SendRequest, err error) {
	entry := log.WithError(err).WithFields(log.Fields{
		"sender_id":   req.SenderID,
		"receiver_id": req.ReceiverID,
	})
	if errors.Is(err, common.ErrPersistence) {
		entry.Error("Ошибка отправки благодарности")
		return
	}
	entry.Debug("Благодарность отклонена")
}
