// Package decay — ежемесячное затухание баллов неактивных пользователей.
// Затухают только activity и contribution; outcome (заработанное доверие)
// и system не трогаются. Запись point_decay сама считается активностью,
// поэтому повторный запуск в том же окне ничего не делает.
package decay

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

// Report — итог одного прогона.
type Report struct {
	StartedAt     time.Time `json:"startedAt"`
	Cutoff        time.Time `json:"cutoff"`
	Candidates    int       `json:"candidates"`
	Decayed       int       `json:"decayed"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
	PointsRemoved int64     `json:"pointsRemoved"`
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeDecayed
)

// Service выполняет прогон затухания.
type Service struct {
	store          ledger.Store
	clock          common.Clock
	inactivityDays int
	percent        int64
	timeout        time.Duration
}

// NewService создаёт сервис затухания: списывает percent% у тех, кто неактивен inactivityDays суток.
func NewService(store ledger.Store, clock common.Clock, inactivityDays int, percent int64, timeout time.Duration) *Service {
	return &Service{
		store:          store,
		clock:          clock,
		inactivityDays: inactivityDays,
		percent:        percent,
		timeout:        timeout,
	}
}

// Run находит неактивных пользователей и списывает percent% от их
// decayable-суммы. Каждый пользователь — отдельная транзакция: сбой одного
// не откатывает остальных, а перепроверка внутри транзакции не даёт
// списать у того, кто стал активен во время прогона.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	now := s.clock.Now()
	report := &Report{StartedAt: now, Cutoff: common.DaysAgo(now, s.inactivityDays)}

	candidates, err := s.store.InactiveUsers(ctx, report.Cutoff)
	if err != nil {
		runs.WithLabelValues("error").Inc()
		return nil, common.Persistence("поиск неактивных пользователей", err)
	}
	report.Candidates = len(candidates)

	log.WithFields(log.Fields{
		"candidates": len(candidates),
		"cutoff":     common.FormatDateTime(report.Cutoff),
		"percent":    s.percent,
	}).Info("Запуск затухания баллов")

	for _, userID := range candidates {
		if err := ctx.Err(); err != nil {
			runs.WithLabelValues("aborted").Inc()
			return report, fmt.Errorf("затухание прервано: %w", err)
		}

		amount, res, err := s.decayUser(ctx, userID, report.Cutoff, now)
		switch {
		case err != nil:
			report.Failed++
			usersProcessed.WithLabelValues("failed").Inc()
			log.WithError(err).WithField("user_id", userID).Error("Ошибка затухания для пользователя")
		case res == outcomeDecayed:
			report.Decayed++
			report.PointsRemoved += amount
			usersProcessed.WithLabelValues("decayed").Inc()
			pointsRemoved.Add(float64(amount))
			log.WithField("user_id", userID).Debugf("Затухание: %s", common.FormatPoints(-amount))
		default:
			report.Skipped++
			usersProcessed.WithLabelValues("skipped").Inc()
		}
	}

	runs.WithLabelValues("ok").Inc()
	log.WithFields(log.Fields{
		"decayed":        report.Decayed,
		"skipped":        report.Skipped,
		"failed":         report.Failed,
		"points_removed": report.PointsRemoved,
	}).Info("Затухание баллов завершено")
	return report, nil
}

func (s *Service) decayUser(ctx context.Context, userID int64, cutoff, now time.Time) (int64, outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		amount int64
		res    = outcomeSkipped
	)
	err := s.store.WithTx(ctx, func(q ledger.Queries) error {
		user, err := q.LockUser(ctx, userID)
		if errors.Is(err, common.ErrUserNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if user.OrbitPoints <= 0 {
			return nil
		}

		latest, err := q.LatestActivity(ctx, userID)
		if err != nil {
			return err
		}
		if latest != nil && !latest.Before(cutoff) {
			return nil
		}

		decayable, err := q.SumPointsByCategories(ctx, userID, ledger.DecayableCategories)
		if err != nil {
			return err
		}
		amount = Amount(decayable, s.percent, user.OrbitPoints)
		if amount <= 0 {
			return nil
		}

		entry := &ledger.PointTransaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			Points:      -amount,
			ActionType:  ledger.ActionPointDecay,
			Category:    ledger.CategorySystem,
			Description: fmt.Sprintf("Inactivity decay: %d%% of %d decayable points", s.percent, decayable),
			CreatedAt:   now,
		}
		if err := q.InsertTransaction(ctx, entry); err != nil {
			return err
		}
		if _, err := q.AddToBalance(ctx, userID, -amount); err != nil {
			return err
		}
		res = outcomeDecayed
		return nil
	})
	if err != nil {
		return 0, outcomeSkipped, common.Persistence("затухание пользователя", err)
	}
	return amount, res, nil
}

// Amount — сколько списать: percent% от decayable с отбрасыванием дробной
// части, но не больше текущего баланса.
func Amount(decayable, percent, balance int64) int64 {
	if decayable <= 0 || percent <= 0 || balance <= 0 {
		return 0
	}
	amount := decayable * percent / 100
	if amount > balance {
		amount = balance
	}
	return amount
}
