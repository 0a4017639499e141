// Package rewards — credibility.go: шлюз доверия.
// Действия, влияющие на репутацию других (благодарности), доступны только
// пользователям с балансом не ниже порога.
package rewards

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/orbit-points/internal/common"
	"serotonyl.ru/orbit-points/internal/features/ledger"
)

// UserReader — всё, что шлюзу нужно от хранилища.
type UserReader interface {
	GetUser(ctx context.Context, userID int64) (*ledger.User, error)
}

// Gate проверяет, что кешированный баланс >= threshold.
type Gate struct {
	reader    UserReader
	threshold int64
}

// NewGate создаёт шлюз доверия. reader используется для проверок вне транзакции.
func NewGate(reader UserReader, threshold int64) *Gate {
	return &Gate{reader: reader, threshold: threshold}
}

// Threshold возвращает порог (включительно).
func (g *Gate) Threshold() int64 { return g.threshold }

// IsCredible только читает состояние. Любая ошибка чтения — false.
func (g *Gate) IsCredible(ctx context.Context, userID int64) bool {
	err := g.Require(ctx, g.reader, userID)
	if err != nil && !errors.Is(err, common.ErrInsufficientCredibility) {
		log.WithError(err).WithField("user_id", userID).Warn("Не удалось проверить credibility")
	}
	return err == nil
}

// Require возвращает *common.CredibilityError, если баланс ниже порога
// или пользователь не найден. q может быть транзакцией вызывающего кода.
func (g *Gate) Require(ctx context.Context, q UserReader, userID int64) error {
	u, err := q.GetUser(ctx, userID)
	if errors.Is(err, common.ErrUserNotFound) {
		gateDenials.WithLabelValues("credibility").Inc()
		return &common.CredibilityError{Required: g.threshold}
	}
	if err != nil {
		return common.Persistence("проверка credibility", err)
	}
	if u.OrbitPoints < g.threshold {
		gateDenials.WithLabelValues("credibility").Inc()
		return &common.CredibilityError{Required: g.threshold, Current: u.OrbitPoints}
	}
	return nil
}
