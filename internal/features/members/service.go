// Package members — service.go: Directory с ограниченным кешем профилей.
// Кеш expirable LRU: фиксированный размер и явный TTL, инвалидация по id.
package members

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/orbit-points/internal/common"
	"serotonyl.ru/orbit-points/internal/features/ledger"
)

// Source читает пользователя из хранилища.
type Source interface {
	GetUser(ctx context.Context, userID int64) (*ledger.User, error)
}

// Registrar записывает пользователя (PostgreSQL или память).
type Registrar interface {
	UpsertUser(ctx context.Context, userID int64, name string, now time.Time) (*ledger.User, error)
}

// Directory отдаёт профили пользователей, кешируя удачные чтения.
// Отсутствующих пользователей не кешируем: регистрация должна быть видна сразу.
type Directory struct {
	source    Source
	registrar Registrar
	clock     common.Clock
	cache     *expirable.LRU[int64, Profile]
}

// NewDirectory создаёт каталог. size <= 0 или ttl <= 0 — кеш без ограничения
// по соответствующему параметру (так ведёт себя expirable.LRU).
func NewDirectory(source Source, registrar Registrar, clock common.Clock, size int, ttl time.Duration) *Directory {
	return &Directory{
		source:    source,
		registrar: registrar,
		clock:     clock,
		cache:     expirable.NewLRU[int64, Profile](size, nil, ttl),
	}
}

// Get возвращает профиль; для неизвестного id — common.ErrUserNotFound.
func (d *Directory) Get(ctx context.Context, userID int64) (*Profile, error) {
	if p, ok := d.cache.Get(userID); ok {
		cacheLookups.WithLabelValues("hit").Inc()
		return &p, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	u, err := d.source.GetUser(ctx, userID)
	if err != nil {
		return nil, common.Persistence("чтение пользователя", err)
	}
	p := profileFromUser(u)
	d.cache.Add(userID, p)
	return &p, nil
}

// Register создаёт или переименовывает пользователя и сбрасывает его запись в кеше.
func (d *Directory) Register(ctx context.Context, userID int64, name string) (*ledger.User, error) {
	u, err := d.registrar.UpsertUser(ctx, userID, name, d.clock.Now())
	if err != nil {
		return nil, common.Persistence("регистрация пользователя", err)
	}
	d.Invalidate(userID)
	log.WithFields(log.Fields{"user_id": userID, "name": name}).Info("Пользователь синхронизирован")
	return u, nil
}

// Invalidate удаляет одну запись кеша. Возвращает true, если она была.
func (d *Directory) Invalidate(userID int64) bool {
	return d.cache.Remove(userID)
}

// Purge очищает кеш целиком.
func (d *Directory) Purge() {
	d.cache.Purge()
}

// Len — текущее число записей в кеше.
func (d *Directory) Len() int {
	return d.cache.Len()
}
