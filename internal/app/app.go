// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт хранилище, сервисы, обработчики
// и собирает всё в HTTP-сервер и планировщик.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/orbit-points/internal/api"
	"serotonyl.ru/orbit-points/internal/api/middleware"
	"serotonyl.ru/orbit-points/internal/common"
	"serotonyl.ru/orbit-points/internal/config"
	"serotonyl.ru/orbit-points/internal/db/postgres"
	"serotonyl.ru/orbit-points/internal/features/admin"
	"serotonyl.ru/orbit-points/internal/features/decay"
	"serotonyl.ru/orbit-points/internal/features/ledger"
	"serotonyl.ru/orbit-points/internal/features/members"
	"serotonyl.ru/orbit-points/internal/features/rewards"
	"serotonyl.ru/orbit-points/internal/features/summary"
	"serotonyl.ru/orbit-points/internal/features/thankyou"
	"serotonyl.ru/orbit-points/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Server    *api.Server
	Scheduler *jobs.Scheduler // nil, если FEATURE_DECAY_ENABLED=false
	Decay     *decay.Service
	Store     ledger.Store

	handler http.Handler
	limiter *middleware.RateLimiter
	pool    *pgxpool.Pool // nil для APP_STORE=memory
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	clock := common.SystemClock{}

	// === 1. Хранилище ===
	store, registrar, pool, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// === 2. Сервисы ===
	engine := rewards.NewEngine(store, clock, cfg.OperationTimeout)
	gate := rewards.NewGate(store, cfg.CredibilityThreshold)
	limiter := rewards.NewPairwiseLimiter(ledger.ActionSendThankYou, cfg.ThankYouCooldownDays, clock)
	directory := members.NewDirectory(store, registrar, clock, cfg.UserCacheSize, cfg.UserCacheTTL)
	thankYouService := thankyou.NewService(store, engine, gate, limiter, clock, cfg.ThankYouMaxLength, cfg.OperationTimeout)
	summaryService := summary.NewService(store, cfg.SummaryRecentLimit, cfg.OperationTimeout)
	decayService := decay.NewService(store, clock, cfg.DecayInactivityDays, cfg.DecayPercent, cfg.OperationTimeout)

	// === 3. Обработчики ===
	requestLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	handlers := &api.Handlers{
		Directory: directory,
		Limiter:   requestLimiter,
		AdminAuth: admin.NewAuth(cfg.AdminKeyHash),
		Rewards:   rewards.NewHandler(engine, gate, store, api.CallerID),
		ThankYou:  thankyou.NewHandler(thankYouService, api.CallerID, cfg.FeatureThankYouEnabled),
		Summary:   summary.NewHandler(summaryService, api.CallerID),
		Members:   members.NewHandler(directory),
		Admin:     admin.NewHandler(engine, decayService, cfg.FeatureDecayEnabled),
	}
	if pool != nil {
		handlers.Health = pool.Ping
	}
	if !handlers.AdminAuth.Enabled() {
		log.Warn("ADMIN_KEY_HASH не задан, админские ручки отключены")
	}

	// === 4. Планировщик задач ===
	var scheduler *jobs.Scheduler
	if cfg.FeatureDecayEnabled {
		scheduler, err = jobs.NewScheduler(decayService, cfg.DecaySchedule, cfg.DecayTimezone)
		if err != nil {
			requestLimiter.Close()
			if pool != nil {
				pool.Close()
			}
			return nil, err
		}
	}

	router := api.NewRouter(*handlers)
	return &App{
		Server:    api.NewServer(cfg.HTTPAddr, router),
		Scheduler: scheduler,
		Decay:     decayService,
		Store:     store,
		handler:   router,
		limiter:   requestLimiter,
		pool:      pool,
	}, nil
}

// Handler — корневой HTTP-обработчик (для тестов и встраивания).
func (a *App) Handler() http.Handler { return a.handler }

// Close освобождает ресурсы: фоновую очистку лимитера и пул БД.
func (a *App) Close() {
	a.limiter.Close()
	if a.pool != nil {
		a.pool.Close()
	}
}

// DecayApp — сборка для разового затухания (cmd/decay): только хранилище
// и decay.Service, без HTTP-роутера, лимитера и планировщика.
type DecayApp struct {
	Decay *decay.Service
	Store ledger.Store

	pool *pgxpool.Pool
}

// NewDecay подключается к хранилищу, применяет миграции и создаёт сервис затухания.
func NewDecay(ctx context.Context, cfg *config.Config) (*DecayApp, error) {
	store, _, pool, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &DecayApp{
		Decay: decay.NewService(store, common.SystemClock{}, cfg.DecayInactivityDays, cfg.DecayPercent, cfg.OperationTimeout),
		Store: store,
		pool:  pool,
	}, nil
}

// Close закрывает пул БД.
func (a *DecayApp) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func openStore(ctx context.Context, cfg *config.Config) (ledger.Store, members.Registrar, *pgxpool.Pool, error) {
	if cfg.AppStore == config.StoreMemory {
		log.Warn("APP_STORE=memory: данные живут только в памяти процесса")
		store := ledger.NewMemoryStore()
		return store, store, nil, nil
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	if err := postgres.RunMigrations(ctx, pool, Migrations); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("ошибка миграций: %w", err)
	}
	return ledger.NewPostgresStore(pool), members.NewRepository(pool), pool, nil
}
