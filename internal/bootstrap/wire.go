package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	http_handlers "github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/handlers"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(addr string, debug bool) (DBCloser, error)

	Migrate func(ctx context.Context, db *sql.DB) error

	NewRedis func(addr, password string, db int) RedisClient

	NewPublisher func(rabbitURL string, opts rabbitmq_pub.Options) (account.EventPublisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

type DBCloser interface {
	Close() error
}

type RedisClient interface {
	Ping(ctx context.Context) error
	Close() error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	// 1) store (+ schema)
	accounts, cleanupFns, err := openAccountStore(cfg, deps)
	if err != nil {
		return nil, nil, err
	}

	hasher := security.NewBcryptHasher(cfg.BcryptCost)

	// seed (dev only)
	if cfg.IsDev() && cfg.SeedDemoAccounts {
		postgres.SeedAccounts(context.Background(), accounts, hasher)
	}

	// 3) redis (best-effort): dispatch guard
	var guard account.DispatchGuard = memory.NewDispatchGuard()
	if deps.NewRedis != nil && cfg.RedisAddr != "" {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()

		if err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; dispatch guard in memory")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			if rc, ok := c.(*redis.Client); ok {
				guard = redis.NewDispatchGuard(rc)
			}
		}
	}

	// 4) publisher
	var pub account.EventPublisher
	switch {
	case cfg.RabbitURL == "" && cfg.IsDev():
		logger.Logger.Warn().Msg("RABBIT_URL not set; verification links are logged only")
		pub = memory.NewLogPublisher()
	default:
		p, err := deps.NewPublisher(cfg.RabbitURL, rabbitmq_pub.Options{
			Exchange:         cfg.RabbitExchange,
			VerifyRoutingKey: cfg.VerifyRoutingKey,
		})
		if err != nil {
			if !cfg.IsDev() {
				runCleanup(cleanupFns)
				return nil, nil, err
			}
			logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; using log publisher")
			p = memory.NewLogPublisher()
		}
		pub = p
	}
	if c, ok := pub.(interface{ Close() error }); ok {
		cleanupFns = append(cleanupFns, func() { _ = c.Close() })
	}

	// 5) service
	svc := account.NewService(
		accounts,
		hasher,
		security.NewOpaqueTokens(32),
		pub,
		guard,
		account.Config{
			VerifyBaseURL:      cfg.VerifyBaseURL,
			VerifyTokenTTL:     cfg.VerifyTokenTTL,
			VerificationGating: cfg.VerificationGating,
			StoreTimeout:       cfg.StoreTimeout,
			DispatchTimeout:    cfg.DispatchTimeout,
		},
	)

	auditLog := audit.New(logger.Logger)
	svc = svc.WithAudit(func(ctx context.Context, action string, fields map[string]string) {
		auditLog.Record(ctx, action, fields)
		middleware.RecordAccountEvent(action)
	})

	// 6) handlers + router
	mux, err := deps.NewRouter(router.Deps{
		Health:       http_handlers.NewHealthHandler(svc),
		Account:      http_handlers.NewAccountHandler(svc),
		APIVersion:   cfg.APIVersion,
		MaxBodyBytes: cfg.RequestBodyMaxSize,
	})
	if err != nil {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 7) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB: func(addr string, debug bool) (DBCloser, error) {
			return config.NewDB(addr, debug)
		},
		Migrate: postgres.Migrate,
		NewRedis: func(addr, password string, db int) RedisClient {
			return redis.New(addr, password, db)
		},
		NewPublisher: func(url string, opts rabbitmq_pub.Options) (account.EventPublisher, error) {
			return rabbitmq_pub.NewPublisher(url, opts)
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

// openAccountStore connects Postgres and applies migrations. In dev without
// DB_ADDR the accounts live in process memory and are lost on restart.
func openAccountStore(cfg *config.Config, deps Deps) (account.AccountRepo, []func(), error) {
	if cfg.DBAddr == "" {
		if !cfg.IsDev() {
			return nil, nil, errors.New("bootstrap: DB_ADDR is required outside dev")
		}
		logger.Logger.Warn().Msg("DB_ADDR not set; accounts are kept in memory")
		return memory.NewAccountRepo(), nil, nil
	}

	db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
	if err != nil {
		return nil, nil, err
	}

	cleanupFns := []func(){
		func() { _ = db.Close() },
	}

	sqlDB, ok := db.(*sql.DB)
	if !ok {
		runCleanup(cleanupFns)
		return nil, nil, errors.New("bootstrap: NewDB did not return *sql.DB")
	}

	if cfg.DBMigrate && deps.Migrate != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := deps.Migrate(ctx, sqlDB)
		cancel()
		if err != nil {
			runCleanup(cleanupFns)
			return nil, nil, err
		}
		logger.Logger.Info().Msg("database migrations applied")
	}

	return postgres.NewAccountRepo(sqlDB), cleanupFns, nil
}

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
