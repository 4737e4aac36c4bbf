package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/eventix/internal/api/http"
	"github.com/spec-kit/eventix/internal/api/http/handlers"
	"github.com/spec-kit/eventix/internal/auth"
	"github.com/spec-kit/eventix/internal/config"
	"github.com/spec-kit/eventix/internal/events"
	"github.com/spec-kit/eventix/internal/ledger"
	"github.com/spec-kit/eventix/internal/lock"
	"github.com/spec-kit/eventix/internal/observability"
	"github.com/spec-kit/eventix/internal/persistence"
	"github.com/spec-kit/eventix/internal/repository"
	"github.com/spec-kit/eventix/internal/service"
	"github.com/spec-kit/eventix/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	dependencies := map[string]handlers.Pinger{}

	var redisConn *persistence.Redis
	if cfg.Registry.Backend == config.BackendRedis || cfg.Redis.MintLocks {
		redisConn = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redisConn.Close()
		dependencies["redis"] = redisConn
	}

	var durable repository.Store
	switch cfg.Registry.Backend {
	case config.BackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Warn("failed to connect postgres", zap.Error(err))
			pg = &persistence.Postgres{}
		}
		defer pg.Close()
		dependencies["postgres"] = pg

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Warn("failed to run migrations", zap.Error(err))
			}
		}
		durable = repository.NewPostgresStore(pg.PoolHandle())
	case config.BackendRedis:
		durable = repository.NewRedisStore(redisConn.Client, redisConn.Prefix)
	case config.BackendMemory:
		logger.Warn("registry backend is memory; state is lost on restart")
	}

	registry := repository.NewRegistry(durable, repository.NewMemoryStore(), logger, metrics,
		repository.WithOperationTimeout(cfg.Registry.OperationTimeout()))
	checkCtx, checkCancel := context.WithTimeout(ctx, 5*time.Second)
	_ = registry.CheckDurable(checkCtx)
	checkCancel()

	var gateway ledger.Gateway
	if cfg.Ledger.Simulated() {
		logger.Warn("LEDGER_URL not provided; using simulated ledger")
		gateway = ledger.NewSimulator(logger, metrics)
	} else {
		gateway = ledger.NewHTTPClient(cfg.Ledger, logger, metrics)
	}

	var locker lock.MintLocker = lock.NewLocalMintLocker()
	if cfg.Redis.MintLocks {
		locker = lock.WithLocalFallback(
			lock.NewRedisMintLocker(redisConn.Client, redisConn.Prefix, 2*cfg.Ledger.Timeout()), logger)
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartNotificationWorker(dispatcher, logger, cfg.Notification)

	catalog := service.LoadCatalog(cfg.Catalog.Path, logger)
	ticketService := service.NewTicketService(service.TicketDependencies{
		Registry:   registry,
		Ledger:     gateway,
		Catalog:    catalog,
		Locker:     locker,
		Dispatcher: dispatcher,
		Logger:     logger,
		// one durable attempt plus the fallback write
		PersistTimeout: 2 * cfg.Registry.OperationTimeout(),
	})
	authService := service.NewAuthService(cfg.Auth, registry)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), registry)

	reconcilerDone := worker.StartReconciler(ctx, ticketService, cfg.Worker.ReconcileInterval(), logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	var idempotency *httptransport.IdempotencyStore
	if ttl := cfg.App.IdempotencyTTL(); ttl > 0 {
		idempotency = httptransport.NewIdempotencyStore(ttl, logger)
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(handlers.HealthConfig{
			ServiceName:  cfg.App.Name,
			Version:      cfg.App.Version,
			Registry:     registry,
			LedgerMode:   gateway.Mode(),
			Dependencies: dependencies,
			Metrics:      metrics,
		}),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: authMiddleware,
		Idempotency:    idempotency,
	})

	logger.Info("starting eventix",
		zap.String("addr", cfg.App.Addr()),
		zap.String("registry", registry.Mode()),
		zap.String("ledger", gateway.Mode()),
		zap.Int("catalog_items", catalog.Len()))

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	<-reconcilerDone
	_ = app.ShutdownWithTimeout(10 * time.Second)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
