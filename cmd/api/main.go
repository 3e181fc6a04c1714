package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/registro-bienes-backend/api/routes"
	"github.com/angelmondragon/registro-bienes-backend/internal/goods"
	"github.com/angelmondragon/registro-bienes-backend/internal/renaper"
	"github.com/angelmondragon/registro-bienes-backend/internal/stock"
	"github.com/angelmondragon/registro-bienes-backend/internal/traceability"
	"github.com/angelmondragon/registro-bienes-backend/internal/transactions"
	"github.com/angelmondragon/registro-bienes-backend/internal/uniqueitems"
	"github.com/angelmondragon/registro-bienes-backend/internal/users"
	"github.com/angelmondragon/registro-bienes-backend/pkg/config"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db"
	"github.com/angelmondragon/registro-bienes-backend/pkg/logger"
	"github.com/angelmondragon/registro-bienes-backend/pkg/metrics"
	"github.com/angelmondragon/registro-bienes-backend/pkg/migrate"
	"github.com/angelmondragon/registro-bienes-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "bienes-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "bienes-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis disabled; idempotency, rate limiting and gateway cache are off")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps, err := buildDeps(cfg, logg, dbClient, redisClient, reg)
	if err != nil {
		logg.Error(ctx, "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(logCtx, "shutting down api server")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logg.Error(logCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildDeps(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg *prometheus.Registry) (routes.Deps, error) {
	conn := dbClient.DB()

	ledger, err := stock.NewLedger(stock.NewRepository(conn))
	if err != nil {
		return routes.Deps{}, err
	}
	registry, err := uniqueitems.NewRegistry(uniqueitems.NewRepository(conn), cfg.Goods.SerializedTypes)
	if err != nil {
		return routes.Deps{}, err
	}
	userRepo := users.NewRepository(conn)

	catalog, err := goods.NewService(goods.NewRepository(conn), dbClient, userRepo, ledger, registry)
	if err != nil {
		return routes.Deps{}, err
	}
	recorder, err := transactions.NewService(
		transactions.NewRepository(conn),
		dbClient,
		userRepo,
		catalog,
		ledger,
		registry,
		metrics.NewTransferMetrics(reg),
		logg,
	)
	if err != nil {
		return routes.Deps{}, err
	}
	history, err := traceability.NewService(traceability.NewRepository(conn))
	if err != nil {
		return routes.Deps{}, err
	}

	opts := []renaper.Option{
		renaper.WithMetrics(metrics.NewGatewayMetrics(reg)),
		renaper.WithLogger(logg),
	}
	if redisClient != nil {
		opts = append(opts, renaper.WithCache(redisClient))
	}
	gateway, err := renaper.NewClient(cfg.Renaper, opts...)
	if err != nil {
		return routes.Deps{}, err
	}

	return routes.Deps{
		DB:           dbClient,
		Redis:        redisClient,
		Goods:        catalog,
		Transactions: recorder,
		Traceability: history,
		Gateway:      gateway,
		Gatherer:     reg,
		HTTPMetrics:  metrics.NewHTTPMetrics(reg),
	}, nil
}
