package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marketpay/marketpay-backend/api/routes"
	"github.com/marketpay/marketpay-backend/internal/accounts"
	"github.com/marketpay/marketpay-backend/internal/admin"
	"github.com/marketpay/marketpay-backend/internal/auth"
	"github.com/marketpay/marketpay-backend/internal/ledger"
	"github.com/marketpay/marketpay-backend/internal/notifications"
	"github.com/marketpay/marketpay-backend/internal/orders"
	"github.com/marketpay/marketpay-backend/internal/stores"
	"github.com/marketpay/marketpay-backend/internal/users"
	"github.com/marketpay/marketpay-backend/pkg/config"
	"github.com/marketpay/marketpay-backend/pkg/db"
	"github.com/marketpay/marketpay-backend/pkg/logger"
	"github.com/marketpay/marketpay-backend/pkg/metrics"
	"github.com/marketpay/marketpay-backend/pkg/migrate"
	"github.com/marketpay/marketpay-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}
	if err := migrate.MaybeSeedDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to seed dev data", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	usersRepo := users.NewRepository(dbClient.DB())

	dispatcher, err := notifications.NewDispatcher(notifications.NewRepository(dbClient.DB()), redisClient, logg, cfg.Notifications)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}
	defer dispatcher.Close()

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		TxRunner: dbClient,
		Repo:     ledger.NewRepository(dbClient.DB()),
		Users:    usersRepo,
		Notifier: dispatcher,
		Metrics:  ledgerMetrics,
		Logger:   logg,
		Config:   cfg.Ledger,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		TxRunner:       dbClient,
		UserRepo:       usersRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	accountsService, err := accounts.NewService(accounts.NewRepository(dbClient.DB()), usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	storesService, err := stores.NewService(stores.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create stores service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	adminService, err := admin.NewService(admin.ServiceParams{
		Repo:   admin.NewRepository(dbClient.DB()),
		Users:  usersRepo,
		Orders: ordersService,
		Ledger: ledgerService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, routes.Services{
			Auth:          authService,
			Accounts:      accountsService,
			Ledger:        ledgerService,
			Stores:        storesService,
			Orders:        ordersService,
			Notifications: notificationsService,
			Admin:         adminService,
		}),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			if err := server.Close(); err != nil {
				logg.Error(ctx, "forced shutdown failed", err)
			}
		}
	}
}
