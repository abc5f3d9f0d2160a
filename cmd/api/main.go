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

	"github.com/gigflowhq/gigflow-backend/api/routes"
	"github.com/gigflowhq/gigflow-backend/internal/connections"
	"github.com/gigflowhq/gigflow-backend/internal/gigs"
	"github.com/gigflowhq/gigflow-backend/internal/messages"
	"github.com/gigflowhq/gigflow-backend/internal/notifications"
	"github.com/gigflowhq/gigflow-backend/internal/orders"
	"github.com/gigflowhq/gigflow-backend/internal/payments"
	"github.com/gigflowhq/gigflow-backend/internal/profiles"
	"github.com/gigflowhq/gigflow-backend/internal/proposals"
	"github.com/gigflowhq/gigflow-backend/internal/realtime"
	"github.com/gigflowhq/gigflow-backend/internal/users"
	"github.com/gigflowhq/gigflow-backend/pkg/config"
	"github.com/gigflowhq/gigflow-backend/pkg/db"
	"github.com/gigflowhq/gigflow-backend/pkg/logger"
	"github.com/gigflowhq/gigflow-backend/pkg/metrics"
	"github.com/gigflowhq/gigflow-backend/pkg/migrate"
	"github.com/gigflowhq/gigflow-backend/pkg/redis"
	"github.com/gigflowhq/gigflow-backend/pkg/stripe"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	eventMetrics := metrics.NewEventMetrics(prometheus.DefaultRegisterer)

	channel, err := realtime.NewChannel(redisClient, logg, eventMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create realtime channel", err)
		os.Exit(1)
	}
	subscriber, err := realtime.NewSubscriber(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create realtime subscriber", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	gigRepo := gigs.NewRepository(gormDB)
	profileRepo := profiles.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(gormDB), channel)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	connectionsSvc, err := connections.NewService(connections.NewRepository(gormDB), userRepo, notificationsSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create connections service", err)
		os.Exit(1)
	}

	proposalsSvc, err := proposals.NewService(proposals.NewRepository(gormDB), orderRepo, gigRepo, userRepo, profileRepo, dbClient, notificationsSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create proposals service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orderRepo, gigRepo, dbClient, notificationsSvc, proposalsSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	guard, err := payments.NewIdempotencyGuard(redisClient, cfg.Stripe.EventTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	paymentsSvc, err := payments.NewService(payments.NewCheckoutClient(stripeClient), ordersSvc, guard, eventMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	messagesSvc, err := messages.NewService(messages.NewRepository(gormDB), connectionsSvc, channel, notificationsSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create messages service", err)
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
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Stripe:        stripeClient,
			Connections:   connectionsSvc,
			Proposals:     proposalsSvc,
			Orders:        ordersSvc,
			Payments:      paymentsSvc,
			Notifications: notificationsSvc,
			Messages:      messagesSvc,
			Realtime:      subscriber,
		}),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "error during server shutdown", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
