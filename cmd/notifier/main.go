package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/shopdhq/shopd/internal/config"
	kafkax "github.com/shopdhq/shopd/internal/kafka"
	"github.com/shopdhq/shopd/internal/ledger"
	"github.com/shopdhq/shopd/internal/logger"
	"github.com/shopdhq/shopd/internal/notifier"
	"github.com/shopdhq/shopd/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(logger.Options{Service: cfg.ServiceName + "-notifier", Env: cfg.Env, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notifier.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-notifier",
	}

	group := getenv("NOTIFIER_GROUP", "notifier-svc")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), 4)

	g, ctx := errgroup.WithContext(ctx)
	for _, topic := range []string{ledger.TopicOrderPlaced, ledger.TopicOrderCancelled} {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers)
		log.Info("consumer starting", "group", group, "topic", topic, "workers", workers)
		g.Go(func() error {
			return cons.Start(ctx, svc.HandleOrderEvent)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("consumer exit", "err", err)
		os.Exit(1)
	}
	log.Info("shutting down")
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
