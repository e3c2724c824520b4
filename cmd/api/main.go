package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shopdhq/shopd/internal/cart"
	"github.com/shopdhq/shopd/internal/catalog"
	"github.com/shopdhq/shopd/internal/config"
	"github.com/shopdhq/shopd/internal/httpx"
	"github.com/shopdhq/shopd/internal/identity"
	kafkax "github.com/shopdhq/shopd/internal/kafka"
	"github.com/shopdhq/shopd/internal/ledger"
	"github.com/shopdhq/shopd/internal/logger"
	"github.com/shopdhq/shopd/internal/postgres"
	"github.com/shopdhq/shopd/internal/redisx"
	"github.com/shopdhq/shopd/internal/reviews"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(logger.Options{Service: cfg.ServiceName, Env: cfg.Env, Level: cfg.LogLevel})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, cfg.PostgresMinConns)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	placedPub := kafkax.NewProducer(cfg.KafkaBrokers, ledger.TopicOrderPlaced, 1024)
	placedPub.Start(ctx)
	cancelledPub := kafkax.NewProducer(cfg.KafkaBrokers, ledger.TopicOrderCancelled, 1024)
	cancelledPub.Start(ctx)

	ledgerRepo := &ledger.Repo{DB: db}
	identityRepo := &identity.Repo{DB: db}
	sessions := &identity.Sessions{Redis: rdb}

	router := httpx.NewRouter()

	(&httpx.OrdersHandler{
		Ledger:       ledgerRepo,
		Admins:       identityRepo,
		PlacedPub:    placedPub,
		CancelledPub: cancelledPub,
		Redis:        rdb,
		Sessions:     sessions,
		Service:      cfg.ServiceName,
	}).Register(router)

	(&httpx.CatalogHandler{
		Catalog:  &catalog.Repo{DB: db},
		Sessions: sessions,
	}).Register(router)

	(&httpx.CartHandler{
		Cart:     &cart.Repo{DB: db},
		Sessions: sessions,
	}).Register(router)

	(&httpx.IdentityHandler{
		Identity: identityRepo,
		Sessions: sessions,
	}).Register(router)

	(&httpx.ReviewsHandler{
		Reviews:  &reviews.Repo{DB: db, Purchases: ledgerRepo},
		Sessions: sessions,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	placedPub.Close()
	cancelledPub.Close()
	cancel()
	placedPub.WaitClosed()
	cancelledPub.WaitClosed()
}
