package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/liseren91/aistore-billing/internal/api"
	"github.com/liseren91/aistore-billing/internal/cart"
	"github.com/liseren91/aistore-billing/internal/clients/catalog"
	"github.com/liseren91/aistore-billing/internal/currency"
	"github.com/liseren91/aistore-billing/internal/ledger"
	"github.com/liseren91/aistore-billing/internal/purchase"
	"github.com/liseren91/aistore-billing/internal/repository"
	"github.com/liseren91/aistore-billing/internal/repository/inmem"
	"github.com/liseren91/aistore-billing/pkg/broker"
	"github.com/liseren91/aistore-billing/pkg/config"
	"github.com/liseren91/aistore-billing/pkg/job"
	"github.com/liseren91/aistore-billing/pkg/logger"
	"github.com/liseren91/aistore-billing/pkg/postgres"
)

const (
	ReadTimeout  = 3 * time.Second
	WriteTimeout = 5 * time.Second
)

type store interface {
	ledger.Repository
	cart.Repository
	purchase.Repository
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New(".env")
	panicOnErr("load config", err)

	_, err = logger.New(cfg.Logger.Level, cfg.Logger.Format)
	panicOnErr("create logger", err)

	var repo store

	if cfg.Postgres.DSN != "" {
		pool, err := postgres.Connect(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConn)
		panicOnErr("connect to postgres", err)
		defer pool.Close()

		err = postgres.UpMigrations(pool)
		panicOnErr("up migrations", err)

		repo = repository.New(pool)
	} else {
		slog.WarnContext(ctx, "POSTGRES_DSN is empty, using in-memory storage")

		repo = inmem.New()
	}

	conv, err := currency.NewConverter(cfg.Currency.UsdRubRate, cfg.Currency.CommissionPercent)
	panicOnErr("create currency converter", err)

	catalogClient := catalog.NewClient(cfg.Catalog.BaseURL)

	var producer purchase.Producer = broker.NopProducer{}

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.PurchaseEventsTopic)
		defer kafkaProducer.Close()

		producer = kafkaProducer
	}

	ledgerService := ledger.New(repo)
	cartService := cart.New(repo, catalogClient, conv)
	purchaseService := purchase.New(repo, ledgerService, cartService, producer, conv)

	runner := job.NewRunner().
		Register("refresh catalog cache", time.Hour, catalogClient.Refresh).
		Register("purge abandoned cart items", 24*time.Hour, cartService.PurgeAbandoned)
	runner.Start(ctx)

	handler := api.NewHandler(ledgerService, cartService, purchaseService, catalogClient)
	mw := api.NewMiddleware(cfg.HTTP.APIKeyEnabled, cfg.HTTP.APIKey)

	router := api.NewRouter(handler, mw)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
	}

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panicf("listen and serve: %s", err)
		}
	}()

	slog.InfoContext(ctx, "service started", "port", cfg.HTTP.Port)

	wg.Add(1)

	go func() {
		defer wg.Done()

		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
		sig := <-ch

		slog.InfoContext(ctx, "got OS signal", "signal", sig.String())

		err = server.Shutdown(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "server shutdown", "error", err)
		}

		cancel()
	}()

	wg.Wait()
	runner.Stop()
}

func panicOnErr(msg string, err error) {
	if err != nil {
		log.Panicf("%s: %s", msg, err)
	}
}
