// cmd/inventory/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"lessonlink/internal/config"
	"lessonlink/internal/inventory"
	"lessonlink/internal/journal"
	"lessonlink/internal/logger"
	"lessonlink/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n\n%s", err, config.Usage())
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, "inventory", cfg.OTLPEndpoint)
	if err != nil {
		log.WithError(err).Fatal("failed to initialise tracing")
	}
	defer shutdownTracer(context.Background())

	store, rec, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).WithField("driver", cfg.StoreDriver).Fatal("failed to open store")
	}
	defer closeStore()

	svc := inventory.NewService(store, rec, log)
	handler := inventory.NewHandler(svc, log,
		inventory.WithMetrics(inventory.NewMetrics()),
		inventory.WithWriteLimit(cfg.WriteRatePerSecond, cfg.WriteBurst),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "driver": cfg.StoreDriver}).Info("starting inventory service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

// openStore builds the configured store and its journal. The returned
// func releases their connections.
func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (inventory.Store, journal.Recorder, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("ping postgres: %w", err)
		}

		store := inventory.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		j := journal.New(db)
		if err := j.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return store, j, func() { db.Close() }, nil

	case config.DriverMongo:
		client, store, err := inventory.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Warn("mongo driver keeps the journal in memory; history is lost on restart")
		return store, journal.NewMemory(), func() { client.Disconnect(context.Background()) }, nil

	default:
		return inventory.NewMemoryStore(), journal.NewMemory(), func() {}, nil
	}
}
