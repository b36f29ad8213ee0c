package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/pokebinder/internal/api"
	"github.com/codyseavey/pokebinder/internal/binder"
	"github.com/codyseavey/pokebinder/internal/config"
	cronrunner "github.com/codyseavey/pokebinder/internal/cron"
	"github.com/codyseavey/pokebinder/internal/database"
	"github.com/codyseavey/pokebinder/internal/logger"
	"github.com/codyseavey/pokebinder/internal/services"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Open(cfg.DB, zl)
	if err != nil {
		zl.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	// Catalog lookups go through a rate limited client and an in-memory cache
	pokemonTCG := services.NewPokemonTCGService(cfg.Catalog, zl)
	catalog := services.NewCachedCatalog(pokemonTCG, cfg.Catalog.CacheSize, cfg.Catalog.CacheTTL)

	store := services.NewGormStore(db)
	rules := binder.NewRules(cfg.Binder.PrizeAnchorRarity)
	collections := services.NewCollectionService(store, catalog, rules, zl)
	snapshots := services.NewSnapshotService(store, zl)
	priceWorker := services.NewPriceWorker(collections, store, zl)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runner *cronrunner.Runner
	if cfg.Cron.Enabled {
		runner = cronrunner.New(ctx, zl)
		if _, err := runner.Add("price_refresh", cfg.Cron.PriceRefresh, priceWorker.RefreshAllUsers); err != nil {
			zl.Fatal("invalid price refresh schedule", zap.Error(err))
		}
		if _, err := runner.Add("value_snapshot", cfg.Cron.ValueSnapshot, snapshots.TakeAll); err != nil {
			zl.Fatal("invalid value snapshot schedule", zap.Error(err))
		}
		runner.Start()
		zl.Info("background jobs scheduled", zap.Int("jobs", runner.Entries()))
	}

	router := api.SetupRouter(cfg.Server, api.Services{
		Catalog:     catalog,
		Collections: collections,
		Snapshots:   snapshots,
		PriceWorker: priceWorker,
	}, zl)

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("starting server", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down server")

	// Stop scheduled jobs before the database closes
	cancel()
	if runner != nil {
		runner.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}

	zl.Info("server exited")
}
