package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/eternalApril/starlight/internal/config"
	"github.com/eternalApril/starlight/internal/logger"
	"github.com/eternalApril/starlight/internal/server"
	"github.com/eternalApril/starlight/internal/storage"
)

func main() {
	cfg, err := config.Load(".", nil)
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Options{
		Name:     "starlight-server",
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Format,
	})
	defer log.Sync() //nolint:errcheck

	log.Info("Starlight sandbox starting",
		zap.String("port", cfg.Server.Port),
		zap.Uint("shards", cfg.Storage.Shards),
	)

	db, err := storage.NewShardedMapStorage(cfg.Storage.Shards)
	if err != nil {
		log.Error("cant initialize storage", zap.Error(err))
		return
	}

	engine := server.NewEngine(db, cfg.GC, log)
	srv := server.New(cfg.Address(), engine, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ready := make(chan error, 1)
	served := make(chan error, 1)
	go func() {
		served <- srv.ListenServeAndSignal(ready)
	}()

	if err := <-ready; err != nil {
		log.Error("listener error", zap.Error(err))
		engine.Shutdown()
		return
	}
	log.Info("listening on", zap.String("address", srv.Addr().String()))

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err := <-served:
		log.Error("server stopped", zap.Error(err))
	}

	if err := srv.Close(); err != nil {
		log.Warn("close listener", zap.Error(err))
	}
	engine.Shutdown()

	log.Info("Starlight sandbox stopped")
}
