package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lululufr/Discord-CTFtime-event/internal/config"
	"github.com/lululufr/Discord-CTFtime-event/internal/ctftime"
	"github.com/lululufr/Discord-CTFtime-event/internal/discord"
	"github.com/lululufr/Discord-CTFtime-event/internal/feed"
	"github.com/lululufr/Discord-CTFtime-event/internal/poller"
	"github.com/lululufr/Discord-CTFtime-event/internal/registry"
	"github.com/lululufr/Discord-CTFtime-event/internal/server"
	"github.com/lululufr/Discord-CTFtime-event/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("config", "err", err)
		os.Exit(1)
	}

	pool, err := store.Open(store.Config{
		Path:      cfg.DBPath,
		Logger:    logger,
		OnConnect: registry.EnsureSchema,
	})
	if err != nil {
		logger.Error("store", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	reg := registry.New(pool, cfg.Location, logger)
	catalog := ctftime.New(logger)

	bot, err := discord.New(cfg, reg, catalog, logger)
	if err != nil {
		logger.Error("discord", "err", err)
		os.Exit(1)
	}

	feedPoller, err := poller.New(cfg, feed.NewFetcher(logger), reg, bot, logger)
	if err != nil {
		logger.Error("poller", "err", err)
		os.Exit(1)
	}

	httpSrv := server.New(cfg, reg, bot.Ready, logger)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "err", err)
			os.Exit(1)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("bot stopped", "err", err)
			cancel()
		}
	}()

	if err := feedPoller.Start(); err != nil {
		logger.Error("poller start", "err", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	cancel()
	_ = feedPoller.Stop()
	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = httpSrv.Shutdown(shutdownCtx)

	logger.Info("bye")
}
