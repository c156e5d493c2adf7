package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/robfig/cron/v3"

	"demandwave/internal/config"
	"demandwave/internal/db"
	"demandwave/internal/market"
	"demandwave/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.New(pool, logger)
	treasuryID, err := st.EnsureTreasury(ctx)
	if err != nil {
		logger.Error("treasury init failed", "err", err)
		os.Exit(1)
	}

	engine, err := market.NewEngine(cfg.Engine, st, st, st, st, treasuryID, logger)
	if err != nil {
		logger.Error("engine init failed", "err", err)
		os.Exit(1)
	}

	if cfg.RunOnce {
		metrics, err := engine.RunWave(ctx)
		if err != nil {
			logger.Error("wave failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed",
			"wave_id", metrics.WaveID,
			"spent_micros", metrics.TotalSpentMicros,
			"succeeded", metrics.SuccessfulPurchases,
			"failed", metrics.FailedPurchases)
		return
	}

	// An overrunning wave must never be overlapped by the next cron firing.
	var running atomic.Bool
	c := cron.New()
	_, err = c.AddFunc(cfg.CronSpec, func() {
		if !running.CompareAndSwap(false, true) {
			logger.Warn("wave still running, skipping scheduled trigger")
			return
		}
		defer running.Store(false)

		metrics, err := engine.RunWave(ctx)
		if err != nil {
			logger.Error("wave failed", "err", err)
			return
		}
		logger.Info("wave finished",
			"wave_id", metrics.WaveID,
			"spent_micros", metrics.TotalSpentMicros,
			"succeeded", metrics.SuccessfulPurchases,
			"failed", metrics.FailedPurchases)
	})
	if err != nil {
		logger.Error("register wave schedule", "cron", cfg.CronSpec, "err", err)
		os.Exit(1)
	}

	c.Start()
	logger.Info("worker started", "cron", cfg.CronSpec, "strategy", cfg.Engine.PlannerStrategy)

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("worker shutdown")
}
