// Command evaluator は評価サイクルを1回だけ実行して終了します（cron などからの起動用）。
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"stock_alerts/internal/app/config"
	"stock_alerts/internal/app/di"
	infradb "stock_alerts/internal/platform/db"
	infraredis "stock_alerts/internal/platform/redis"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found; using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	db, err := infradb.OpenDB(infradb.LoadConfigFromEnv())
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	rdb, err := infraredis.NewRedisClient(ctx, infraredis.LoadConfigFromEnv())
	if err != nil {
		slog.Warn("Redis unavailable. Running without cache.", "error", err)
		rdb = nil
	}

	pipeline, err := di.NewPipeline(cfg, db, rdb)
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	report, err := pipeline.Runner.RunCycle(ctx)
	if cerr := pipeline.Close(); cerr != nil {
		slog.Error("failed to close notification sink", "error", cerr)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err != nil {
		slog.Error("evaluation cycle failed", "error", err)
		os.Exit(1)
	}
	slog.Info("evaluation ok",
		"units", report.Units,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"evaluated", report.Evaluated,
		"fired", report.Fired,
		"malformed", report.Malformed,
	)
}
