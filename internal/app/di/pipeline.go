package di

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"stock_alerts/internal/app/config"
	alertadapters "stock_alerts/internal/feature/alert/adapters"
	alerthandler "stock_alerts/internal/feature/alert/transport/handler"
	alertusecase "stock_alerts/internal/feature/alert/usecase"
	indicatorusecase "stock_alerts/internal/feature/indicator/usecase"
	symbollistadapters "stock_alerts/internal/feature/symbollist/adapters"
	symbollisthandler "stock_alerts/internal/feature/symbollist/transport/handler"
	symbollistusecase "stock_alerts/internal/feature/symbollist/usecase"
	"stock_alerts/internal/platform/cache"
	healthhandler "stock_alerts/internal/platform/http/handler"
	"stock_alerts/internal/platform/metrics"
)

// Pipeline は評価パイプラインと読み取りAPIが使うコンポーネント一式です。
type Pipeline struct {
	Runner   *alertusecase.Runner
	Recorder *metrics.Recorder

	AlertHandler  *alerthandler.AlertHandler
	SymbolHandler *symbollisthandler.SymbolHandler
	HealthHandler *healthhandler.HealthHandler

	closeSink func() error
}

// NewPipeline はDBとRedis（nil可）からパイプラインを組み立てます。
func NewPipeline(cfg config.Config, db *gorm.DB, rdb *redis.Client) (*Pipeline, error) {
	logger := slog.Default()
	recorder := metrics.NewRecorder()

	sink, closeSink, err := NewNotificationSink(cfg.Notify, logger)
	if err != nil {
		return nil, err
	}

	// Repository
	alertRepo := alertadapters.NewAlertRepository(db)
	symbolRepo := symbollistadapters.NewSymbolRepository(db)
	snapshots := NewSnapshotStore(rdb, cfg.Cache.SnapshotTTL)

	// Usecase
	candles := NewCandleSource(db, rdb, func(interval string) time.Duration {
		return cache.CandleTTL(interval, time.Now(), cfg.Cache.CandleIngestHour, cfg.Cache.CandleLocation)
	})
	engine := indicatorusecase.NewEngine(candles, indicatorusecase.DefaultParams())
	machine := alertusecase.NewStateMachine(alertRepo, sink,
		alertusecase.WithNotifyTimeout(cfg.NotifyTimeout),
		alertusecase.WithStateMachineRecorder(recorder),
	)
	runner := alertusecase.NewRunner(cfg.Pipeline, alertRepo, symbolRepo, engine, machine,
		alertusecase.WithSnapshotStore(snapshots),
		alertusecase.WithRecorder(recorder),
	)
	alertUC := alertusecase.NewAlertUsecase(alertRepo, machine, snapshots)
	symbolUC := symbollistusecase.NewSymbolUsecase(symbolRepo)

	// Handler
	checks := []healthhandler.Check{{Name: "db", Ping: pingDB(db)}}
	if rdb != nil {
		checks = append(checks, healthhandler.Check{Name: "redis", Ping: pingRedis(rdb)})
	}

	return &Pipeline{
		Runner:        runner,
		Recorder:      recorder,
		AlertHandler:  alerthandler.NewAlertHandler(alertUC),
		SymbolHandler: symbollisthandler.NewSymbolHandler(symbolUC),
		HealthHandler: healthhandler.NewHealthHandler(checks...),
		closeSink:     closeSink,
	}, nil
}

// Close は通知シンクの接続を閉じます。
func (p *Pipeline) Close() error {
	if p.closeSink == nil {
		return nil
	}
	return p.closeSink()
}
