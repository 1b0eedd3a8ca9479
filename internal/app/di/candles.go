package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	candleadapters "stock_alerts/internal/feature/candles/adapters"
	candleusecase "stock_alerts/internal/feature/candles/usecase"
	"stock_alerts/internal/platform/cache"
)

// NewCandleSource はインジケーターエンジンが読むローソク足の取得元を組み立てます。
// rdb が nil ならストアを直接読みます。ttlFor は時間足ごとのキャッシュ上限です。
func NewCandleSource(db *gorm.DB, rdb *redis.Client, ttlFor func(interval string) time.Duration) *candleusecase.CandleReader {
	repo := cache.NewCachingCandleRepository(rdb, 0, candleadapters.NewCandleRepository(db), "candles",
		cache.WithIntervalTTL(ttlFor),
	)
	return candleusecase.NewCandleReader(repo)
}
