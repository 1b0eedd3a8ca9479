package di

import (
	"time"

	"github.com/redis/go-redis/v9"

	alertusecase "stock_alerts/internal/feature/alert/usecase"
	"stock_alerts/internal/platform/cache"
)

// NewSnapshotStore はスナップショットの公開先を返します。
// Redisが利用可能ならRedis実装を、そうでなければプロセス内の実装を返します。
func NewSnapshotStore(rdb *redis.Client, ttl time.Duration) alertusecase.SnapshotStore {
	if rdb != nil {
		return cache.NewSnapshotCache(rdb, ttl)
	}
	return cache.NewMemorySnapshotStore()
}
