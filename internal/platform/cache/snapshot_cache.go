package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stock_alerts/internal/feature/alert/usecase"
	"stock_alerts/internal/feature/indicator/domain/entity"
)

// SnapshotCache は (銘柄, 時間足) ごとの最新スナップショットをRedisに保持します。
// スケジューラが毎サイクル書き込み、読み取りAPIが参照します。
type SnapshotCache struct {
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.SnapshotStore = (*SnapshotCache)(nil)

// NewSnapshotCache は SnapshotCache を生成します。ttl が0以下なら1時間です。
func NewSnapshotCache(rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SnapshotCache{rdb: rdb, ttl: ttl, namespace: "snapshot"}
}

// Put は最新スナップショットを上書きします。
func (c *SnapshotCache) Put(ctx context.Context, snap entity.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return c.rdb.Set(ctx, c.key(snap.Symbol, snap.Interval), b, c.ttl).Err()
}

// Get は最新スナップショットを返します。存在しなければ nil, nil を返します。
func (c *SnapshotCache) Get(ctx context.Context, symbol, interval string) (*entity.Snapshot, error) {
	b, err := c.rdb.Get(ctx, c.key(symbol, interval)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap entity.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s/%s: %w", symbol, interval, err)
	}
	return &snap, nil
}

func (c *SnapshotCache) key(symbol, interval string) string {
	return fmt.Sprintf("%s:%s:%s", c.namespace, safe(symbol), safe(interval))
}
