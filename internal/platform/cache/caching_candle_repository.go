// Package cache はリポジトリのRedisキャッシュ実装を提供します。
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"stock_alerts/internal/feature/candles/domain/entity"
	"stock_alerts/internal/feature/candles/usecase"
)

// CachingCandleRepository はCandleRepositoryにRedisキャッシュを被せるデコレーターです。
// キャッシュの読み書きはベストエフォートで、失敗しても内部リポジトリの結果を返します。
type CachingCandleRepository struct {
	inner     usecase.CandleRepository
	rdb       *redis.Client
	ttl       time.Duration
	ttlFor    func(interval string) time.Duration
	namespace string
}

var _ usecase.CandleRepository = (*CachingCandleRepository)(nil)

// CandleCacheOption はデコレーターの任意設定です。
type CandleCacheOption func(*CachingCandleRepository)

// WithIntervalTTL は時間足ごとにTTLを決める関数を設定します。0以下を返した場合は既定のTTLを使います。
func WithIntervalTTL(f func(interval string) time.Duration) CandleCacheOption {
	return func(c *CachingCandleRepository) { c.ttlFor = f }
}

// NewCachingCandleRepository はデコレーターを生成します。
// ttl が0以下なら5分、namespace が空なら "candles" を使います。rdb が nil ならキャッシュしません。
func NewCachingCandleRepository(rdb *redis.Client, ttl time.Duration, inner usecase.CandleRepository, namespace string, opts ...CandleCacheOption) *CachingCandleRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "candles"
	}
	c := &CachingCandleRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UpsertBatch は内部リポジトリへ書き込み、影響する (銘柄, 時間足) のキャッシュを無効化します。
func (c *CachingCandleRepository) UpsertBatch(ctx context.Context, candles []entity.Candle) error {
	if err := c.inner.UpsertBatch(ctx, candles); err != nil {
		return err
	}
	if c.rdb == nil || len(candles) == 0 {
		return nil
	}

	seen := map[string]struct{}{}
	for _, cd := range candles {
		prefix := c.cacheKeyPrefix(cd.Symbol, cd.Interval)
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		if err := c.deleteByPattern(ctx, prefix+"*"); err != nil {
			slog.Warn("candle cache invalidation failed", "prefix", prefix, "error", err)
		}
	}
	return nil
}

// Find はキャッシュを確認し、なければ内部リポジトリから取得してキャッシュします。
//
// ローソク足は外部の取り込み処理が直接ストアへ書き込むため、キャッシュの削除には頼れません。
// ヒット時は内部リポジトリから最新1本を取得し、キャッシュ済みウィンドウの先頭と
// 一致する場合だけキャッシュを返します。新しい足の追加や最新足の更新があれば取り直します。
func (c *CachingCandleRepository) Find(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
	if c.rdb == nil || outputsize == 1 {
		return c.inner.Find(ctx, symbol, interval, outputsize)
	}

	key := c.cacheKey(symbol, interval, outputsize)
	if cached, ok := c.load(ctx, key); ok {
		head, err := c.inner.Find(ctx, symbol, interval, 1)
		if err != nil {
			return nil, err
		}
		if sameHead(cached, head) {
			return cached, nil
		}
		slog.Debug("candle cache is behind the store", "key", key)
	}

	out, err := c.inner.Find(ctx, symbol, interval, outputsize)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttlOf(interval)).Err(); err != nil {
			slog.Debug("candle cache write failed", "key", key, "error", err)
		}
	}
	return out, nil
}

func (c *CachingCandleRepository) load(ctx context.Context, key string) ([]entity.Candle, bool) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil || len(b) == 0 {
		return nil, false
	}
	var out []entity.Candle
	if err := json.Unmarshal(b, &out); err != nil {
		// 壊れたエントリは捨てる
		_ = c.rdb.Del(ctx, key).Err()
		return nil, false
	}
	return out, true
}

// sameHead はキャッシュ済みウィンドウ（新しい順）の先頭がストアの最新足と同じか判定します。
func sameHead(cached, head []entity.Candle) bool {
	if len(cached) == 0 || len(head) == 0 {
		return len(cached) == 0 && len(head) == 0
	}
	a, b := cached[0], head[0]
	return a.Time.Equal(b.Time) &&
		a.Open == b.Open && a.High == b.High && a.Low == b.Low && a.Close == b.Close &&
		a.Volume == b.Volume
}

func (c *CachingCandleRepository) ttlOf(interval string) time.Duration {
	if c.ttlFor != nil {
		if d := c.ttlFor(interval); d > 0 {
			return d
		}
	}
	return c.ttl
}

func (c *CachingCandleRepository) cacheKey(symbol, interval string, outputsize int) string {
	return fmt.Sprintf("%s:%s:%s:%d", c.namespace, safe(symbol), safe(interval), outputsize)
}

func (c *CachingCandleRepository) cacheKeyPrefix(symbol, interval string) string {
	return fmt.Sprintf("%s:%s:%s:", c.namespace, safe(symbol), safe(interval))
}

// deleteByPattern はSCANでパターンに一致するキーを削除します。
func deleteByPattern(ctx context.Context, rdb *redis.Client, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (c *CachingCandleRepository) deleteByPattern(ctx context.Context, pattern string) error {
	return deleteByPattern(ctx, c.rdb, pattern)
}

// safe はRedisキーで区切りと衝突する文字を置き換えます。
func safe(s string) string {
	return strings.NewReplacer(" ", "_", ":", "_").Replace(s)
}
