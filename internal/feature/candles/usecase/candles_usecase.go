// Package usecase はローソク足ストアの読み取りロジックを実装します。
package usecase

import (
	"context"
	"fmt"

	"stock_alerts/internal/feature/candles/domain/entity"
)

const (
	// DefaultInterval は時間足が指定されない場合に使う時間足です。
	DefaultInterval = "1day"
	// MaxOutputSize は1回の読み取りで返すローソク足の最大件数です。
	MaxOutputSize = 5000
)

// SupportedIntervals はローソク足ストアが保持する時間足の一覧です。
var SupportedIntervals = []string{"1min", "5min", "15min", "30min", "1h", "4h", "1day", "1week", "1month"}

// CandleRepository はローソク足ストアへのアクセスを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type CandleRepository interface {
	// Find は新しい順に最大 outputsize 件のローソク足を返します。
	// 件数が足りない場合もエラーにはしません。
	Find(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error)
	// UpsertBatch は取り込み側がローソク足を書き込むためのメソッドです。
	UpsertBatch(ctx context.Context, candles []entity.Candle) error
}

// IsSupportedInterval は時間足がストアで扱えるものか判定します。
func IsSupportedInterval(interval string) bool {
	for _, s := range SupportedIntervals {
		if s == interval {
			return true
		}
	}
	return false
}

// CandleReader はパイプライン向けのローソク足読み取りを提供します。
type CandleReader struct {
	repo CandleRepository
}

// NewCandleReader は CandleReader を生成します。
func NewCandleReader(repo CandleRepository) *CandleReader {
	return &CandleReader{repo: repo}
}

// Latest は指定銘柄・時間足の直近 n 本を新しい順で返します。
func (r *CandleReader) Latest(ctx context.Context, symbol, interval string, n int) ([]entity.Candle, error) {
	if interval == "" {
		interval = DefaultInterval
	}
	if !IsSupportedInterval(interval) {
		return nil, fmt.Errorf("unsupported interval %q", interval)
	}
	if n <= 0 || n > MaxOutputSize {
		return nil, fmt.Errorf("window size %d out of range (1..%d)", n, MaxOutputSize)
	}
	cs, err := r.repo.Find(ctx, symbol, interval, n)
	if err != nil {
		return nil, fmt.Errorf("find candles %s/%s: %w", symbol, interval, err)
	}
	return cs, nil
}
