// Package usecase はローソク足ウィンドウからインジケータースナップショットを計算します。
package usecase

import (
	"context"
	"fmt"
	"slices"
	"time"

	candleentity "stock_alerts/internal/feature/candles/domain/entity"
	"stock_alerts/internal/feature/indicator/domain"
	"stock_alerts/internal/feature/indicator/domain/calc"
	"stock_alerts/internal/feature/indicator/domain/entity"
)

// Params は各インジケーターの期間です。
type Params struct {
	SMAShort          int
	SMALong           int
	EMA               int
	RSI               int
	Volatility        int
	ATR               int
	SupportResistance int
	VolumeAverage     int
}

// DefaultParams は日足を想定した標準的な期間です。
func DefaultParams() Params {
	return Params{
		SMAShort:          5,
		SMALong:           20,
		EMA:               12,
		RSI:               14,
		Volatility:        20,
		ATR:               14,
		SupportResistance: 20,
		VolumeAverage:     20,
	}
}

// Required は最も遅いインジケーターが必要とするローソク足の本数です。
func (p Params) Required() int {
	return max(
		p.SMAShort,
		p.SMALong,
		p.EMA,
		p.RSI+1,
		p.Volatility,
		p.ATR+1,
		p.SupportResistance+1,
		p.VolumeAverage+1,
		2, // 前日比
	)
}

// CandleSource は直近のローソク足を新しい順で返します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type CandleSource interface {
	Latest(ctx context.Context, symbol, interval string, n int) ([]candleentity.Candle, error)
}

// Engine はスナップショットを計算するインジケーターエンジンです。
type Engine struct {
	candles CandleSource
	params  Params
}

// NewEngine は Engine を生成します。
func NewEngine(candles CandleSource, params Params) *Engine {
	return &Engine{candles: candles, params: params}
}

// Params はエンジンが使う期間設定を返します。
func (e *Engine) Params() Params {
	return e.params
}

// ComputeSnapshot は asOf 以前の直近ウィンドウからスナップショットを計算します。
// 必要本数に満たない場合は domain.ErrInsufficientData を返します。
func (e *Engine) ComputeSnapshot(ctx context.Context, symbol, interval string, asOf time.Time) (entity.Snapshot, error) {
	need := e.params.Required()
	cs, err := e.candles.Latest(ctx, symbol, interval, need)
	if err != nil {
		return entity.Snapshot{}, err
	}

	window := make([]candleentity.Candle, 0, len(cs))
	for _, c := range cs {
		if !c.Time.After(asOf) {
			window = append(window, c)
		}
	}
	slices.SortFunc(window, func(a, b candleentity.Candle) int {
		return a.Time.Compare(b.Time)
	})
	window = slices.CompactFunc(window, func(a, b candleentity.Candle) bool {
		return a.Time.Equal(b.Time)
	})

	if len(window) < need {
		return entity.Snapshot{}, fmt.Errorf("%s/%s: have %d candles, need %d: %w",
			symbol, interval, len(window), need, domain.ErrInsufficientData)
	}
	return Build(symbol, interval, window[len(window)-need:], e.params), nil
}

// Build は古い順に並んだウィンドウからスナップショットを組み立てます。
// 副作用のない純粋関数です。
func Build(symbol, interval string, window []candleentity.Candle, p Params) entity.Snapshot {
	closes := calc.Closes(window)
	last := window[len(window)-1]
	prev := window[len(window)-2]

	change := 0.0
	if prev.Close != 0 {
		change = (last.Close - prev.Close) / prev.Close * 100
	}
	support, resistance := calc.SupportResistance(window, p.SupportResistance)

	return entity.Snapshot{
		Symbol:     symbol,
		Interval:   interval,
		AsOf:       last.Time,
		Candles:    len(window),
		Open:       last.Open,
		High:       last.High,
		Low:        last.Low,
		Close:      last.Close,
		Volume:     float64(last.Volume),
		PrevClose:  prev.Close,
		ChangePct:  change,
		SMAShort:   calc.SMA(closes, p.SMAShort),
		SMALong:    calc.SMA(closes, p.SMALong),
		EMA:        calc.EMA(closes, p.EMA),
		RSI:        calc.RSI(closes, p.RSI),
		Volatility: calc.Volatility(closes, p.Volatility),
		ATR:        calc.ATR(window, p.ATR),
		Support:    support,
		Resistance: resistance,
		VolumeAvg:  calc.VolumeAverage(window, p.VolumeAverage),
	}
}
