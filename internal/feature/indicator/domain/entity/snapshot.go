// Package entity はインジケータースナップショットを定義します。
package entity

import (
	"fmt"
	"time"
)

// Snapshot はある時点までのローソク足ウィンドウから導出したインジケーター値の集合です。
// 同じウィンドウからは常に同じ値が得られ、生成後に変更されることはありません。
type Snapshot struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"`
	AsOf     time.Time `json:"as_of"` // ウィンドウ内で最も新しい足の時刻
	Candles  int       `json:"candles"`

	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	PrevClose float64 `json:"prev_close"`
	ChangePct float64 `json:"change_pct"`

	SMAShort   float64 `json:"sma_short"`
	SMALong    float64 `json:"sma_long"`
	EMA        float64 `json:"ema"`
	RSI        float64 `json:"rsi"`
	Volatility float64 `json:"volatility"` // 単純リターンの標準偏差（%）
	ATR        float64 `json:"atr"`
	Support    float64 `json:"support"`    // 直近足を除いた期間の最安値
	Resistance float64 `json:"resistance"` // 直近足を除いた期間の最高値
	VolumeAvg  float64 `json:"volume_avg"` // 直近足を除いた期間の平均出来高
}

// Fields は条件式から参照できるフィールド名の一覧です。
var Fields = []string{
	"open", "high", "low", "close", "volume", "prev_close", "change_pct",
	"sma_short", "sma_long", "ema", "rsi", "volatility", "atr",
	"support", "resistance", "volume_avg",
}

// Value は名前でインジケーター値を引きます。未知の名前なら ok=false です。
func (s Snapshot) Value(field string) (v float64, ok bool) {
	switch field {
	case "open":
		return s.Open, true
	case "high":
		return s.High, true
	case "low":
		return s.Low, true
	case "close":
		return s.Close, true
	case "volume":
		return s.Volume, true
	case "prev_close":
		return s.PrevClose, true
	case "change_pct":
		return s.ChangePct, true
	case "sma_short":
		return s.SMAShort, true
	case "sma_long":
		return s.SMALong, true
	case "ema":
		return s.EMA, true
	case "rsi":
		return s.RSI, true
	case "volatility":
		return s.Volatility, true
	case "atr":
		return s.ATR, true
	case "support":
		return s.Support, true
	case "resistance":
		return s.Resistance, true
	case "volume_avg":
		return s.VolumeAvg, true
	}
	return 0, false
}

// Ref はアラートログから参照するためのスナップショット識別子を返します。
func (s Snapshot) Ref() string {
	return fmt.Sprintf("%s:%s:%s", s.Symbol, s.Interval, s.AsOf.UTC().Format(time.RFC3339))
}
