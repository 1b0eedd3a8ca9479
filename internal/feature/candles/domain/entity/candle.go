// Package entity はローソク足ストアのドメインモデルを定義します。
package entity

import "time"

// Candle は1本分のOHLCVローソク足です。
// (Symbol, Interval, Time) の組で一意であり、書き込み後は変更されません。
type Candle struct {
	Symbol   string    // 銘柄コード（例: "AAPL", "7203.T"）
	Interval string    // 時間足（例: "1day", "1week", "1month"）
	Time     time.Time // 足の開始時刻
	Open     float64   // 始値
	High     float64   // 高値
	Low      float64   // 安値
	Close    float64   // 終値
	Volume   int64     // 出来高
}
