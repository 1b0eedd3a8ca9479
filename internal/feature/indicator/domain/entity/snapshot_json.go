package entity

import (
	"encoding/json"
	"math"
	"time"
)

// jsonFloat は非有限値を null として読み書きする float64 です。
// encoding/json は NaN と ±Inf を拒否するため、壊れた足から計算された値でも
// スナップショットを保存・配送できるようにします。null は NaN として復元されます。
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *jsonFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = jsonFloat(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = jsonFloat(v)
	return nil
}

type snapshotJSON struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"`
	AsOf     time.Time `json:"as_of"`
	Candles  int       `json:"candles"`

	Open      jsonFloat `json:"open"`
	High      jsonFloat `json:"high"`
	Low       jsonFloat `json:"low"`
	Close     jsonFloat `json:"close"`
	Volume    jsonFloat `json:"volume"`
	PrevClose jsonFloat `json:"prev_close"`
	ChangePct jsonFloat `json:"change_pct"`

	SMAShort   jsonFloat `json:"sma_short"`
	SMALong    jsonFloat `json:"sma_long"`
	EMA        jsonFloat `json:"ema"`
	RSI        jsonFloat `json:"rsi"`
	Volatility jsonFloat `json:"volatility"`
	ATR        jsonFloat `json:"atr"`
	Support    jsonFloat `json:"support"`
	Resistance jsonFloat `json:"resistance"`
	VolumeAvg  jsonFloat `json:"volume_avg"`
}

// MarshalJSON は非有限のインジケーター値を null として書き出します。
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		Symbol:     s.Symbol,
		Interval:   s.Interval,
		AsOf:       s.AsOf,
		Candles:    s.Candles,
		Open:       jsonFloat(s.Open),
		High:       jsonFloat(s.High),
		Low:        jsonFloat(s.Low),
		Close:      jsonFloat(s.Close),
		Volume:     jsonFloat(s.Volume),
		PrevClose:  jsonFloat(s.PrevClose),
		ChangePct:  jsonFloat(s.ChangePct),
		SMAShort:   jsonFloat(s.SMAShort),
		SMALong:    jsonFloat(s.SMALong),
		EMA:        jsonFloat(s.EMA),
		RSI:        jsonFloat(s.RSI),
		Volatility: jsonFloat(s.Volatility),
		ATR:        jsonFloat(s.ATR),
		Support:    jsonFloat(s.Support),
		Resistance: jsonFloat(s.Resistance),
		VolumeAvg:  jsonFloat(s.VolumeAvg),
	})
}

// UnmarshalJSON は null のインジケーター値を NaN として読み込みます。
func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var w snapshotJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*s = Snapshot{
		Symbol:     w.Symbol,
		Interval:   w.Interval,
		AsOf:       w.AsOf,
		Candles:    w.Candles,
		Open:       float64(w.Open),
		High:       float64(w.High),
		Low:        float64(w.Low),
		Close:      float64(w.Close),
		Volume:     float64(w.Volume),
		PrevClose:  float64(w.PrevClose),
		ChangePct:  float64(w.ChangePct),
		SMAShort:   float64(w.SMAShort),
		SMALong:    float64(w.SMALong),
		EMA:        float64(w.EMA),
		RSI:        float64(w.RSI),
		Volatility: float64(w.Volatility),
		ATR:        float64(w.ATR),
		Support:    float64(w.Support),
		Resistance: float64(w.Resistance),
		VolumeAvg:  float64(w.VolumeAvg),
	}
	return nil
}
