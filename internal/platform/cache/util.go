package cache

import "time"

// intradayTTL は分足・時間足のキャッシュ有効期間です（足1本分）。
var intradayTTL = map[string]time.Duration{
	"1min":  time.Minute,
	"5min":  5 * time.Minute,
	"15min": 15 * time.Minute,
	"30min": 30 * time.Minute,
	"1h":    time.Hour,
	"4h":    4 * time.Hour,
}

// TimeUntilNext は loc における now の次の hour 時0分までの期間を返します。
func TimeUntilNext(now time.Time, hour int, loc *time.Location) time.Duration {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !local.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(local)
}

// CandleTTL は時間足ごとのキャッシュ有効期間を返します。
// 日足以上は次の取り込み時刻 (loc の ingestHour 時) まで、それ以外は足1本分です。
// 新しい足はヒット時の先頭比較で検出されるため、TTLは過去の足の訂正が反映されるまでの上限です。
func CandleTTL(interval string, now time.Time, ingestHour int, loc *time.Location) time.Duration {
	if d, ok := intradayTTL[interval]; ok {
		return d
	}
	return TimeUntilNext(now, ingestHour, loc)
}
