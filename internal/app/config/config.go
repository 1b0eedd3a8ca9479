// Package config はアプリケーション全体の設定を環境変数から読み込みます。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"stock_alerts/internal/feature/alert/usecase"
)

// Sink names accepted by NOTIFY_SINK.
const (
	SinkLog     = "log"
	SinkWebhook = "webhook"
	SinkKafka   = "kafka"
)

// NotifyConfig は通知シンクの設定です。
type NotifyConfig struct {
	Sinks          []string      // NOTIFY_SINK（カンマ区切り、既定 log）
	WebhookURL     string        // NOTIFY_WEBHOOK_URL
	WebhookTimeout time.Duration // NOTIFY_WEBHOOK_TIMEOUT
	KafkaBrokers   []string      // KAFKA_BROKERS
	KafkaTopic     string        // KAFKA_ALERT_TOPIC
	RatePerSec     int           // NOTIFY_RATE_PER_SEC（0以下なら制限なし）
}

// CacheConfig はRedisキャッシュの有効期間の設定です。
type CacheConfig struct {
	CandleIngestHour int            // CANDLE_INGEST_HOUR: 日足が取り込まれる時刻
	CandleLocation   *time.Location // CANDLE_INGEST_TZ
	SnapshotTTL      time.Duration  // SNAPSHOT_CACHE_TTL
}

// Config はサーバーと評価バッチが共有する設定です。
type Config struct {
	HTTPAddr      string
	JWTSecret     string
	Pipeline      usecase.Config
	NotifyTimeout time.Duration
	Notify        NotifyConfig
	Cache         CacheConfig
}

// LoadConfig は環境変数から設定を読み込みます。
// 不正な値はまとめてエラーとして返し、未設定の項目には既定値を使います。
func LoadConfig() (Config, error) {
	p := &parser{}
	def := usecase.DefaultConfig()

	cfg := Config{
		HTTPAddr:  envOr("HTTP_ADDR", ":8080"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		Pipeline: usecase.Config{
			Interval:       p.duration("ALERT_CYCLE_INTERVAL", def.Interval),
			Workers:        p.integer("ALERT_WORKERS", def.Workers),
			FetchTimeout:   p.duration("ALERT_FETCH_TIMEOUT", def.FetchTimeout),
			WatchIntervals: list(envOr("ALERT_WATCH_INTERVALS", strings.Join(def.WatchIntervals, ","))),
			LogRetention:   p.duration("ALERT_LOG_RETENTION", 0),
		},
		NotifyTimeout: p.duration("ALERT_NOTIFY_TIMEOUT", usecase.DefaultNotifyTimeout),
		Notify: NotifyConfig{
			Sinks:          list(envOr("NOTIFY_SINK", SinkLog)),
			WebhookURL:     os.Getenv("NOTIFY_WEBHOOK_URL"),
			WebhookTimeout: p.duration("NOTIFY_WEBHOOK_TIMEOUT", 5*time.Second),
			KafkaBrokers:   list(os.Getenv("KAFKA_BROKERS")),
			KafkaTopic:     envOr("KAFKA_ALERT_TOPIC", "alert-fired"),
			RatePerSec:     p.integer("NOTIFY_RATE_PER_SEC", 0),
		},
		Cache: CacheConfig{
			CandleIngestHour: p.integer("CANDLE_INGEST_HOUR", 8),
			CandleLocation:   p.location("CANDLE_INGEST_TZ", "Asia/Tokyo"),
			SnapshotTTL:      p.duration("SNAPSHOT_CACHE_TTL", time.Hour),
		},
	}

	if cfg.Pipeline.Workers <= 0 {
		p.fail("ALERT_WORKERS", "must be positive")
	}
	if cfg.Cache.CandleIngestHour < 0 || cfg.Cache.CandleIngestHour > 23 {
		p.fail("CANDLE_INGEST_HOUR", "must be between 0 and 23")
	}
	for _, s := range cfg.Notify.Sinks {
		switch s {
		case SinkLog:
		case SinkWebhook:
			if cfg.Notify.WebhookURL == "" {
				p.fail("NOTIFY_WEBHOOK_URL", "required by the webhook sink")
			}
		case SinkKafka:
			if len(cfg.Notify.KafkaBrokers) == 0 {
				p.fail("KAFKA_BROKERS", "required by the kafka sink")
			}
		default:
			p.fail("NOTIFY_SINK", fmt.Sprintf("unknown sink %q", s))
		}
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type parser struct {
	errs []error
}

func (p *parser) fail(key, msg string) {
	p.errs = append(p.errs, fmt.Errorf("%s: %s", key, msg))
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		p.fail(key, fmt.Sprintf("invalid duration %q", s))
		return def
	}
	return d
}

func (p *parser) integer(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail(key, fmt.Sprintf("invalid integer %q", s))
		return def
	}
	return n
}

func (p *parser) location(key, def string) *time.Location {
	name := envOr(key, def)
	loc, err := time.LoadLocation(name)
	if err != nil {
		p.fail(key, fmt.Sprintf("unknown time zone %q", name))
		return time.UTC
	}
	return loc
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func list(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
