// Package di はアプリケーションのコンポーネントを組み立てるファクトリーを提供します。
package di

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"stock_alerts/internal/app/config"
	"stock_alerts/internal/feature/alert/adapters/notification"
	alertusecase "stock_alerts/internal/feature/alert/usecase"
	infrahttp "stock_alerts/internal/platform/http"
	"stock_alerts/internal/shared/ratelimiter"
)

// NewNotificationSink は設定された通知シンクを組み立てます。
// 複数指定された場合はファンアウトし、NOTIFY_RATE_PER_SEC > 0 ならレート制限で包みます。
// 返り値の close はKafkaライターなど後始末が必要なものを閉じます。
func NewNotificationSink(cfg config.NotifyConfig, logger *slog.Logger) (alertusecase.NotificationSink, func() error, error) {
	var (
		sinks   []alertusecase.NotificationSink
		closers []func() error
	)
	for _, name := range cfg.Sinks {
		switch name {
		case config.SinkLog:
			sinks = append(sinks, notification.NewLogSink(logger))
		case config.SinkWebhook:
			client := infrahttp.NewHTTPClient(cfg.WebhookTimeout)
			sinks = append(sinks, notification.NewWebhookSink(client, cfg.WebhookURL))
		case config.SinkKafka:
			w := NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
			sinks = append(sinks, notification.NewKafkaSink(w))
			closers = append(closers, w.Close)
		default:
			return nil, nil, fmt.Errorf("unknown notification sink %q", name)
		}
	}

	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	var sink alertusecase.NotificationSink
	switch len(sinks) {
	case 0:
		sink = notification.NewLogSink(logger)
	case 1:
		sink = sinks[0]
	default:
		sink = notification.NewFanoutSink(sinks...)
	}
	if cfg.RatePerSec > 0 {
		sink = notification.NewThrottledSink(sink, ratelimiter.NewRateLimiter(cfg.RatePerSec, time.Second))
	}
	return sink, closeAll, nil
}

// NewKafkaWriter は発火イベント用のKafkaライターを生成します。
// 発火ごとに同期で書き込むため、全レプリカの確認を待ちます。
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		Compression:            kafka.Snappy,
	}
}
