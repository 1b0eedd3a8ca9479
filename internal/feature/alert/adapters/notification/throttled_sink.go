package notification

import (
	"context"
	"errors"
	"fmt"

	"stock_alerts/internal/feature/alert/domain/entity"
	"stock_alerts/internal/feature/alert/usecase"
	"stock_alerts/internal/shared/ratelimiter"
)

// ThrottledSink は配送先へのリクエストレートを制限するデコレーターです。
// 待機がタイムアウトした場合は配送失敗として扱います。
type ThrottledSink struct {
	inner   usecase.NotificationSink
	limiter ratelimiter.RateLimiterInterface
}

var _ usecase.NotificationSink = (*ThrottledSink)(nil)

// NewThrottledSink は inner を limiter で包みます。
func NewThrottledSink(inner usecase.NotificationSink, limiter ratelimiter.RateLimiterInterface) *ThrottledSink {
	return &ThrottledSink{inner: inner, limiter: limiter}
}

// OnAlertFired はトークンを待ってから inner に委譲します。
func (s *ThrottledSink) OnAlertFired(ctx context.Context, ev entity.AlertFiredEvent) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttled: %w", err)
	}
	return s.inner.OnAlertFired(ctx, ev)
}

// FanoutSink は複数のシンクへ順に配送します。
// 1つでも失敗すればエラーをまとめて返しますが、残りのシンクへの配送は続けます。
type FanoutSink struct {
	sinks []usecase.NotificationSink
}

var _ usecase.NotificationSink = (*FanoutSink)(nil)

// NewFanoutSink は FanoutSink を生成します。
func NewFanoutSink(sinks ...usecase.NotificationSink) *FanoutSink {
	return &FanoutSink{sinks: sinks}
}

// OnAlertFired はすべてのシンクへ配送します。
func (s *FanoutSink) OnAlertFired(ctx context.Context, ev entity.AlertFiredEvent) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.OnAlertFired(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
