// Package notification は発火イベントの配送先（通知シンク）の実装を提供します。
package notification

import (
	"context"
	"log/slog"

	"stock_alerts/internal/feature/alert/domain/entity"
	"stock_alerts/internal/feature/alert/usecase"
)

// LogSink は発火イベントを構造化ログに出力するだけのシンクです。
// 外部の配送先を持たない開発環境や evaluator コマンドで使います。
type LogSink struct {
	logger *slog.Logger
}

var _ usecase.NotificationSink = (*LogSink)(nil)

// NewLogSink は LogSink を生成します。logger が nil なら slog.Default() を使います。
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// OnAlertFired はイベントをログに出力します。
func (s *LogSink) OnAlertFired(ctx context.Context, ev entity.AlertFiredEvent) error {
	s.logger.InfoContext(ctx, "alert notification",
		"event_id", ev.EventID,
		"alert_id", ev.AlertID,
		"owner_user_id", ev.OwnerUserID,
		"alert_name", ev.AlertName,
		"symbol", ev.SymbolCode,
		"interval", ev.Interval,
		"trigger_count", ev.TriggerCount,
		"close", ev.Snapshot.Close,
		"fired_at", ev.FiredAt,
	)
	return nil
}
