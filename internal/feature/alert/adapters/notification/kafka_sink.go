package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"stock_alerts/internal/feature/alert/domain/entity"
	"stock_alerts/internal/feature/alert/usecase"
)

// MessageWriter は kafka.Writer のうちシンクが使う部分です。
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSink は発火イベントをKafkaトピックへ書き込みます。
// キーはアラートIDなので、同じアラートのイベントは同じパーティションに順序どおり入ります。
type KafkaSink struct {
	writer MessageWriter
}

var _ usecase.NotificationSink = (*KafkaSink)(nil)

// NewKafkaSink は KafkaSink を生成します。
func NewKafkaSink(w MessageWriter) *KafkaSink {
	return &KafkaSink{writer: w}
}

// OnAlertFired はイベントを1メッセージとして同期的に書き込みます。
func (s *KafkaSink) OnAlertFired(ctx context.Context, ev entity.AlertFiredEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(ev.AlertID), 10)),
		Value: value,
		Time:  ev.FiredAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.EventID)},
			{Key: "symbol", Value: []byte(ev.SymbolCode)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}
