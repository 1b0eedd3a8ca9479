package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"stock_alerts/internal/feature/alert/domain/entity"
	"stock_alerts/internal/feature/alert/usecase"
)

// EventIDHeader は受信側が重複排除に使うヘッダーです。
const EventIDHeader = "X-Alert-Event-Id"

// WebhookSink は発火イベントをJSONでPOSTします。
// 2xx 以外の応答は配送失敗として扱います。
type WebhookSink struct {
	client *http.Client
	url    string
}

var _ usecase.NotificationSink = (*WebhookSink)(nil)

// NewWebhookSink は WebhookSink を生成します。
// client はタイムアウト付きのもの（platform/http.NewHTTPClient）を渡してください。
func NewWebhookSink(client *http.Client, url string) *WebhookSink {
	return &WebhookSink{client: client, url: url}
}

// OnAlertFired はイベントを送信します。
func (s *WebhookSink) OnAlertFired(ctx context.Context, ev entity.AlertFiredEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventIDHeader, ev.EventID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
