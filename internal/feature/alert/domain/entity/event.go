package entity

import (
	"time"

	indentity "stock_alerts/internal/feature/indicator/domain/entity"
)

// AlertFiredEvent は発火時に通知シンクへ渡されるイベントです。
// EventID はアラートログ行と同じ値で、シンク側の重複排除キーになります。
type AlertFiredEvent struct {
	EventID      string             `json:"event_id"`
	LogID        uint               `json:"log_id"`
	AlertID      uint               `json:"alert_id"`
	OwnerUserID  uint               `json:"owner_user_id"`
	AlertName    string             `json:"alert_name"`
	SymbolCode   string             `json:"symbol_code"`
	Interval     string             `json:"interval"`
	TriggerCount int                `json:"trigger_count"`
	FiredAt      time.Time          `json:"fired_at"`
	Snapshot     indentity.Snapshot `json:"snapshot"`
}
