package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Outcome は通知配送の結果です。
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
)

// AlertLog は発火1回ごとに追記される履歴です。
// 配送結果の列以外は更新されず、保持期間による一括削除以外で消えることはありません。
type AlertLog struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	AlertID      uint           `gorm:"not null;index:alert_log_alert_fired,priority:1" json:"alert_id"`
	OwnerUserID  uint           `gorm:"not null;index" json:"owner_user_id"`
	SymbolCode   string         `gorm:"size:20;not null" json:"symbol_code"`
	Interval     string         `gorm:"size:16;not null" json:"interval"`
	FiredAt      time.Time      `gorm:"not null;index:alert_log_alert_fired,priority:2;index" json:"fired_at"`
	SnapshotRef  string         `gorm:"size:96;not null" json:"snapshot_ref"`
	Snapshot     datatypes.JSON `json:"snapshot"`
	EventID      string         `gorm:"size:36;not null;uniqueIndex" json:"event_id"`
	Outcome      Outcome        `gorm:"size:16;not null;default:'pending'" json:"outcome"`
	OutcomeError string         `gorm:"size:512" json:"outcome_error,omitempty"`
	DeliveredAt  *time.Time     `json:"delivered_at,omitempty"`
}

// TableName は alert_logs テーブル名を返します。
func (AlertLog) TableName() string {
	return "alert_logs"
}
