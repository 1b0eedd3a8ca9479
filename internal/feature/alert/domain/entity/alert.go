// Package entity はアラート機能のドメインモデルを定義します。
package entity

import (
	"time"

	"gorm.io/datatypes"
)

// State はアラートのライフサイクル上の状態です。
type State string

const (
	StateInactive State = "inactive"
	StateActive   State = "active"
	StateCooldown State = "cooldown"
)

// DefaultInterval はアラートが時間足を持たない場合に評価する時間足です。
const DefaultInterval = "1day"

// Alert はユーザーが1銘柄に対して設定した通知ルールです。
// TriggerCount と LastTriggeredAt はステートマシンの発火でのみ更新され、減少しません。
type Alert struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	OwnerUserID     uint           `gorm:"not null;index" json:"owner_user_id"`
	SymbolCode      string         `gorm:"size:20;not null;index" json:"symbol_code"`
	Interval        string         `gorm:"size:16;not null;default:'1day'" json:"interval"`
	Name            string         `gorm:"size:255;not null" json:"name"`
	Description     string         `gorm:"size:1024" json:"description"`
	Condition       datatypes.JSON `gorm:"not null" json:"condition"`
	Active          bool           `gorm:"not null;default:true;index" json:"active"`
	Cooldown        time.Duration  `gorm:"not null;default:0" json:"cooldown"`
	TriggerCount    int            `gorm:"not null;default:0" json:"trigger_count"`
	LastTriggeredAt *time.Time     `json:"last_triggered_at,omitempty"`
	ConditionError  string         `gorm:"size:512" json:"condition_error,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TableName は alerts テーブル名を返します。
func (Alert) TableName() string {
	return "alerts"
}

// SeriesInterval は評価に使う時間足を返します。
func (a Alert) SeriesInterval() string {
	if a.Interval == "" {
		return DefaultInterval
	}
	return a.Interval
}

// StateAt は now 時点の状態を導出します。
// クールダウンからアクティブへの復帰は時間経過のみで起こるため、状態は保存しません。
func (a Alert) StateAt(now time.Time) State {
	if !a.Active {
		return StateInactive
	}
	if a.LastTriggeredAt != nil && now.Sub(*a.LastTriggeredAt) < a.Cooldown {
		return StateCooldown
	}
	return StateActive
}

// CooldownEndsAt はクールダウンが明ける時刻を返します。未発火なら nil です。
func (a Alert) CooldownEndsAt() *time.Time {
	if a.LastTriggeredAt == nil {
		return nil
	}
	t := a.LastTriggeredAt.Add(a.Cooldown)
	return &t
}
