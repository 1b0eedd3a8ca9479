// Package dto はアラートAPIのリクエスト・レスポンスを定義します。
package dto

import (
	"encoding/json"
	"time"
)

// AlertItem はアラート一覧の1件です。State はリクエスト時点で導出した値です。
type AlertItem struct {
	ID              uint            `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	SymbolCode      string          `json:"symbol_code"`
	Interval        string          `json:"interval"`
	Condition       json.RawMessage `json:"condition"`
	Active          bool            `json:"active"`
	State           string          `json:"state"`
	CooldownSeconds int64           `json:"cooldown_seconds"`
	TriggerCount    int             `json:"trigger_count"`
	LastTriggeredAt *time.Time      `json:"last_triggered_at,omitempty"`
	CooldownEndsAt  *time.Time      `json:"cooldown_ends_at,omitempty"`
	ConditionError  string          `json:"condition_error,omitempty"`
}

// AlertLogItem は発火履歴の1件です。
type AlertLogItem struct {
	ID           uint            `json:"id"`
	EventID      string          `json:"event_id"`
	FiredAt      time.Time       `json:"fired_at"`
	SnapshotRef  string          `json:"snapshot_ref"`
	Snapshot     json.RawMessage `json:"snapshot,omitempty"`
	Outcome      string          `json:"outcome"`
	OutcomeError string          `json:"outcome_error,omitempty"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
}

// SetActiveRequest は PUT /alerts/:id/active のリクエストボディです。
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}
