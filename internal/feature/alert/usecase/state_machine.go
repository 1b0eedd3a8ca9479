package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"stock_alerts/internal/feature/alert/domain"
	"stock_alerts/internal/feature/alert/domain/entity"
	indentity "stock_alerts/internal/feature/indicator/domain/entity"
	"stock_alerts/internal/shared/keylock"
)

// DefaultNotifyTimeout は通知シンク呼び出しの既定タイムアウトです。
const DefaultNotifyTimeout = 10 * time.Second

// StateMachine はアラートの状態遷移（有効化・無効化・発火）を担当します。
// 同一アラートの遷移はキー単位のロックで直列化され、発火の可否はリポジトリの
// 条件付き更新で最終判定されるため、複数プロセスでも二重発火しません。
type StateMachine struct {
	repo          AlertRepository
	sink          NotificationSink
	locks         *keylock.Locker[uint]
	notifyTimeout time.Duration
	recorder      Recorder
	newEventID    func() string
}

// StateMachineOption は StateMachine の任意設定です。
type StateMachineOption func(*StateMachine)

// WithNotifyTimeout は通知のタイムアウトを設定します。
func WithNotifyTimeout(d time.Duration) StateMachineOption {
	return func(m *StateMachine) {
		if d > 0 {
			m.notifyTimeout = d
		}
	}
}

// WithStateMachineRecorder はメトリクスの記録先を設定します。
func WithStateMachineRecorder(r Recorder) StateMachineOption {
	return func(m *StateMachine) {
		if r != nil {
			m.recorder = r
		}
	}
}

// NewStateMachine は StateMachine を生成します。
func NewStateMachine(repo AlertRepository, sink NotificationSink, opts ...StateMachineOption) *StateMachine {
	m := &StateMachine{
		repo:          repo,
		sink:          sink,
		locks:         keylock.New[uint](),
		notifyTimeout: DefaultNotifyTimeout,
		recorder:      nopRecorder{},
		newEventID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enable はアラートを有効化します。発火カウンタと最終発火時刻は保持されます。
func (m *StateMachine) Enable(ctx context.Context, ownerID, alertID uint) (*entity.Alert, error) {
	return m.setActive(ctx, ownerID, alertID, true)
}

// Disable はアラートを無効化します。
func (m *StateMachine) Disable(ctx context.Context, ownerID, alertID uint) (*entity.Alert, error) {
	return m.setActive(ctx, ownerID, alertID, false)
}

func (m *StateMachine) setActive(ctx context.Context, ownerID, alertID uint, active bool) (*entity.Alert, error) {
	unlock := m.locks.Lock(alertID)
	defer unlock()

	a, err := m.repo.SetActive(ctx, alertID, ownerID, active)
	if err != nil {
		return nil, fmt.Errorf("set active=%t on alert %d: %w", active, alertID, err)
	}
	slog.Info("alert active flag changed", "alert_id", alertID, "owner_user_id", ownerID, "active", active)
	return a, nil
}

// Fire はアラートを発火させます。
//
// カウンタ更新とログ追記をコミットしてから通知シンクを呼び出します。
// 通知の失敗は発火を取り消さず、ログ行の配送結果として記録されます（戻り値のエラーは nil）。
// 発火時点で無効化済み・クールダウン中の場合は domain.ErrNotEligible を返します。
func (m *StateMachine) Fire(ctx context.Context, alert entity.Alert, snap indentity.Snapshot, firedAt time.Time) (*entity.AlertLog, error) {
	unlock := m.locks.Lock(alert.ID)
	defer unlock()

	if st := alert.StateAt(firedAt); st != entity.StateActive {
		return nil, fmt.Errorf("alert %d is %s: %w", alert.ID, st, domain.ErrNotEligible)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	log := &entity.AlertLog{
		AlertID:     alert.ID,
		OwnerUserID: alert.OwnerUserID,
		SymbolCode:  alert.SymbolCode,
		Interval:    alert.SeriesInterval(),
		FiredAt:     firedAt,
		SnapshotRef: snap.Ref(),
		Snapshot:    raw,
		EventID:     m.newEventID(),
		Outcome:     entity.OutcomePending,
	}

	updated, err := m.repo.RecordFire(ctx, alert, firedAt, log)
	if err != nil {
		return nil, fmt.Errorf("record fire of alert %d: %w", alert.ID, err)
	}
	m.recorder.IncFired()
	slog.Info("alert fired",
		"alert_id", alert.ID,
		"symbol", alert.SymbolCode,
		"interval", log.Interval,
		"trigger_count", updated.TriggerCount,
		"event_id", log.EventID,
	)

	event := entity.AlertFiredEvent{
		EventID:      log.EventID,
		LogID:        log.ID,
		AlertID:      alert.ID,
		OwnerUserID:  alert.OwnerUserID,
		AlertName:    alert.Name,
		SymbolCode:   alert.SymbolCode,
		Interval:     log.Interval,
		TriggerCount: updated.TriggerCount,
		FiredAt:      firedAt,
		Snapshot:     snap,
	}
	m.deliver(ctx, log, event)
	return log, nil
}

// deliver は通知を送り、結果をログ行へ書き戻します。
func (m *StateMachine) deliver(ctx context.Context, log *entity.AlertLog, event entity.AlertFiredEvent) {
	nctx, cancel := context.WithTimeout(ctx, m.notifyTimeout)
	defer cancel()

	outcome := entity.OutcomeDelivered
	var msg string
	if err := m.sink.OnAlertFired(nctx, event); err != nil {
		derr := fmt.Errorf("%w: %v", domain.ErrDeliveryFailure, err)
		if errors.Is(err, context.DeadlineExceeded) {
			derr = fmt.Errorf("%w: timed out after %s", domain.ErrDeliveryFailure, m.notifyTimeout)
		}
		outcome = entity.OutcomeFailed
		msg = truncate(derr.Error(), 512)
		slog.Warn("alert notification failed", "alert_id", event.AlertID, "event_id", event.EventID, "error", derr)
	}
	m.recorder.IncDelivery(outcome)

	at := time.Now()
	if err := m.repo.UpdateLogOutcome(ctx, log.ID, outcome, msg, at); err != nil {
		slog.Error("failed to record delivery outcome", "alert_log_id", log.ID, "outcome", outcome, "error", err)
		return
	}
	log.Outcome = outcome
	log.OutcomeError = msg
	if outcome == entity.OutcomeDelivered {
		log.DeliveredAt = &at
	}
}

// truncate は s を n バイト以内に切り詰めます。
// utf8mb4 の列に書き込むため、不正なバイト列は置換し、文字の途中では切りません。
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
