package usecase

import (
	"context"
	"fmt"

	"stock_alerts/internal/feature/alert/domain"
	"stock_alerts/internal/feature/alert/domain/entity"
	indentity "stock_alerts/internal/feature/indicator/domain/entity"
)

const (
	// DefaultLogLimit はログ一覧の既定件数です。
	DefaultLogLimit = 50
	// MaxLogLimit はログ一覧の最大件数です。
	MaxLogLimit = 500
)

// AlertUsecase はアラートの参照と有効フラグの切り替えを提供します。
type AlertUsecase struct {
	repo      AlertRepository
	machine   *StateMachine
	snapshots SnapshotStore
}

// NewAlertUsecase は AlertUsecase を生成します。snapshots は nil でも構いません。
func NewAlertUsecase(repo AlertRepository, machine *StateMachine, snapshots SnapshotStore) *AlertUsecase {
	return &AlertUsecase{repo: repo, machine: machine, snapshots: snapshots}
}

// ListAlerts はユーザーのアラートを返します。
func (u *AlertUsecase) ListAlerts(ctx context.Context, ownerID uint) ([]entity.Alert, error) {
	alerts, err := u.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list alerts of user %d: %w", ownerID, err)
	}
	return alerts, nil
}

// ListLogs はユーザーが所有するアラートの発火履歴を新しい順に返します。
func (u *AlertUsecase) ListLogs(ctx context.Context, ownerID, alertID uint, limit int) ([]entity.AlertLog, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	limit = min(limit, MaxLogLimit)

	a, err := u.repo.FindByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a.OwnerUserID != ownerID {
		return nil, fmt.Errorf("alert %d: %w", alertID, domain.ErrAlertNotFound)
	}
	logs, err := u.repo.ListLogs(ctx, alertID, limit)
	if err != nil {
		return nil, fmt.Errorf("list logs of alert %d: %w", alertID, err)
	}
	return logs, nil
}

// SetActive はアラートを有効化または無効化します。
func (u *AlertUsecase) SetActive(ctx context.Context, ownerID, alertID uint, active bool) (*entity.Alert, error) {
	if active {
		return u.machine.Enable(ctx, ownerID, alertID)
	}
	return u.machine.Disable(ctx, ownerID, alertID)
}

// LatestSnapshot は直近のサイクルで計算されたスナップショットを返します。
// まだ計算されていなければ nil を返します。
func (u *AlertUsecase) LatestSnapshot(ctx context.Context, symbol, interval string) (*indentity.Snapshot, error) {
	if u.snapshots == nil {
		return nil, nil
	}
	if interval == "" {
		interval = entity.DefaultInterval
	}
	snap, err := u.snapshots.Get(ctx, symbol, interval)
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s/%s: %w", symbol, interval, err)
	}
	return snap, nil
}
