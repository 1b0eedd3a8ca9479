// Package usecase はアラート評価パイプライン（評価器・ステートマシン・スケジューラ）を実装します。
package usecase

import (
	"context"
	"time"

	"stock_alerts/internal/feature/alert/domain/entity"
	indentity "stock_alerts/internal/feature/indicator/domain/entity"
)

// AlertRepository はアラートとアラートログの永続化を抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type AlertRepository interface {
	// ListActive は有効なアラートをすべて返します。
	ListActive(ctx context.Context) ([]entity.Alert, error)
	// ListByOwner はユーザーのアラートを返します。
	ListByOwner(ctx context.Context, ownerID uint) ([]entity.Alert, error)
	// FindByID はIDでアラートを取得します。存在しない場合は domain.ErrAlertNotFound を返します。
	FindByID(ctx context.Context, id uint) (*entity.Alert, error)
	// SetActive は所有者のアラートの有効フラグを更新します。カウンタは変更しません。
	SetActive(ctx context.Context, id, ownerID uint, active bool) (*entity.Alert, error)
	// RecordFire は発火カウンタの更新とログ行の追加を1トランザクションで行います。
	// 無効化済み・クールダウン中なら domain.ErrNotEligible を返します。
	RecordFire(ctx context.Context, alert entity.Alert, firedAt time.Time, log *entity.AlertLog) (*entity.Alert, error)
	// UpdateLogOutcome は通知配送の結果をログ行に書き戻します。
	UpdateLogOutcome(ctx context.Context, logID uint, outcome entity.Outcome, errMsg string, at time.Time) error
	// FlagCondition は条件式のエラーを記録します。空文字ならフラグを解除します。
	FlagCondition(ctx context.Context, id uint, msg string) error
	// ListLogs は新しい順にアラートログを返します。
	ListLogs(ctx context.Context, alertID uint, limit int) ([]entity.AlertLog, error)
	// PurgeLogsBefore は保持期間を過ぎたログを一括削除します。
	PurgeLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// WatchlistRepository はウォッチリストに登録された銘柄を返します。
type WatchlistRepository interface {
	ListWatchedSymbols(ctx context.Context) ([]string, error)
}

// SnapshotComputer はインジケーターエンジンです。
type SnapshotComputer interface {
	ComputeSnapshot(ctx context.Context, symbol, interval string, asOf time.Time) (indentity.Snapshot, error)
}

// SnapshotStore は最新スナップショットの保存先です（UIやレポート生成が参照します）。
type SnapshotStore interface {
	Put(ctx context.Context, snap indentity.Snapshot) error
	Get(ctx context.Context, symbol, interval string) (*indentity.Snapshot, error)
}

// NotificationSink は発火イベントの配送先です。
type NotificationSink interface {
	OnAlertFired(ctx context.Context, event entity.AlertFiredEvent) error
}

// Recorder はパイプラインのメトリクスを記録します。
type Recorder interface {
	ObserveCycle(d time.Duration, report CycleReport, err error)
	IncCycleSkipped()
	IncUnitFailure(reason string)
	IncFired()
	IncDelivery(outcome entity.Outcome)
	IncMalformed()
}

type nopRecorder struct{}

func (nopRecorder) ObserveCycle(time.Duration, CycleReport, error) {}
func (nopRecorder) IncCycleSkipped()                              {}
func (nopRecorder) IncUnitFailure(string)                         {}
func (nopRecorder) IncFired()                                     {}
func (nopRecorder) IncDelivery(entity.Outcome)                    {}
func (nopRecorder) IncMalformed()                                 {}
