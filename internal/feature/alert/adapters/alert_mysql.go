// Package adapters はalertフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"stock_alerts/internal/feature/alert/domain"
	"stock_alerts/internal/feature/alert/domain/entity"
	"stock_alerts/internal/feature/alert/usecase"
)

// alertMySQL はAlertRepositoryインターフェースのGORM実装です。
// MySQL / PostgreSQL / SQLite のいずれでも動作するクエリのみを使います。
type alertMySQL struct {
	db *gorm.DB
}

var _ usecase.AlertRepository = (*alertMySQL)(nil)

// NewAlertRepository は指定されたDB接続でリポジトリを生成します。
func NewAlertRepository(db *gorm.DB) *alertMySQL {
	return &alertMySQL{db: db}
}

// ListActive は有効なアラートをID順に返します。
func (r *alertMySQL) ListActive(ctx context.Context) ([]entity.Alert, error) {
	var alerts []entity.Alert
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// ListByOwner はユーザーのアラートをID順に返します。
func (r *alertMySQL) ListByOwner(ctx context.Context, ownerID uint) ([]entity.Alert, error) {
	var alerts []entity.Alert
	if err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerID).
		Order("id ASC").
		Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// FindByID はIDでアラートを取得します。
func (r *alertMySQL) FindByID(ctx context.Context, id uint) (*entity.Alert, error) {
	var a entity.Alert
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("alert %d: %w", id, domain.ErrAlertNotFound)
		}
		return nil, err
	}
	return &a, nil
}

// SetActive は所有者のアラートの有効フラグを更新します。
// MySQLは値が変わらないUPDATEの影響行数を0と返すため、存在確認は先に行います。
func (r *alertMySQL) SetActive(ctx context.Context, id, ownerID uint, active bool) (*entity.Alert, error) {
	var a entity.Alert
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND owner_user_id = ?", id, ownerID).First(&a).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("alert %d: %w", id, domain.ErrAlertNotFound)
			}
			return err
		}
		if err := tx.Model(&a).Update("active", active).Error; err != nil {
			return err
		}
		a.Active = active
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// RecordFire は発火をトランザクションで記録します。
//
// 有効かつクールダウンが明けている行だけを条件付きUPDATEで更新し、同じトランザクションで
// ログ行を追加します。更新対象がなければ domain.ErrNotEligible を返し、何も書き込みません。
func (r *alertMySQL) RecordFire(ctx context.Context, alert entity.Alert, firedAt time.Time, log *entity.AlertLog) (*entity.Alert, error) {
	var updated entity.Alert
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cutoff := firedAt.Add(-alert.Cooldown)
		res := tx.Model(&entity.Alert{}).
			Where("id = ? AND active = ?", alert.ID, true).
			Where("last_triggered_at IS NULL OR last_triggered_at <= ?", cutoff).
			Updates(map[string]any{
				"trigger_count":     gorm.Expr("trigger_count + 1"),
				"last_triggered_at": firedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("alert %d: %w", alert.ID, domain.ErrNotEligible)
		}
		if err := tx.Create(log).Error; err != nil {
			return fmt.Errorf("insert alert log: %w", err)
		}
		return tx.First(&updated, alert.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateLogOutcome は通知配送の結果を書き戻します。
func (r *alertMySQL) UpdateLogOutcome(ctx context.Context, logID uint, outcome entity.Outcome, errMsg string, at time.Time) error {
	values := map[string]any{
		"outcome":       outcome,
		"outcome_error": errMsg,
	}
	if outcome == entity.OutcomeDelivered {
		values["delivered_at"] = at
	}
	return r.db.WithContext(ctx).
		Model(&entity.AlertLog{}).
		Where("id = ?", logID).
		Updates(values).Error
}

// FlagCondition は条件式エラーを記録します。updated_at は変更しません。
func (r *alertMySQL) FlagCondition(ctx context.Context, id uint, msg string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Alert{}).
		Where("id = ?", id).
		UpdateColumn("condition_error", msg).Error
}

// ListLogs は新しい順にアラートログを返します。
func (r *alertMySQL) ListLogs(ctx context.Context, alertID uint, limit int) ([]entity.AlertLog, error) {
	var logs []entity.AlertLog
	q := r.db.WithContext(ctx).
		Where("alert_id = ?", alertID).
		Order("fired_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// PurgeLogsBefore は cutoff より前に発火したログを削除し、削除件数を返します。
func (r *alertMySQL) PurgeLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("fired_at < ?", cutoff).
		Delete(&entity.AlertLog{})
	return res.RowsAffected, res.Error
}
