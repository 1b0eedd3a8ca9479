// Package adapters はsymbollistフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"

	"gorm.io/gorm"

	"stock_alerts/internal/feature/symbollist/domain/entity"
	"stock_alerts/internal/feature/symbollist/usecase"
)

// symbolMySQL はSymbolRepositoryインターフェースのGORM実装です。
type symbolMySQL struct {
	db *gorm.DB
}

var _ usecase.SymbolRepository = (*symbolMySQL)(nil)

// NewSymbolRepository は指定されたDB接続でリポジトリを生成します。
func NewSymbolRepository(db *gorm.DB) *symbolMySQL {
	return &symbolMySQL{db: db}
}

// ListActive はsort_key順にすべてのアクティブな銘柄を返します。
func (r *symbolMySQL) ListActive(ctx context.Context) ([]entity.Symbol, error) {
	var symbols []entity.Symbol
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_key ASC").
		Find(&symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}

// ListActiveCodes はsort_key順にアクティブな銘柄のコードのみを返します。
func (r *symbolMySQL) ListActiveCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&entity.Symbol{}).
		Where("is_active = ?", true).
		Order("sort_key ASC").
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// ListWatchedSymbols は1人以上がウォッチしているアクティブな銘柄のコードを返します。
// スケジューラはこの銘柄のスナップショットをアラートの有無にかかわらず更新します。
func (r *symbolMySQL) ListWatchedSymbols(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&entity.Symbol{}).
		Distinct("symbols.code").
		Joins("JOIN user_symbols ON user_symbols.symbol_code = symbols.code").
		Where("symbols.is_active = ?", true).
		Order("symbols.code ASC").
		Pluck("symbols.code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// ListWatchlist はユーザーがウォッチしているアクティブな銘柄をsort_key順に返します。
func (r *symbolMySQL) ListWatchlist(ctx context.Context, userID uint) ([]entity.Symbol, error) {
	var symbols []entity.Symbol
	if err := r.db.WithContext(ctx).
		Joins("JOIN user_symbols ON user_symbols.symbol_code = symbols.code").
		Where("user_symbols.user_id = ? AND symbols.is_active = ?", userID, true).
		Order("symbols.sort_key ASC").
		Find(&symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}
