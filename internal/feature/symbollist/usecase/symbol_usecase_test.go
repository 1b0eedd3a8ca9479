package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"stock_alerts/internal/feature/symbollist/domain/entity"
	"stock_alerts/internal/feature/symbollist/usecase"
)

// mockSymbolRepository はSymbolRepositoryインターフェースのモック実装です。
type mockSymbolRepository struct {
	ListActiveFunc    func(ctx context.Context) ([]entity.Symbol, error)
	ListWatchlistFunc func(ctx context.Context, userID uint) ([]entity.Symbol, error)
}

func (m *mockSymbolRepository) ListActive(ctx context.Context) ([]entity.Symbol, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	return nil, nil
}

func (m *mockSymbolRepository) ListActiveCodes(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (m *mockSymbolRepository) ListWatchedSymbols(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (m *mockSymbolRepository) ListWatchlist(ctx context.Context, userID uint) ([]entity.Symbol, error) {
	if m.ListWatchlistFunc != nil {
		return m.ListWatchlistFunc(ctx, userID)
	}
	return nil, nil
}

// TestSymbolUsecase_ListActiveSymbols は市場での絞り込みとエラーのラップを検証します。
func TestSymbolUsecase_ListActiveSymbols(t *testing.T) {
	t.Parallel()

	all := []entity.Symbol{
		{ID: 1, Code: "7203.T", Name: "Toyota Motor", Market: "TSE", IsActive: true, SortKey: 1},
		{ID: 2, Code: "AAPL", Name: "Apple", Market: "NASDAQ", IsActive: true, SortKey: 2},
		{ID: 3, Code: "6758.T", Name: "Sony Group", Market: "TSE", IsActive: true, SortKey: 3},
	}
	dbErr := errors.New("database connection failed")

	tests := []struct {
		name            string
		market          string
		repoErr         error
		expectedSymbols []entity.Symbol
	}{
		{name: "success: empty market returns all", market: "", expectedSymbols: all},
		{name: "success: filter keeps sort order", market: "TSE", expectedSymbols: []entity.Symbol{all[0], all[2]}},
		{name: "success: filter ignores case and spaces", market: " nasdaq ", expectedSymbols: []entity.Symbol{all[1]}},
		{name: "success: unknown market is empty", market: "LSE", expectedSymbols: []entity.Symbol{}},
		{name: "error: repository returns error", repoErr: dbErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			uc := usecase.NewSymbolUsecase(&mockSymbolRepository{
				ListActiveFunc: func(ctx context.Context) ([]entity.Symbol, error) {
					if tt.repoErr != nil {
						return nil, tt.repoErr
					}
					return all, nil
				},
			})
			symbols, err := uc.ListActiveSymbols(context.Background(), tt.market)

			if tt.repoErr != nil {
				assert.ErrorIs(t, err, tt.repoErr)
				assert.Nil(t, symbols)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedSymbols, symbols)
		})
	}
}

// TestSymbolUsecase_ListWatchlist はウォッチリスト取得のエラーがユーザーIDつきでラップされることを検証します。
func TestSymbolUsecase_ListWatchlist(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("timeout")
	uc := usecase.NewSymbolUsecase(&mockSymbolRepository{
		ListWatchlistFunc: func(ctx context.Context, userID uint) ([]entity.Symbol, error) {
			if userID == 1 {
				return []entity.Symbol{{Code: "AAPL"}}, nil
			}
			return nil, dbErr
		},
	})

	got, err := uc.ListWatchlist(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, []entity.Symbol{{Code: "AAPL"}}, got)

	_, err = uc.ListWatchlist(context.Background(), 2)
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "user 2")
}

func TestSymbol_Ticker(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "7203.T", entity.Symbol{Code: "7203.T"}.Ticker())
	assert.Equal(t, "7203:TSE", entity.Symbol{Code: "7203.T", ProviderTicker: "7203:TSE"}.Ticker())
}
