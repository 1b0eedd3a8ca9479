package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_alerts/internal/feature/candles/domain/entity"
	"stock_alerts/internal/feature/candles/usecase"
)

// ErrDB はモックと期待値の間で共有されるセンチネルエラーです。
var ErrDB = errors.New("database error")

// mockCandleRepository はCandleRepositoryインターフェースのモック実装です。
type mockCandleRepository struct {
	FindFunc  func(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error)
	FindCalls int
}

func (m *mockCandleRepository) Find(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
	m.FindCalls++
	if m.FindFunc != nil {
		return m.FindFunc(ctx, symbol, interval, outputsize)
	}
	return nil, errors.New("FindFunc is not implemented")
}

func (m *mockCandleRepository) UpsertBatch(ctx context.Context, candles []entity.Candle) error {
	return nil
}

func TestCandleReader_Latest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	stored := []entity.Candle{
		{Symbol: "AAPL", Interval: "1day", Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 105},
		{Symbol: "AAPL", Interval: "1day", Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Close: 100},
	}

	tests := []struct {
		name         string
		interval     string
		n            int
		findFunc     func(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error)
		wantInterval string
		wantErr      error
		wantAnyErr   bool
		wantCalls    int
		wantLen      int
	}{
		{
			name:     "success: returns repository rows",
			interval: "1day",
			n:        21,
			findFunc: func(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
				return stored, nil
			},
			wantInterval: "1day",
			wantCalls:    1,
			wantLen:      2,
		},
		{
			name:     "success: empty interval falls back to default",
			interval: "",
			n:        5,
			findFunc: func(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
				return stored, nil
			},
			wantInterval: usecase.DefaultInterval,
			wantCalls:    1,
			wantLen:      2,
		},
		{
			name:       "error: unsupported interval",
			interval:   "7day",
			n:          5,
			wantAnyErr: true,
		},
		{
			name:       "error: window size out of range",
			interval:   "1day",
			n:          0,
			wantAnyErr: true,
		},
		{
			name:     "error: repository error is wrapped",
			interval: "1week",
			n:        10,
			findFunc: func(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
				return nil, ErrDB
			},
			wantInterval: "1week",
			wantErr:      ErrDB,
			wantCalls:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := &mockCandleRepository{}
			if tt.findFunc != nil {
				repo.FindFunc = func(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
					assert.Equal(t, "AAPL", symbol)
					assert.Equal(t, tt.wantInterval, interval)
					assert.Equal(t, tt.n, outputsize)
					return tt.findFunc(ctx, symbol, interval, outputsize)
				}
			}
			reader := usecase.NewCandleReader(repo)

			got, err := reader.Latest(ctx, "AAPL", tt.interval, tt.n)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantAnyErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Len(t, got, tt.wantLen)
			}
			assert.Equal(t, tt.wantCalls, repo.FindCalls)
		})
	}
}

func TestIsSupportedInterval(t *testing.T) {
	t.Parallel()

	assert.True(t, usecase.IsSupportedInterval("1day"))
	assert.True(t, usecase.IsSupportedInterval("1h"))
	assert.False(t, usecase.IsSupportedInterval("1d"))
	assert.False(t, usecase.IsSupportedInterval(""))
}
