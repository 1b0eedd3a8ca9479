package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"stock_alerts/internal/feature/symbollist/domain/entity"
	jwtmw "stock_alerts/internal/platform/jwt"
)

// mockSymbolUsecase はSymbolUsecaseインターフェースのモック実装です。
type mockSymbolUsecase struct {
	ListActiveSymbolsFunc func(ctx context.Context, market string) ([]entity.Symbol, error)
	ListWatchlistFunc     func(ctx context.Context, userID uint) ([]entity.Symbol, error)
}

func (m *mockSymbolUsecase) ListActiveSymbols(ctx context.Context, market string) ([]entity.Symbol, error) {
	if m.ListActiveSymbolsFunc != nil {
		return m.ListActiveSymbolsFunc(ctx, market)
	}
	return nil, nil
}

func (m *mockSymbolUsecase) ListWatchlist(ctx context.Context, userID uint) ([]entity.Symbol, error) {
	if m.ListWatchlistFunc != nil {
		return m.ListWatchlistFunc(ctx, userID)
	}
	return nil, nil
}

// TestSymbolHandler_List はListハンドラーの各種シナリオをテーブル駆動テストで検証します。
func TestSymbolHandler_List(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		query          string
		listFunc       func(ctx context.Context, market string) ([]entity.Symbol, error)
		expectedMarket string
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success: returns list of symbols",
			listFunc: func(ctx context.Context, market string) ([]entity.Symbol, error) {
				return []entity.Symbol{
					{ID: 1, Code: "7203.T", Name: "Toyota Motor", Market: "TSE", IsActive: true, SortKey: 1},
					{ID: 2, Code: "AAPL", Name: "Apple", Market: "NASDAQ", IsActive: true, SortKey: 2, ProviderTicker: "AAPL:US"},
				}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"count":2,"symbols":[
				{"code":"7203.T","name":"Toyota Motor","market":"TSE","ticker":"7203.T"},
				{"code":"AAPL","name":"Apple","market":"NASDAQ","ticker":"AAPL:US"}]}`,
		},
		{
			name:  "success: market query is passed through",
			query: "?market=tse",
			listFunc: func(ctx context.Context, market string) ([]entity.Symbol, error) {
				return []entity.Symbol{{Code: "7203.T", Name: "Toyota Motor", Market: "TSE"}}, nil
			},
			expectedMarket: "tse",
			expectedStatus: http.StatusOK,
			expectedBody:   `{"count":1,"symbols":[{"code":"7203.T","name":"Toyota Motor","market":"TSE","ticker":"7203.T"}]}`,
		},
		{
			name: "success: nil from usecase renders empty array",
			listFunc: func(ctx context.Context, market string) ([]entity.Symbol, error) {
				return nil, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"count":0,"symbols":[]}`,
		},
		{
			name: "error: usecase returns error",
			listFunc: func(ctx context.Context, market string) ([]entity.Symbol, error) {
				return nil, errors.New("database connection failed")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"database connection failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotMarket string
			h := NewSymbolHandler(&mockSymbolUsecase{
				ListActiveSymbolsFunc: func(ctx context.Context, market string) ([]entity.Symbol, error) {
					gotMarket = market
					return tt.listFunc(ctx, market)
				},
			})
			router := gin.New()
			router.GET("/symbols", h.List)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/symbols"+tt.query, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			assert.Equal(t, tt.expectedMarket, gotMarket)
		})
	}
}

// TestSymbolHandler_Watchlist は認証ユーザーのIDでウォッチリストが取得されることを検証します。
func TestSymbolHandler_Watchlist(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		userID         uint
		expectedStatus int
		expectedBody   string
	}{
		{name: "success: watched symbols", userID: 5, expectedStatus: http.StatusOK, expectedBody: `{"count":1,"symbols":[{"code":"AAPL","name":"Apple","market":"NASDAQ","ticker":"AAPL"}]}`},
		{name: "error: unauthenticated", userID: 0, expectedStatus: http.StatusUnauthorized, expectedBody: `{"error":"unauthorized"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotUser uint
			h := NewSymbolHandler(&mockSymbolUsecase{
				ListWatchlistFunc: func(ctx context.Context, userID uint) ([]entity.Symbol, error) {
					gotUser = userID
					return []entity.Symbol{{Code: "AAPL", Name: "Apple", Market: "NASDAQ"}}, nil
				},
			})
			router := gin.New()
			router.GET("/watchlist", func(c *gin.Context) {
				if tt.userID != 0 {
					c.Set(jwtmw.ContextUserID, tt.userID)
				}
				h.Watchlist(c)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/watchlist", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			assert.Equal(t, tt.userID, gotUser)
		})
	}
}
