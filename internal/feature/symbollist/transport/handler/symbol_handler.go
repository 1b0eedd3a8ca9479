package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"stock_alerts/internal/feature/symbollist/domain/entity"
	"stock_alerts/internal/feature/symbollist/transport/http/dto"
	jwtmw "stock_alerts/internal/platform/jwt"
)

// SymbolUsecase は銘柄情報に関するユースケースのインターフェースです。
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type SymbolUsecase interface {
	ListActiveSymbols(ctx context.Context, market string) ([]entity.Symbol, error)
	ListWatchlist(ctx context.Context, userID uint) ([]entity.Symbol, error)
}

// SymbolHandler は銘柄情報に関するHTTPリクエストを処理します。
type SymbolHandler struct {
	uc SymbolUsecase
}

// NewSymbolHandler は新しい SymbolHandler を作成します。
func NewSymbolHandler(uc SymbolUsecase) *SymbolHandler {
	return &SymbolHandler{uc: uc}
}

// List は有効な銘柄の一覧を返します。?market= で市場を絞り込めます。
func (h *SymbolHandler) List(c *gin.Context) {
	symbols, err := h.uc.ListActiveSymbols(c.Request.Context(), c.Query("market"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toResponse(symbols))
}

// Watchlist は認証ユーザーのウォッチリストを返します。
func (h *SymbolHandler) Watchlist(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	symbols, err := h.uc.ListWatchlist(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toResponse(symbols))
}

func toResponse(symbols []entity.Symbol) dto.SymbolListResponse {
	items := make([]dto.SymbolItem, 0, len(symbols))
	for _, s := range symbols {
		items = append(items, dto.SymbolItem{Code: s.Code, Name: s.Name, Market: s.Market, Ticker: s.Ticker()})
	}
	return dto.SymbolListResponse{Count: len(items), Symbols: items}
}
