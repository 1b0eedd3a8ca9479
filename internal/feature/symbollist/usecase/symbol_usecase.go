// Package usecase implements the business logic for symbol and watchlist operations.
package usecase

import (
	"context"
	"fmt"
	"strings"

	"stock_alerts/internal/feature/symbollist/domain/entity"
)

// SymbolRepository abstracts the persistence layer for symbols and watchlists.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type SymbolRepository interface {
	ListActive(ctx context.Context) ([]entity.Symbol, error)
	ListActiveCodes(ctx context.Context) ([]string, error)
	ListWatchedSymbols(ctx context.Context) ([]string, error)
	ListWatchlist(ctx context.Context, userID uint) ([]entity.Symbol, error)
}

// SymbolUsecase provides business logic for symbol operations.
type SymbolUsecase struct {
	repo SymbolRepository
}

// NewSymbolUsecase creates a new SymbolUsecase with the given repository.
func NewSymbolUsecase(r SymbolRepository) *SymbolUsecase {
	return &SymbolUsecase{repo: r}
}

// ListActiveSymbols returns active symbols ordered by sort key.
// A non-empty market keeps only symbols listed there, compared case-insensitively.
func (u *SymbolUsecase) ListActiveSymbols(ctx context.Context, market string) ([]entity.Symbol, error) {
	symbols, err := u.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active symbols: %w", err)
	}
	market = strings.TrimSpace(market)
	if market == "" {
		return symbols, nil
	}
	out := make([]entity.Symbol, 0, len(symbols))
	for _, s := range symbols {
		if strings.EqualFold(s.Market, market) {
			out = append(out, s)
		}
	}
	return out, nil
}

// ListWatchlist returns the active symbols a user watches.
func (u *SymbolUsecase) ListWatchlist(ctx context.Context, userID uint) ([]entity.Symbol, error) {
	symbols, err := u.repo.ListWatchlist(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist of user %d: %w", userID, err)
	}
	return symbols, nil
}
