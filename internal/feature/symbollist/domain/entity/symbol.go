// Package entity defines the domain models for the symbollist feature.
package entity

import "time"

// Symbol is an exchange-listed security. Code is its identity across the
// pipeline; ProviderTicker maps it to the market-data provider when they differ.
type Symbol struct {
	ID             uint      `gorm:"primaryKey"`
	Code           string    `gorm:"size:20;not null;uniqueIndex"`
	Name           string    `gorm:"size:255;not null"`
	Market         string    `gorm:"size:100;not null"`
	ProviderTicker string    `gorm:"size:32"`
	IsActive       bool      `gorm:"not null;default:true"`
	SortKey        int       `gorm:"not null;default:0"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// Ticker returns the provider ticker, falling back to Code.
func (s Symbol) Ticker() string {
	if s.ProviderTicker != "" {
		return s.ProviderTicker
	}
	return s.Code
}

// UserSymbol is one watchlist entry. The scheduler refreshes snapshots for
// every active symbol with at least one watcher.
type UserSymbol struct {
	UserID     uint      `gorm:"primaryKey;autoIncrement:false"`
	SymbolCode string    `gorm:"primaryKey;size:20"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// TableName returns the user_symbols table name.
func (UserSymbol) TableName() string {
	return "user_symbols"
}
