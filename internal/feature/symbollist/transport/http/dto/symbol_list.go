// Package dto defines data transfer objects for the symbollist HTTP API.
package dto

// SymbolItem is one symbol in a list response.
// Ticker is the code the market-data provider knows the symbol by.
type SymbolItem struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market"`
	Ticker string `json:"ticker"`
}

// SymbolListResponse wraps a symbol list with its size.
type SymbolListResponse struct {
	Count   int          `json:"count"`
	Symbols []SymbolItem `json:"symbols"`
}
