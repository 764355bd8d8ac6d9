package core

import "github.com/shopspring/decimal"

// PriceSnapshot holds the market data of one token at fetch time
type PriceSnapshot struct {
	Price     decimal.Decimal
	Change1h  float64
	Change24h float64
	Symbol    string
	Name      string

	PairAddress string
	DexID       string
	URL         string
}
