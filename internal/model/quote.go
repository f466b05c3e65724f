package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Quote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// Candle is one day of closing-price history, oldest first in slices.
type Candle struct {
	Date  time.Time
	Close decimal.Decimal
}

type PricePoint struct {
	Date  time.Time       `json:"date"`
	Price decimal.Decimal `json:"price"`
}
