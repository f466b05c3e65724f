package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is a single parcel of shares acquired by one buy. A sell consumes lots
// oldest-first; a partially consumed lot keeps its original BuyPrice and BuyDate.
type Lot struct {
	LotID    int64
	UserID   int64
	Symbol   string
	Quantity decimal.Decimal
	BuyPrice decimal.Decimal
	BuyDate  time.Time
}

func (l Lot) Cost() decimal.Decimal {
	return l.Quantity.Mul(l.BuyPrice)
}
