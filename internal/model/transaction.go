package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

type Transaction struct {
	TransactionID int64           `json:"transaction_id"`
	UserID        int64           `json:"user_id"`
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Side          TradeSide       `json:"side"`
	DtCreate      time.Time       `json:"dt_create"`
}
