package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	TransactionID int64           `db:"transaction_id"`
	UserID        int64           `db:"user_id"`
	Symbol        string          `db:"symbol"`
	Quantity      decimal.Decimal `db:"quantity"`
	Price         decimal.Decimal `db:"price"`
	Side          string          `db:"side"`
	DtCreate      time.Time       `db:"dt_create"`
}
