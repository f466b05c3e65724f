package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Lot struct {
	LotID    int64           `db:"lot_id"`
	UserID   int64           `db:"user_id"`
	Symbol   string          `db:"symbol"`
	Quantity decimal.Decimal `db:"quantity"`
	BuyPrice decimal.Decimal `db:"buy_price"`
	BuyDate  time.Time       `db:"buy_date"`
}
