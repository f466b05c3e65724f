package model

import "github.com/shopspring/decimal"

// Position is one display row per held symbol, recomputed from open lots on
// every read. Money fields are rounded to 2 places, Shares to 6; Forecast is
// nil when the forecaster could not produce one.
type Position struct {
	Symbol     string          `json:"symbol"`
	Shares     decimal.Decimal `json:"shares"`
	BuyCost    decimal.Decimal `json:"buy_cost"`
	LivePrice  decimal.Decimal `json:"live_price"`
	Value      decimal.Decimal `json:"value"`
	Pnl        decimal.Decimal `json:"pnl"`
	RoiPercent decimal.Decimal `json:"roi_percent"`
	Forecast   []PricePoint    `json:"forecast,omitempty"`
}

type PortfolioSummary struct {
	Balance      decimal.Decimal `json:"balance"`
	Positions    []Position      `json:"positions"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	TotalCurrent decimal.Decimal `json:"total_current"`
	TotalPnl     decimal.Decimal `json:"total_pnl"`
}
