package tradingService

import (
	"context"
	"log/slog"
	"time"

	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/converter/dbConverter"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model/dbModel"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/service"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/utils"
	"github.com/shopspring/decimal"
)

// quantityEpsilon is the tolerance for deciding that a lot is fully consumed
// by a sell. Share quantities come from amount/price divisions, so requiring
// exact equality would strand near-zero dust lots. The value is a tested
// constant: see the boundary cases in trading_test.go before changing it.
var quantityEpsilon = decimal.New(1, -9) // 1e-9

// Buy spends `amount` of the user's cash on `symbol` at the live price,
// opening one new lot. Lot, transaction record and balance debit commit as a
// single database transaction.
func (s *TradingService) Buy(ctx context.Context, userID int64, symbol string, amount decimal.Decimal) (trade model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.Buy"

	symbol = normalizeSymbol(symbol)

	slog.Debug("Buy start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("Buy finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("symbol", symbol))
	}()

	if !amount.IsPositive() {
		return model.Transaction{}, service.ErrInvalidAmount
	}

	price, err := s.lookupPrice(ctx, symbol)
	if err != nil {
		return model.Transaction{}, err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.repo.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		if amount.GreaterThan(user.Balance) {
			return service.ErrInsufficientFunds
		}

		shares := amount.Div(price)
		now := time.Now().UTC()

		if _, err := s.repo.InsertLot(ctx, userID, symbol, shares, price, now); err != nil {
			return err
		}

		trade = model.Transaction{
			UserID:   userID,
			Symbol:   symbol,
			Quantity: shares,
			Price:    price,
			Side:     model.SideBuy,
			DtCreate: now,
		}

		if err := s.repo.InsertTransaction(ctx, dbModel.Transaction{
			UserID:   trade.UserID,
			Symbol:   trade.Symbol,
			Quantity: trade.Quantity,
			Price:    trade.Price,
			Side:     string(trade.Side),
			DtCreate: trade.DtCreate,
		}); err != nil {
			return err
		}

		return s.repo.UpdateBalance(ctx, userID, user.Balance.Sub(amount))
	})
	if err != nil {
		slog.Error("Buy transaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Transaction{}, err
	}

	return trade, nil
}

// Sell disposes `quantity` shares of `symbol` at the live price, consuming the
// user's lots oldest-first. Proceeds are credited at the uniform sale price;
// per-lot realized gain is not tracked, only aggregate proceeds.
func (s *TradingService) Sell(ctx context.Context, userID int64, symbol string, quantity decimal.Decimal) (trade model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.Sell"

	symbol = normalizeSymbol(symbol)

	slog.Debug("Sell start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("Sell finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("symbol", symbol))
	}()

	if !quantity.IsPositive() {
		return model.Transaction{}, service.ErrInvalidQuantity
	}

	price, err := s.lookupPrice(ctx, symbol)
	if err != nil {
		return model.Transaction{}, err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		dbLots, err := s.repo.GetLotsBySymbolForUpdate(ctx, userID, symbol)
		if err != nil {
			return err
		}

		lots := make([]model.Lot, 0, len(dbLots))
		for _, dbLot := range dbLots {
			lots = append(lots, dbConverter.ConvertLot(dbLot))
		}

		consumedIDs, reduced, err := matchLotsFIFO(lots, quantity)
		if err != nil {
			return err
		}

		if err := s.repo.DeleteLots(ctx, consumedIDs); err != nil {
			return err
		}

		if reduced != nil {
			if err := s.repo.UpdateLotQuantity(ctx, reduced.LotID, reduced.Quantity); err != nil {
				return err
			}
		}

		user, err := s.repo.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		proceeds := quantity.Mul(price)
		now := time.Now().UTC()

		trade = model.Transaction{
			UserID:   userID,
			Symbol:   symbol,
			Quantity: quantity,
			Price:    price,
			Side:     model.SideSell,
			DtCreate: now,
		}

		if err := s.repo.InsertTransaction(ctx, dbModel.Transaction{
			UserID:   trade.UserID,
			Symbol:   trade.Symbol,
			Quantity: trade.Quantity,
			Price:    trade.Price,
			Side:     string(trade.Side),
			DtCreate: trade.DtCreate,
		}); err != nil {
			return err
		}

		return s.repo.UpdateBalance(ctx, userID, user.Balance.Add(proceeds))
	})
	if err != nil {
		slog.Error("Sell transaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Transaction{}, err
	}

	return trade, nil
}

// matchLotsFIFO walks lots ordered oldest-first and decides which are fully
// consumed and which one (at most) is reduced. A lot whose quantity is within
// quantityEpsilon of the remaining amount counts as fully consumed so no dust
// lot survives the sell.
func matchLotsFIFO(lots []model.Lot, quantity decimal.Decimal) (consumedIDs []int64, reduced *model.Lot, err error) {
	available := decimal.Zero
	for _, lot := range lots {
		available = available.Add(lot.Quantity)
	}

	if quantity.GreaterThan(available.Add(quantityEpsilon)) {
		return nil, nil, service.ErrInsufficientShares
	}

	remaining := quantity
	for _, lot := range lots {
		if !remaining.IsPositive() {
			break
		}

		if lot.Quantity.LessThanOrEqual(remaining.Add(quantityEpsilon)) {
			consumedIDs = append(consumedIDs, lot.LotID)
			remaining = remaining.Sub(lot.Quantity)
			continue
		}

		partial := lot
		partial.Quantity = lot.Quantity.Sub(remaining)
		reduced = &partial
		remaining = decimal.Zero
	}

	return consumedIDs, reduced, nil
}

// PortfolioSummary recomputes the display view from current lot state and
// fresh prices. Reads only: calling it twice with no intervening trade and a
// stable price yields identical output.
func (s *TradingService) PortfolioSummary(ctx context.Context, userID int64) (summary model.PortfolioSummary, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.PortfolioSummary"

	slog.Debug("PortfolioSummary start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("PortfolioSummary finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSummary{}, err
	}

	dbLots, err := s.repo.GetLots(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetLots", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSummary{}, err
	}

	lots := make([]model.Lot, 0, len(dbLots))
	for _, dbLot := range dbLots {
		lots = append(lots, dbConverter.ConvertLot(dbLot))
	}

	totalCost := decimal.Zero
	totalCurrent := decimal.Zero

	for _, holding := range aggregateLots(lots) {
		// Price lookup failure is degraded, not fatal: the row renders with a
		// zero price rather than breaking the whole view.
		livePrice := decimal.Zero
		if quote, err := s.GetQuote(ctx, holding.Symbol); err == nil {
			livePrice = quote.Price
		} else {
			slog.Warn("live price unavailable, rendering as zero", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", holding.Symbol))
		}

		value := holding.Shares.Mul(livePrice)
		pnl := value.Sub(holding.Cost)
		roi := decimal.Zero
		if holding.Cost.IsPositive() {
			roi = pnl.Div(holding.Cost).Mul(decimal.NewFromInt(100))
		}

		totalCost = totalCost.Add(holding.Cost)
		totalCurrent = totalCurrent.Add(value)

		summary.Positions = append(summary.Positions, model.Position{
			Symbol:     holding.Symbol,
			Shares:     holding.Shares.Round(6),
			BuyCost:    holding.Cost.Round(2),
			LivePrice:  livePrice.Round(2),
			Value:      value.Round(2),
			Pnl:        pnl.Round(2),
			RoiPercent: roi.Round(2),
			Forecast:   s.forecastSymbol(ctx, holding.Symbol),
		})
	}

	summary.Balance = user.Balance.Round(2)
	summary.TotalCost = totalCost.Round(2)
	summary.TotalCurrent = totalCurrent.Round(2)
	summary.TotalPnl = totalCurrent.Sub(totalCost).Round(2)

	return summary, nil
}

type holding struct {
	Symbol string
	Shares decimal.Decimal
	Cost   decimal.Decimal
}

// aggregateLots folds open lots into one holding per symbol at full precision,
// preserving the symbol order of the input.
func aggregateLots(lots []model.Lot) []holding {
	index := make(map[string]int, len(lots))
	holdings := make([]holding, 0, len(lots))

	for _, lot := range lots {
		i, ok := index[lot.Symbol]
		if !ok {
			i = len(holdings)
			index[lot.Symbol] = i
			holdings = append(holdings, holding{Symbol: lot.Symbol, Shares: decimal.Zero, Cost: decimal.Zero})
		}
		holdings[i].Shares = holdings[i].Shares.Add(lot.Quantity)
		holdings[i].Cost = holdings[i].Cost.Add(lot.Cost())
	}

	return holdings
}

// forecastSymbol produces the optional trend projection for one position.
// Any failure yields nil; the portfolio view never depends on the forecaster.
func (s *TradingService) forecastSymbol(ctx context.Context, symbol string) []model.PricePoint {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.forecastSymbol"

	history, err := s.marketApi.GetPriceHistory(ctx, symbol, s.cfg.HistoryDays)
	if err != nil {
		slog.Warn("can't get price history", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		return nil
	}

	points, err := s.forecaster.Forecast(history, s.cfg.ForecastDays)
	if err != nil {
		slog.Warn("can't build forecast", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		return nil
	}

	return points
}

func (s *TradingService) TransactionHistory(ctx context.Context, userID int64) (transactions []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.TransactionHistory"

	slog.Debug("TransactionHistory start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("TransactionHistory finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	dbTxs, err := s.repo.GetTransactions(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	transactions = make([]model.Transaction, 0, len(dbTxs))
	for _, dbTx := range dbTxs {
		transactions = append(transactions, dbConverter.ConvertTransaction(dbTx))
	}

	return transactions, nil
}

// lookupPrice resolves the trade price, mapping an unknown symbol to
// ErrPriceUnavailable so the trade aborts before any state change.
func (s *TradingService) lookupPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	quote, err := s.GetQuote(ctx, symbol)
	if err != nil {
		return decimal.Zero, service.ErrPriceUnavailable
	}
	if !quote.Price.IsPositive() {
		return decimal.Zero, service.ErrPriceUnavailable
	}
	return quote.Price, nil
}
