package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model/dbModel"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/utils"
	"github.com/shopspring/decimal"
)

func (r *Postgres) InsertLot(ctx context.Context, userID int64, symbol string, quantity, buyPrice decimal.Decimal, buyDate time.Time) (lotID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertLot"
	query := `
		INSERT INTO lots(user_id, symbol, quantity, buy_price, buy_date)
		VALUES($1, $2, $3, $4, $5)
		RETURNING lot_id
	`

	slog.Debug("InsertLot start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertLot failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertLot completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, userID, symbol, quantity, buyPrice, buyDate).Scan(&lotID)
	if err != nil {
		return 0, err
	}

	return lotID, nil
}

func (r *Postgres) getLots(ctx context.Context, query string, args ...any) (lots []dbModel.Lot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("getLots start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("getLots failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("getLots completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var lot dbModel.Lot
		err = rows.StructScan(&lot)
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}

	return lots, nil
}

func (r *Postgres) GetLots(ctx context.Context, userID int64) (lots []dbModel.Lot, err error) {
	query := `
		SELECT lot_id, user_id, symbol, quantity, buy_price, buy_date
		FROM lots
		WHERE user_id = $1
		ORDER BY symbol, buy_date, lot_id
		`

	return r.getLots(ctx, query, userID)
}

// GetLotsBySymbolForUpdate returns the open lots for one symbol oldest-first
// and locks them for the surrounding transaction. The lot_id tiebreak keeps
// the order deterministic for lots bought within the same timestamp.
func (r *Postgres) GetLotsBySymbolForUpdate(ctx context.Context, userID int64, symbol string) (lots []dbModel.Lot, err error) {
	query := `
		SELECT lot_id, user_id, symbol, quantity, buy_price, buy_date
		FROM lots
		WHERE user_id = $1
		AND symbol = $2
		ORDER BY buy_date, lot_id
		FOR UPDATE
		`

	return r.getLots(ctx, query, userID, symbol)
}

func (r *Postgres) UpdateLotQuantity(ctx context.Context, lotID int64, quantity decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateLotQuantity"
	query := `UPDATE lots SET quantity = $1 WHERE lot_id = $2`

	slog.Debug("UpdateLotQuantity start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateLotQuantity failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateLotQuantity completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, quantity, lotID)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) DeleteLots(ctx context.Context, lotIDs []int64) (err error) {
	if len(lotIDs) == 0 {
		return nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteLots"
	query := `DELETE FROM lots WHERE lot_id = ANY($1)`

	slog.Debug("DeleteLots start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("lotIDs", lotIDs))
	defer func() {
		if err != nil {
			slog.Error("DeleteLots failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteLots completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, lotIDs)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) GetHeldSymbols(ctx context.Context) (symbols []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetHeldSymbols"
	query := `SELECT DISTINCT symbol FROM lots ORDER BY symbol`

	slog.Debug("GetHeldSymbols start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHeldSymbols failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHeldSymbols completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &symbols, query)
	if err != nil {
		return nil, err
	}

	return symbols, nil
}
