package postgres

import (
	"context"
	"log/slog"

	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model/dbModel"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/utils"
)

func (r *Postgres) InsertTransaction(ctx context.Context, tx dbModel.Transaction) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertTransaction"
	query := `
		INSERT INTO transactions(user_id, symbol, quantity, price, side, dt_create)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	slog.Debug(
		"InsertTransaction start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Any("transaction", tx),
		slog.String("query", query),
	)
	defer func() {
		if err != nil {
			slog.Error("InsertTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(
		ctx,
		query,
		tx.UserID,
		tx.Symbol,
		tx.Quantity,
		tx.Price,
		tx.Side,
		tx.DtCreate,
	)

	if err != nil {
		return err
	}
	return nil
}

// GetTransactions returns the full trade history for a user, most recent first.
// There is no update or delete path for this table.
func (r *Postgres) GetTransactions(ctx context.Context, userID int64) (txs []dbModel.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTransactions"
	query := `
		SELECT transaction_id, user_id, symbol, quantity, price, side, dt_create
		FROM transactions
		WHERE user_id = $1
		ORDER BY dt_create DESC, transaction_id DESC
		`

	slog.Debug("GetTransactions start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTransactions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTransactions completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var tx dbModel.Transaction
		err = rows.StructScan(&tx)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return txs, nil
}
