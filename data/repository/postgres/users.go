package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/Deepnarayan70/ai-stock-trading-simulator/data/repository"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model/dbModel"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/utils"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

func (r *Postgres) InsertUser(ctx context.Context, username, passwordHash string, balance decimal.Decimal) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertUser"
	query := `INSERT INTO users(username, password_hash, balance) VALUES($1, $2, $3) RETURNING user_id`

	slog.Debug("InsertUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, username, passwordHash, balance).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return 0, repository.ErrAlreadyExists
			}
		}
		return 0, err
	}

	return userID, nil
}

func (r *Postgres) GetUserByUsername(ctx context.Context, username string) (user dbModel.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetUserByUsername"
	query := `SELECT user_id, username, password_hash, balance FROM users WHERE username = $1`

	slog.Debug("GetUserByUsername start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetUserByUsername failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUserByUsername completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, username).StructScan(&user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbModel.User{}, repository.ErrNotFound
		}
		return dbModel.User{}, err
	}

	return user, nil
}

func (r *Postgres) GetUser(ctx context.Context, userID int64) (user dbModel.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetUser"
	query := `SELECT user_id, username, password_hash, balance FROM users WHERE user_id = $1`

	slog.Debug("GetUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID).StructScan(&user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbModel.User{}, repository.ErrNotFound
		}
		return dbModel.User{}, err
	}

	return user, nil
}

// GetUserForUpdate locks the user row until the surrounding transaction ends,
// serializing balance mutations against concurrent buys/sells.
func (r *Postgres) GetUserForUpdate(ctx context.Context, userID int64) (user dbModel.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetUserForUpdate"
	query := `SELECT user_id, username, password_hash, balance FROM users WHERE user_id = $1 FOR UPDATE`

	slog.Debug("GetUserForUpdate start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetUserForUpdate failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUserForUpdate completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID).StructScan(&user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbModel.User{}, repository.ErrNotFound
		}
		return dbModel.User{}, err
	}

	return user, nil
}

func (r *Postgres) UpdateBalance(ctx context.Context, userID int64, balance decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateBalance"
	query := `UPDATE users SET balance = $1 WHERE user_id = $2`

	slog.Debug("UpdateBalance start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateBalance failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateBalance completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, balance, userID)
	if err != nil {
		return err
	}

	return nil
}
