package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Deepnarayan70/ai-stock-trading-simulator/data/session"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/service"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/utils"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type TradingService interface {
	RegisterUser(ctx context.Context, username, password string) (model.User, error)
	Authenticate(ctx context.Context, username, password string) (model.User, error)
	Buy(ctx context.Context, userID int64, symbol string, amount decimal.Decimal) (model.Transaction, error)
	Sell(ctx context.Context, userID int64, symbol string, quantity decimal.Decimal) (model.Transaction, error)
	PortfolioSummary(ctx context.Context, userID int64) (model.PortfolioSummary, error)
	TransactionHistory(ctx context.Context, userID int64) ([]model.Transaction, error)
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	ExportReport(ctx context.Context, userID int64) (fileBytes []byte, fileExtension string, err error)
}

type Session interface {
	GetSession(ctx context.Context, token string) (model.Session, error)
	SetSession(ctx context.Context, token string, session model.Session) error
	DeleteSession(ctx context.Context, token string) error
}

type Controller struct {
	tradingService TradingService
	session        Session
}

func NewController(tradingService TradingService, session Session) *Controller {
	return &Controller{
		tradingService: tradingService,
		session:        session,
	}
}

type userCtxKey struct{}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type buyRequest struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
}

type sellRequest struct {
	Symbol string          `json:"symbol"`
	Shares decimal.Decimal `json:"shares"`
}

func (ctrl *Controller) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := ctrl.tradingService.RegisterUser(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			writeError(w, http.StatusConflict, "username already taken")
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "enter username and password")
		default:
			writeInternalError(ctx, w, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":  user.UserID,
		"username": user.Username,
		"balance":  user.Balance,
	})
}

func (ctrl *Controller) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := ctrl.tradingService.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeInternalError(ctx, w, err)
		return
	}

	token := uuid.NewString()
	if err := ctrl.session.SetSession(ctx, token, model.Session{UserID: user.UserID, Username: user.Username}); err != nil {
		writeInternalError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

func (ctrl *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := bearerToken(r)
	if token != "" {
		if err := ctrl.session.DeleteSession(ctx, token); err != nil {
			writeInternalError(ctx, w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "logged out"})
}

func (ctrl *Controller) Buy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromCtx(ctx)

	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trade, err := ctrl.tradingService.Buy(ctx, sess.UserID, req.Symbol, req.Amount)
	if err != nil {
		ctrl.writeTradeError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, trade)
}

func (ctrl *Controller) Sell(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromCtx(ctx)

	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trade, err := ctrl.tradingService.Sell(ctx, sess.UserID, req.Symbol, req.Shares)
	if err != nil {
		ctrl.writeTradeError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, trade)
}

func (ctrl *Controller) Portfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromCtx(ctx)

	summary, err := ctrl.tradingService.PortfolioSummary(ctx, sess.UserID)
	if err != nil {
		writeInternalError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (ctrl *Controller) Transactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromCtx(ctx)

	transactions, err := ctrl.tradingService.TransactionHistory(ctx, sess.UserID)
	if err != nil {
		writeInternalError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, transactions)
}

func (ctrl *Controller) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromCtx(ctx)

	fileBytes, fileExtension, err := ctrl.tradingService.ExportReport(ctx, sess.UserID)
	if err != nil {
		writeInternalError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=portfolio%s", fileExtension))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(fileBytes)
}

func (ctrl *Controller) Quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	symbol := mux.Vars(r)["symbol"]

	quote, err := ctrl.tradingService.GetQuote(ctx, symbol)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ticker not found or no price available")
			return
		}
		writeInternalError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

func (ctrl *Controller) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Auth resolves the bearer token into a session and puts it on the request
// context; requests without a valid session never reach the handler.
func (ctrl *Controller) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		sess, err := ctrl.session.GetSession(ctx, token)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "session expired")
				return
			}
			writeInternalError(ctx, w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userCtxKey{}, sess)))
	})
}

func (ctrl *Controller) writeTradeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "enter a positive amount")
	case errors.Is(err, service.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "enter positive shares to sell")
	case errors.Is(err, service.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, "insufficient balance")
	case errors.Is(err, service.ErrInsufficientShares):
		writeError(w, http.StatusUnprocessableEntity, "not enough shares to sell")
	case errors.Is(err, service.ErrPriceUnavailable):
		writeError(w, http.StatusNotFound, "ticker not found or no price available")
	default:
		writeInternalError(ctx, w, err)
	}
}

func sessionFromCtx(ctx context.Context) model.Session {
	sess, _ := ctx.Value(userCtxKey{}).(model.Session)
	return sess
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func writeInternalError(ctx context.Context, w http.ResponseWriter, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Error("internal error", slog.String("rqID", rqID), slog.String("err", err.Error()))
	writeError(w, http.StatusInternalServerError, "something went wrong")
}
