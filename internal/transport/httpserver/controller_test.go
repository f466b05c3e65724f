package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Deepnarayan70/ai-stock-trading-simulator/data/session"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTradingService struct {
	buyErr    error
	sellErr   error
	quoteErr  error
	buyCalled bool
}

func (s *stubTradingService) RegisterUser(_ context.Context, username, _ string) (model.User, error) {
	return model.User{UserID: 1, Username: username, Balance: decimal.NewFromInt(100000)}, nil
}

func (s *stubTradingService) Authenticate(_ context.Context, username, password string) (model.User, error) {
	if password != "secret" {
		return model.User{}, service.ErrInvalidCredentials
	}
	return model.User{UserID: 1, Username: username}, nil
}

func (s *stubTradingService) Buy(_ context.Context, userID int64, symbol string, amount decimal.Decimal) (model.Transaction, error) {
	s.buyCalled = true
	if s.buyErr != nil {
		return model.Transaction{}, s.buyErr
	}
	return model.Transaction{UserID: userID, Symbol: symbol, Quantity: amount, Side: model.SideBuy}, nil
}

func (s *stubTradingService) Sell(_ context.Context, userID int64, symbol string, quantity decimal.Decimal) (model.Transaction, error) {
	if s.sellErr != nil {
		return model.Transaction{}, s.sellErr
	}
	return model.Transaction{UserID: userID, Symbol: symbol, Quantity: quantity, Side: model.SideSell}, nil
}

func (s *stubTradingService) PortfolioSummary(context.Context, int64) (model.PortfolioSummary, error) {
	return model.PortfolioSummary{Balance: decimal.NewFromInt(100000)}, nil
}

func (s *stubTradingService) TransactionHistory(context.Context, int64) ([]model.Transaction, error) {
	return nil, nil
}

func (s *stubTradingService) GetQuote(_ context.Context, symbol string) (model.Quote, error) {
	if s.quoteErr != nil {
		return model.Quote{}, s.quoteErr
	}
	return model.Quote{Symbol: symbol, Price: decimal.NewFromInt(100)}, nil
}

func (s *stubTradingService) ExportReport(context.Context, int64) ([]byte, string, error) {
	return []byte("report"), ".xlsx", nil
}

type stubSession struct {
	sessions map[string]model.Session
}

func newStubSession() *stubSession {
	return &stubSession{sessions: make(map[string]model.Session)}
}

func (s *stubSession) GetSession(_ context.Context, token string) (model.Session, error) {
	sess, ok := s.sessions[token]
	if !ok {
		return model.Session{}, session.ErrNotFound
	}
	return sess, nil
}

func (s *stubSession) SetSession(_ context.Context, token string, sess model.Session) error {
	s.sessions[token] = sess
	return nil
}

func (s *stubSession) DeleteSession(_ context.Context, token string) error {
	delete(s.sessions, token)
	return nil
}

func authedRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer tok")
	return req
}

func newTestHandlers(t *testing.T) (*Controller, *stubTradingService, *stubSession) {
	t.Helper()

	svc := &stubTradingService{}
	sess := newStubSession()
	sess.sessions["tok"] = model.Session{UserID: 1, Username: "alice"}
	return NewController(svc, sess), svc, sess
}

func TestAuth_RejectsMissingAndUnknownToken(t *testing.T) {
	ctrl, _, _ := newTestHandlers(t)

	handler := ctrl.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
	req.Header.Set("Authorization", "Bearer unknown")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_PassesSessionToHandler(t *testing.T) {
	ctrl, _, _ := newTestHandlers(t)

	var got model.Session
	handler := ctrl.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = sessionFromCtx(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), authedRequest(http.MethodGet, "/api/portfolio", ""))
	assert.Equal(t, int64(1), got.UserID)
	assert.Equal(t, "alice", got.Username)
}

func TestLogin_IssuesToken(t *testing.T) {
	ctrl, _, sess := newTestHandlers(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"alice","password":"secret"}`))
	ctrl.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])

	stored, err := sess.GetSession(context.Background(), resp["token"])
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.UserID)
}

func TestLogin_WrongPassword(t *testing.T) {
	ctrl, _, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"alice","password":"nope"}`))
	ctrl.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBuy_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid amount", service.ErrInvalidAmount, http.StatusBadRequest},
		{"insufficient funds", service.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"price unavailable", service.ErrPriceUnavailable, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl, svc, _ := newTestHandlers(t)
			svc.buyErr = tc.err

			rec := httptest.NewRecorder()
			handler := ctrl.Auth(http.HandlerFunc(ctrl.Buy))
			handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/buy", `{"symbol":"AAPL","amount":"1000"}`))

			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestSell_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid quantity", service.ErrInvalidQuantity, http.StatusBadRequest},
		{"insufficient shares", service.ErrInsufficientShares, http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl, svc, _ := newTestHandlers(t)
			svc.sellErr = tc.err

			rec := httptest.NewRecorder()
			handler := ctrl.Auth(http.HandlerFunc(ctrl.Sell))
			handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/sell", `{"symbol":"AAPL","shares":"4"}`))

			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestBuy_InvalidBodyNeverReachesService(t *testing.T) {
	ctrl, svc, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	handler := ctrl.Auth(http.HandlerFunc(ctrl.Buy))
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/buy", `not json`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, svc.buyCalled)
}

func TestQuote_UnknownSymbol(t *testing.T) {
	ctrl, svc, _ := newTestHandlers(t)
	svc.quoteErr = service.ErrNotFound

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/quotes/NOPE", nil)
	ctrl.Quote(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportTransactions_SetsDownloadHeaders(t *testing.T) {
	ctrl, _, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	handler := ctrl.Auth(http.HandlerFunc(ctrl.ExportTransactions))
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/transactions/export", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "portfolio.xlsx")
	assert.Equal(t, "report", rec.Body.String())
}

func TestLogout_DeletesSession(t *testing.T) {
	ctrl, _, sess := newTestHandlers(t)

	rec := httptest.NewRecorder()
	ctrl.Logout(rec, authedRequest(http.MethodPost, "/api/logout", ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	_, err := sess.GetSession(context.Background(), "tok")
	assert.ErrorIs(t, err, session.ErrNotFound)
}
