package tradingService

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Deepnarayan70/ai-stock-trading-simulator/config"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/data/repository"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/converter/dbConverter"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/externalApi"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model/dbModel"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/service"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type MarketApi interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	GetPriceHistory(ctx context.Context, symbol string, days int) ([]model.Candle, error)
}

type Cache interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	SetQuote(ctx context.Context, quote model.Quote) error
	SetQuotes(ctx context.Context, quotes []model.Quote) error
}

type Forecaster interface {
	Forecast(history []model.Candle, horizon int) ([]model.PricePoint, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, summary model.PortfolioSummary, transactions []model.Transaction) (fileBytes []byte, fileExtension string, err error)
}

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error

	InsertUser(ctx context.Context, username, passwordHash string, balance decimal.Decimal) (userID int64, err error)
	GetUserByUsername(ctx context.Context, username string) (user dbModel.User, err error)
	GetUser(ctx context.Context, userID int64) (user dbModel.User, err error)
	GetUserForUpdate(ctx context.Context, userID int64) (user dbModel.User, err error)
	UpdateBalance(ctx context.Context, userID int64, balance decimal.Decimal) (err error)

	InsertLot(ctx context.Context, userID int64, symbol string, quantity, buyPrice decimal.Decimal, buyDate time.Time) (lotID int64, err error)
	GetLots(ctx context.Context, userID int64) (lots []dbModel.Lot, err error)
	GetLotsBySymbolForUpdate(ctx context.Context, userID int64, symbol string) (lots []dbModel.Lot, err error)
	UpdateLotQuantity(ctx context.Context, lotID int64, quantity decimal.Decimal) (err error)
	DeleteLots(ctx context.Context, lotIDs []int64) (err error)
	GetHeldSymbols(ctx context.Context) (symbols []string, err error)

	InsertTransaction(ctx context.Context, tx dbModel.Transaction) (err error)
	GetTransactions(ctx context.Context, userID int64) (txs []dbModel.Transaction, err error)
}

type TradingService struct {
	cfg             *config.Config
	repo            Repository
	cache           Cache
	marketApi       MarketApi
	forecaster      Forecaster
	reportGenerator ReportGenerator

	muMap map[int64]*sync.Mutex // per-user mutation lock
	mapMu sync.Mutex            // protects muMap itself
}

func New(
	cfg *config.Config,
	repo Repository,
	cache Cache,
	marketApi MarketApi,
	forecaster Forecaster,
	reportGenerator ReportGenerator,
) *TradingService {
	return &TradingService{
		cfg:             cfg,
		repo:            repo,
		cache:           cache,
		marketApi:       marketApi,
		forecaster:      forecaster,
		reportGenerator: reportGenerator,
		muMap:           make(map[int64]*sync.Mutex),
	}
}

// userLock serializes all buys/sells of one user; reads stay concurrent and
// see consistent state through the repository's transaction snapshot.
func (s *TradingService) userLock(userID int64) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	if _, exists := s.muMap[userID]; !exists {
		s.muMap[userID] = &sync.Mutex{}
	}
	return s.muMap[userID]
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (s *TradingService) RegisterUser(ctx context.Context, username, password string) (model.User, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.RegisterUser"

	slog.Debug("RegisterUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		slog.Debug("RegisterUser finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	}()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.User{}, service.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("got error from bcrypt.GenerateFromPassword", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	balance := decimal.NewFromFloat(s.cfg.StartingBalance)

	userID, err := s.repo.InsertUser(ctx, username, string(hash), balance)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.User{}, service.ErrUsernameTaken
		}
		slog.Error("got error from repo.InsertUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	return model.User{UserID: userID, Username: username, Balance: balance}, nil
}

func (s *TradingService) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.Authenticate"

	slog.Debug("Authenticate start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		slog.Debug("Authenticate finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	}()

	dbUser, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, service.ErrInvalidCredentials
		}
		slog.Error("got error from repo.GetUserByUsername", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(dbUser.PasswordHash), []byte(password)); err != nil {
		return model.User{}, service.ErrInvalidCredentials
	}

	return dbConverter.ConvertUser(dbUser), nil
}

// GetQuote resolves a live price through the cache with the market API as
// fallback. Unknown symbols come back as service.ErrNotFound.
func (s *TradingService) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.GetQuote"

	symbol = normalizeSymbol(symbol)

	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("GetQuote finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	quote, err := s.cache.GetQuote(ctx, symbol)
	if err == nil {
		return quote, nil
	}

	quote, err = s.marketApi.GetQuote(ctx, symbol)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			slog.Warn("symbol not found in marketApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
			return model.Quote{}, service.ErrNotFound
		}
		slog.Error("can't get quote from marketApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Quote{}, err
	}

	go s.cache.SetQuote(context.WithoutCancel(ctx), quote)

	return quote, nil
}

// RefreshQuotesCache warms the quote cache for every symbol that any user
// currently holds. Runs as a scheduler job.
func (s *TradingService) RefreshQuotesCache(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.RefreshQuotesCache"

	slog.Debug("RefreshQuotesCache start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RefreshQuotesCache finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	symbols, err := s.repo.GetHeldSymbols(ctx)
	if err != nil {
		slog.Error("got error from repo.GetHeldSymbols", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	quotes := make([]model.Quote, 0, len(symbols))
	for _, symbol := range symbols {
		quote, err := s.marketApi.GetQuote(ctx, symbol)
		if err != nil {
			slog.Warn("can't refresh quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
			continue
		}
		quotes = append(quotes, quote)
	}

	if len(quotes) == 0 {
		return nil
	}

	return s.cache.SetQuotes(ctx, quotes)
}

// ExportReport renders the current portfolio and full trade history into a
// spreadsheet for download.
func (s *TradingService) ExportReport(ctx context.Context, userID int64) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "TradingService.ExportReport"

	slog.Debug("ExportReport start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("ExportReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	summary, err := s.PortfolioSummary(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	transactions, err := s.TransactionHistory(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	return s.reportGenerator.Generate(ctx, summary, transactions)
}
