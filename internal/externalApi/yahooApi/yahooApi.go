package yahooApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Deepnarayan70/ai-stock-trading-simulator/config"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/externalApi"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model/yahooModel"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// YahooApi reads quotes and daily closing-price history from the Yahoo Finance
// v8 chart endpoint. Unknown tickers come back as externalApi.ErrNotFound,
// never as a panic or a zero price.
type YahooApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *YahooApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.YahooApi.Url).
		SetHeader("User-Agent", "ai-stock-trading-simulator/1.0")
	return &YahooApi{client: client}
}

func (a *YahooApi) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/v8/finance/chart/%s", symbol)
	params := map[string]string{
		"interval": "1d",
		"range":    "1d",
	}

	slog.Debug("start YahooApi.GetQuote request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	raw, err := a.getChart(ctx, url, params)
	if err != nil {
		slog.Error("YahooApi.GetQuote failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.Quote{}, err
	}

	result := raw.Chart.Result[0]
	price := decimal.NewFromFloat(result.Meta.RegularMarketPrice)

	if price.IsZero() {
		return model.Quote{}, externalApi.ErrNotFound
	}

	slog.Debug("YahooApi.GetQuote request complete", slog.String("rqID", rqID))

	return model.Quote{Symbol: symbol, Price: price}, nil
}

// GetPriceHistory returns up to `days` daily candles, oldest first. Days with
// a null close (holidays, halted sessions) are skipped.
func (a *YahooApi) GetPriceHistory(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/v8/finance/chart/%s", symbol)
	params := map[string]string{
		"interval": "1d",
		"range":    fmt.Sprintf("%dd", days),
	}

	slog.Debug("start YahooApi.GetPriceHistory request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	raw, err := a.getChart(ctx, url, params)
	if err != nil {
		slog.Error("YahooApi.GetPriceHistory failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return nil, err
	}

	result := raw.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, externalApi.ErrNotFound
	}

	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return nil, fmt.Errorf("lengths timestamp != close: %d and %d", len(result.Timestamp), len(closes))
	}

	candles := make([]model.Candle, 0, len(closes))
	for i, ts := range result.Timestamp {
		if closes[i] == nil {
			continue
		}

		candles = append(candles, model.Candle{
			Date:  time.Unix(ts, 0).UTC(),
			Close: decimal.NewFromFloat(*closes[i]),
		})
	}

	if len(candles) == 0 {
		return nil, externalApi.ErrNotFound
	}

	slog.Debug("YahooApi.GetPriceHistory request complete", slog.String("rqID", rqID))

	return candles, nil
}

func (a *YahooApi) getChart(ctx context.Context, url string, params map[string]string) (yahooModel.RawChart, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		return yahooModel.RawChart{}, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return yahooModel.RawChart{}, externalApi.ErrNotFound
	}

	raw := yahooModel.RawChart{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		return yahooModel.RawChart{}, fmt.Errorf("can't unmarshall response into yahooModel.RawChart: %w", err)
	}

	if raw.Chart.Error != nil {
		if raw.Chart.Error.Code == "Not Found" {
			return yahooModel.RawChart{}, externalApi.ErrNotFound
		}
		return yahooModel.RawChart{}, fmt.Errorf("yahoo api error: %s - %s", raw.Chart.Error.Code, raw.Chart.Error.Description)
	}

	if len(raw.Chart.Result) == 0 {
		return yahooModel.RawChart{}, externalApi.ErrNotFound
	}

	return raw, nil
}
