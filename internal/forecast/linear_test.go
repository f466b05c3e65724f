package forecast

import (
	"testing"
	"time"

	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candles(start time.Time, closes ...float64) []model.Candle {
	out := make([]model.Candle, 0, len(closes))
	for i, c := range closes {
		out = append(out, model.Candle{
			Date:  start.Add(time.Duration(i) * 24 * time.Hour),
			Close: decimal.NewFromFloat(c),
		})
	}
	return out
}

func TestForecast_ContinuesLinearTrend(t *testing.T) {
	f := NewLinear()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Closes 100, 101, ..., 109: slope 1, so the projection keeps climbing by 1.
	history := candles(start, 100, 101, 102, 103, 104, 105, 106, 107, 108, 109)

	points, err := f.Forecast(history, 3)
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.True(t, points[0].Price.Equal(decimal.NewFromInt(110)), "got %s", points[0].Price)
	assert.True(t, points[1].Price.Equal(decimal.NewFromInt(111)), "got %s", points[1].Price)
	assert.True(t, points[2].Price.Equal(decimal.NewFromInt(112)), "got %s", points[2].Price)

	lastDate := history[len(history)-1].Date
	assert.True(t, points[0].Date.Equal(lastDate.Add(24*time.Hour)))
	assert.True(t, points[2].Date.Equal(lastDate.Add(3*24*time.Hour)))
}

func TestForecast_FlatSeriesStaysFlat(t *testing.T) {
	f := NewLinear()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	points, err := f.Forecast(candles(start, 50, 50, 50, 50), 2)
	require.NoError(t, err)
	require.Len(t, points, 2)

	for _, p := range points {
		assert.True(t, p.Price.Equal(decimal.NewFromInt(50)), "got %s", p.Price)
	}
}

func TestForecast_UsesOnlyRecentWindow(t *testing.T) {
	f := NewLinear()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// A long flat prefix followed by 60 flat closes at a different level: only
	// the tail should matter, so the projection sits at the tail's level.
	closes := make([]float64, 0, 100)
	for i := 0; i < 40; i++ {
		closes = append(closes, 10)
	}
	for i := 0; i < 60; i++ {
		closes = append(closes, 200)
	}

	points, err := f.Forecast(candles(start, closes...), 1)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.True(t, points[0].Price.Equal(decimal.NewFromInt(200)), "got %s", points[0].Price)
}

func TestForecast_NotEnoughData(t *testing.T) {
	f := NewLinear()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.Forecast(nil, 7)
	assert.ErrorIs(t, err, ErrNotEnoughData)

	_, err = f.Forecast(candles(start, 100), 7)
	assert.ErrorIs(t, err, ErrNotEnoughData)

	_, err = f.Forecast(candles(start, 100, 101), 0)
	assert.ErrorIs(t, err, ErrNotEnoughData)
}
