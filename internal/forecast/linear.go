package forecast

import (
	"errors"
	"time"

	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model"
	"github.com/shopspring/decimal"
)

// regressionWindow caps how much history feeds the fit; older closes carry no
// signal for a short-horizon projection.
const regressionWindow = 60

var ErrNotEnoughData = errors.New("not enough history to forecast")

// Linear projects future closing prices by fitting ordinary least squares over
// the tail of the price history. It is a pure function of its input: no
// network, no side effects, so a failed forecast can never break a portfolio view.
type Linear struct{}

func NewLinear() *Linear {
	return &Linear{}
}

func (f *Linear) Forecast(history []model.Candle, horizon int) ([]model.PricePoint, error) {
	if len(history) < 2 || horizon <= 0 {
		return nil, ErrNotEnoughData
	}

	series := history
	if len(series) > regressionWindow {
		series = series[len(series)-regressionWindow:]
	}

	slope, intercept := fit(series)

	lastDate := series[len(series)-1].Date
	points := make([]model.PricePoint, 0, horizon)
	for i := 0; i < horizon; i++ {
		x := float64(len(series) + i)
		points = append(points, model.PricePoint{
			Date:  lastDate.Add(time.Duration(i+1) * 24 * time.Hour),
			Price: decimal.NewFromFloat(slope*x + intercept).Round(2),
		})
	}

	return points, nil
}

// fit returns the least-squares line through (index, close).
func fit(series []model.Candle) (slope, intercept float64) {
	n := float64(len(series))

	var sumX, sumY, sumXY, sumXX float64
	for i, candle := range series {
		x := float64(i)
		y := candle.Close.InexactFloat64()
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}

	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
