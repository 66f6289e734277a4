package forecast

import (
	"math"

	"github.com/vendimia/forecast-backend/internal/timeseries"
)

// Options tunes how the forward window is produced.
type Options struct {
	// Round2 rounds predicted values to 2 decimal places. Per-product
	// predictions are rounded; store-wide ones are returned as-is.
	Round2 bool
}

// Forecast asks the model for horizonDays periods past its training end and
// keeps only dates strictly after the last observed date of the series,
// truncated to exactly horizonDays points. An empty historical series yields
// an empty prediction sequence.
func Forecast(series timeseries.Series, model Model, horizonDays int, opts Options) (timeseries.Series, error) {
	if series.IsEmpty() || horizonDays <= 0 {
		return nil, nil
	}

	predicted, err := model.Predict(horizonDays)
	if err != nil {
		return nil, err
	}

	lastObserved := timeseries.Day(series.LastDate())
	out := make(timeseries.Series, 0, horizonDays)
	for _, p := range predicted {
		if !p.Date.After(lastObserved) {
			continue
		}
		value := p.Value
		if opts.Round2 {
			value = math.Round(value*100) / 100
		}
		out = append(out, timeseries.Point{Date: p.Date, Value: value})
		if len(out) == horizonDays {
			break
		}
	}
	return out, nil
}
