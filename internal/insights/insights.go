package insights

import (
	"math"

	"github.com/vendimia/forecast-backend/internal/timeseries"
)

// Summary condenses a prediction window into its extremes.
type Summary struct {
	HistoryDays int
	HorizonDays int
	MaxValue    float64
	MaxDate     string
	MinValue    float64
	MinDate     string
	Empty       bool
}

// TrendAlert is the verdict of the short-horizon decline check.
type TrendAlert struct {
	Alert  bool
	Detail string
	From   string
	To     string
	Slope  float64
}

// Summarize scans the predictions for their maximum and minimum values,
// rounded to 2 decimals. Ties resolve to the earliest date. An empty window
// yields an empty summary so callers can answer without predictions.
func Summarize(predictions timeseries.Series, historyDays, horizonDays int) Summary {
	s := Summary{HistoryDays: historyDays, HorizonDays: horizonDays}
	if predictions.IsEmpty() {
		s.Empty = true
		return s
	}

	maxIdx, minIdx := 0, 0
	for i, p := range predictions {
		if p.Value > predictions[maxIdx].Value {
			maxIdx = i
		}
		if p.Value < predictions[minIdx].Value {
			minIdx = i
		}
	}
	s.MaxValue = round2(predictions[maxIdx].Value)
	s.MaxDate = predictions[maxIdx].Date.Format(timeseries.DateFormat)
	s.MinValue = round2(predictions[minIdx].Value)
	s.MinDate = predictions[minIdx].Date.Format(timeseries.DateFormat)
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// trendWindow is how many trailing predictions feed the decline check.
const trendWindow = 7

// DetectTrendAlert sums the consecutive deltas over the last trendWindow
// predictions and raises an alert when the accumulated change falls at or
// below threshold. Fewer than two predictions cannot form a delta and report
// no alert.
func DetectTrendAlert(predictions timeseries.Series, threshold float64) TrendAlert {
	if len(predictions) < 2 {
		return TrendAlert{Alert: false, Detail: "insufficient predictions to evaluate a trend"}
	}

	window := predictions
	if len(window) > trendWindow {
		window = window[len(window)-trendWindow:]
	}

	var accumulated float64
	for i := 1; i < len(window); i++ {
		accumulated += window[i].Value - window[i-1].Value
	}

	alert := TrendAlert{
		From:  window[0].Date.Format(timeseries.DateFormat),
		To:    window[len(window)-1].Date.Format(timeseries.DateFormat),
		Slope: accumulated,
	}
	if accumulated <= threshold {
		alert.Alert = true
		alert.Detail = "sustained decline projected over the coming days"
	} else {
		alert.Detail = "no sustained decline projected"
	}
	return alert
}
