package forecast

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/vendimia/forecast-backend/internal/timeseries"
	pkgerrors "github.com/vendimia/forecast-backend/pkg/errors"
)

// TrendModel fits a least-squares linear trend with additive day-of-week
// components, the daily-seasonality shape retail sales follow. Values are
// extrapolated from the trend line, so predictions carry no lower bound and
// may go negative.
//
// Fields are exported for gob serialization only.
type TrendModel struct {
	Intercept  float64
	Slope      float64
	Weekday    [7]float64
	TrainStart time.Time
	TrainDays  int
}

// NewTrendModel returns an unfitted model.
func NewTrendModel() *TrendModel {
	return &TrendModel{}
}

// TrainSeasonalTrend fits a TrendModel on the series. It is the default
// Trainer wired into the model cache.
func TrainSeasonalTrend(series timeseries.Series) (Model, error) {
	m := NewTrendModel()
	if err := m.Fit(series); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeTrendModel restores a persisted TrendModel artifact. It is the
// default Decoder wired into the model cache.
func DecodeTrendModel(blob []byte) (Model, error) {
	m := NewTrendModel()
	if err := m.UnmarshalBinary(blob); err != nil {
		return nil, err
	}
	return m, nil
}

// Fit estimates the trend and weekday components from the series. A model
// cannot be fit on zero observations.
func (m *TrendModel) Fit(series timeseries.Series) error {
	if len(series) == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientData, "cannot fit a model on an empty series")
	}

	start := timeseries.Day(series.FirstDate())
	end := timeseries.Day(series.LastDate())

	// Day offsets from the training start keep gaps in sparse series from
	// distorting the slope.
	n := float64(len(series))
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range series {
		x := dayOffset(start, p.Date)
		sumX += x
		sumY += p.Value
		sumXY += x * p.Value
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		m.Slope = 0
		m.Intercept = sumY / n
	} else {
		m.Slope = (n*sumXY - sumX*sumY) / denom
		m.Intercept = (sumY - m.Slope*sumX) / n
	}

	var residualSum [7]float64
	var residualCount [7]int
	for _, p := range series {
		trend := m.Intercept + m.Slope*dayOffset(start, p.Date)
		wd := int(p.Date.Weekday())
		residualSum[wd] += p.Value - trend
		residualCount[wd]++
	}
	for wd := range m.Weekday {
		if residualCount[wd] > 0 {
			m.Weekday[wd] = residualSum[wd] / float64(residualCount[wd])
		} else {
			m.Weekday[wd] = 0
		}
	}

	m.TrainStart = start
	m.TrainDays = int(dayOffset(start, end)) + 1
	return nil
}

// Predict returns one point per day from the training start through
// horizonDays past the training end.
func (m *TrendModel) Predict(horizonDays int) (timeseries.Series, error) {
	if m.TrainDays == 0 {
		return nil, fmt.Errorf("model has not been fitted")
	}
	if horizonDays < 0 {
		horizonDays = 0
	}

	total := m.TrainDays + horizonDays
	out := make(timeseries.Series, 0, total)
	for i := 0; i < total; i++ {
		date := m.TrainStart.AddDate(0, 0, i)
		value := m.Intercept + m.Slope*float64(i) + m.Weekday[int(date.Weekday())]
		out = append(out, timeseries.Point{Date: date, Value: value})
	}
	return out, nil
}

// MarshalBinary encodes the fitted parameters with gob.
func (m *TrendModel) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(trendArtifact{
		Intercept:  m.Intercept,
		Slope:      m.Slope,
		Weekday:    m.Weekday,
		TrainStart: m.TrainStart,
		TrainDays:  m.TrainDays,
	}); err != nil {
		return nil, fmt.Errorf("encoding trend model: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores the fitted parameters from a gob blob.
func (m *TrendModel) UnmarshalBinary(data []byte) error {
	var artifact trendArtifact
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&artifact); err != nil {
		return fmt.Errorf("decoding trend model: %w", err)
	}
	m.Intercept = artifact.Intercept
	m.Slope = artifact.Slope
	m.Weekday = artifact.Weekday
	m.TrainStart = artifact.TrainStart
	m.TrainDays = artifact.TrainDays
	return nil
}

type trendArtifact struct {
	Intercept  float64
	Slope      float64
	Weekday    [7]float64
	TrainStart time.Time
	TrainDays  int
}

func dayOffset(start, date time.Time) float64 {
	return timeseries.Day(date).Sub(start).Hours() / 24
}
