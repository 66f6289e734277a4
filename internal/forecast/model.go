package forecast

import (
	"github.com/vendimia/forecast-backend/internal/timeseries"
)

// Model is an opaque trainable forecaster. Predict returns daily points
// covering the training range plus horizonDays periods beyond it, the way
// the underlying trend models extrapolate from their fitted history; callers
// filter out the historical portion themselves.
type Model interface {
	Fit(series timeseries.Series) error
	Predict(horizonDays int) (timeseries.Series, error)
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// Trainer builds a fitted model from a historical series.
type Trainer func(series timeseries.Series) (Model, error)

// Decoder restores a persisted model artifact.
type Decoder func(blob []byte) (Model, error)
