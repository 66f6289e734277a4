package predictions

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vendimia/forecast-backend/internal/forecast"
	"github.com/vendimia/forecast-backend/internal/insights"
	"github.com/vendimia/forecast-backend/internal/modelcache"
	"github.com/vendimia/forecast-backend/internal/sales"
	"github.com/vendimia/forecast-backend/internal/timeseries"
	"github.com/vendimia/forecast-backend/pkg/config"
	pkgerrors "github.com/vendimia/forecast-backend/pkg/errors"
	"github.com/vendimia/forecast-backend/pkg/logger"
	"github.com/vendimia/forecast-backend/pkg/metrics"
	"github.com/vendimia/forecast-backend/pkg/redis"
	"go.uber.org/multierr"
)

// TrainResult reports the outcome of a store-wide training run.
type TrainResult struct {
	NoData       bool
	Observations int
}

// ProductTraining is one product's outcome within a batch training run.
type ProductTraining struct {
	ProductID    uuid.UUID
	Title        string
	Observations int
}

// ProductTrainResult reports the outcome of a per-product batch training run.
type ProductTrainResult struct {
	NoData  bool
	Trained []ProductTraining
	Skipped int
}

// PredictResult carries the historical window and the forward predictions of
// a store-wide forecast.
type PredictResult struct {
	History     timeseries.Series
	Predictions timeseries.Series
	HistoryDays int
	HorizonDays int
}

// ProductForecast is one product's forward window. History is populated only
// when the run was narrowed to a single product.
type ProductForecast struct {
	ProductID   uuid.UUID
	Title       string
	History     timeseries.Series
	Predictions timeseries.Series
}

// ProductPredictResult carries per-product forward windows.
type ProductPredictResult struct {
	NoData      bool
	Products    []ProductForecast
	HorizonDays int
}

// Service orchestrates the extract, normalize, train-or-load, and predict
// pipeline behind the forecast endpoints.
type Service interface {
	GeneralTrain(ctx context.Context, tenantID string, historyDays int) (TrainResult, error)
	GeneralPredict(ctx context.Context, tenantID string, historyDays, horizonDays int) (PredictResult, error)
	ProductTrain(ctx context.Context, tenantID string, historyDays int) (ProductTrainResult, error)
	ProductPredict(ctx context.Context, tenantID, productID string, historyDays, horizonDays int) (ProductPredictResult, error)
	RecentSales(ctx context.Context, tenantID string, days int) ([]sales.DailySummary, error)
	Summary(ctx context.Context, tenantID string, historyDays, horizonDays int) (insights.Summary, error)
	TrendAlert(ctx context.Context, tenantID string, historyDays, horizonDays int) (insights.TrendAlert, error)
}

type service struct {
	extractor *sales.Extractor
	models    *modelcache.Cache
	cache     *redis.Client
	cfg       config.ForecastConfig
	logg      *logger.Logger
	metrics   *metrics.ForecastMetrics
	now       func() time.Time
}

// Option overrides a default collaborator.
type Option func(*service)

// WithClock fixes the reference time used to close the historical window.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithResponseCache enables the optional prediction response cache.
func WithResponseCache(cache *redis.Client) Option {
	return func(s *service) { s.cache = cache }
}

// NewService wires the forecasting pipeline together.
func NewService(extractor *sales.Extractor, models *modelcache.Cache, cfg config.ForecastConfig, logg *logger.Logger, m *metrics.ForecastMetrics, opts ...Option) (Service, error) {
	if extractor == nil {
		return nil, fmt.Errorf("sales extractor required")
	}
	if models == nil {
		return nil, fmt.Errorf("model cache required")
	}
	s := &service{
		extractor: extractor,
		models:    models,
		cfg:       cfg,
		logg:      logg,
		metrics:   m,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) GeneralTrain(ctx context.Context, tenantID string, historyDays int) (TrainResult, error) {
	historyDays = s.historyDays(historyDays)
	ctx = s.withTenant(ctx, tenantID)

	series, err := s.extractor.ExtractGeneral(ctx, tenantID)
	if err != nil {
		return TrainResult{}, err
	}
	normalized := timeseries.Normalize(series, s.today(), historyDays)
	if normalized.IsEmpty() {
		return TrainResult{NoData: true}, nil
	}

	if _, err := s.models.Retrain(ctx, modelcache.GeneralKey(tenantID), normalized); err != nil {
		return TrainResult{}, err
	}
	return TrainResult{Observations: len(normalized)}, nil
}

func (s *service) GeneralPredict(ctx context.Context, tenantID string, historyDays, horizonDays int) (PredictResult, error) {
	historyDays = s.historyDays(historyDays)
	horizonDays = s.horizonDays(horizonDays)
	ctx = s.withTenant(ctx, tenantID)

	if cached, ok := s.cachedPredict(ctx, tenantID, historyDays, horizonDays); ok {
		return cached, nil
	}

	started := s.now()
	series, err := s.extractor.ExtractGeneral(ctx, tenantID)
	if err != nil {
		return PredictResult{}, err
	}
	result := PredictResult{HistoryDays: historyDays, HorizonDays: horizonDays}

	normalized := timeseries.Normalize(series, s.today(), historyDays)
	if normalized.IsEmpty() {
		return result, nil
	}

	model, err := s.models.GetOrTrain(ctx, modelcache.GeneralKey(tenantID), normalized)
	if err != nil {
		return PredictResult{}, err
	}
	predicted, err := forecast.Forecast(normalized, model, horizonDays, forecast.Options{})
	if err != nil {
		return PredictResult{}, err
	}
	result.History = normalized
	result.Predictions = predicted

	s.metrics.ObservePrediction("general", time.Since(started))
	s.storePredict(ctx, tenantID, historyDays, horizonDays, result)
	return result, nil
}

func (s *service) ProductTrain(ctx context.Context, tenantID string, historyDays int) (ProductTrainResult, error) {
	historyDays = s.historyDays(historyDays)
	ctx = s.withTenant(ctx, tenantID)

	byProduct, err := s.extractor.ExtractByProduct(ctx, tenantID)
	if err != nil {
		return ProductTrainResult{}, err
	}
	if len(byProduct) == 0 {
		return ProductTrainResult{NoData: true}, nil
	}

	titles, err := s.productTitles(ctx, byProduct)
	if err != nil {
		return ProductTrainResult{}, err
	}

	today := s.today()
	result := ProductTrainResult{}
	var failures error
	for _, productID := range sortedProductIDs(byProduct) {
		normalized := timeseries.Normalize(byProduct[productID], today, historyDays)
		if normalized.IsEmpty() {
			result.Skipped++
			s.logSkip(ctx, productID, "no usable observations in the training window")
			continue
		}
		key := modelcache.ProductKey(tenantID, productID.String())
		if _, err := s.models.Retrain(ctx, key, normalized); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientData) {
				result.Skipped++
				s.logSkip(ctx, productID, "insufficient data to fit a model")
				continue
			}
			failures = multierr.Append(failures, fmt.Errorf("product %s: %w", productID, err))
			continue
		}
		result.Trained = append(result.Trained, ProductTraining{
			ProductID:    productID,
			Title:        titles[productID],
			Observations: len(normalized),
		})
	}
	if failures != nil {
		return ProductTrainResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, failures, "training product models")
	}
	if len(result.Trained) == 0 {
		result.NoData = true
	}
	return result, nil
}

func (s *service) ProductPredict(ctx context.Context, tenantID, productID string, historyDays, horizonDays int) (ProductPredictResult, error) {
	historyDays = s.historyDays(historyDays)
	if horizonDays <= 0 {
		horizonDays = s.cfg.ProductHorizonDays
	}
	ctx = s.withTenant(ctx, tenantID)

	started := s.now()
	byProduct, err := s.extractor.ExtractByProduct(ctx, tenantID)
	if err != nil {
		return ProductPredictResult{}, err
	}
	result := ProductPredictResult{HorizonDays: horizonDays}

	single := productID != ""
	if single {
		byProduct = narrowToProduct(byProduct, productID)
		if len(byProduct) == 0 && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "product_id", productID), "requested product has no usable sales history")
		}
	}
	if len(byProduct) == 0 {
		result.NoData = true
		return result, nil
	}

	titles, err := s.productTitles(ctx, byProduct)
	if err != nil {
		return ProductPredictResult{}, err
	}

	today := s.today()
	for _, id := range sortedProductIDs(byProduct) {
		normalized := timeseries.Normalize(byProduct[id], today, historyDays)
		if normalized.IsEmpty() {
			continue
		}
		key := modelcache.ProductKey(tenantID, id.String())
		model, err := s.models.GetOrTrain(ctx, key, normalized)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientData) {
				s.logSkip(ctx, id, "insufficient data to fit a model")
				continue
			}
			return ProductPredictResult{}, err
		}
		predicted, err := forecast.Forecast(normalized, model, horizonDays, forecast.Options{Round2: true})
		if err != nil {
			return ProductPredictResult{}, err
		}
		pf := ProductForecast{
			ProductID:   id,
			Title:       titles[id],
			Predictions: predicted,
		}
		if single {
			pf.History = normalized
		}
		result.Products = append(result.Products, pf)
	}
	if len(result.Products) == 0 {
		result.NoData = true
		return result, nil
	}

	s.metrics.ObservePrediction("products", time.Since(started))
	return result, nil
}

func (s *service) RecentSales(ctx context.Context, tenantID string, days int) ([]sales.DailySummary, error) {
	if days <= 0 {
		days = s.cfg.RecentSalesDays
	}
	return s.extractor.RecentSales(s.withTenant(ctx, tenantID), tenantID, days)
}

func (s *service) Summary(ctx context.Context, tenantID string, historyDays, horizonDays int) (insights.Summary, error) {
	result, err := s.GeneralPredict(ctx, tenantID, historyDays, horizonDays)
	if err != nil {
		return insights.Summary{}, err
	}
	return insights.Summarize(result.Predictions, result.HistoryDays, result.HorizonDays), nil
}

func (s *service) TrendAlert(ctx context.Context, tenantID string, historyDays, horizonDays int) (insights.TrendAlert, error) {
	result, err := s.GeneralPredict(ctx, tenantID, historyDays, horizonDays)
	if err != nil {
		return insights.TrendAlert{}, err
	}
	return insights.DetectTrendAlert(result.Predictions, s.cfg.TrendSlopeThreshold), nil
}

func (s *service) historyDays(days int) int {
	if days > 0 {
		return days
	}
	return s.cfg.DefaultHistoryDays
}

func (s *service) horizonDays(days int) int {
	if days > 0 {
		return days
	}
	return s.cfg.DefaultHorizonDays
}

func (s *service) today() time.Time {
	return timeseries.Day(s.now())
}

func (s *service) withTenant(ctx context.Context, tenantID string) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithTenantID(ctx, tenantID)
}

func (s *service) logSkip(ctx context.Context, productID uuid.UUID, reason string) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithProductID(ctx, productID.String())
	s.logg.Info(s.logg.WithField(ctx, "reason", reason), "product skipped during batch run")
}

func (s *service) productTitles(ctx context.Context, byProduct map[uuid.UUID]timeseries.Series) (map[uuid.UUID]string, error) {
	ids := make([]uuid.UUID, 0, len(byProduct))
	for id := range byProduct {
		ids = append(ids, id)
	}
	return s.extractor.ProductTitles(ctx, ids)
}

// narrowToProduct keeps only the requested product's series. A malformed or
// unknown id narrows to nothing, matching the tenant id contract.
func narrowToProduct(byProduct map[uuid.UUID]timeseries.Series, productID string) map[uuid.UUID]timeseries.Series {
	id, err := uuid.Parse(productID)
	if err != nil {
		return nil
	}
	series, ok := byProduct[id]
	if !ok {
		return nil
	}
	return map[uuid.UUID]timeseries.Series{id: series}
}

func sortedProductIDs(byProduct map[uuid.UUID]timeseries.Series) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(byProduct))
	for id := range byProduct {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// cachedPredict serves a store-wide prediction from the response cache. Any
// cache failure degrades to recomputing.
func (s *service) cachedPredict(ctx context.Context, tenantID string, historyDays, horizonDays int) (PredictResult, bool) {
	if s.cache == nil {
		return PredictResult{}, false
	}
	key := s.predictKey(tenantID, historyDays, horizonDays)
	payload, err := s.cache.Get(ctx, key)
	if err != nil {
		if !redis.IsMiss(err) && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "prediction cache read failed")
		}
		return PredictResult{}, false
	}
	var result PredictResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "prediction cache entry is corrupt")
		}
		return PredictResult{}, false
	}
	s.metrics.IncCacheHit("general")
	return result, true
}

func (s *service) storePredict(ctx context.Context, tenantID string, historyDays, horizonDays int, result PredictResult) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	key := s.predictKey(tenantID, historyDays, horizonDays)
	if err := s.cache.Set(ctx, key, payload, s.cfg.PredictionCacheTTL); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "prediction cache write failed")
	}
}

func (s *service) predictKey(tenantID string, historyDays, horizonDays int) string {
	return s.cache.PredictionKey("general", tenantID, fmt.Sprintf("%d", historyDays), fmt.Sprintf("%d", horizonDays))
}
