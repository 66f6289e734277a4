package modelcache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vendimia/forecast-backend/internal/forecast"
	"github.com/vendimia/forecast-backend/internal/timeseries"
	pkgerrors "github.com/vendimia/forecast-backend/pkg/errors"
	"github.com/vendimia/forecast-backend/pkg/logger"
	"github.com/vendimia/forecast-backend/pkg/metrics"
	"github.com/vendimia/forecast-backend/pkg/modelstore"
	"golang.org/x/sync/singleflight"
)

// GeneralKey addresses the store-wide model of a tenant.
func GeneralKey(tenantID string) string {
	return "general/" + tenantID
}

// ProductKey addresses the per-product model of a (tenant, product) pair.
func ProductKey(tenantID, productID string) string {
	return "products/" + tenantID + "/" + productID
}

// Cache is the train-or-load layer over the model store. Per key the state
// machine is ABSENT -> (train) -> PERSISTED; once persisted, later calls load
// the artifact instead of retraining until Retrain replaces it wholesale.
// At most one training runs per key at a time: concurrent GetOrTrain calls
// for the same key share the in-flight result, and persists are serialized
// under a per-key lock.
type Cache struct {
	store   *modelstore.Store
	train   forecast.Trainer
	decode  forecast.Decoder
	logg    *logger.Logger
	metrics *metrics.ForecastMetrics

	flight singleflight.Group

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option overrides a default collaborator.
type Option func(*Cache)

// WithTrainer swaps the model trainer.
func WithTrainer(train forecast.Trainer) Option {
	return func(c *Cache) { c.train = train }
}

// WithDecoder swaps the artifact decoder.
func WithDecoder(decode forecast.Decoder) Option {
	return func(c *Cache) { c.decode = decode }
}

// New builds a cache over the given artifact store, defaulting to the
// seasonal trend model.
func New(store *modelstore.Store, logg *logger.Logger, m *metrics.ForecastMetrics, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("model store required")
	}
	c := &Cache{
		store:   store,
		train:   forecast.TrainSeasonalTrend,
		decode:  forecast.DecodeTrendModel,
		logg:    logg,
		metrics: m,
		locks:   map[string]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetOrTrain loads the persisted model for key, training and persisting one
// from the series when no artifact exists yet. An empty series with no
// persisted artifact fails with INSUFFICIENT_DATA.
func (c *Cache) GetOrTrain(ctx context.Context, key string, series timeseries.Series) (forecast.Model, error) {
	v, err, _ := c.flight.Do(key, func() (any, error) {
		blob, loadErr := c.store.Load(key)
		switch {
		case loadErr == nil:
			return c.decode(blob)
		case pkgerrors.IsCode(loadErr, pkgerrors.CodeModelNotFound):
			// fall back to training
		default:
			return nil, loadErr
		}
		return c.trainAndPersist(ctx, key, series)
	})
	if err != nil {
		return nil, err
	}
	return v.(forecast.Model), nil
}

// Retrain forces a fresh training run for key and replaces the persisted
// artifact, regardless of what is stored.
func (c *Cache) Retrain(ctx context.Context, key string, series timeseries.Series) (forecast.Model, error) {
	return c.trainAndPersist(ctx, key, series)
}

// Exists reports whether a trained artifact is persisted for key.
func (c *Cache) Exists(key string) bool {
	return c.store.Exists(key)
}

func (c *Cache) trainAndPersist(ctx context.Context, key string, series timeseries.Series) (forecast.Model, error) {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	scope := scopeOf(key)
	started := time.Now()

	model, err := c.train(series)
	if err != nil {
		c.metrics.IncTrainFailure(scope)
		return nil, err
	}

	blob, err := model.MarshalBinary()
	if err != nil {
		c.metrics.IncTrainFailure(scope)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serializing model")
	}
	if err := c.store.Save(key, blob); err != nil {
		c.metrics.IncTrainFailure(scope)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting model")
	}

	c.metrics.ObserveTraining(scope, time.Since(started))
	c.metrics.IncTrainSuccess(scope)
	if c.logg != nil {
		fields := map[string]any{"model_key": key, "observations": len(series)}
		c.logg.Info(c.logg.WithFields(ctx, fields), "model trained and persisted")
	}
	return model, nil
}

func (c *Cache) keyLock(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}

func scopeOf(key string) string {
	if i := strings.IndexByte(key, '/'); i > 0 {
		return key[:i]
	}
	return key
}
