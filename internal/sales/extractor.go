package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vendimia/forecast-backend/internal/timeseries"
	"github.com/vendimia/forecast-backend/pkg/logger"
)

// Extractor turns raw per-transaction records into daily series.
//
// Identifier parsing is a soft-fail boundary: a malformed tenant id yields an
// empty result, never an error. Data sparsity degrades the same way; only a
// store failure propagates.
type Extractor struct {
	repo Reader
	logg *logger.Logger
}

// NewExtractor builds an extractor over the given store reader.
func NewExtractor(repo Reader, logg *logger.Logger) (*Extractor, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales reader required")
	}
	return &Extractor{repo: repo, logg: logg}, nil
}

// ExtractGeneral aggregates the tenant's sales into a store-wide daily
// series, summing totals per calendar day.
func (e *Extractor) ExtractGeneral(ctx context.Context, tenantID string) (timeseries.Series, error) {
	tenant, ok := e.parseTenantID(ctx, tenantID)
	if !ok {
		return nil, nil
	}

	records, err := e.repo.FindSales(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	totals := make(map[time.Time]decimal.Decimal)
	for _, sale := range records {
		if sale.CreatedAt.IsZero() {
			continue
		}
		day := timeseries.Day(sale.CreatedAt)
		totals[day] = totals[day].Add(sale.Total)
	}
	return toSeries(totals), nil
}

// ExtractByProduct aggregates the tenant's sale lines into one daily series
// per parent product. Lines whose variant or product cannot be resolved, or
// that carry no usable price or timestamp, are dropped.
func (e *Extractor) ExtractByProduct(ctx context.Context, tenantID string) (map[uuid.UUID]timeseries.Series, error) {
	tenant, ok := e.parseTenantID(ctx, tenantID)
	if !ok {
		return nil, nil
	}

	lines, err := e.repo.FindSaleLines(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	variantIDs := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if _, dup := seen[line.ProductVariantID]; dup {
			continue
		}
		seen[line.ProductVariantID] = struct{}{}
		variantIDs = append(variantIDs, line.ProductVariantID)
	}

	variants, err := e.repo.FindProductVariants(ctx, variantIDs)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, nil
	}
	variantToProduct := make(map[uuid.UUID]uuid.UUID, len(variants))
	for _, v := range variants {
		variantToProduct[v.ID] = v.ProductID
	}

	totals := make(map[uuid.UUID]map[time.Time]decimal.Decimal)
	for _, line := range lines {
		productID, resolved := variantToProduct[line.ProductVariantID]
		if !resolved || line.CreatedAt.IsZero() {
			continue
		}
		amount, priced := line.LineAmount()
		if !priced {
			continue
		}
		day := timeseries.Day(line.CreatedAt)
		if totals[productID] == nil {
			totals[productID] = make(map[time.Time]decimal.Decimal)
		}
		totals[productID][day] = totals[productID][day].Add(amount)
	}
	if len(totals) == 0 {
		return nil, nil
	}

	result := make(map[uuid.UUID]timeseries.Series, len(totals))
	for productID, perDay := range totals {
		result[productID] = toSeries(perDay)
	}
	return result, nil
}

// ProductTitles resolves product ids to their titles. Unknown ids simply
// stay absent from the result.
func (e *Extractor) ProductTitles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	products, err := e.repo.FindProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	titles := make(map[uuid.UUID]string, len(products))
	for _, p := range products {
		titles[p.ID] = p.Title
	}
	return titles, nil
}

func (e *Extractor) parseTenantID(ctx context.Context, tenantID string) (uuid.UUID, bool) {
	tenant, err := uuid.Parse(tenantID)
	if err != nil {
		if e.logg != nil {
			ctx = e.logg.WithTenantID(ctx, tenantID)
			e.logg.Warn(ctx, "malformed tenant id, returning empty result")
		}
		return uuid.Nil, false
	}
	return tenant, true
}

func toSeries(totals map[time.Time]decimal.Decimal) timeseries.Series {
	values := make(map[time.Time]float64, len(totals))
	for day, total := range totals {
		values[day] = total.InexactFloat64()
	}
	return timeseries.FromTotals(values)
}
