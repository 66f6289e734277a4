package sales

import (
	"context"

	"github.com/google/uuid"
	"github.com/vendimia/forecast-backend/pkg/db/models"
	pkgerrors "github.com/vendimia/forecast-backend/pkg/errors"
	"gorm.io/gorm"
)

// Reader defines the read-only queries the extractor needs from the
// transactional store.
type Reader interface {
	FindSales(ctx context.Context, tenantID uuid.UUID) ([]models.Sale, error)
	FindSaleLines(ctx context.Context, tenantID uuid.UUID) ([]models.SaleLine, error)
	FindProductVariants(ctx context.Context, ids []uuid.UUID) ([]models.ProductVariant, error)
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// Repository implements Reader against the GORM connection.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindSales returns every sale recorded for the tenant.
func (r *Repository) FindSales(ctx context.Context, tenantID uuid.UUID) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&sales).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "querying sales")
	}
	return sales, nil
}

// FindSaleLines returns every sale line recorded for the tenant.
func (r *Repository) FindSaleLines(ctx context.Context, tenantID uuid.UUID) ([]models.SaleLine, error) {
	var lines []models.SaleLine
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&lines).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "querying sale lines")
	}
	return lines, nil
}

// FindProductVariants resolves the given variant ids.
func (r *Repository) FindProductVariants(ctx context.Context, ids []uuid.UUID) ([]models.ProductVariant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var variants []models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&variants).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "querying product variants")
	}
	return variants, nil
}

// FindProducts resolves the given product ids.
func (r *Repository) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "querying products")
	}
	return products, nil
}
