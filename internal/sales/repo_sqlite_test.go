package sales

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vendimia/forecast-backend/pkg/db/models"
)

func setupSalesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS sales (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  total NUMERIC NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  title TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS sale_lines (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  product_variant_id TEXT NOT NULL,
  quantity NUMERIC NOT NULL,
  unit_price NUMERIC,
  price NUMERIC,
  created_at DATETIME
);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func TestFindSalesFiltersByTenant(t *testing.T) {
	conn := setupSalesTestDB(t)
	repo := NewRepository(conn)

	tenant := uuid.New()
	other := uuid.New()
	base := time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, conn.Create(&models.Sale{ID: uuid.New(), TenantID: tenant, Total: dec("30.00"), CreatedAt: base.AddDate(0, 0, 1)}).Error)
	require.NoError(t, conn.Create(&models.Sale{ID: uuid.New(), TenantID: tenant, Total: dec("10.00"), CreatedAt: base}).Error)
	require.NoError(t, conn.Create(&models.Sale{ID: uuid.New(), TenantID: other, Total: dec("99.00"), CreatedAt: base}).Error)

	found, err := repo.FindSales(context.Background(), tenant)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.True(t, found[0].CreatedAt.Before(found[1].CreatedAt), "sales must come back in created_at order")
	for _, sale := range found {
		assert.Equal(t, tenant, sale.TenantID)
	}
}

func TestFindSaleLinesFiltersByTenant(t *testing.T) {
	conn := setupSalesTestDB(t)
	repo := NewRepository(conn)

	tenant := uuid.New()
	variant := uuid.New()
	price := dec("5.25")

	require.NoError(t, conn.Create(&models.SaleLine{
		ID:               uuid.New(),
		TenantID:         tenant,
		ProductVariantID: variant,
		Quantity:         dec("2"),
		UnitPrice:        &price,
		CreatedAt:        time.Now().UTC(),
	}).Error)

	lines, err := repo.FindSaleLines(context.Background(), tenant)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, variant, lines[0].ProductVariantID)

	amount, ok := lines[0].LineAmount()
	require.True(t, ok)
	assert.True(t, amount.Equal(dec("10.50")), "expected 10.50, got %s", amount)
}

func TestFindProductVariantsAndProducts(t *testing.T) {
	conn := setupSalesTestDB(t)
	repo := NewRepository(conn)

	tenant := uuid.New()
	product := uuid.New()
	variant := uuid.New()

	require.NoError(t, conn.Create(&models.Product{ID: product, TenantID: tenant, Title: "Queso fresco", CreatedAt: time.Now().UTC()}).Error)
	require.NoError(t, conn.Create(&models.ProductVariant{ID: variant, ProductID: product, CreatedAt: time.Now().UTC()}).Error)

	variants, err := repo.FindProductVariants(context.Background(), []uuid.UUID{variant})
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, product, variants[0].ProductID)

	products, err := repo.FindProducts(context.Background(), []uuid.UUID{product})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Queso fresco", products[0].Title)
}

func TestFindWithNoIDs(t *testing.T) {
	conn := setupSalesTestDB(t)
	repo := NewRepository(conn)

	variants, err := repo.FindProductVariants(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, variants)

	products, err := repo.FindProducts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, products)
}
