package sales

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vendimia/forecast-backend/pkg/db/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("VENDIMIA_DB_DSN")
	if dsn == "" {
		t.Skip("VENDIMIA_DB_DSN is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}

func TestRepositoryRoundTrip(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	defer tx.Rollback()

	tenant := uuid.New()
	repo := NewRepository(tx)

	sale := &models.Sale{
		ID:        uuid.New(),
		TenantID:  tenant,
		Total:     dec("42.50"),
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.Create(sale).Error; err != nil {
		t.Fatalf("create sale: %v", err)
	}

	sales, err := repo.FindSales(context.Background(), tenant)
	if err != nil {
		t.Fatalf("find sales: %v", err)
	}
	if len(sales) != 1 || !sales[0].Total.Equal(sale.Total) {
		t.Fatalf("unexpected sales: %+v", sales)
	}

	other, err := repo.FindSales(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("find sales for other tenant: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected tenant isolation, got %d rows", len(other))
	}
}
