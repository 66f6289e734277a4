package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleLine is one line item within a sale. UnitPrice is the current schema;
// Price survives from an older importer and is still populated on legacy
// rows, so both stay nullable and readers prefer UnitPrice.
type SaleLine struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID         uuid.UUID        `gorm:"column:tenant_id;type:uuid;not null;index"`
	ProductVariantID uuid.UUID        `gorm:"column:product_variant_id;type:uuid;not null"`
	Quantity         decimal.Decimal  `gorm:"column:quantity;type:numeric(12,3);not null"`
	UnitPrice        *decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2)"`
	Price            *decimal.Decimal `gorm:"column:price;type:numeric(14,2)"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (SaleLine) TableName() string {
	return "sale_lines"
}

// LineAmount resolves quantity times price, preferring the current column
// over the legacy one. ok is false when the row carries neither price.
func (l SaleLine) LineAmount() (decimal.Decimal, bool) {
	switch {
	case l.UnitPrice != nil:
		return l.Quantity.Mul(*l.UnitPrice), true
	case l.Price != nil:
		return l.Quantity.Mul(*l.Price), true
	default:
		return decimal.Zero, false
	}
}
