package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant maps a sellable variant to its parent product.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ProductVariant) TableName() string {
	return "product_variants"
}
