package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a catalog listing. Price is never mutated in place once
// the product is referenced by an order item; order totals recompute from it.
type Product struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string          `gorm:"column:name;not null"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	ImageURL   *string         `gorm:"column:image_url"`
	NewArrival bool            `gorm:"column:new_arrival;not null;default:false"`
	TopRated   bool            `gorm:"column:top_rated;not null;default:false"`
	Trending   bool            `gorm:"column:trending;not null;default:false"`
	Categories []Category      `gorm:"many2many:product_categories"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
