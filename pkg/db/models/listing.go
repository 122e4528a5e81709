package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Listing is a product offered by a store. Quantity is the sellable stock;
// decrements happen through conditional updates so concurrent checkouts never
// drive it negative.
type Listing struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID        uuid.UUID      `gorm:"column:store_id;type:uuid;not null;index"`
	Name           string         `gorm:"column:name;not null"`
	Category       string         `gorm:"column:category"`
	Description    *string        `gorm:"column:description"`
	Tags           pq.StringArray `gorm:"column:tags;type:text[]"`
	UnitPriceCents int64          `gorm:"column:unit_price_cents;not null"`
	Quantity       int            `gorm:"column:quantity;not null;default:0"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
