package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/openmarket/marketplace-backend/pkg/enums"
)

// PurchaseRecord is the durable result of a settled sale. A row exists only
// after both payment and shipment succeeded; partial settlements are never
// persisted.
type PurchaseRecord struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID         uuid.UUID          `gorm:"column:buyer_id;type:uuid;not null;index"`
	Kind            enums.PurchaseKind `gorm:"column:kind;not null"`
	TotalCents      int64              `gorm:"column:total_cents;not null"`
	ShippingAddress string             `gorm:"column:shipping_address"`
	ContactInfo     string             `gorm:"column:contact_info"`
	PaymentRef      string             `gorm:"column:payment_ref;not null"`
	TrackingRef     string             `gorm:"column:tracking_ref;not null"`
	Items           []PurchaseItem     `gorm:"foreignKey:PurchaseID"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// PurchaseItem is one line of a purchase record.
type PurchaseItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseID     uuid.UUID `gorm:"column:purchase_id;type:uuid;not null;index"`
	ListingID      uuid.UUID `gorm:"column:listing_id;type:uuid;not null"`
	StoreID        uuid.UUID `gorm:"column:store_id;type:uuid;not null;index"`
	Name           string    `gorm:"column:name"`
	Qty            int       `gorm:"column:qty;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
}
