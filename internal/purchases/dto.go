package purchases

import (
	"time"

	"github.com/openmarket/marketplace-backend/pkg/db/models"
	"github.com/google/uuid"
)

// ReceiptDTO is the client view of a completed purchase.
type ReceiptDTO struct {
	PurchaseID  uuid.UUID        `json:"purchase_id"`
	Kind        string           `json:"kind"`
	TotalCents  int64            `json:"total_cents"`
	PaymentRef  string           `json:"payment_ref"`
	TrackingRef string           `json:"tracking_ref"`
	Items       []ReceiptItemDTO `json:"items"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ReceiptItemDTO is one purchased line.
type ReceiptItemDTO struct {
	ListingID      uuid.UUID `json:"listing_id"`
	StoreID        uuid.UUID `json:"store_id"`
	Name           string    `json:"name"`
	Qty            int       `json:"qty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
}

// NewReceiptDTO builds a receipt from the persisted record.
func NewReceiptDTO(record *models.PurchaseRecord) *ReceiptDTO {
	dto := &ReceiptDTO{
		PurchaseID:  record.ID,
		Kind:        record.Kind.String(),
		TotalCents:  record.TotalCents,
		PaymentRef:  record.PaymentRef,
		TrackingRef: record.TrackingRef,
		CreatedAt:   record.CreatedAt,
	}
	for _, item := range record.Items {
		dto.Items = append(dto.Items, ReceiptItemDTO{
			ListingID:      item.ListingID,
			StoreID:        item.StoreID,
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return dto
}

func toReceipts(records []models.PurchaseRecord) []ReceiptDTO {
	out := make([]ReceiptDTO, len(records))
	for i := range records {
		out[i] = *NewReceiptDTO(&records[i])
	}
	return out
}
