package purchases

import (
	"context"
	"testing"

	"github.com/openmarket/marketplace-backend/pkg/db/models"
	"github.com/openmarket/marketplace-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPurchasesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:purchases_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, schema := range []string{
		`CREATE TABLE IF NOT EXISTS purchase_records (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  total_cents INTEGER NOT NULL,
  shipping_address TEXT NOT NULL,
  contact_info TEXT NOT NULL,
  payment_ref TEXT NOT NULL,
  tracking_ref TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS purchase_items (
  id TEXT PRIMARY KEY,
  purchase_id TEXT NOT NULL,
  listing_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL
);`,
	} {
		require.NoError(t, db.Exec(schema).Error)
	}
	return db
}

func seedPurchase(t *testing.T, repo Repository, buyerID, storeID uuid.UUID, total int64) *models.PurchaseRecord {
	t.Helper()
	record := &models.PurchaseRecord{
		ID:              uuid.New(),
		BuyerID:         buyerID,
		Kind:            enums.PurchaseKindRegular,
		TotalCents:      total,
		ShippingAddress: "12 Canal St, Delft, NL 2611",
		ContactInfo:     "R. de Vries",
		PaymentRef:      uuid.NewString(),
		TrackingRef:     uuid.NewString(),
		Items: []models.PurchaseItem{
			{
				ID:             uuid.New(),
				ListingID:      uuid.New(),
				StoreID:        storeID,
				Name:           "Walnut Desk",
				Qty:            1,
				UnitPriceCents: total,
			},
		},
	}
	created, err := repo.Create(context.Background(), record)
	require.NoError(t, err)
	return created
}

func TestRepositoryListByBuyer(t *testing.T) {
	t.Parallel()

	repo := NewRepository(setupPurchasesTestDB(t))
	ctx := context.Background()
	buyerID := uuid.New()
	storeID := uuid.New()

	seedPurchase(t, repo, buyerID, storeID, 45_000)
	seedPurchase(t, repo, buyerID, uuid.New(), 9_000)
	seedPurchase(t, repo, uuid.New(), storeID, 1_200)

	records, err := repo.ListByBuyer(ctx, buyerID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.Equal(t, buyerID, record.BuyerID)
		assert.Len(t, record.Items, 1)
	}

	records, err = repo.ListByBuyer(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRepositoryListByStore(t *testing.T) {
	t.Parallel()

	repo := NewRepository(setupPurchasesTestDB(t))
	ctx := context.Background()
	storeID := uuid.New()

	mine := seedPurchase(t, repo, uuid.New(), storeID, 45_000)
	seedPurchase(t, repo, uuid.New(), uuid.New(), 9_000)

	records, err := repo.ListByStore(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, mine.ID, records[0].ID)
	require.Len(t, records[0].Items, 1)
	assert.Equal(t, storeID, records[0].Items[0].StoreID)

	records, err = repo.ListByStore(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, records)
}
