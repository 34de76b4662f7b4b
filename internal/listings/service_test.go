package listing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/vinocave/vinocave-backend/pkg/db"
	"github.com/vinocave/vinocave-backend/pkg/db/models"
	"github.com/vinocave/vinocave-backend/pkg/enums"
	pkgerrors "github.com/vinocave/vinocave-backend/pkg/errors"
	"github.com/vinocave/vinocave-backend/pkg/outbox"
	"github.com/vinocave/vinocave-backend/pkg/pagination"
)

func newListingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:listing_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, schema := range []string{
		`CREATE TABLE IF NOT EXISTS wines (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL,
  producer TEXT,
  vintage INTEGER,
  region TEXT,
  grapes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS listings (
  id TEXT PRIMARY KEY,
  wine_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'EUR',
  total_quantity INTEGER NOT NULL,
  quantity_committed INTEGER NOT NULL DEFAULT 0,
  condition TEXT,
  status TEXT NOT NULL DEFAULT 'active',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS purchase_requests (
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL,
  wine_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  total_price_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'EUR',
  status TEXT NOT NULL DEFAULT 'pending_confirmation',
  idempotency_key TEXT,
  reject_reason TEXT,
  requested_at DATETIME,
  resolved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	} {
		require.NoError(t, db.Exec(schema).Error)
	}
	return db
}

type fakeCellar struct {
	ownerID uuid.UUID
}

func (f *fakeCellar) EnsureOwnership(_ context.Context, userID, wineID uuid.UUID) (*models.Wine, error) {
	if userID != f.ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "wine does not belong to user")
	}
	return &models.Wine{ID: wineID, OwnerID: userID}, nil
}

func newListingService(t *testing.T, db *gorm.DB, owner uuid.UUID) Service {
	t.Helper()
	client := dbpkg.NewClientFromConn(db)
	events := outbox.NewService(outbox.NewRepository(db), nil)
	svc, err := NewService(NewRepository(db), client, &fakeCellar{ownerID: owner}, events)
	require.NoError(t, err)
	return svc
}

func seedListing(t *testing.T, db *gorm.DB, sellerID uuid.UUID, total, committed int) models.Listing {
	t.Helper()
	row := models.Listing{
		ID:                uuid.New(),
		WineID:            uuid.New(),
		SellerID:          sellerID,
		UnitPriceCents:    3500,
		Currency:          enums.CurrencyEUR,
		TotalQuantity:     total,
		QuantityCommitted: committed,
		Status:            enums.ListingStatusActive,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func TestCreateListingValidation(t *testing.T) {
	db := newListingTestDB(t)
	seller := uuid.New()
	svc := newListingService(t, db, seller)
	ctx := context.Background()

	_, err := svc.CreateListing(ctx, seller, CreateListingInput{WineID: uuid.New(), UnitPriceCents: 0, Quantity: 1})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.CreateListing(ctx, seller, CreateListingInput{WineID: uuid.New(), UnitPriceCents: 100, Quantity: 0})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCreateListingChecksOwnership(t *testing.T) {
	db := newListingTestDB(t)
	owner := uuid.New()
	svc := newListingService(t, db, owner)

	_, err := svc.CreateListing(context.Background(), uuid.New(), CreateListingInput{
		WineID: uuid.New(), UnitPriceCents: 100, Quantity: 1,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestCreateListingEmitsOutboxEvent(t *testing.T) {
	db := newListingTestDB(t)
	seller := uuid.New()
	svc := newListingService(t, db, seller)

	dto, err := svc.CreateListing(context.Background(), seller, CreateListingInput{
		WineID: uuid.New(), UnitPriceCents: 4200, Quantity: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ListingStatusActive, dto.Status)
	assert.Equal(t, 6, dto.AvailableQuantity)
	assert.Equal(t, enums.CurrencyEUR, dto.Currency)

	var events []models.OutboxEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventListingCreated, events[0].EventType)
	assert.Equal(t, dto.ID, events[0].AggregateID)
}

func TestUpdateListingForbiddenForOtherSeller(t *testing.T) {
	db := newListingTestDB(t)
	seller := uuid.New()
	svc := newListingService(t, db, seller)
	row := seedListing(t, db, seller, 10, 0)

	price := int64(9999)
	_, err := svc.UpdateListing(context.Background(), uuid.New(), row.ID, UpdateListingInput{UnitPriceCents: &price})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestUpdateListingShrinkBelowCommittedConflicts(t *testing.T) {
	db := newListingTestDB(t)
	seller := uuid.New()
	svc := newListingService(t, db, seller)
	row := seedListing(t, db, seller, 10, 4)

	smaller := 3
	_, err := svc.UpdateListing(context.Background(), seller, row.ID, UpdateListingInput{Quantity: &smaller})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	var reloaded models.Listing
	require.NoError(t, db.First(&reloaded, "id = ?", row.ID).Error)
	assert.Equal(t, 10, reloaded.TotalQuantity)
}

func TestUpdateListingShrinkWithinCommitted(t *testing.T) {
	db := newListingTestDB(t)
	seller := uuid.New()
	svc := newListingService(t, db, seller)
	row := seedListing(t, db, seller, 10, 4)

	smaller := 4
	dto, err := svc.UpdateListing(context.Background(), seller, row.ID, UpdateListingInput{Quantity: &smaller})
	require.NoError(t, err)
	assert.Equal(t, 4, dto.TotalQuantity)
	assert.Equal(t, 0, dto.AvailableQuantity)
}

func TestUpdateListingPriceDoesNotTouchSnapshots(t *testing.T) {
	db := newListingTestDB(t)
	seller := uuid.New()
	svc := newListingService(t, db, seller)
	row := seedListing(t, db, seller, 10, 2)

	request := models.PurchaseRequest{
		ID:              uuid.New(),
		ListingID:       row.ID,
		WineID:          row.WineID,
		BuyerID:         uuid.New(),
		SellerID:        seller,
		Quantity:        2,
		UnitPriceCents:  3500,
		TotalPriceCents: 7000,
		Status:          enums.PurchaseRequestStatusPending,
	}
	require.NoError(t, db.Create(&request).Error)

	price := int64(5000)
	_, err := svc.UpdateListing(context.Background(), seller, row.ID, UpdateListingInput{UnitPriceCents: &price})
	require.NoError(t, err)

	var reloaded models.PurchaseRequest
	require.NoError(t, db.First(&reloaded, "id = ?", request.ID).Error)
	assert.Equal(t, int64(3500), reloaded.UnitPriceCents)
	assert.Equal(t, int64(7000), reloaded.TotalPriceCents)
}

func TestDeleteListingWithPendingRequestsConflicts(t *testing.T) {
	db := newListingTestDB(t)
	seller := uuid.New()
	svc := newListingService(t, db, seller)
	row := seedListing(t, db, seller, 10, 1)

	request := models.PurchaseRequest{
		ID:              uuid.New(),
		ListingID:       row.ID,
		WineID:          row.WineID,
		BuyerID:         uuid.New(),
		SellerID:        seller,
		Quantity:        1,
		UnitPriceCents:  3500,
		TotalPriceCents: 3500,
		Status:          enums.PurchaseRequestStatusPending,
	}
	require.NoError(t, db.Create(&request).Error)

	err := svc.DeleteListing(context.Background(), seller, row.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestDeleteListingWithoutPendingRequests(t *testing.T) {
	db := newListingTestDB(t)
	seller := uuid.New()
	svc := newListingService(t, db, seller)
	row := seedListing(t, db, seller, 10, 0)

	require.NoError(t, svc.DeleteListing(context.Background(), seller, row.ID))

	var count int64
	require.NoError(t, db.Model(&models.Listing{}).Where("id = ?", row.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListMarketplaceExcludesOwnAndPaginates(t *testing.T) {
	db := newListingTestDB(t)
	me := uuid.New()
	other := uuid.New()
	svc := newListingService(t, db, me)

	seedListing(t, db, me, 5, 0)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		row := seedListing(t, db, other, 5, 0)
		// distinct created_at values keep the cursor ordering deterministic
		require.NoError(t, db.Model(&models.Listing{}).
			Where("id = ?", row.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	page, err := svc.ListMarketplace(context.Background(), me, ListMarketplaceInput{
		Pagination: pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, page.Listings, 2)
	require.NotEmpty(t, page.NextCursor)
	for _, dto := range page.Listings {
		assert.NotEqual(t, me, dto.SellerID)
	}

	rest, err := svc.ListMarketplace(context.Background(), me, ListMarketplaceInput{
		Pagination: pagination.Params{Limit: 2, Cursor: page.NextCursor},
	})
	require.NoError(t, err)
	require.Len(t, rest.Listings, 1)
	assert.Empty(t, rest.NextCursor)
}

func TestListMarketplaceMyListings(t *testing.T) {
	db := newListingTestDB(t)
	me := uuid.New()
	svc := newListingService(t, db, me)

	seedListing(t, db, me, 5, 0)
	seedListing(t, db, uuid.New(), 5, 0)

	page, err := svc.ListMarketplace(context.Background(), me, ListMarketplaceInput{MyListings: true})
	require.NoError(t, err)
	require.Len(t, page.Listings, 1)
	assert.Equal(t, me, page.Listings[0].SellerID)
}

func TestListMarketplaceSample(t *testing.T) {
	db := newListingTestDB(t)
	me := uuid.New()
	svc := newListingService(t, db, me)

	other := uuid.New()
	for i := 0; i < 5; i++ {
		seedListing(t, db, other, 5, 0)
	}

	page, err := svc.ListMarketplace(context.Background(), me, ListMarketplaceInput{SampleSize: 3})
	require.NoError(t, err)
	assert.Len(t, page.Listings, 3)
	assert.Empty(t, page.NextCursor)
}
