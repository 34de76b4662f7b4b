package sales

import (
	"context"
	"testing"

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
)

func newSalesTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:sales_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	for _, schema := range []string{
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
		`CREATE TABLE IF NOT EXISTS sale_records (
  id TEXT PRIMARY KEY,
  purchase_request_id TEXT NOT NULL UNIQUE,
  listing_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  total_price_cents INTEGER NOT NULL,
  marketplace_fee_cents INTEGER NOT NULL,
  seller_earnings_cents INTEGER NOT NULL,
  fee_policy_version INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'EUR',
  confirmed_at DATETIME NOT NULL,
  created_at DATETIME
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

func newSalesService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	policy, err := NewFeePolicy(1, 1000)
	require.NoError(t, err)
	events := outbox.NewService(outbox.NewRepository(db), nil)
	svc, err := NewService(NewRepository(db), dbpkg.NewClientFromConn(db), events, policy, nil, nil)
	require.NoError(t, err)
	return svc
}

type fixture struct {
	listing models.Listing
	request models.PurchaseRequest
	seller  uuid.UUID
	buyer   uuid.UUID
}

func seedPendingRequest(t *testing.T, db *gorm.DB, qty int) fixture {
	t.Helper()
	seller := uuid.New()
	buyer := uuid.New()
	listing := models.Listing{
		ID:                uuid.New(),
		WineID:            uuid.New(),
		SellerID:          seller,
		UnitPriceCents:    2000,
		Currency:          enums.CurrencyEUR,
		TotalQuantity:     10,
		QuantityCommitted: qty,
		Status:            enums.ListingStatusActive,
	}
	require.NoError(t, db.Create(&listing).Error)

	request := models.PurchaseRequest{
		ID:              uuid.New(),
		ListingID:       listing.ID,
		WineID:          listing.WineID,
		BuyerID:         buyer,
		SellerID:        seller,
		Quantity:        qty,
		UnitPriceCents:  listing.UnitPriceCents,
		TotalPriceCents: listing.UnitPriceCents * int64(qty),
		Currency:        enums.CurrencyEUR,
		Status:          enums.PurchaseRequestStatusPending,
	}
	require.NoError(t, db.Create(&request).Error)
	return fixture{listing: listing, request: request, seller: seller, buyer: buyer}
}

func TestConfirmWritesSaleRecordAndEvent(t *testing.T) {
	db := newSalesTestDB(t)
	svc := newSalesService(t, db)
	f := seedPendingRequest(t, db, 3)

	sale, err := svc.Confirm(context.Background(), f.seller, f.request.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), sale.TotalPriceCents)
	assert.Equal(t, int64(600), sale.MarketplaceFeeCents)
	assert.Equal(t, int64(5400), sale.SellerEarningsCents)
	assert.Equal(t, 1, sale.FeePolicyVersion)
	assert.Equal(t, sale.TotalPriceCents, sale.MarketplaceFeeCents+sale.SellerEarningsCents)

	var request models.PurchaseRequest
	require.NoError(t, db.First(&request, "id = ?", f.request.ID).Error)
	assert.Equal(t, enums.PurchaseRequestStatusConfirmed, request.Status)
	require.NotNil(t, request.ResolvedAt)

	// confirmed bottles stay committed
	var listing models.Listing
	require.NoError(t, db.First(&listing, "id = ?", f.listing.ID).Error)
	assert.Equal(t, 3, listing.QuantityCommitted)

	var events int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventSaleConfirmed).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestConfirmForbiddenForOtherUser(t *testing.T) {
	db := newSalesTestDB(t)
	svc := newSalesService(t, db)
	f := seedPendingRequest(t, db, 1)

	_, err := svc.Confirm(context.Background(), uuid.New(), f.request.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestConfirmNotFound(t *testing.T) {
	db := newSalesTestDB(t)
	svc := newSalesService(t, db)

	_, err := svc.Confirm(context.Background(), uuid.New(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

// Confirm then reject: the second resolution must fail and leave the
// confirmed state and the ledger untouched.
func TestRejectAfterConfirmAlreadyResolved(t *testing.T) {
	db := newSalesTestDB(t)
	svc := newSalesService(t, db)
	f := seedPendingRequest(t, db, 2)

	_, err := svc.Confirm(context.Background(), f.seller, f.request.ID)
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), f.seller, f.request.ID, "changed my mind")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeAlreadyResolved, typed.Code())

	var request models.PurchaseRequest
	require.NoError(t, db.First(&request, "id = ?", f.request.ID).Error)
	assert.Equal(t, enums.PurchaseRequestStatusConfirmed, request.Status)
	assert.Nil(t, request.RejectReason)

	var sales int64
	require.NoError(t, db.Model(&models.SaleRecord{}).Count(&sales).Error)
	assert.Equal(t, int64(1), sales)

	var listing models.Listing
	require.NoError(t, db.First(&listing, "id = ?", f.listing.ID).Error)
	assert.Equal(t, 2, listing.QuantityCommitted)
}

func TestConfirmTwiceAlreadyResolved(t *testing.T) {
	db := newSalesTestDB(t)
	svc := newSalesService(t, db)
	f := seedPendingRequest(t, db, 1)

	_, err := svc.Confirm(context.Background(), f.seller, f.request.ID)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), f.seller, f.request.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeAlreadyResolved, typed.Code())

	var sales int64
	require.NoError(t, db.Model(&models.SaleRecord{}).Count(&sales).Error)
	assert.Equal(t, int64(1), sales)
}

func TestRejectReleasesQuantity(t *testing.T) {
	db := newSalesTestDB(t)
	svc := newSalesService(t, db)
	f := seedPendingRequest(t, db, 4)

	dto, err := svc.Reject(context.Background(), f.seller, f.request.ID, "sold elsewhere")
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseRequestStatusRejected, dto.Status)
	require.NotNil(t, dto.RejectReason)
	assert.Equal(t, "sold elsewhere", *dto.RejectReason)

	var listing models.Listing
	require.NoError(t, db.First(&listing, "id = ?", f.listing.ID).Error)
	assert.Zero(t, listing.QuantityCommitted)

	var events int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPurchaseRequestResolved).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestRejectWithoutReasonStoresNull(t *testing.T) {
	db := newSalesTestDB(t)
	svc := newSalesService(t, db)
	f := seedPendingRequest(t, db, 2)

	dto, err := svc.Reject(context.Background(), f.seller, f.request.ID, "  ")
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseRequestStatusRejected, dto.Status)
	assert.Nil(t, dto.RejectReason)

	var reloaded models.PurchaseRequest
	require.NoError(t, db.First(&reloaded, "id = ?", f.request.ID).Error)
	assert.Nil(t, reloaded.RejectReason)
}

// Scenario: cancel restores availability so a follow-up reservation for
// the freed bottles succeeds.
func TestCancelRestoresAvailability(t *testing.T) {
	db := newSalesTestDB(t)
	svc := newSalesService(t, db)
	f := seedPendingRequest(t, db, 10)

	// fully committed listing has nothing left
	var listing models.Listing
	require.NoError(t, db.First(&listing, "id = ?", f.listing.ID).Error)
	assert.Zero(t, listing.Available())

	dto, err := svc.Cancel(context.Background(), f.buyer, f.request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseRequestStatusCancelled, dto.Status)

	require.NoError(t, db.First(&listing, "id = ?", f.listing.ID).Error)
	assert.Equal(t, 10, listing.Available())
}

func TestCancelForbiddenForNonBuyer(t *testing.T) {
	db := newSalesTestDB(t)
	svc := newSalesService(t, db)
	f := seedPendingRequest(t, db, 1)

	_, err := svc.Cancel(context.Background(), f.seller, f.request.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestCancelAfterConfirmAlreadyResolved(t *testing.T) {
	db := newSalesTestDB(t)
	svc := newSalesService(t, db)
	f := seedPendingRequest(t, db, 2)

	_, err := svc.Confirm(context.Background(), f.seller, f.request.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), f.buyer, f.request.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeAlreadyResolved, typed.Code())
}

func TestParseResolveAction(t *testing.T) {
	action, err := ParseResolveAction("confirm")
	require.NoError(t, err)
	assert.Equal(t, ActionConfirm, action)

	action, err = ParseResolveAction("reject")
	require.NoError(t, err)
	assert.Equal(t, ActionReject, action)

	_, err = ParseResolveAction("approve")
	require.Error(t, err)
}
