package reservation

import (
	"context"
	"sync"
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

func newReservationTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:reservation_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite cannot interleave writers; one pooled conn serializes them
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
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_purchase_requests_buyer_idem
  ON purchase_requests (buyer_id, idempotency_key);`,
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

func newReservationService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	events := outbox.NewService(outbox.NewRepository(db), nil)
	svc, err := NewService(NewRepository(db), dbpkg.NewClientFromConn(db), events, nil, nil)
	require.NoError(t, err)
	return svc
}

func seedActiveListing(t *testing.T, db *gorm.DB, sellerID uuid.UUID, total, committed int) models.Listing {
	t.Helper()
	row := models.Listing{
		ID:                uuid.New(),
		WineID:            uuid.New(),
		SellerID:          sellerID,
		UnitPriceCents:    2500,
		Currency:          enums.CurrencyEUR,
		TotalQuantity:     total,
		QuantityCommitted: committed,
		Status:            enums.ListingStatusActive,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func TestReserveHappyPath(t *testing.T) {
	db := newReservationTestDB(t)
	svc := newReservationService(t, db)
	seller := uuid.New()
	buyer := uuid.New()
	listing := seedActiveListing(t, db, seller, 10, 0)

	dto, err := svc.Reserve(context.Background(), buyer, ReserveInput{
		ListingID: listing.ID, Quantity: 3, IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseRequestStatusPending, dto.Status)
	assert.Equal(t, int64(2500), dto.UnitPriceCents)
	assert.Equal(t, int64(7500), dto.TotalPriceCents)
	assert.Equal(t, seller, dto.SellerID)

	var reloaded models.Listing
	require.NoError(t, db.First(&reloaded, "id = ?", listing.ID).Error)
	assert.Equal(t, 3, reloaded.QuantityCommitted)

	var events int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPurchaseRequestCreated).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestReserveIdempotentReplayReturnsSameRequest(t *testing.T) {
	db := newReservationTestDB(t)
	svc := newReservationService(t, db)
	buyer := uuid.New()
	listing := seedActiveListing(t, db, uuid.New(), 5, 0)

	input := ReserveInput{ListingID: listing.ID, Quantity: 2, IdempotencyKey: "replay-key"}
	first, err := svc.Reserve(context.Background(), buyer, input)
	require.NoError(t, err)

	second, err := svc.Reserve(context.Background(), buyer, input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// the replay must not claim bottles twice
	var reloaded models.Listing
	require.NoError(t, db.First(&reloaded, "id = ?", listing.ID).Error)
	assert.Equal(t, 2, reloaded.QuantityCommitted)
}

func TestReserveIdempotencyKeyReuseWithDifferentPayload(t *testing.T) {
	db := newReservationTestDB(t)
	svc := newReservationService(t, db)
	buyer := uuid.New()
	listing := seedActiveListing(t, db, uuid.New(), 5, 0)

	_, err := svc.Reserve(context.Background(), buyer, ReserveInput{
		ListingID: listing.ID, Quantity: 2, IdempotencyKey: "shared-key",
	})
	require.NoError(t, err)

	_, err = svc.Reserve(context.Background(), buyer, ReserveInput{
		ListingID: listing.ID, Quantity: 3, IdempotencyKey: "shared-key",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeIdempotency, typed.Code())
}

// Two first-time calls racing with the same key: the loser's insert
// trips the (buyer_id, idempotency_key) unique index and must replay
// the winner's request instead of surfacing a dependency error.
func TestReserveDuplicateInsertReplaysWinner(t *testing.T) {
	db := newReservationTestDB(t)
	svc := newReservationService(t, db)
	buyer := uuid.New()
	listing := seedActiveListing(t, db, uuid.New(), 5, 0)

	key := "race-key"
	winner := models.PurchaseRequest{
		ID:              uuid.New(),
		ListingID:       listing.ID,
		WineID:          listing.WineID,
		BuyerID:         buyer,
		SellerID:        listing.SellerID,
		Quantity:        2,
		UnitPriceCents:  listing.UnitPriceCents,
		TotalPriceCents: listing.UnitPriceCents * 2,
		Currency:        listing.Currency,
		Status:          enums.PurchaseRequestStatusPending,
		IdempotencyKey:  &key,
	}
	require.NoError(t, db.Create(&winner).Error)

	input := ReserveInput{ListingID: listing.ID, Quantity: 2, IdempotencyKey: key}
	existing, err := svc.(*service).recoverDuplicate(context.Background(), buyer, input, key)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, winner.ID, existing.ID)

	// same key, different payload: the reuse error, not a replay
	mismatched := ReserveInput{ListingID: listing.ID, Quantity: 4, IdempotencyKey: key}
	_, err = svc.(*service).recoverDuplicate(context.Background(), buyer, mismatched, key)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeIdempotency, typed.Code())
}

func TestReserveConcurrentSameKeyConvergesToOneRequest(t *testing.T) {
	db := newReservationTestDB(t)
	svc := newReservationService(t, db)
	buyer := uuid.New()
	listing := seedActiveListing(t, db, uuid.New(), 10, 0)

	const callers = 6
	input := ReserveInput{ListingID: listing.ID, Quantity: 2, IdempotencyKey: "same-key"}

	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			dto, err := svc.Reserve(context.Background(), buyer, input)
			errs[slot] = err
			if err == nil {
				ids[slot] = dto.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		assert.Equal(t, ids[0], ids[i], "caller %d", i)
	}

	var reloaded models.Listing
	require.NoError(t, db.First(&reloaded, "id = ?", listing.ID).Error)
	assert.Equal(t, 2, reloaded.QuantityCommitted)

	var count int64
	require.NoError(t, db.Model(&models.PurchaseRequest{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestReserveSelfPurchaseConflicts(t *testing.T) {
	db := newReservationTestDB(t)
	svc := newReservationService(t, db)
	seller := uuid.New()
	listing := seedActiveListing(t, db, seller, 5, 0)

	_, err := svc.Reserve(context.Background(), seller, ReserveInput{ListingID: listing.ID, Quantity: 1})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestReserveListingNotFound(t *testing.T) {
	db := newReservationTestDB(t)
	svc := newReservationService(t, db)

	_, err := svc.Reserve(context.Background(), uuid.New(), ReserveInput{ListingID: uuid.New(), Quantity: 1})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestReserveInactiveListingConflicts(t *testing.T) {
	db := newReservationTestDB(t)
	svc := newReservationService(t, db)
	listing := seedActiveListing(t, db, uuid.New(), 5, 0)
	require.NoError(t, db.Model(&models.Listing{}).
		Where("id = ?", listing.ID).
		Update("status", enums.ListingStatusInactive).Error)

	_, err := svc.Reserve(context.Background(), uuid.New(), ReserveInput{ListingID: listing.ID, Quantity: 1})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestReserveInsufficientStockLeavesStateUntouched(t *testing.T) {
	db := newReservationTestDB(t)
	svc := newReservationService(t, db)
	listing := seedActiveListing(t, db, uuid.New(), 5, 4)

	_, err := svc.Reserve(context.Background(), uuid.New(), ReserveInput{ListingID: listing.ID, Quantity: 2})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	details, ok := typed.Details().(insufficientStockDetails)
	require.True(t, ok)
	assert.Equal(t, 2, details.Requested)
	assert.Equal(t, 1, details.Available)

	var reloaded models.Listing
	require.NoError(t, db.First(&reloaded, "id = ?", listing.ID).Error)
	assert.Equal(t, 4, reloaded.QuantityCommitted)

	var count int64
	require.NoError(t, db.Model(&models.PurchaseRequest{}).Count(&count).Error)
	assert.Zero(t, count)
}

// Two buyers race for the last bottles of the same listing. Whoever
// loses must get INSUFFICIENT_STOCK and the counter must never exceed
// the total.
func TestReserveTwoBuyersOneBottle(t *testing.T) {
	db := newReservationTestDB(t)
	svc := newReservationService(t, db)
	listing := seedActiveListing(t, db, uuid.New(), 1, 0)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Reserve(context.Background(), uuid.New(), ReserveInput{
				ListingID: listing.ID, Quantity: 1,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	stockErrs := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
		stockErrs++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, stockErrs)

	var reloaded models.Listing
	require.NoError(t, db.First(&reloaded, "id = ?", listing.ID).Error)
	assert.Equal(t, 1, reloaded.QuantityCommitted)
}

// N concurrent single-bottle reservations against K bottles: exactly K
// succeed and the committed counter conserves the claimed quantity.
func TestReserveConcurrentConservation(t *testing.T) {
	db := newReservationTestDB(t)
	svc := newReservationService(t, db)

	const bottles = 5
	const buyers = 12
	listing := seedActiveListing(t, db, uuid.New(), bottles, 0)

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Reserve(context.Background(), uuid.New(), ReserveInput{
				ListingID: listing.ID, Quantity: 1,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
		}
	}
	assert.Equal(t, bottles, succeeded)

	var reloaded models.Listing
	require.NoError(t, db.First(&reloaded, "id = ?", listing.ID).Error)
	assert.Equal(t, bottles, reloaded.QuantityCommitted)

	var pending int64
	require.NoError(t, db.Model(&models.PurchaseRequest{}).
		Where("status = ?", enums.PurchaseRequestStatusPending).
		Count(&pending).Error)
	assert.Equal(t, int64(bottles), pending)
}

func TestGetRequestVisibility(t *testing.T) {
	db := newReservationTestDB(t)
	svc := newReservationService(t, db)
	seller := uuid.New()
	buyer := uuid.New()
	listing := seedActiveListing(t, db, seller, 5, 0)

	dto, err := svc.Reserve(context.Background(), buyer, ReserveInput{ListingID: listing.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.GetRequest(context.Background(), buyer, dto.ID)
	require.NoError(t, err)
	_, err = svc.GetRequest(context.Background(), seller, dto.ID)
	require.NoError(t, err)

	_, err = svc.GetRequest(context.Background(), uuid.New(), dto.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestListRequestsBySide(t *testing.T) {
	db := newReservationTestDB(t)
	svc := newReservationService(t, db)
	seller := uuid.New()
	buyer := uuid.New()
	listing := seedActiveListing(t, db, seller, 10, 0)

	_, err := svc.Reserve(context.Background(), buyer, ReserveInput{ListingID: listing.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Reserve(context.Background(), uuid.New(), ReserveInput{ListingID: listing.ID, Quantity: 2})
	require.NoError(t, err)

	asSeller, err := svc.ListRequests(context.Background(), seller, ListRequestsInput{})
	require.NoError(t, err)
	assert.Len(t, asSeller, 2)

	asBuyer, err := svc.ListRequests(context.Background(), buyer, ListRequestsInput{AsBuyer: true})
	require.NoError(t, err)
	assert.Len(t, asBuyer, 1)
}
