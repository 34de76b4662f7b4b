package reservation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinocave/vinocave-backend/pkg/db/models"
	"github.com/vinocave/vinocave-backend/pkg/enums"
)

// Repository owns purchase request persistence and the listing counter
// guards that make reservations safe under concurrency.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads a purchase request row.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseRequest, error) {
	var row models.PurchaseRequest
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByBuyerAndKey returns the request created under the given
// idempotency key, or nil when the key is unused.
func (r *Repository) FindByBuyerAndKey(ctx context.Context, buyerID uuid.UUID, key string) (*models.PurchaseRequest, error) {
	var row models.PurchaseRequest
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND idempotency_key = ?", buyerID, key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Insert creates a purchase request row.
func (r *Repository) Insert(ctx context.Context, row *models.PurchaseRequest) (*models.PurchaseRequest, error) {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// FindListing loads the listing a reservation targets.
func (r *Repository) FindListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	var row models.Listing
	if err := r.db.WithContext(ctx).First(&row, "id = ?", listingID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// CommitQuantity raises quantity_committed only while the listing is
// active and the result still fits under total_quantity. The row write
// lock taken by the UPDATE serializes concurrent reservations on the
// same listing; zero rows affected means the guard rejected the claim.
func (r *Repository) CommitQuantity(ctx context.Context, listingID uuid.UUID, qty int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where(
			"id = ? AND status = ? AND quantity_committed + ? <= total_quantity",
			listingID, enums.ListingStatusActive, qty,
		).
		Update("quantity_committed", gorm.Expr("quantity_committed + ?", qty))
	return res.RowsAffected, res.Error
}

// ReleaseQuantity gives bottles back after a reject or cancel. The
// guard keeps the counter from going negative if a release is replayed.
func (r *Repository) ReleaseQuantity(ctx context.Context, listingID uuid.UUID, qty int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND quantity_committed >= ?", listingID, qty).
		Update("quantity_committed", gorm.Expr("quantity_committed - ?", qty))
	return res.RowsAffected, res.Error
}

// ListByBuyer returns the buyer's requests newest first.
func (r *Repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.PurchaseRequest, error) {
	var rows []models.PurchaseRequest
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("requested_at DESC").
		Find(&rows).Error
	return rows, err
}

// ListBySeller returns the requests targeting the seller's listings.
func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.PurchaseRequest, error) {
	var rows []models.PurchaseRequest
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("requested_at DESC").
		Find(&rows).Error
	return rows, err
}
