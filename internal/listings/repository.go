package listing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinocave/vinocave-backend/pkg/db/models"
	"github.com/vinocave/vinocave-backend/pkg/enums"
	"github.com/vinocave/vinocave-backend/pkg/pagination"
)

// Repository owns listing persistence, including the guarded quantity
// updates that keep quantity_committed <= total_quantity.
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

// Create inserts a new listing row.
func (r *Repository) Create(ctx context.Context, row *models.Listing) (*models.Listing, error) {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// FindByID loads the listing without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var row models.Listing
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByIDWithWine loads the listing with its wine preloaded.
func (r *Repository) FindByIDWithWine(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var row models.Listing
	if err := r.db.WithContext(ctx).Preload("Wine").First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateFields applies a partial update to the listing row.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// ShrinkTotalQuantity lowers total_quantity only while existing
// commitments still fit. Returns the number of rows changed; zero means
// the shrink would strand committed bottles.
func (r *Repository) ShrinkTotalQuantity(ctx context.Context, id uuid.UUID, newTotal int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND quantity_committed <= ?", id, newTotal).
		Update("total_quantity", newTotal)
	return res.RowsAffected, res.Error
}

// Delete removes the listing row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Listing{}).Error
}

// CountPendingRequests returns how many pending purchase requests point
// at the listing.
func (r *Repository) CountPendingRequests(ctx context.Context, listingID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseRequest{}).
		Where("listing_id = ? AND status = ?", listingID, enums.PurchaseRequestStatusPending).
		Count(&count).Error
	return count, err
}

// ListBySeller returns the seller's listings newest first.
func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Listing, error) {
	var rows []models.Listing
	err := r.db.WithContext(ctx).
		Preload("Wine").
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// FeedQuery narrows the marketplace feed.
type FeedQuery struct {
	Pagination     pagination.Params
	SellerID       *uuid.UUID
	ExcludeSeller  *uuid.UUID
	SampleSize     int
	IncludeAllInfo bool
}

// ListFeed pages active listings for the marketplace feed. A positive
// SampleSize short-circuits pagination and returns a random sample.
func (r *Repository) ListFeed(ctx context.Context, query FeedQuery) ([]models.Listing, string, error) {
	base := r.db.WithContext(ctx).
		Preload("Wine").
		Where("status = ?", enums.ListingStatusActive)
	if query.SellerID != nil {
		base = base.Where("seller_id = ?", *query.SellerID)
	}
	if query.ExcludeSeller != nil {
		base = base.Where("seller_id <> ?", *query.ExcludeSeller)
	}

	if query.SampleSize > 0 {
		var rows []models.Listing
		err := base.Order("RANDOM()").Limit(query.SampleSize).Find(&rows).Error
		return rows, "", err
	}

	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		base = base.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Listing
	err = base.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(query.Pagination.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}
