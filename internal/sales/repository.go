package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinocave/vinocave-backend/pkg/db/models"
	"github.com/vinocave/vinocave-backend/pkg/enums"
)

// Repository owns request resolution and the sale ledger.
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

// FindRequestByID loads a purchase request row.
func (r *Repository) FindRequestByID(ctx context.Context, id uuid.UUID) (*models.PurchaseRequest, error) {
	var row models.PurchaseRequest
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// MarkResolved flips a pending request into a terminal status. The
// status guard makes the transition happen at most once; zero rows
// affected means someone already resolved it.
func (r *Repository) MarkResolved(ctx context.Context, id uuid.UUID, status enums.PurchaseRequestStatus, reason *string, resolvedAt time.Time) (int64, error) {
	fields := map[string]any{
		"status":      status,
		"resolved_at": resolvedAt,
	}
	if reason != nil {
		fields["reject_reason"] = *reason
	}
	res := r.db.WithContext(ctx).
		Model(&models.PurchaseRequest{}).
		Where("id = ? AND status = ?", id, enums.PurchaseRequestStatusPending).
		Updates(fields)
	return res.RowsAffected, res.Error
}

// InsertSaleRecord appends a ledger row. The unique index on
// purchase_request_id backs up the status guard.
func (r *Repository) InsertSaleRecord(ctx context.Context, row *models.SaleRecord) (*models.SaleRecord, error) {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// FindSaleByRequestID loads the ledger row written for a request.
func (r *Repository) FindSaleByRequestID(ctx context.Context, requestID uuid.UUID) (*models.SaleRecord, error) {
	var row models.SaleRecord
	if err := r.db.WithContext(ctx).First(&row, "purchase_request_id = ?", requestID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ReleaseQuantity returns bottles to a listing after a reject or
// cancel. The guard keeps the counter non-negative.
func (r *Repository) ReleaseQuantity(ctx context.Context, listingID uuid.UUID, qty int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND quantity_committed >= ?", listingID, qty).
		Update("quantity_committed", gorm.Expr("quantity_committed - ?", qty))
	return res.RowsAffected, res.Error
}
