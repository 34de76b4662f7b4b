package earnings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinocave/vinocave-backend/pkg/db/models"
)

// Repository reads the append-only sale ledger.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListBySeller returns every ledger row for the seller, oldest first.
func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.SaleRecord, error) {
	var rows []models.SaleRecord
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("confirmed_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
