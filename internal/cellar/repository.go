package cellar

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinocave/vinocave-backend/pkg/db/models"
)

// Repository reads the wine catalog owned by the cellar service.
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

// FindByID loads a wine row without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Wine, error) {
	var wine models.Wine
	if err := r.db.WithContext(ctx).First(&wine, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &wine, nil
}

// ListByOwner returns all wines owned by the given user ordered newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Wine, error) {
	var rows []models.Wine
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
