package cellar

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinocave/vinocave-backend/pkg/db/models"
	pkgerrors "github.com/vinocave/vinocave-backend/pkg/errors"
)

// Service exposes the catalog read surface the transaction core needs.
type Service interface {
	GetWine(ctx context.Context, wineID uuid.UUID) (*models.Wine, error)
	EnsureOwnership(ctx context.Context, userID, wineID uuid.UUID) (*models.Wine, error)
	ListMyWines(ctx context.Context, userID uuid.UUID) ([]WineDTO, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a cellar read service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cellar repository required")
	}
	return &service{repo: repo}, nil
}

// GetWine loads a wine or returns NOT_FOUND.
func (s *service) GetWine(ctx context.Context, wineID uuid.UUID) (*models.Wine, error) {
	wine, err := s.repo.FindByID(ctx, wineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wine not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wine")
	}
	return wine, nil
}

// EnsureOwnership verifies the user owns the wine before it can be listed.
func (s *service) EnsureOwnership(ctx context.Context, userID, wineID uuid.UUID) (*models.Wine, error) {
	wine, err := s.GetWine(ctx, wineID)
	if err != nil {
		return nil, err
	}
	if wine.OwnerID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "wine does not belong to user")
	}
	return wine, nil
}

// ListMyWines returns the caller's cellar entries.
func (s *service) ListMyWines(ctx context.Context, userID uuid.UUID) ([]WineDTO, error) {
	rows, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wines")
	}
	dtos := make([]WineDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewWineDTO(&rows[i]))
	}
	return dtos, nil
}
