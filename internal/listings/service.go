package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinocave/vinocave-backend/pkg/db"
	"github.com/vinocave/vinocave-backend/pkg/db/models"
	"github.com/vinocave/vinocave-backend/pkg/enums"
	pkgerrors "github.com/vinocave/vinocave-backend/pkg/errors"
	"github.com/vinocave/vinocave-backend/pkg/outbox"
	"github.com/vinocave/vinocave-backend/pkg/outbox/payloads"
	"github.com/vinocave/vinocave-backend/pkg/pagination"
)

// Service exposes seller listing management plus the marketplace feed.
type Service interface {
	CreateListing(ctx context.Context, sellerID uuid.UUID, input CreateListingInput) (*ListingDTO, error)
	UpdateListing(ctx context.Context, sellerID, listingID uuid.UUID, input UpdateListingInput) (*ListingDTO, error)
	DeleteListing(ctx context.Context, sellerID, listingID uuid.UUID) error
	GetListing(ctx context.Context, listingID uuid.UUID) (*ListingDTO, error)
	ListMarketplace(ctx context.Context, userID uuid.UUID, input ListMarketplaceInput) (*ListResult, error)
}

// CreateListingInput holds the validated payload to create a listing.
type CreateListingInput struct {
	WineID         uuid.UUID
	UnitPriceCents int64
	Quantity       int
	Condition      *string
}

// UpdateListingInput holds optional mutation values for a listing.
// Price changes never touch purchase requests already made; their
// snapshots stay as reserved.
type UpdateListingInput struct {
	UnitPriceCents *int64
	Quantity       *int
	Condition      *string
	Status         *enums.ListingStatus
}

// ListMarketplaceInput narrows the feed query.
type ListMarketplaceInput struct {
	Pagination pagination.Params
	SampleSize int
	MyListings bool
}

type wineOwnershipChecker interface {
	EnsureOwnership(ctx context.Context, userID, wineID uuid.UUID) (*models.Wine, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	cellar   wineOwnershipChecker
	events   eventEmitter
}

// NewService constructs a listing service instance.
func NewService(repo *Repository, dbClient *db.Client, cellar wineOwnershipChecker, events eventEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if cellar == nil {
		return nil, fmt.Errorf("cellar service required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{repo: repo, dbClient: dbClient, cellar: cellar, events: events}, nil
}

// CreateListing validates the offer and inserts an active listing.
func (s *service) CreateListing(ctx context.Context, sellerID uuid.UUID, input CreateListingInput) (*ListingDTO, error) {
	if input.UnitPriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	if _, err := s.cellar.EnsureOwnership(ctx, sellerID, input.WineID); err != nil {
		return nil, err
	}

	row := &models.Listing{
		ID:             uuid.New(),
		WineID:         input.WineID,
		SellerID:       sellerID,
		UnitPriceCents: input.UnitPriceCents,
		Currency:       enums.CurrencyEUR,
		TotalQuantity:  input.Quantity,
		Condition:      input.Condition,
		Status:         enums.ListingStatusActive,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert listing")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingCreated,
			AggregateType: enums.AggregateListing,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: sellerID},
			Version:       1,
			Data: payloads.ListingCreatedEvent{
				ListingID:      row.ID,
				WineID:         row.WineID,
				SellerID:       sellerID,
				UnitPriceCents: row.UnitPriceCents,
				Currency:       row.Currency,
				TotalQuantity:  row.TotalQuantity,
			},
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
	}

	return s.GetListing(ctx, row.ID)
}

// UpdateListing applies seller edits. Shrinking total_quantity below the
// committed count fails with CONFLICT and leaves the row untouched.
func (s *service) UpdateListing(ctx context.Context, sellerID, listingID uuid.UUID, input UpdateListingInput) (*ListingDTO, error) {
	if input.UnitPriceCents != nil && *input.UnitPriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Quantity != nil && *input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing status")
	}

	row, err := s.loadOwned(ctx, sellerID, listingID)
	if err != nil {
		return nil, err
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if input.Quantity != nil && *input.Quantity != row.TotalQuantity {
			if *input.Quantity < row.TotalQuantity {
				affected, err := txRepo.ShrinkTotalQuantity(ctx, listingID, *input.Quantity)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: shrink listing quantity")
				}
				if affected == 0 {
					return pkgerrors.New(pkgerrors.CodeConflict, "cannot reduce quantity below committed bottles")
				}
			} else {
				if err := txRepo.UpdateFields(ctx, listingID, map[string]any{"total_quantity": *input.Quantity}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: grow listing quantity")
				}
			}
		}

		fields := map[string]any{}
		if input.UnitPriceCents != nil {
			fields["unit_price_cents"] = *input.UnitPriceCents
		}
		if input.Condition != nil {
			fields["condition"] = *input.Condition
		}
		if input.Status != nil {
			fields["status"] = *input.Status
		}
		if len(fields) == 0 {
			return nil
		}
		if err := txRepo.UpdateFields(ctx, listingID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update listing")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing")
	}

	return s.GetListing(ctx, listingID)
}

// DeleteListing removes a listing that has no pending requests.
func (s *service) DeleteListing(ctx context.Context, sellerID, listingID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, sellerID, listingID); err != nil {
		return err
	}

	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		pending, err := txRepo.CountPendingRequests(ctx, listingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count pending requests")
		}
		if pending > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "listing has pending purchase requests")
		}
		if err := txRepo.Delete(ctx, listingID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete listing")
		}
		return nil
	})
}

// GetListing loads the listing with its wine for display.
func (s *service) GetListing(ctx context.Context, listingID uuid.UUID) (*ListingDTO, error) {
	row, err := s.repo.FindByIDWithWine(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return NewListingDTO(row), nil
}

// ListMarketplace returns the feed: the caller's own listings when
// MyListings is set, otherwise everyone else's active offers.
func (s *service) ListMarketplace(ctx context.Context, userID uuid.UUID, input ListMarketplaceInput) (*ListResult, error) {
	if input.SampleSize < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sampleSize must not be negative")
	}

	query := FeedQuery{
		Pagination: input.Pagination,
		SampleSize: input.SampleSize,
	}
	if input.MyListings {
		query.SellerID = &userID
	} else {
		query.ExcludeSeller = &userID
	}

	rows, nextCursor, err := s.repo.ListFeed(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list marketplace")
	}

	dtos := make([]ListingDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewListingDTO(&rows[i]))
	}
	return &ListResult{Listings: dtos, NextCursor: nextCursor}, nil
}

func (s *service) loadOwned(ctx context.Context, sellerID, listingID uuid.UUID) (*models.Listing, error) {
	row, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if row.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "listing does not belong to seller")
	}
	return row, nil
}
