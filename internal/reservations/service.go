package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinocave/vinocave-backend/pkg/db"
	"github.com/vinocave/vinocave-backend/pkg/db/models"
	"github.com/vinocave/vinocave-backend/pkg/enums"
	pkgerrors "github.com/vinocave/vinocave-backend/pkg/errors"
	"github.com/vinocave/vinocave-backend/pkg/logger"
	"github.com/vinocave/vinocave-backend/pkg/metrics"
	"github.com/vinocave/vinocave-backend/pkg/outbox"
	"github.com/vinocave/vinocave-backend/pkg/outbox/payloads"
)

// Service coordinates buyer reservations against listing inventory.
type Service interface {
	Reserve(ctx context.Context, buyerID uuid.UUID, input ReserveInput) (*PurchaseRequestDTO, error)
	GetRequest(ctx context.Context, userID, requestID uuid.UUID) (*PurchaseRequestDTO, error)
	ListRequests(ctx context.Context, userID uuid.UUID, input ListRequestsInput) ([]PurchaseRequestDTO, error)
}

// ReserveInput holds the validated payload to reserve bottles.
type ReserveInput struct {
	ListingID      uuid.UUID
	Quantity       int
	IdempotencyKey string
}

// ListRequestsInput selects which side of the market to list for.
type ListRequestsInput struct {
	AsBuyer bool
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	events   eventEmitter
	logg     *logger.Logger
	metrics  *metrics.MarketplaceMetrics
}

// NewService constructs the reservation coordinator.
func NewService(repo *Repository, dbClient *db.Client, events eventEmitter, logg *logger.Logger, m *metrics.MarketplaceMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{repo: repo, dbClient: dbClient, events: events, logg: logg, metrics: m}, nil
}

// insufficientStockDetails surfaces what the buyer can still get.
type insufficientStockDetails struct {
	Requested int `json:"requested"`
	Available int `json:"available"`
}

// Reserve claims qty bottles in a single transaction. The listing
// counter update and the request insert commit together, so a request
// row exists if and only if its quantity is counted in
// quantity_committed.
func (s *service) Reserve(ctx context.Context, buyerID uuid.UUID, input ReserveInput) (*PurchaseRequestDTO, error) {
	started := time.Now()
	dto, outcome, err := s.reserve(ctx, buyerID, input)
	s.metrics.ObserveReserve(outcome, time.Since(started))
	return dto, err
}

func (s *service) reserve(ctx context.Context, buyerID uuid.UUID, input ReserveInput) (*PurchaseRequestDTO, string, error) {
	if input.Quantity < 1 {
		return nil, "invalid", pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var result *models.PurchaseRequest
	var outcome string
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
			existing, err := txRepo.FindByBuyerAndKey(ctx, buyerID, key)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lookup idempotency key")
			}
			if existing != nil {
				if existing.ListingID != input.ListingID || existing.Quantity != input.Quantity {
					return pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request")
				}
				result = existing
				outcome = "replayed"
				return nil
			}
		}

		listing, err := txRepo.FindListing(ctx, input.ListingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load listing")
		}
		if listing.SellerID == buyerID {
			return pkgerrors.New(pkgerrors.CodeConflict, "sellers cannot reserve their own listings")
		}

		affected, err := txRepo.CommitQuantity(ctx, input.ListingID, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: commit quantity")
		}
		if affected == 0 {
			// The guard refused; reload to tell the caller why.
			current, err := txRepo.FindListing(ctx, input.ListingID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload listing")
			}
			if current.Status != enums.ListingStatusActive {
				return pkgerrors.New(pkgerrors.CodeConflict, "listing is not active")
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough bottles available").
				WithDetails(insufficientStockDetails{
					Requested: input.Quantity,
					Available: current.Available(),
				})
		}

		row := &models.PurchaseRequest{
			ID:              uuid.New(),
			ListingID:       listing.ID,
			WineID:          listing.WineID,
			BuyerID:         buyerID,
			SellerID:        listing.SellerID,
			Quantity:        input.Quantity,
			UnitPriceCents:  listing.UnitPriceCents,
			TotalPriceCents: listing.UnitPriceCents * int64(input.Quantity),
			Currency:        listing.Currency,
			Status:          enums.PurchaseRequestStatusPending,
			RequestedAt:     time.Now(),
		}
		if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
			row.IdempotencyKey = &key
		}

		if _, err := txRepo.Insert(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert purchase request")
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseRequestCreated,
			AggregateType: enums.AggregatePurchaseRequest,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: buyerID},
			Version:       1,
			Data: payloads.PurchaseRequestCreatedEvent{
				PurchaseRequestID: row.ID,
				ListingID:         row.ListingID,
				BuyerID:           row.BuyerID,
				SellerID:          row.SellerID,
				Quantity:          row.Quantity,
				TotalPriceCents:   row.TotalPriceCents,
				RequestedAt:       row.RequestedAt,
			},
		}); err != nil {
			return err
		}

		result = row
		outcome = "reserved"
		return nil
	})
	if err != nil {
		// Two first-time calls with the same key can race past the
		// lookup; the loser's insert hits the (buyer_id,
		// idempotency_key) unique index after its transaction rolled
		// back, so the winner's committed request is replayed instead.
		if key := strings.TrimSpace(input.IdempotencyKey); key != "" && errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, recoverErr := s.recoverDuplicate(ctx, buyerID, input, key)
			if recoverErr != nil {
				return nil, "reused", recoverErr
			}
			if existing != nil {
				return NewPurchaseRequestDTO(existing), "replayed", nil
			}
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, strings.ToLower(string(typed.Code())), err
		}
		return nil, "error", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"purchase_request_id": result.ID.String(),
			"listing_id":          result.ListingID.String(),
			"quantity":            result.Quantity,
			"outcome":             outcome,
		})
		s.logg.Info(logCtx, "reservation processed")
	}
	return NewPurchaseRequestDTO(result), outcome, nil
}

func (s *service) recoverDuplicate(ctx context.Context, buyerID uuid.UUID, input ReserveInput, key string) (*models.PurchaseRequest, error) {
	existing, err := s.repo.FindByBuyerAndKey(ctx, buyerID, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lookup idempotency key")
	}
	if existing == nil {
		return nil, nil
	}
	if existing.ListingID != input.ListingID || existing.Quantity != input.Quantity {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request")
	}
	return existing, nil
}

// GetRequest returns a request visible to its buyer or seller.
func (s *service) GetRequest(ctx context.Context, userID, requestID uuid.UUID) (*PurchaseRequestDTO, error) {
	row, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase request")
	}
	if row.BuyerID != userID && row.SellerID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "purchase request is not visible to user")
	}
	return NewPurchaseRequestDTO(row), nil
}

// ListRequests lists the caller's requests, as seller by default.
func (s *service) ListRequests(ctx context.Context, userID uuid.UUID, input ListRequestsInput) ([]PurchaseRequestDTO, error) {
	var rows []models.PurchaseRequest
	var err error
	if input.AsBuyer {
		rows, err = s.repo.ListByBuyer(ctx, userID)
	} else {
		rows, err = s.repo.ListBySeller(ctx, userID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase requests")
	}

	dtos := make([]PurchaseRequestDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewPurchaseRequestDTO(&rows[i]))
	}
	return dtos, nil
}
