package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	reservation "github.com/vinocave/vinocave-backend/internal/reservations"
	"github.com/vinocave/vinocave-backend/pkg/db"
	"github.com/vinocave/vinocave-backend/pkg/db/models"
	"github.com/vinocave/vinocave-backend/pkg/enums"
	pkgerrors "github.com/vinocave/vinocave-backend/pkg/errors"
	"github.com/vinocave/vinocave-backend/pkg/logger"
	"github.com/vinocave/vinocave-backend/pkg/metrics"
	"github.com/vinocave/vinocave-backend/pkg/outbox"
	"github.com/vinocave/vinocave-backend/pkg/outbox/payloads"
)

// ResolveAction is the seller's decision on a pending request.
type ResolveAction string

const (
	ActionConfirm ResolveAction = "confirm"
	ActionReject  ResolveAction = "reject"
)

// ParseResolveAction converts raw input into a ResolveAction.
func ParseResolveAction(value string) (ResolveAction, error) {
	switch ResolveAction(value) {
	case ActionConfirm:
		return ActionConfirm, nil
	case ActionReject:
		return ActionReject, nil
	}
	return "", fmt.Errorf("invalid action %q", value)
}

// Service runs the sale confirmation workflow: each pending request is
// confirmed, rejected, or cancelled exactly once.
type Service interface {
	Confirm(ctx context.Context, sellerID, requestID uuid.UUID) (*SaleDTO, error)
	Reject(ctx context.Context, sellerID, requestID uuid.UUID, reason string) (*reservation.PurchaseRequestDTO, error)
	Cancel(ctx context.Context, buyerID, requestID uuid.UUID) (*reservation.PurchaseRequestDTO, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	events   eventEmitter
	policy   FeePolicy
	logg     *logger.Logger
	metrics  *metrics.MarketplaceMetrics
}

// NewService constructs the sale confirmation workflow.
func NewService(repo *Repository, dbClient *db.Client, events eventEmitter, policy FeePolicy, logg *logger.Logger, m *metrics.MarketplaceMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if policy.Version == 0 {
		return nil, fmt.Errorf("fee policy required")
	}
	return &service{repo: repo, dbClient: dbClient, events: events, policy: policy, logg: logg, metrics: m}, nil
}

// Confirm finalizes the sale: flips the request, computes the fee split
// under the current policy, and appends the immutable ledger row, all
// in one transaction. Bottles stay committed; they are sold now.
func (s *service) Confirm(ctx context.Context, sellerID, requestID uuid.UUID) (*SaleDTO, error) {
	var sale *models.SaleRecord
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		request, err := s.loadForSeller(ctx, txRepo, sellerID, requestID)
		if err != nil {
			return err
		}

		confirmedAt := time.Now()
		affected, err := txRepo.MarkResolved(ctx, requestID, enums.PurchaseRequestStatusConfirmed, nil, confirmedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: confirm purchase request")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeAlreadyResolved, "purchase request already resolved")
		}

		feeCents, earningsCents := s.policy.Split(request.TotalPriceCents)
		sale = &models.SaleRecord{
			ID:                  uuid.New(),
			PurchaseRequestID:   request.ID,
			ListingID:           request.ListingID,
			SellerID:            request.SellerID,
			BuyerID:             request.BuyerID,
			TotalPriceCents:     request.TotalPriceCents,
			MarketplaceFeeCents: feeCents,
			SellerEarningsCents: earningsCents,
			FeePolicyVersion:    s.policy.Version,
			Currency:            request.Currency,
			ConfirmedAt:         confirmedAt,
		}
		if _, err := txRepo.InsertSaleRecord(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert sale record")
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSaleConfirmed,
			AggregateType: enums.AggregateSaleRecord,
			AggregateID:   sale.ID,
			Actor:         &outbox.ActorRef{UserID: sellerID},
			Version:       1,
			Data: payloads.SaleConfirmedEvent{
				SaleRecordID:        sale.ID,
				PurchaseRequestID:   sale.PurchaseRequestID,
				ListingID:           sale.ListingID,
				SellerID:            sale.SellerID,
				BuyerID:             sale.BuyerID,
				TotalPriceCents:     sale.TotalPriceCents,
				MarketplaceFeeCents: sale.MarketplaceFeeCents,
				SellerEarningsCents: sale.SellerEarningsCents,
				FeePolicyVersion:    sale.FeePolicyVersion,
				Currency:            sale.Currency,
				ConfirmedAt:         sale.ConfirmedAt,
			},
		})
	})
	if err != nil {
		s.metrics.IncSaleOutcome("confirm_failed")
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm sale")
	}

	s.metrics.IncSaleOutcome("confirmed")
	s.logResolution(ctx, requestID, "confirmed")
	return NewSaleDTO(sale), nil
}

// Reject declines the request and returns the bottles to the listing.
// A blank reason stays null rather than being stored as empty text.
func (s *service) Reject(ctx context.Context, sellerID, requestID uuid.UUID, reason string) (*reservation.PurchaseRequestDTO, error) {
	var reasonPtr *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		reasonPtr = &trimmed
	}
	dto, err := s.resolveAndRelease(ctx, requestID, enums.PurchaseRequestStatusRejected, reasonPtr, func(ctx context.Context, txRepo *Repository) (*models.PurchaseRequest, error) {
		return s.loadForSeller(ctx, txRepo, sellerID, requestID)
	})
	if err != nil {
		s.metrics.IncSaleOutcome("reject_failed")
		return nil, err
	}
	s.metrics.IncSaleOutcome("rejected")
	s.logResolution(ctx, requestID, "rejected")
	return dto, nil
}

// Cancel lets the buyer withdraw a still-pending request.
func (s *service) Cancel(ctx context.Context, buyerID, requestID uuid.UUID) (*reservation.PurchaseRequestDTO, error) {
	dto, err := s.resolveAndRelease(ctx, requestID, enums.PurchaseRequestStatusCancelled, nil, func(ctx context.Context, txRepo *Repository) (*models.PurchaseRequest, error) {
		request, err := s.loadRequest(ctx, txRepo, requestID)
		if err != nil {
			return nil, err
		}
		if request.BuyerID != buyerID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "purchase request does not belong to buyer")
		}
		return request, nil
	})
	if err != nil {
		s.metrics.IncSaleOutcome("cancel_failed")
		return nil, err
	}
	s.metrics.IncSaleOutcome("cancelled")
	s.logResolution(ctx, requestID, "cancelled")
	return dto, nil
}

func (s *service) resolveAndRelease(
	ctx context.Context,
	requestID uuid.UUID,
	status enums.PurchaseRequestStatus,
	reason *string,
	authorize func(ctx context.Context, txRepo *Repository) (*models.PurchaseRequest, error),
) (*reservation.PurchaseRequestDTO, error) {
	var resolved *models.PurchaseRequest
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		request, err := authorize(ctx, txRepo)
		if err != nil {
			return err
		}

		resolvedAt := time.Now()
		affected, err := txRepo.MarkResolved(ctx, requestID, status, reason, resolvedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: resolve purchase request")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeAlreadyResolved, "purchase request already resolved")
		}

		// reject/cancel frees exactly the bottles this request held
		released, err := txRepo.ReleaseQuantity(ctx, request.ListingID, request.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: release quantity")
		}
		if released == 0 {
			return pkgerrors.New(pkgerrors.CodeInternal, "listing commitment underflow")
		}

		request.Status = status
		request.ResolvedAt = &resolvedAt
		if reason != nil {
			request.RejectReason = reason
		}
		resolved = request

		reasonText := ""
		if reason != nil {
			reasonText = *reason
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseRequestResolved,
			AggregateType: enums.AggregatePurchaseRequest,
			AggregateID:   request.ID,
			Version:       1,
			Data: payloads.PurchaseRequestResolvedEvent{
				PurchaseRequestID: request.ID,
				ListingID:         request.ListingID,
				BuyerID:           request.BuyerID,
				SellerID:          request.SellerID,
				Status:            status,
				Reason:            reasonText,
				ResolvedAt:        resolvedAt,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve purchase request")
	}
	return reservation.NewPurchaseRequestDTO(resolved), nil
}

func (s *service) loadRequest(ctx context.Context, txRepo *Repository, requestID uuid.UUID) (*models.PurchaseRequest, error) {
	request, err := txRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase request")
	}
	return request, nil
}

func (s *service) loadForSeller(ctx context.Context, txRepo *Repository, sellerID, requestID uuid.UUID) (*models.PurchaseRequest, error) {
	request, err := s.loadRequest(ctx, txRepo, requestID)
	if err != nil {
		return nil, err
	}
	if request.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "purchase request does not belong to seller")
	}
	return request, nil
}

func (s *service) logResolution(ctx context.Context, requestID uuid.UUID, outcome string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"purchase_request_id": requestID.String(),
		"outcome":             outcome,
	})
	s.logg.Info(logCtx, "purchase request resolved")
}
