package earnings

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/vinocave/vinocave-backend/pkg/errors"
)

// SellerSummary is derived by replaying the seller's ledger rows. There
// are no cached counters anywhere; this fold is the source of truth.
type SellerSummary struct {
	SellerID           uuid.UUID         `json:"sellerId"`
	ConfirmedCount     int               `json:"confirmedCount"`
	TotalSalesCents    int64             `json:"totalSalesCents"`
	TotalFeesCents     int64             `json:"totalFeesCents"`
	TotalEarningsCents int64             `json:"totalEarningsCents"`
	Listings           []ListingEarnings `json:"listings"`
}

// ListingEarnings breaks the summary down per listing.
type ListingEarnings struct {
	ListingID      uuid.UUID `json:"listingId"`
	ConfirmedCount int       `json:"confirmedCount"`
	SalesCents     int64     `json:"salesCents"`
	EarningsCents  int64     `json:"earningsCents"`
}

// Service aggregates seller earnings from the sale ledger.
type Service interface {
	SellerSummary(ctx context.Context, sellerID uuid.UUID) (*SellerSummary, error)
}

type service struct {
	repo *Repository
}

// NewService constructs the earnings aggregator.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("earnings repository required")
	}
	return &service{repo: repo}, nil
}

// SellerSummary folds over the seller's sale records.
func (s *service) SellerSummary(ctx context.Context, sellerID uuid.UUID) (*SellerSummary, error) {
	rows, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sale records")
	}

	summary := &SellerSummary{SellerID: sellerID, Listings: []ListingEarnings{}}
	byListing := map[uuid.UUID]int{}
	for _, row := range rows {
		summary.ConfirmedCount++
		summary.TotalSalesCents += row.TotalPriceCents
		summary.TotalFeesCents += row.MarketplaceFeeCents
		summary.TotalEarningsCents += row.SellerEarningsCents

		idx, seen := byListing[row.ListingID]
		if !seen {
			idx = len(summary.Listings)
			byListing[row.ListingID] = idx
			summary.Listings = append(summary.Listings, ListingEarnings{ListingID: row.ListingID})
		}
		summary.Listings[idx].ConfirmedCount++
		summary.Listings[idx].SalesCents += row.TotalPriceCents
		summary.Listings[idx].EarningsCents += row.SellerEarningsCents
	}
	return summary, nil
}
