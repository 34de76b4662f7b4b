package sales

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinocave/vinocave-backend/pkg/db/models"
	"github.com/vinocave/vinocave-backend/pkg/enums"
)

// SaleDTO is the API shape of a confirmed sale.
type SaleDTO struct {
	ID                  uuid.UUID      `json:"id"`
	PurchaseRequestID   uuid.UUID      `json:"purchaseRequestId"`
	ListingID           uuid.UUID      `json:"listingId"`
	SellerID            uuid.UUID      `json:"sellerId"`
	BuyerID             uuid.UUID      `json:"buyerId"`
	TotalPriceCents     int64          `json:"totalPriceCents"`
	MarketplaceFeeCents int64          `json:"marketplaceFeeCents"`
	SellerEarningsCents int64          `json:"sellerEarningsCents"`
	FeePolicyVersion    int            `json:"feePolicyVersion"`
	Currency            enums.Currency `json:"currency"`
	ConfirmedAt         time.Time      `json:"confirmedAt"`
}

// NewSaleDTO maps a sale record row to its DTO.
func NewSaleDTO(row *models.SaleRecord) *SaleDTO {
	if row == nil {
		return nil
	}
	return &SaleDTO{
		ID:                  row.ID,
		PurchaseRequestID:   row.PurchaseRequestID,
		ListingID:           row.ListingID,
		SellerID:            row.SellerID,
		BuyerID:             row.BuyerID,
		TotalPriceCents:     row.TotalPriceCents,
		MarketplaceFeeCents: row.MarketplaceFeeCents,
		SellerEarningsCents: row.SellerEarningsCents,
		FeePolicyVersion:    row.FeePolicyVersion,
		Currency:            row.Currency,
		ConfirmedAt:         row.ConfirmedAt,
	}
}
