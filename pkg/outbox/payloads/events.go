package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinocave/vinocave-backend/pkg/enums"
)

// ListingCreatedEvent signals a new listing entering the marketplace feed.
type ListingCreatedEvent struct {
	ListingID      uuid.UUID      `json:"listing_id"`
	WineID         uuid.UUID      `json:"wine_id"`
	SellerID       uuid.UUID      `json:"seller_id"`
	UnitPriceCents int64          `json:"unit_price_cents"`
	Currency       enums.Currency `json:"currency"`
	TotalQuantity  int            `json:"total_quantity"`
}

// PurchaseRequestCreatedEvent tells downstream systems to notify the seller.
type PurchaseRequestCreatedEvent struct {
	PurchaseRequestID uuid.UUID `json:"purchase_request_id"`
	ListingID         uuid.UUID `json:"listing_id"`
	BuyerID           uuid.UUID `json:"buyer_id"`
	SellerID          uuid.UUID `json:"seller_id"`
	Quantity          int       `json:"quantity"`
	TotalPriceCents   int64     `json:"total_price_cents"`
	RequestedAt       time.Time `json:"requested_at"`
}

// PurchaseRequestResolvedEvent is emitted when a request leaves the pending state.
type PurchaseRequestResolvedEvent struct {
	PurchaseRequestID uuid.UUID                   `json:"purchase_request_id"`
	ListingID         uuid.UUID                   `json:"listing_id"`
	BuyerID           uuid.UUID                   `json:"buyer_id"`
	SellerID          uuid.UUID                   `json:"seller_id"`
	Status            enums.PurchaseRequestStatus `json:"status"`
	Reason            string                      `json:"reason,omitempty"`
	ResolvedAt        time.Time                   `json:"resolved_at"`
}

// SaleConfirmedEvent carries the financial breakdown for payment triggers.
type SaleConfirmedEvent struct {
	SaleRecordID        uuid.UUID      `json:"sale_record_id"`
	PurchaseRequestID   uuid.UUID      `json:"purchase_request_id"`
	ListingID           uuid.UUID      `json:"listing_id"`
	SellerID            uuid.UUID      `json:"seller_id"`
	BuyerID             uuid.UUID      `json:"buyer_id"`
	TotalPriceCents     int64          `json:"total_price_cents"`
	MarketplaceFeeCents int64          `json:"marketplace_fee_cents"`
	SellerEarningsCents int64          `json:"seller_earnings_cents"`
	FeePolicyVersion    int            `json:"fee_policy_version"`
	Currency            enums.Currency `json:"currency"`
	ConfirmedAt         time.Time      `json:"confirmed_at"`
}
