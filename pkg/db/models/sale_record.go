package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinocave/vinocave-backend/pkg/enums"
)

// SaleRecord is the immutable ledger entry written once when a purchase
// request is confirmed. Rows are append-only; seller earnings are always
// derivable by replaying them.
type SaleRecord struct {
	ID                  uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaseRequestID   uuid.UUID      `gorm:"column:purchase_request_id;type:uuid;not null;uniqueIndex"`
	ListingID           uuid.UUID      `gorm:"column:listing_id;type:uuid;not null"`
	SellerID            uuid.UUID      `gorm:"column:seller_id;type:uuid;not null;index"`
	BuyerID             uuid.UUID      `gorm:"column:buyer_id;type:uuid;not null"`
	TotalPriceCents     int64          `gorm:"column:total_price_cents;not null"`
	MarketplaceFeeCents int64          `gorm:"column:marketplace_fee_cents;not null"`
	SellerEarningsCents int64          `gorm:"column:seller_earnings_cents;not null"`
	FeePolicyVersion    int            `gorm:"column:fee_policy_version;not null"`
	Currency            enums.Currency `gorm:"column:currency;type:text;not null;default:'EUR'"`
	ConfirmedAt         time.Time      `gorm:"column:confirmed_at;not null"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
}
