package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinocave/vinocave-backend/pkg/enums"
)

// PurchaseRequest is a buyer's claim against a listing's inventory.
// UnitPriceCents and TotalPriceCents are snapshots taken when the
// reservation is made and never change, whatever the seller later does
// to the listing price.
type PurchaseRequest struct {
	ID              uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID       uuid.UUID                   `gorm:"column:listing_id;type:uuid;not null"`
	WineID          uuid.UUID                   `gorm:"column:wine_id;type:uuid;not null"`
	BuyerID         uuid.UUID                   `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex:idx_purchase_requests_buyer_idem"`
	SellerID        uuid.UUID                   `gorm:"column:seller_id;type:uuid;not null"`
	Quantity        int                         `gorm:"column:quantity;not null"`
	UnitPriceCents  int64                       `gorm:"column:unit_price_cents;not null"`
	TotalPriceCents int64                       `gorm:"column:total_price_cents;not null"`
	Currency        enums.Currency              `gorm:"column:currency;type:text;not null;default:'EUR'"`
	Status          enums.PurchaseRequestStatus `gorm:"column:status;type:text;not null;default:'pending_confirmation'"`
	IdempotencyKey  *string                     `gorm:"column:idempotency_key;uniqueIndex:idx_purchase_requests_buyer_idem"`
	RejectReason    *string                     `gorm:"column:reject_reason"`
	RequestedAt     time.Time                   `gorm:"column:requested_at;autoCreateTime"`
	ResolvedAt      *time.Time                  `gorm:"column:resolved_at"`
	CreatedAt       time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
