package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinocave/vinocave-backend/pkg/enums"
)

// Listing is a seller's offer of N bottles of a wine at a fixed unit
// price. QuantityCommitted mirrors the sum of quantities on pending and
// confirmed purchase requests; every change to it happens through a
// conditional update inside the same transaction as the request
// mutation, so QuantityCommitted <= TotalQuantity holds at all times.
type Listing struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WineID            uuid.UUID           `gorm:"column:wine_id;type:uuid;not null"`
	SellerID          uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	UnitPriceCents    int64               `gorm:"column:unit_price_cents;not null"`
	Currency          enums.Currency      `gorm:"column:currency;type:text;not null;default:'EUR'"`
	TotalQuantity     int                 `gorm:"column:total_quantity;not null"`
	QuantityCommitted int                 `gorm:"column:quantity_committed;not null;default:0"`
	Condition         *string             `gorm:"column:condition"`
	Status            enums.ListingStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Wine              *Wine               `gorm:"foreignKey:WineID"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// Available returns how many bottles remain open to new reservations.
func (l Listing) Available() int {
	return l.TotalQuantity - l.QuantityCommitted
}
