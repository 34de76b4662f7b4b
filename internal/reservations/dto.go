package reservation

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinocave/vinocave-backend/pkg/db/models"
	"github.com/vinocave/vinocave-backend/pkg/enums"
)

// PurchaseRequestDTO is the API shape of a purchase request.
type PurchaseRequestDTO struct {
	ID              uuid.UUID                   `json:"id"`
	ListingID       uuid.UUID                   `json:"listingId"`
	WineID          uuid.UUID                   `json:"wineId"`
	BuyerID         uuid.UUID                   `json:"buyerId"`
	SellerID        uuid.UUID                   `json:"sellerId"`
	Quantity        int                         `json:"quantity"`
	UnitPriceCents  int64                       `json:"unitPriceCents"`
	TotalPriceCents int64                       `json:"totalPriceCents"`
	Currency        enums.Currency              `json:"currency"`
	Status          enums.PurchaseRequestStatus `json:"status"`
	RejectReason    *string                     `json:"rejectReason,omitempty"`
	RequestedAt     time.Time                   `json:"requestedAt"`
	ResolvedAt      *time.Time                  `json:"resolvedAt,omitempty"`
}

// NewPurchaseRequestDTO maps a purchase request row to its DTO.
func NewPurchaseRequestDTO(row *models.PurchaseRequest) *PurchaseRequestDTO {
	if row == nil {
		return nil
	}
	return &PurchaseRequestDTO{
		ID:              row.ID,
		ListingID:       row.ListingID,
		WineID:          row.WineID,
		BuyerID:         row.BuyerID,
		SellerID:        row.SellerID,
		Quantity:        row.Quantity,
		UnitPriceCents:  row.UnitPriceCents,
		TotalPriceCents: row.TotalPriceCents,
		Currency:        row.Currency,
		Status:          row.Status,
		RejectReason:    row.RejectReason,
		RequestedAt:     row.RequestedAt,
		ResolvedAt:      row.ResolvedAt,
	}
}
