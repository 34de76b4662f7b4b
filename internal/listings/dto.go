package listing

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinocave/vinocave-backend/pkg/db/models"
	"github.com/vinocave/vinocave-backend/pkg/enums"
)

// WineSummary is the catalog slice shown alongside a listing.
type WineSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Producer *string   `json:"producer,omitempty"`
	Vintage  *int      `json:"vintage,omitempty"`
	Region   *string   `json:"region,omitempty"`
	Grapes   []string  `json:"grapes,omitempty"`
}

// ListingDTO is the API shape of a listing.
type ListingDTO struct {
	ID                uuid.UUID           `json:"id"`
	WineID            uuid.UUID           `json:"wineId"`
	SellerID          uuid.UUID           `json:"sellerId"`
	UnitPriceCents    int64               `json:"unitPriceCents"`
	Currency          enums.Currency      `json:"currency"`
	TotalQuantity     int                 `json:"totalQuantity"`
	QuantityCommitted int                 `json:"quantityCommitted"`
	AvailableQuantity int                 `json:"availableQuantity"`
	Condition         *string             `json:"condition,omitempty"`
	Status            enums.ListingStatus `json:"status"`
	Wine              *WineSummary        `json:"wine,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// ListResult pages listings with an opaque cursor.
type ListResult struct {
	Listings   []ListingDTO `json:"listings"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

// NewListingDTO maps a listing row (with optional preloaded wine) to its DTO.
func NewListingDTO(row *models.Listing) *ListingDTO {
	if row == nil {
		return nil
	}
	dto := &ListingDTO{
		ID:                row.ID,
		WineID:            row.WineID,
		SellerID:          row.SellerID,
		UnitPriceCents:    row.UnitPriceCents,
		Currency:          row.Currency,
		TotalQuantity:     row.TotalQuantity,
		QuantityCommitted: row.QuantityCommitted,
		AvailableQuantity: row.Available(),
		Condition:         row.Condition,
		Status:            row.Status,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if row.Wine != nil {
		dto.Wine = &WineSummary{
			ID:       row.Wine.ID,
			Name:     row.Wine.Name,
			Producer: row.Wine.Producer,
			Vintage:  row.Wine.Vintage,
			Region:   row.Wine.Region,
			Grapes:   row.Wine.Grapes,
		}
	}
	return dto
}
