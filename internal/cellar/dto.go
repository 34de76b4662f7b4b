package cellar

import (
	"time"

	"github.com/google/uuid"

	"github.com/vinocave/vinocave-backend/pkg/db/models"
)

// WineDTO is the API shape of a cellar entry.
type WineDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Producer  *string   `json:"producer,omitempty"`
	Vintage   *int      `json:"vintage,omitempty"`
	Region    *string   `json:"region,omitempty"`
	Grapes    []string  `json:"grapes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewWineDTO(row *models.Wine) *WineDTO {
	if row == nil {
		return nil
	}
	return &WineDTO{
		ID:        row.ID,
		Name:      row.Name,
		Producer:  row.Producer,
		Vintage:   row.Vintage,
		Region:    row.Region,
		Grapes:    row.Grapes,
		CreatedAt: row.CreatedAt,
	}
}
