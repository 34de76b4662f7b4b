package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Wine is the cellar catalog entry a listing points at. The catalog is
// owned by the cellar service; this module only reads it for ownership
// checks and marketplace display.
type Wine struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID   uuid.UUID      `gorm:"column:owner_id;type:uuid;not null"`
	Name      string         `gorm:"column:name;not null"`
	Producer  *string        `gorm:"column:producer"`
	Vintage   *int           `gorm:"column:vintage"`
	Region    *string        `gorm:"column:region"`
	Grapes    pq.StringArray `gorm:"column:grapes;type:text[]"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
