package cellar

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vinocave/vinocave-backend/pkg/db/models"
	pkgerrors "github.com/vinocave/vinocave-backend/pkg/errors"
)

func newCellarTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cellar_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS wines (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL,
  producer TEXT,
  vintage INTEGER,
  region TEXT,
  grapes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedWine(t *testing.T, db *gorm.DB, ownerID uuid.UUID) models.Wine {
	t.Helper()
	producer := "Domaine Leflaive"
	vintage := 2019
	wine := models.Wine{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Name:     "Puligny-Montrachet",
		Producer: &producer,
		Vintage:  &vintage,
		Grapes:   pq.StringArray{"chardonnay"},
	}
	require.NoError(t, db.Create(&wine).Error)
	return wine
}

func TestGetWine(t *testing.T) {
	db := newCellarTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	owner := uuid.New()
	seeded := seedWine(t, db, owner)

	got, err := svc.GetWine(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, got.ID)
	require.NotNil(t, got.Producer)
	assert.Equal(t, "Domaine Leflaive", *got.Producer)
	assert.Equal(t, pq.StringArray{"chardonnay"}, got.Grapes)
}

func TestGetWineNotFound(t *testing.T) {
	db := newCellarTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	_, err = svc.GetWine(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestEnsureOwnership(t *testing.T) {
	db := newCellarTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	owner := uuid.New()
	seeded := seedWine(t, db, owner)

	_, err = svc.EnsureOwnership(context.Background(), owner, seeded.ID)
	require.NoError(t, err)

	_, err = svc.EnsureOwnership(context.Background(), uuid.New(), seeded.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestListMyWines(t *testing.T) {
	db := newCellarTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	owner := uuid.New()
	first := seedWine(t, db, owner)
	seedWine(t, db, owner)
	seedWine(t, db, uuid.New())

	rows, err := svc.ListMyWines(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		if row.ID == first.ID {
			assert.Equal(t, first.Name, row.Name)
			require.NotNil(t, row.Producer)
			assert.Equal(t, *first.Producer, *row.Producer)
		}
	}
}
