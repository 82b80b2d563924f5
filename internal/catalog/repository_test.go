package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailerp-backend/pkg/db/dbtest"
	"github.com/angelmondragon/retailerp-backend/pkg/db/models"
)

// seedProducts inserts products the way the back-office catalog import does.
func seedProducts(t *testing.T, db *gorm.DB, products ...*models.Product) {
	t.Helper()
	for _, p := range products {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		require.NoError(t, db.Create(p).Error)
	}
}

func TestRepositoryLookups(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	mug := models.Product{SKU: "MUG-01", Name: "Blue Mug", Price: decimal.RequireFromString("8.50"), AvailableQty: decimal.NewNullDecimal(decimal.NewFromInt(12))}
	pen := models.Product{SKU: "PEN-01", Name: "Pen 50% off", Price: decimal.RequireFromString("1.25")}
	seedProducts(t, db, &mug, &pen)

	found, err := repo.FindByID(ctx, mug.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "8.5", found.Price.String())
	assert.True(t, found.AvailableQty.Valid)

	missing, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	byName, err := repo.FindByName(ctx, "  BLUE mug ")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, mug.ID, byName.ID)

	results, err := repo.Search(ctx, "mu", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, mug.ID, results[0].ID)

	results, err = repo.Search(ctx, "pen-", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = repo.Search(ctx, "50%", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, pen.ID, results[0].ID)

	stock, err := repo.StockFor(ctx, []uuid.UUID{mug.ID, pen.ID})
	require.NoError(t, err)
	require.Len(t, stock, 2)
}

func TestRepositoryHidesInactiveProducts(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	retired := models.Product{SKU: "OLD-01", Name: "Retired", Price: decimal.NewFromInt(1)}
	seedProducts(t, db, &retired)
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", retired.ID).Update("is_active", false).Error)

	found, err := repo.FindByID(ctx, retired.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	results, err := repo.Search(ctx, "retired", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
