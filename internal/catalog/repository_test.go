package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryAdjustStock(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := newProduct(t, db, "Desk Lamp", "home", "35.00", 10)

	require.NoError(t, repo.AdjustStock(ctx, product.ID, -4))

	reloaded, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, reloaded.Stock)

	require.NoError(t, repo.AdjustStock(ctx, product.ID, 2))

	reloaded, err = repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, reloaded.Stock)
}

func TestRepositoryAdjustStockRejectsNegativeResult(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := newProduct(t, db, "Desk Lamp", "home", "35.00", 3)

	err := repo.AdjustStock(ctx, product.ID, -4)
	require.ErrorIs(t, err, ErrStockConflict)

	// stock untouched after the rejected adjustment
	reloaded, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Stock)
}

func TestRepositoryAdjustStockMissingProduct(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	err := repo.AdjustStock(context.Background(), uuid.New(), -1)
	require.ErrorIs(t, err, ErrStockConflict)
}

func TestRepositorySearchFilters(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	newProduct(t, db, "Wireless Mouse", "electronics", "25.00", 5)
	newProduct(t, db, "Mechanical Keyboard", "electronics", "90.00", 5)
	newProduct(t, db, "Mouse Pad", "accessories", "8.00", 5)

	inactive := newProduct(t, db, "Old Mouse", "electronics", "10.00", 5)
	inactive.IsActive = false
	require.NoError(t, db.Save(inactive).Error)

	results, err := repo.Search(ctx, SearchQuery{Text: "mouse"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	results, err = repo.Search(ctx, SearchQuery{Text: "mouse", Category: "Electronics"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Wireless Mouse", results[0].Name)

	results, err = repo.Search(ctx, SearchQuery{Category: "electronics"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRepositorySearchMatchesDescription(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := newProduct(t, db, "Mechanical Keyboard", "electronics", "90.00", 5)
	description := "Ergonomic wrist rest included"
	product.Description = &description
	require.NoError(t, db.Save(product).Error)

	results, err := repo.Search(ctx, SearchQuery{Text: "wrist"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Mechanical Keyboard", results[0].Name)
}

func TestRepositorySearchLimitOffset(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	newProduct(t, db, "Alpha", "misc", "1.00", 1)
	newProduct(t, db, "Beta", "misc", "1.00", 1)
	newProduct(t, db, "Gamma", "misc", "1.00", 1)

	results, err := repo.Search(ctx, SearchQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Alpha", results[0].Name)

	results, err = repo.Search(ctx, SearchQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Gamma", results[0].Name)
}

func TestRepositoryFindByIDs(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first := newProduct(t, db, "Alpha", "misc", "1.00", 1)
	second := newProduct(t, db, "Beta", "misc", "1.00", 1)
	newProduct(t, db, "Gamma", "misc", "1.00", 1)

	products, err := repo.FindByIDs(ctx, []uuid.UUID{first.ID, second.ID})
	require.NoError(t, err)
	assert.Len(t, products, 2)

	products, err = repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, products)
}
