package catalog

import (
	"fmt"
	"strings"
	"testing"

	"github.com/agustinromero/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.Product{}))
	return db
}

func newProduct(t *testing.T, db *gorm.DB, name, category string, price string, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:        uuid.New(),
		Name:      name,
		Category:  category,
		UnitPrice: decimal.RequireFromString(price),
		Stock:     stock,
		IsActive:  true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}
