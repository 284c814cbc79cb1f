package orders

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/agustinromero/storefront-backend/pkg/db/models"
	pkgerrors "github.com/agustinromero/storefront-backend/pkg/errors"
	"github.com/agustinromero/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderLine{}))
	return db
}

func seedOrder(t *testing.T, repo Repository, userID uuid.UUID, total string, createdAt time.Time) *models.Order {
	t.Helper()

	order, err := repo.Create(context.Background(), &models.Order{
		UserID: userID,
		Address: types.Address{
			Line1:      "Av. Siempre Viva 742",
			City:       "Buenos Aires",
			State:      "BA",
			PostalCode: "1406",
			Country:    "AR",
		},
		PaymentRef: "pay_" + uuid.NewString()[:8],
		Subtotal:   decimal.RequireFromString(total),
		TaxTotal:   decimal.Zero,
		Shipping:   decimal.Zero,
		Total:      decimal.RequireFromString(total),
		Lines: []models.OrderLine{
			{
				ProductID:   uuid.New(),
				ProductName: "Desk Lamp",
				Category:    "home",
				UnitPrice:   decimal.RequireFromString(total),
				Quantity:    1,
				LineTotal:   decimal.RequireFromString(total),
			},
		},
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	return order
}

func TestRepositoryCreateAssignsIDs(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, repo, uuid.New(), "10.00", time.Now())
	assert.NotEqual(t, uuid.Nil, order.ID)
	require.Len(t, order.Lines, 1)
	assert.NotEqual(t, uuid.Nil, order.Lines[0].ID)
	assert.Equal(t, order.ID, order.Lines[0].OrderID)
}

func TestServiceGet(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)

	userID := uuid.New()
	order := seedOrder(t, repo, userID, "413.00", time.Now())

	dto, err := svc.Get(context.Background(), userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, dto.ID)
	assert.True(t, dto.Total.Equal(decimal.RequireFromString("413.00")))
	require.Len(t, dto.Lines, 1)
	assert.Equal(t, "Desk Lamp", dto.Lines[0].ProductName)
}

func TestServiceGetForbiddenForOtherUser(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)

	order := seedOrder(t, repo, uuid.New(), "10.00", time.Now())

	_, err = svc.Get(context.Background(), uuid.New(), order.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestServiceGetNotFound(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), uuid.New(), uuid.New())
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestServiceListByUserInsertionOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)

	userID := uuid.New()
	now := time.Now()
	first := seedOrder(t, repo, userID, "10.00", now.Add(-2*time.Hour))
	second := seedOrder(t, repo, userID, "20.00", now)
	seedOrder(t, repo, uuid.New(), "99.00", now)

	summaries, err := svc.ListByUser(context.Background(), userID, 0, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, first.ID, summaries[0].ID)
	assert.Equal(t, second.ID, summaries[1].ID)
	assert.Equal(t, 1, summaries[0].TotalItems)
}
