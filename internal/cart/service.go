package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/agustinromero/storefront-backend/internal/catalog"
	"github.com/agustinromero/storefront-backend/pkg/db/models"
	"github.com/agustinromero/storefront-backend/pkg/enums"
	pkgerrors "github.com/agustinromero/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes per-user cart operations.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, productID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	Reset(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
}

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type service struct {
	repo     Repository
	products productReader
}

// NewService constructs a cart service instance.
func NewService(repo Repository, products catalog.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(ctx, cart)
}

// AddItem merges the quantity into the user's cart after a soft availability
// check. Stock is only reserved at checkout, so the check here is advisory and
// covers the merged line quantity.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActive(cart); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	merged := quantity
	for _, item := range cart.Items {
		if item.ProductID == productID {
			merged += item.Quantity
			break
		}
	}
	if merged > product.Stock {
		return nil, pkgerrors.InsufficientStock(productID.String(), merged, product.Stock)
	}

	if err := s.repo.UpsertItem(ctx, &models.CartItem{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  quantity,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert cart item")
	}

	return s.reload(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, productID uuid.UUID) (*CartDTO, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActive(cart); err != nil {
		return nil, err
	}

	// removing an absent line is a no-op success
	if _, err := s.repo.RemoveItem(ctx, cart.ID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: remove cart item")
	}

	return s.reload(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActive(cart); err != nil {
		return nil, err
	}

	if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
	}

	return s.reload(ctx, userID)
}

// Reset returns a committed cart to active use: items are dropped and the
// pointer to the produced order is cleared. Resetting an active cart is the
// same as clearing it.
func (s *service) Reset(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
	}

	cart.Status = enums.CartStatusActive
	cart.CommittedOrderID = nil
	if _, err := s.repo.Save(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reset cart")
	}

	return s.reload(ctx, userID)
}

func (s *service) ensureActive(cart *models.Cart) error {
	if cart.Status != enums.CartStatusCommitted {
		return nil
	}
	orderID := ""
	if cart.CommittedOrderID != nil {
		orderID = cart.CommittedOrderID.String()
	}
	return pkgerrors.AlreadyCommitted(orderID)
}

func (s *service) getOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	created, err := s.repo.Create(ctx, &models.Cart{
		UserID: userID,
		Status: enums.CartStatusActive,
	})
	if err != nil {
		// lost a create race with another request for the same user
		cart, findErr := s.repo.FindByUser(ctx, userID)
		if findErr == nil {
			return cart, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create cart")
	}
	return created, nil
}

func (s *service) reload(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return s.toDTO(ctx, cart)
}

func (s *service) toDTO(ctx context.Context, cart *models.Cart) (*CartDTO, error) {
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}

	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	return NewCartDTO(cart, byID), nil
}
