package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agustinromero/storefront-backend/pkg/db/models"
	pkgerrors "github.com/agustinromero/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes catalog read and stock management operations.
type Service interface {
	Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	Search(ctx context.Context, input SearchInput) ([]ProductDTO, error)
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (*ProductDTO, error)
}

// SearchInput holds the validated catalog search filters.
type SearchInput struct {
	Text     string
	Category string
	Limit    int
	Offset   int
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Description *string
	Category    string
	UnitPrice   decimal.Decimal
	Stock       int
	IsActive    bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Category    *string
	UnitPrice   *decimal.Decimal
	IsActive    *bool
}

const defaultSearchLimit = 50

type service struct {
	repo Repository
}

// NewService constructs a catalog service instance.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(product), nil
}

func (s *service) Search(ctx context.Context, input SearchInput) ([]ProductDTO, error) {
	limit := input.Limit
	if limit <= 0 || limit > defaultSearchLimit {
		limit = defaultSearchLimit
	}
	products, err := s.repo.Search(ctx, SearchQuery{
		Text:     input.Text,
		Category: input.Category,
		Limit:    limit,
		Offset:   input.Offset,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search products")
	}
	return NewProductDTOs(products), nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit_price must be non-negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}

	product := &models.Product{
		Name:        name,
		Description: input.Description,
		Category:    category,
		UnitPrice:   input.UnitPrice,
		Stock:       input.Stock,
		IsActive:    input.IsActive,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(created), nil
}

func (s *service) Update(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
		}
		product.Category = category
	}
	if input.UnitPrice != nil {
		if input.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit_price must be non-negative")
		}
		product.UnitPrice = *input.UnitPrice
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	return NewProductDTO(updated), nil
}

// AdjustStock applies a relative delta to a product's stock. Negative deltas
// that would take stock below zero are rejected with the current availability.
func (s *service) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (*ProductDTO, error) {
	if delta == 0 {
		return s.Get(ctx, productID)
	}

	if err := s.repo.AdjustStock(ctx, productID, delta); err != nil {
		if !errors.Is(err, ErrStockConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: adjust stock")
		}

		product, findErr := s.repo.FindByID(ctx, productID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load product")
		}
		return nil, pkgerrors.InsufficientStock(product.ID.String(), -delta, product.Stock)
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(product), nil
}
