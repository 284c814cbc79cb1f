package cart

import (
	"time"

	"github.com/agustinromero/storefront-backend/pkg/db/models"
	"github.com/agustinromero/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItemDTO is a cart line joined with its current catalog snapshot.
type CartItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Available int             `json:"available"`
}

// CartDTO is the cart representation returned to callers.
type CartDTO struct {
	ID               uuid.UUID        `json:"id"`
	UserID           uuid.UUID        `json:"user_id"`
	Status           enums.CartStatus `json:"status"`
	CommittedOrderID *uuid.UUID       `json:"committed_order_id,omitempty"`
	Items            []CartItemDTO    `json:"items"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewCartDTO joins cart lines with their product rows. Lines whose product has
// disappeared from the catalog are still listed with the bare product id.
func NewCartDTO(cart *models.Cart, products map[uuid.UUID]models.Product) *CartDTO {
	if cart == nil {
		return nil
	}

	items := make([]CartItemDTO, 0, len(cart.Items))
	for _, item := range cart.Items {
		dto := CartItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		if product, ok := products[item.ProductID]; ok {
			dto.Name = product.Name
			dto.Category = product.Category
			dto.UnitPrice = product.UnitPrice
			dto.Available = product.Stock
		}
		items = append(items, dto)
	}

	return &CartDTO{
		ID:               cart.ID,
		UserID:           cart.UserID,
		Status:           cart.Status,
		CommittedOrderID: cart.CommittedOrderID,
		Items:            items,
		UpdatedAt:        cart.UpdatedAt,
	}
}
