package orders

import (
	"time"

	"github.com/agustinromero/storefront-backend/pkg/db/models"
	"github.com/agustinromero/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineDTO is one purchased product snapshot.
type OrderLineDTO struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// OrderDTO is the full order representation returned to its owner.
type OrderDTO struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Address    types.Address   `json:"address"`
	PaymentRef string          `json:"payment_ref"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TaxTotal   decimal.Decimal `json:"tax_total"`
	Shipping   decimal.Decimal `json:"shipping"`
	Total      decimal.Decimal `json:"total"`
	Lines      []OrderLineDTO  `json:"lines"`
	CreatedAt  time.Time       `json:"created_at"`
}

// OrderSummaryDTO is the compact shape used by the order list.
type OrderSummaryDTO struct {
	ID         uuid.UUID       `json:"id"`
	Total      decimal.Decimal `json:"total"`
	TotalItems int             `json:"total_items"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewOrderDTO maps an order row plus its lines into the API shape.
func NewOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}

	lines := make([]OrderLineDTO, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, OrderLineDTO{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Category:    line.Category,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			LineTotal:   line.LineTotal,
		})
	}

	return &OrderDTO{
		ID:         order.ID,
		UserID:     order.UserID,
		Address:    order.Address,
		PaymentRef: order.PaymentRef,
		Subtotal:   order.Subtotal,
		TaxTotal:   order.TaxTotal,
		Shipping:   order.Shipping,
		Total:      order.Total,
		Lines:      lines,
		CreatedAt:  order.CreatedAt,
	}
}

// NewOrderSummaryDTO maps an order row into its list shape.
func NewOrderSummaryDTO(order *models.Order) OrderSummaryDTO {
	totalItems := 0
	for _, line := range order.Lines {
		totalItems += line.Quantity
	}
	return OrderSummaryDTO{
		ID:         order.ID,
		Total:      order.Total,
		TotalItems: totalItems,
		CreatedAt:  order.CreatedAt,
	}
}
