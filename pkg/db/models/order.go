package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agustinromero/storefront-backend/pkg/types"
)

// Order is the immutable result of a successful checkout. Subtotal and tax
// are stored exact; only the grand total carries currency rounding.
type Order struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	Address    types.Address   `gorm:"column:address;type:jsonb;serializer:json"`
	PaymentRef string          `gorm:"column:payment_ref;not null"`
	Subtotal   decimal.Decimal `gorm:"column:subtotal;type:numeric(14,4);not null"`
	TaxTotal   decimal.Decimal `gorm:"column:tax_total;type:numeric(14,4);not null"`
	Shipping   decimal.Decimal `gorm:"column:shipping;type:numeric(12,2);not null"`
	Total      decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	Lines      []OrderLine     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
