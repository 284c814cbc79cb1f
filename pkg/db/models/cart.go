package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agustinromero/storefront-backend/pkg/enums"
)

// Cart is the per-user basket. Created lazily on the first add and never
// deleted; a committed cart keeps a pointer to the order it produced until
// it is explicitly reset for reuse.
type Cart struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Status           enums.CartStatus `gorm:"column:status;not null;default:'active'"`
	CommittedOrderID *uuid.UUID       `gorm:"column:committed_order_id;type:uuid"`
	Items            []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
