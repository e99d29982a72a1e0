package models

import (
	"ets/src/types"
	"time"
)

// Ticket is one issued, purchasable unit tied to an order line. Rows
// exist if and only if the owning order is paid, created in one batch
// per order during issuance.
type Ticket struct {
	ID           uint               `gorm:"primarykey" json:"id"`
	EventID      uint               `json:"event_id,omitempty"`
	OrderItemID  uint               `json:"order_item_id,omitempty"`
	UserID       uint               `json:"user_id,omitempty"`
	ProfileID    uint               `json:"profile_id,omitempty"`
	PurchaseDate time.Time          `json:"purchase_date,omitempty"`
	Status       types.TicketStatus `gorm:"default:'active'" json:"status,omitempty"`

	Event     *Event     `gorm:"foreignKey:event_id" json:"event,omitempty"`
	OrderItem *OrderItem `json:"order_item,omitempty"`

	types.Timestamps
}
