package models

import (
	"ets/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is an attendee's intent to purchase ticket lines for an event.
// Created in pending; moved exactly once to paid or cancelled by the
// settlement pipeline. Never deleted.
type Order struct {
	ID           uuid.UUID         `gorm:"primarykey;type:uuid" json:"id"`
	UserID       uint              `json:"user_id,omitempty"`
	ProfileID    uint              `json:"profile_id,omitempty"`
	EventID      uint              `json:"event_id,omitempty"`
	Status       types.OrderStatus `gorm:"default:'pending'" json:"status,omitempty"`
	PaymentID    *uuid.UUID        `gorm:"type:uuid" json:"payment_id,omitempty"`
	CancelReason *string           `json:"cancel_reason,omitempty"`

	Event   *Event      `gorm:"foreignKey:event_id" json:"event,omitempty"`
	User    *User       `gorm:"foreignKey:user_id" json:"-"`
	Items   []OrderItem `json:"items,omitempty"`
	Payment *Payment    `gorm:"foreignKey:payment_id" json:"payment,omitempty"`

	types.Timestamps
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem records the price actually charged for a line, not the live
// TicketType price. Immutable after issuance.
type OrderItem struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	OrderID      uuid.UUID `gorm:"type:uuid" json:"order_id,omitempty"`
	TicketTypeID uint      `json:"ticket_type_id,omitempty"`
	Quantity     uint      `json:"quantity"`
	Price        int64     `json:"price"`

	Order      *Order      `gorm:"foreignKey:order_id" json:"-"`
	TicketType *TicketType `json:"ticket_type,omitempty"`
	Tickets    []Ticket    `json:"tickets,omitempty"`

	types.Timestamps
}
