package models

import (
	"ets/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment is one-to-one with Order at settlement time. The status column
// is the idempotency gate: created -> succeeded (or cancelled) happens
// through a single conditional update, so concurrent gateway callbacks
// serialize on the row in the durable store, not in process memory.
type Payment struct {
	ID            uuid.UUID           `gorm:"primarykey;type:uuid" json:"id"`
	OrderID       uuid.UUID           `gorm:"type:uuid;index" json:"order_id,omitempty"`
	Method        string              `gorm:"default:'card'" json:"method,omitempty"`
	Amount        int64               `json:"amount"`
	Currency      string              `json:"currency,omitempty"`
	Status        types.PaymentStatus `gorm:"default:'created'" json:"status,omitempty"`
	TransactionID string              `json:"transaction_id,omitempty"`

	Order *Order `gorm:"foreignKey:order_id" json:"-"`

	types.Timestamps
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
