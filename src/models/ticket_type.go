package models

import (
	"ets/src/types"
	"time"
)

// TicketType is a class of ticket offered for an event. The settlement
// pipeline treats it as a read-only price and cap reference; authoring
// belongs to the organizer surface.
type TicketType struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	EventID      uint       `json:"event_id,omitempty"`
	Name         string     `json:"name,omitempty"`
	Price        int64      `json:"price"`
	Currency     string     `json:"currency,omitempty"`
	Quantity     uint       `json:"quantity"`
	MaxPerOrder  uint       `json:"max_per_order,omitempty"`
	SaleStartsAt *time.Time `json:"sale_starts_at,omitempty"`
	SaleEndsAt   *time.Time `json:"sale_ends_at,omitempty"`
	VisibleFrom  *time.Time `json:"visible_from,omitempty"`
	VisibleUntil *time.Time `json:"visible_until,omitempty"`

	Event *Event `json:"event,omitempty"`

	Stats *TicketTypeStats `gorm:"-" json:"stats,omitempty"`

	types.Timestamps
}

type TicketTypeStats struct {
	TicketTypeID uint `json:"ticket_type_id,omitempty"`
	Free         uint `json:"free"`
	Sold         uint `json:"sold"`
}

// OnSale reports whether the type can be checked out at t.
func (t *TicketType) OnSale(at time.Time) bool {
	if t.SaleStartsAt != nil && at.Before(*t.SaleStartsAt) {
		return false
	}
	if t.SaleEndsAt != nil && at.After(*t.SaleEndsAt) {
		return false
	}
	return true
}
