package models

import (
	"ets/src/types"
	"time"
)

type Event struct {
	ID          uint              `gorm:"primarykey" json:"id"`
	Title       string            `json:"title,omitempty"`
	Slug        string            `json:"slug,omitempty"`
	About       *string           `json:"about,omitempty"`
	Location    string            `json:"location,omitempty"`
	StartsAt    time.Time         `json:"starts_at,omitempty"`
	EndsAt      time.Time         `json:"ends_at,omitempty"`
	Status      types.EventStatus `gorm:"default:'draft'" json:"status,omitempty"`
	OrganizerID uint              `json:"organizer,omitempty"`

	Organizer   *User        `gorm:"foreignKey:organizer_id" json:"-"`
	TicketTypes []TicketType `json:"ticket_types,omitempty"`

	types.Timestamps
}

// EventView is one recorded view of an event page, written by the
// side-effect dispatcher off the request thread.
type EventView struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	EventID   uint      `json:"event_id,omitempty"`
	ProfileID uint      `json:"profile_id,omitempty"`
	ViewedAt  time.Time `json:"viewed_at,omitempty"`

	Event *Event `gorm:"foreignKey:event_id" json:"-"`

	types.Timestamps
}
