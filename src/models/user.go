package models

import "ets/src/types"

type User struct {
	ID            uint   `gorm:"primarykey" json:"id"`
	UID           string `json:"uid,omitempty"`
	Email         string `gorm:"uniqueIndex" json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Role          string `gorm:"default:'attendee'" json:"role,omitempty"`
	ActiveProfile uint   `json:"active_profile,omitempty"`

	Profiles []Profile `json:"profiles,omitempty"`

	types.Timestamps
}

type Profile struct {
	ID     uint   `gorm:"primarykey" json:"id"`
	UserID uint   `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`

	User *User `gorm:"foreignKey:user_id" json:"-"`

	types.Timestamps
}
