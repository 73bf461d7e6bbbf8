package models

import (
	"fmt"
	"time"
)

const (
	PlatformWhatsApp = "whatsapp"
	PlatformTeams    = "teams"
	PlatformMatrix   = "matrix"
)

func ValidPlatform(p string) bool {
	switch p {
	case PlatformWhatsApp, PlatformTeams, PlatformMatrix:
		return true
	}
	return false
}

// Subscriber is a person who receives summaries in their own Matrix room.
type Subscriber struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"full_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	MatrixRoomID string    `json:"matrix_room_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MatrixID is the puppet user the WhatsApp bridge creates for the subscriber's
// phone number, or "" when no number is known.
func (s *Subscriber) MatrixID(bridgeDomain string) string {
	if s.PhoneNumber == "" {
		return ""
	}
	return fmt.Sprintf("@whatsapp_%s:%s", s.PhoneNumber, bridgeDomain)
}

// SubscriberRoom is a room a subscriber asked us to observe.
type SubscriberRoom struct {
	ID           int64      `json:"id"`
	SubscriberID int64      `json:"subscriber_id"`
	Platform     string     `json:"platform"`
	RoomID       string     `json:"room_id"`
	RoomCode     string     `json:"room_code"`
	RoomName     string     `json:"room_name,omitempty"`
	LastReadAt   *time.Time `json:"last_read_at,omitempty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (r *SubscriberRoom) DisplayName() string {
	if r.RoomName != "" {
		return r.RoomName
	}
	return r.RoomID
}

// Label is the short human name used in bot replies.
func (r *SubscriberRoom) Label() string {
	if r.RoomName != "" {
		return r.RoomName
	}
	return r.RoomCode
}
