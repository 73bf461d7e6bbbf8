package models

import "time"

// Room is a Matrix room created by the bot user, tracked for review.
type Room struct {
	ID            int64      `json:"id"`
	RoomID        string     `json:"room_id"`
	Name          string     `json:"name,omitempty"`
	Creator       string     `json:"creator"`
	MemberCount   int        `json:"member_count"`
	RoomCreatedAt *time.Time `json:"room_created_at,omitempty"`
	IsChecked     bool       `json:"is_checked"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DisplayName falls back to the Matrix room id when the room has no name.
func (r *Room) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.RoomID
}

type RoomCheckLog struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	CheckedAt time.Time `json:"checked_at"`
	Summary   string    `json:"summary,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}
