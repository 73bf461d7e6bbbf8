package models

import "time"

const (
	TodoPending   = "pending"
	TodoDone      = "done"
	TodoCancelled = "cancelled"
)

// TodoStatuses lists the valid statuses in display order.
var TodoStatuses = []string{TodoPending, TodoDone, TodoCancelled}

// Todo is an action item extracted from a conversation or added by hand.
type Todo struct {
	ID          int64     `json:"id"`
	RoomID      *int64    `json:"room_id,omitempty"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	RoomCode string `json:"room_code,omitempty"`
	RoomName string `json:"room_name,omitempty"`
}

func (t *Todo) StatusDisplay() string {
	switch t.Status {
	case TodoPending:
		return "Pending"
	case TodoDone:
		return "Done"
	case TodoCancelled:
		return "Cancelled"
	}
	return t.Status
}

func ValidTodoStatus(s string) bool {
	for _, v := range TodoStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type TodoStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Done      int `json:"done"`
	Cancelled int `json:"cancelled"`
}

// Operator is a dashboard account.
type Operator struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
