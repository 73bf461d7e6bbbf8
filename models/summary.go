package models

import (
	"encoding/json"
	"time"
)

// Processing states of a room conversation. A room moves
// idle|failed -> ready -> processing -> idle, or to failed on error.
const (
	StateIdle       = "idle"
	StateReady      = "ready"
	StateProcessing = "processing"
	StateFailed     = "failed"
)

type ConversationProcessingState struct {
	ID                  int64           `json:"id"`
	RoomID              int64           `json:"room_id"`
	Status              string          `json:"status"`
	LLMContextToProcess json.RawMessage `json:"llm_context_to_process,omitempty"`
	LastMessageSyncedAt *time.Time      `json:"last_message_synced_at,omitempty"`
	LastSummarizedAt    *time.Time      `json:"last_summarized_at,omitempty"`
	ProcessingStartedAt *time.Time      `json:"processing_started_at,omitempty"`
	FailureReason       string          `json:"failure_reason,omitempty"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type RoomSummary struct {
	ID                   int64      `json:"id"`
	RoomID               int64      `json:"room_id"`
	Summary              string     `json:"summary"`
	Reply                string     `json:"reply,omitempty"`
	NeedsMoreInformation bool       `json:"needs_more_information"`
	TodoList             []string   `json:"todo_list"`
	MessageCount         int        `json:"message_count"`
	FromTimestamp        *time.Time `json:"from_timestamp,omitempty"`
	ToTimestamp          *time.Time `json:"to_timestamp,omitempty"`
	SentAt               *time.Time `json:"sent_at,omitempty"`
	SendFailedAt         *time.Time `json:"send_failed_at,omitempty"`
	SendError            string     `json:"send_error,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`

	// Filled by joins for listings.
	RoomCode string `json:"room_code,omitempty"`
	RoomName string `json:"room_name,omitempty"`
}

type RoomDailySummaryCount struct {
	ID     int64     `json:"id"`
	RoomID int64     `json:"room_id"`
	Date   time.Time `json:"date"`
	Count  int       `json:"count"`
}

// GeneralSettings is the singleton row operators edit at runtime.
type GeneralSettings struct {
	ID       int64  `json:"id"`
	LLMModel string `json:"llm_model"`
}
