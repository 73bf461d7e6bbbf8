package repository

import (
	"context"
	"time"

	"friday/models"
)

type RoomRepository interface {
	Upsert(ctx context.Context, room *models.Room) (bool, error)
	List(ctx context.Context) ([]*models.Room, error)
	ListUnchecked(ctx context.Context) ([]*models.Room, error)
	GetByID(ctx context.Context, id int64) (*models.Room, error)
	GetByRoomID(ctx context.Context, roomID string) (*models.Room, error)
	MarkChecked(ctx context.Context, id int64, at time.Time) error
	CreateCheckLog(ctx context.Context, log *models.RoomCheckLog) (int64, error)
}

type SubscriberRepository interface {
	List(ctx context.Context) ([]*models.Subscriber, error)
	Get(ctx context.Context, id int64) (*models.Subscriber, error)
	ListActiveWithSubscription(ctx context.Context) ([]*models.Subscriber, error)
	CountActive(ctx context.Context) (int, error)
	ActiveSubscription(ctx context.Context, subscriberID int64) (*models.Subscription, *models.Plan, error)

	ActiveRooms(ctx context.Context, subscriberID int64) ([]*models.SubscriberRoom, error)
	RoomByCode(ctx context.Context, subscriberID int64, code string) (*models.SubscriberRoom, error)
	GetRoom(ctx context.Context, id int64) (*models.SubscriberRoom, error)
	CreateRoom(ctx context.Context, room *models.SubscriberRoom) error
	RoomCodeExists(ctx context.Context, subscriberID int64, code string) (bool, error)
	UpdateRoomLastRead(ctx context.Context, id int64, at time.Time) error
	CountActiveRooms(ctx context.Context, subscriberID int64) (int, error)
	ActiveRoomTotal(ctx context.Context) (int, error)
}

type SummaryRepository interface {
	GetOrCreateState(ctx context.Context, roomID int64) (*models.ConversationProcessingState, error)
	SaveState(ctx context.Context, state *models.ConversationProcessingState) error
	CreateSummary(ctx context.Context, summary *models.RoomSummary) error
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkSendFailed(ctx context.Context, id int64, at time.Time, sendErr string) error
	LastSentAt(ctx context.Context, subscriberID int64) (*time.Time, error)
	IncrementDailyCount(ctx context.Context, roomID int64, day time.Time) (int, error)
	DailyCount(ctx context.Context, roomID int64, day time.Time) (int, error)
	Recent(ctx context.Context, limit int) ([]*models.RoomSummary, error)
}

// TodoFilter narrows todo listings. Zero values mean "any".
type TodoFilter struct {
	Status string
	RoomID int64
	Query  string
	Limit  int
	Offset int
}

type TodoRepository interface {
	Create(ctx context.Context, todo *models.Todo) error
	Get(ctx context.Context, id int64) (*models.Todo, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter TodoFilter) ([]*models.Todo, error)
	Count(ctx context.Context, filter TodoFilter) (int, error)
	PendingForSubscriber(ctx context.Context, subscriberID int64, limit int) ([]*models.Todo, error)
	PendingForRoom(ctx context.Context, roomID int64, limit int) ([]*models.Todo, error)
	Stats(ctx context.Context) (models.TodoStats, error)
}

type SettingsRepository interface {
	LLMModel(ctx context.Context, defaultModel string) (string, error)
	SetLLMModel(ctx context.Context, model string) error
}

type OperatorRepository interface {
	Create(ctx context.Context, username, passwordHash string) (*models.Operator, error)
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
}
