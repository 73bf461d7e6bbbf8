package handlers

import (
	"context"
	"net/http"

	"friday/llm"
	"friday/matrix"
	"friday/models"
	"friday/repository"
	"friday/service"
)

// MatrixAuth logs users in without touching the bot's own session.
type MatrixAuth interface {
	LoginAs(ctx context.Context, username, password string) (*matrix.LoginResponse, error)
}

type RoomLister interface {
	ListRooms(ctx context.Context, filters map[string]string) ([]matrix.Room, error)
}

type RoomFetcher interface {
	FetchAllRooms(ctx context.Context, creator string) ([]matrix.Room, error)
}

// MatrixAdmin reads homeserver state through the Synapse admin API.
type MatrixAdmin interface {
	RoomDetails(ctx context.Context, roomID string) (matrix.Room, error)
	UserInfo(ctx context.Context, userID string) (map[string]interface{}, error)
}

type RoomAPI interface {
	AllRooms(ctx context.Context) ([]*models.Room, error)
	SyncRooms(ctx context.Context, rooms []matrix.Room) (*service.SyncResult, error)
	UncheckedSummary(ctx context.Context) (*service.UncheckedSummary, error)
	MarkChecked(ctx context.Context, id int64, notes string) (*models.Room, error)
	SummarizeRoomConversation(ctx context.Context, matrixRoomID string) (*service.ConversationResult, error)
}

type TodoAPI interface {
	Create(ctx context.Context, description string, roomID *int64, notes string) (*models.Todo, error)
	Get(ctx context.Context, id int64) (*models.Todo, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*models.Todo, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter repository.TodoFilter, page int) (*service.TodoPage, error)
	Stats(ctx context.Context) (models.TodoStats, error)
}

type SubscriberAPI interface {
	List(ctx context.Context) ([]*models.Subscriber, error)
	ListRooms(ctx context.Context, subscriberID int64) ([]*models.SubscriberRoom, error)
	AddRoom(ctx context.Context, subscriberID int64, in service.AddRoomInput) (*models.SubscriberRoom, error)
	RoomMessages(ctx context.Context, req service.MessagesRequest) (*service.RoomMessages, error)
}

type OperatorAPI interface {
	Authenticate(ctx context.Context, username, password string) (string, *models.Operator, error)
}

type DashboardAPI interface {
	Stats(ctx context.Context) (*service.Dashboard, error)
}

type SettingsAPI interface {
	Model(ctx context.Context) (string, error)
	SetModel(ctx context.Context, model string) error
}

type ContextBuilder interface {
	BuildContext(messages []llm.MessageItem) *llm.Context
}

// Env carries everything a handler may need. Handlers receive it through
// WithEnv instead of reaching for globals.
type Env struct {
	Matrix       MatrixAuth
	Rooms        RoomFetcher
	Admin        MatrixAdmin
	BotUserID    string
	BridgeDomain string
	RoomsFor     func(token string) RoomLister
	RoomService  RoomAPI
	Todos        TodoAPI
	Subscribers  SubscriberAPI
	Operators    OperatorAPI
	Dashboard    DashboardAPI
	Settings     SettingsAPI
	LLM          ContextBuilder
}

type HandlerFunc func(http.ResponseWriter, *http.Request, *Env)

func WithEnv(handler HandlerFunc, env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handler(w, r, env)
	}
}
