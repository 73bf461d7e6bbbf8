package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"friday/matrix"
	"friday/models"
	"friday/repository"
)

type fakeRooms struct {
	mu     sync.Mutex
	byID   map[int64]*models.Room
	nextID int64
	logs   []*models.RoomCheckLog
}

func newFakeRooms() *fakeRooms { return &fakeRooms{byID: map[int64]*models.Room{}} }

func (f *fakeRooms) Upsert(_ context.Context, room *models.Room) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.RoomID == room.RoomID {
			room.ID = r.ID
			cp := *room
			f.byID[r.ID] = &cp
			return false, nil
		}
	}
	f.nextID++
	room.ID = f.nextID
	cp := *room
	f.byID[room.ID] = &cp
	return true, nil
}

func (f *fakeRooms) List(context.Context) ([]*models.Room, error) {
	var out []*models.Room
	for _, r := range f.byID {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRooms) ListUnchecked(context.Context) ([]*models.Room, error) {
	var out []*models.Room
	for _, r := range f.byID {
		if !r.IsChecked {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRooms) GetByID(_ context.Context, id int64) (*models.Room, error) {
	if r, ok := f.byID[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRooms) GetByRoomID(_ context.Context, roomID string) (*models.Room, error) {
	for _, r := range f.byID {
		if r.RoomID == roomID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRooms) MarkChecked(_ context.Context, id int64, at time.Time) error {
	r, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.IsChecked = true
	r.LastCheckedAt = &at
	return nil
}

func (f *fakeRooms) CreateCheckLog(_ context.Context, log *models.RoomCheckLog) (int64, error) {
	log.ID = int64(len(f.logs) + 1)
	f.logs = append(f.logs, log)
	return log.ID, nil
}

type fakeSubscribers struct {
	subs     map[int64]*models.Subscriber
	plans    map[int64]*models.Plan
	rooms    []*models.SubscriberRoom
	lastRead map[int64]time.Time
	readErr  error
}

func newFakeSubscribers() *fakeSubscribers {
	return &fakeSubscribers{
		subs:     map[int64]*models.Subscriber{},
		plans:    map[int64]*models.Plan{},
		lastRead: map[int64]time.Time{},
	}
}

func (f *fakeSubscribers) List(context.Context) ([]*models.Subscriber, error) {
	var out []*models.Subscriber
	for _, s := range f.subs {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSubscribers) Get(_ context.Context, id int64) (*models.Subscriber, error) {
	if s, ok := f.subs[id]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSubscribers) ListActiveWithSubscription(ctx context.Context) ([]*models.Subscriber, error) {
	return f.List(ctx)
}

func (f *fakeSubscribers) CountActive(context.Context) (int, error) { return len(f.subs), nil }

func (f *fakeSubscribers) ActiveSubscription(_ context.Context, id int64) (*models.Subscription, *models.Plan, error) {
	if p, ok := f.plans[id]; ok {
		return &models.Subscription{SubscriberID: id, PlanID: p.ID, Status: models.SubscriptionActive}, p, nil
	}
	return nil, nil, nil
}

func (f *fakeSubscribers) ActiveRooms(_ context.Context, id int64) ([]*models.SubscriberRoom, error) {
	var out []*models.SubscriberRoom
	for _, r := range f.rooms {
		if r.SubscriberID == id && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSubscribers) RoomByCode(_ context.Context, id int64, code string) (*models.SubscriberRoom, error) {
	for _, r := range f.rooms {
		if r.SubscriberID == id && r.IsActive && strings.EqualFold(r.RoomCode, code) {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSubscribers) GetRoom(_ context.Context, id int64) (*models.SubscriberRoom, error) {
	for _, r := range f.rooms {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSubscribers) CreateRoom(_ context.Context, room *models.SubscriberRoom) error {
	for _, r := range f.rooms {
		if r.SubscriberID == room.SubscriberID && (r.RoomID == room.RoomID || r.RoomCode == room.RoomCode) {
			return repository.ErrConflict
		}
	}
	room.ID = int64(len(f.rooms) + 1)
	f.rooms = append(f.rooms, room)
	return nil
}

func (f *fakeSubscribers) RoomCodeExists(_ context.Context, id int64, code string) (bool, error) {
	for _, r := range f.rooms {
		if r.SubscriberID == id && r.RoomCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSubscribers) UpdateRoomLastRead(_ context.Context, id int64, at time.Time) error {
	if f.readErr != nil {
		return f.readErr
	}
	f.lastRead[id] = at
	for _, r := range f.rooms {
		if r.ID == id {
			r.LastReadAt = &at
		}
	}
	return nil
}

func (f *fakeSubscribers) CountActiveRooms(ctx context.Context, id int64) (int, error) {
	rooms, _ := f.ActiveRooms(ctx, id)
	return len(rooms), nil
}

func (f *fakeSubscribers) ActiveRoomTotal(context.Context) (int, error) { return len(f.rooms), nil }

type fakeSummaries struct {
	states    map[int64]*models.ConversationProcessingState
	saved     []models.ConversationProcessingState
	summaries []*models.RoomSummary
}

func newFakeSummaries() *fakeSummaries {
	return &fakeSummaries{states: map[int64]*models.ConversationProcessingState{}}
}

func (f *fakeSummaries) GetOrCreateState(_ context.Context, roomID int64) (*models.ConversationProcessingState, error) {
	st, ok := f.states[roomID]
	if !ok {
		st = &models.ConversationProcessingState{ID: roomID, RoomID: roomID, Status: models.StateIdle}
		f.states[roomID] = st
	}
	cp := *st
	return &cp, nil
}

func (f *fakeSummaries) SaveState(_ context.Context, st *models.ConversationProcessingState) error {
	cp := *st
	f.states[st.RoomID] = &cp
	f.saved = append(f.saved, cp)
	return nil
}

func (f *fakeSummaries) CreateSummary(_ context.Context, s *models.RoomSummary) error {
	s.ID = int64(len(f.summaries) + 1)
	f.summaries = append(f.summaries, s)
	return nil
}

func (f *fakeSummaries) MarkSent(context.Context, int64, time.Time) error { return nil }

func (f *fakeSummaries) MarkSendFailed(context.Context, int64, time.Time, string) error { return nil }

func (f *fakeSummaries) LastSentAt(context.Context, int64) (*time.Time, error) { return nil, nil }

func (f *fakeSummaries) IncrementDailyCount(context.Context, int64, time.Time) (int, error) {
	return 1, nil
}

func (f *fakeSummaries) DailyCount(context.Context, int64, time.Time) (int, error) { return 0, nil }

func (f *fakeSummaries) Recent(context.Context, int) ([]*models.RoomSummary, error) {
	return f.summaries, nil
}

type fakeTodos struct {
	todos []*models.Todo
}

func (f *fakeTodos) Create(_ context.Context, t *models.Todo) error {
	t.ID = int64(len(f.todos) + 1)
	f.todos = append(f.todos, t)
	return nil
}

func (f *fakeTodos) Get(_ context.Context, id int64) (*models.Todo, error) {
	for _, t := range f.todos {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTodos) UpdateStatus(_ context.Context, id int64, status string) error {
	for _, t := range f.todos {
		if t.ID == id {
			t.Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeTodos) Delete(_ context.Context, id int64) error {
	for i, t := range f.todos {
		if t.ID == id {
			f.todos = append(f.todos[:i], f.todos[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeTodos) match(filter repository.TodoFilter) []*models.Todo {
	var out []*models.Todo
	for _, t := range f.todos {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.RoomID != 0 && (t.RoomID == nil || *t.RoomID != filter.RoomID) {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(filter.Query)) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakeTodos) List(_ context.Context, filter repository.TodoFilter) ([]*models.Todo, error) {
	out := f.match(filter)
	if filter.Offset >= len(out) {
		return []*models.Todo{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeTodos) Count(_ context.Context, filter repository.TodoFilter) (int, error) {
	return len(f.match(filter)), nil
}

func (f *fakeTodos) PendingForSubscriber(context.Context, int64, int) ([]*models.Todo, error) {
	return nil, nil
}

func (f *fakeTodos) PendingForRoom(context.Context, int64, int) ([]*models.Todo, error) {
	return nil, nil
}

func (f *fakeTodos) Stats(context.Context) (models.TodoStats, error) {
	var s models.TodoStats
	for _, t := range f.todos {
		s.Total++
		switch t.Status {
		case models.TodoPending:
			s.Pending++
		case models.TodoDone:
			s.Done++
		case models.TodoCancelled:
			s.Cancelled++
		}
	}
	return s, nil
}

type fakeMessages struct {
	messages []matrix.Message
	err      error
	since    *time.Time
	admin    bool
}

func (f *fakeMessages) filter(since *time.Time) []matrix.Message {
	f.since = since
	var out []matrix.Message
	for _, m := range f.messages {
		if since == nil || m.Timestamp.After(*since) {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeMessages) FetchRoomMessages(_ context.Context, _ string, since *time.Time, _ int) ([]matrix.Message, error) {
	return f.filter(since), f.err
}

func (f *fakeMessages) AdminRoomMessages(_ context.Context, _ string, since *time.Time, _ int) ([]matrix.Message, error) {
	f.admin = true
	return f.filter(since), f.err
}

type fakeCompleter struct {
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(context.Context, string, string, int) (string, error) {
	f.calls++
	return f.reply, f.err
}

type fakeSettings struct{ model string }

func (f *fakeSettings) LLMModel(_ context.Context, def string) (string, error) {
	if f.model == "" {
		f.model = def
	}
	return f.model, nil
}

func (f *fakeSettings) SetLLMModel(_ context.Context, model string) error {
	f.model = model
	return nil
}

type fakeOperators struct {
	ops map[string]*models.Operator
}

func (f *fakeOperators) Create(_ context.Context, username, hash string) (*models.Operator, error) {
	if _, ok := f.ops[username]; ok {
		return nil, repository.ErrConflict
	}
	op := &models.Operator{ID: int64(len(f.ops) + 1), Username: username, PasswordHash: hash}
	f.ops[username] = op
	return op, nil
}

func (f *fakeOperators) GetByUsername(_ context.Context, username string) (*models.Operator, error) {
	if op, ok := f.ops[username]; ok {
		return op, nil
	}
	return nil, repository.ErrNotFound
}

type fakeTokens struct{}

func (fakeTokens) GenerateJWT(id, username string) (string, error) { return "token-" + id + "-" + username, nil }
