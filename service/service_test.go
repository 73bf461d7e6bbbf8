package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"friday/llm"
	"friday/matrix"
	"friday/models"
	"friday/repository"
)

var ctx = context.Background()

func TestRoomService_SyncRooms(t *testing.T) {
	rooms := newFakeRooms()
	svc := NewRoomService(rooms, &fakeMessages{}, llm.NewService(&fakeCompleter{}, "@friday:x", "m"))

	input := []matrix.Room{
		{"room_id": "!a:x", "name": "Family", "creator": "@friday:x", "joined_members": float64(3), "creation_ts": float64(1700000000000)},
		{"name": "no id"},
		{"room_id": "!b:x"},
	}
	res, err := svc.SyncRooms(ctx, input)
	if err != nil {
		t.Fatalf("SyncRooms: %v", err)
	}
	if *res != (SyncResult{SyncedCount: 2, NewRooms: 2}) {
		t.Fatalf("first sync = %+v", res)
	}

	rooms.byID[1].IsChecked = true
	res, err = svc.SyncRooms(ctx, input[:1])
	if err != nil {
		t.Fatal(err)
	}
	if *res != (SyncResult{SyncedCount: 1, UpdatedRooms: 1}) {
		t.Fatalf("second sync = %+v", res)
	}
	if rooms.byID[1].IsChecked || rooms.byID[1].MemberCount != 3 || rooms.byID[1].RoomCreatedAt == nil {
		t.Fatalf("room not refreshed: %+v", rooms.byID[1])
	}
}

func TestRoomService_MarkChecked(t *testing.T) {
	rooms := newFakeRooms()
	rooms.Upsert(ctx, &models.Room{RoomID: "!a:x"})
	svc := NewRoomService(rooms, &fakeMessages{}, nil)

	room, err := svc.MarkChecked(ctx, 1, "looked fine")
	if err != nil {
		t.Fatalf("MarkChecked: %v", err)
	}
	if !room.IsChecked || room.LastCheckedAt == nil {
		t.Fatalf("room = %+v", room)
	}
	if len(rooms.logs) != 1 || rooms.logs[0].Notes != "looked fine" {
		t.Fatalf("check log = %+v", rooms.logs)
	}

	if _, err := svc.MarkChecked(ctx, 42, ""); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestRoomService_UncheckedSummaryEmpty(t *testing.T) {
	fc := &fakeCompleter{}
	svc := NewRoomService(newFakeRooms(), &fakeMessages{}, llm.NewService(fc, "@friday:x", "m"))
	got, err := svc.UncheckedSummary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalUnchecked != 0 || got.Summary != "No unchecked rooms to review." || got.Rooms == nil || fc.calls != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestRoomService_SummarizeRoomConversation(t *testing.T) {
	rooms := newFakeRooms()
	rooms.Upsert(ctx, &models.Room{RoomID: "!a:x", Name: "Family"})
	checked := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rooms.byID[1].LastCheckedAt = &checked

	msgs := &fakeMessages{messages: []matrix.Message{
		{Sender: "@a:x", Body: "old", Timestamp: checked.Add(-time.Minute)},
		{Sender: "@a:x", Body: "buy rice", Timestamp: checked.Add(time.Minute)},
	}}
	fc := &fakeCompleter{reply: `{"summary":"Rice","action_items":[{"description":"Buy rice","priority":"low"}]}`}
	svc := NewRoomService(rooms, msgs, llm.NewService(fc, "@friday:x", "m"))

	res, err := svc.SummarizeRoomConversation(ctx, "!a:x")
	if err != nil {
		t.Fatalf("SummarizeRoomConversation: %v", err)
	}
	if res.MessageCount != 1 || res.Summary != "Rice" || res.CheckLogID != 1 {
		t.Fatalf("result = %+v", res)
	}
	if res.FromTimestamp == nil || !res.FromTimestamp.Equal(checked) || !res.Room.IsChecked {
		t.Fatalf("timestamps wrong: %+v", res)
	}
	var notes []llm.ActionItem
	if err := json.Unmarshal([]byte(rooms.logs[0].Notes), &notes); err != nil || notes[0].Description != "Buy rice" {
		t.Fatalf("check log notes = %q", rooms.logs[0].Notes)
	}

	if _, err := svc.SummarizeRoomConversation(ctx, "!missing:x"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestTodoService_Create(t *testing.T) {
	subs := newFakeSubscribers()
	subs.rooms = []*models.SubscriberRoom{{ID: 3, SubscriberID: 1, RoomID: "!a:x", RoomCode: "k3x9", RoomName: "Family"}}
	svc := NewTodoService(&fakeTodos{}, subs)

	if _, err := svc.Create(ctx, "   ", nil, ""); !errors.Is(err, ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}
	missing := int64(99)
	if _, err := svc.Create(ctx, "Buy rice", &missing, ""); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	roomID := int64(3)
	todo, err := svc.Create(ctx, " Buy rice ", &roomID, "before 7")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if todo.Description != "Buy rice" || todo.Status != models.TodoPending || todo.RoomName != "Family" || *todo.RoomID != 3 {
		t.Fatalf("todo = %+v", todo)
	}
}

func TestTodoService_UpdateStatus(t *testing.T) {
	todos := &fakeTodos{}
	svc := NewTodoService(todos, newFakeSubscribers())
	created, _ := svc.Create(ctx, "Call mom", nil, "")

	if _, err := svc.UpdateStatus(ctx, created.ID, "archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if ErrInvalidStatus.Error() != "Invalid status. Must be one of: pending, done, cancelled" {
		t.Fatalf("message = %q", ErrInvalidStatus.Error())
	}
	if _, err := svc.UpdateStatus(ctx, 404, "done"); !errors.Is(err, ErrTodoNotFound) {
		t.Fatalf("expected ErrTodoNotFound, got %v", err)
	}

	updated, err := svc.UpdateStatus(ctx, created.ID, models.TodoDone)
	if err != nil || updated.Status != models.TodoDone {
		t.Fatalf("UpdateStatus = %+v, %v", updated, err)
	}
}

func TestTodoService_ListPages(t *testing.T) {
	todos := &fakeTodos{}
	svc := NewTodoService(todos, newFakeSubscribers())
	for i := 0; i < 45; i++ {
		svc.Create(ctx, "task", nil, "")
	}

	cases := []struct {
		page, want, wantLen int
		next, prev          bool
	}{
		{0, 1, 20, true, false},
		{2, 2, 20, true, true},
		{3, 3, 5, false, true},
		{9, 3, 5, false, true},
	}
	for _, tc := range cases {
		p, err := svc.List(ctx, repository.TodoFilter{}, tc.page)
		if err != nil {
			t.Fatal(err)
		}
		if p.Page != tc.want || len(p.Todos) != tc.wantLen || p.HasNext != tc.next || p.HasPrev != tc.prev || p.TotalPages != 3 {
			t.Fatalf("page %d: got page=%d len=%d next=%v prev=%v", tc.page, p.Page, len(p.Todos), p.HasNext, p.HasPrev)
		}
	}

	empty, err := svc.List(ctx, repository.TodoFilter{Query: "nothing matches"}, 1)
	if err != nil || empty.TotalPages != 1 || empty.Total != 0 {
		t.Fatalf("empty listing = %+v, %v", empty, err)
	}
}

func TestTodoService_ListByStatus(t *testing.T) {
	svc := NewTodoService(&fakeTodos{}, newFakeSubscribers())
	svc.Create(ctx, "open", nil, "")
	done, _ := svc.Create(ctx, "closed", nil, "")
	if _, err := svc.UpdateStatus(ctx, done.ID, models.TodoDone); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		status string
		want   int
	}{
		{"", 2},
		{models.TodoDone, 1},
		{models.TodoPending, 1},
		{"archived", 0},
	}
	for _, tc := range cases {
		p, err := svc.List(ctx, repository.TodoFilter{Status: tc.status}, 1)
		if err != nil {
			t.Fatal(err)
		}
		if p.Total != tc.want || len(p.Todos) != tc.want {
			t.Errorf("status %q: total=%d len=%d, want %d", tc.status, p.Total, len(p.Todos), tc.want)
		}
	}
}

func TestTodoService_Delete(t *testing.T) {
	svc := NewTodoService(&fakeTodos{}, newFakeSubscribers())
	todo, _ := svc.Create(ctx, "x", nil, "")
	if err := svc.Delete(ctx, todo.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, todo.ID); !errors.Is(err, ErrTodoNotFound) {
		t.Fatalf("expected ErrTodoNotFound, got %v", err)
	}
}

func newPipeline(reply string, msgs []matrix.Message) (*SummaryPipeline, *fakeSummaries, *fakeTodos, *fakeSubscribers, *fakeMessages) {
	summaries := newFakeSummaries()
	todos := &fakeTodos{}
	subs := newFakeSubscribers()
	source := &fakeMessages{messages: msgs}
	p := NewSummaryPipeline(summaries, todos, subs, source, llm.NewService(&fakeCompleter{reply: reply}, "@friday:x", "m"))
	return p, summaries, todos, subs, source
}

func TestSummaryPipeline_NothingNew(t *testing.T) {
	p, summaries, _, _, _ := newPipeline("", nil)
	got, err := p.Summarize(ctx, &models.SubscriberRoom{ID: 1, RoomID: "!a:x"})
	if err != nil || got != nil {
		t.Fatalf("expected nil summary, got %+v %v", got, err)
	}
	if len(summaries.saved) != 0 {
		t.Fatalf("state must not change: %+v", summaries.saved)
	}
}

func TestSummaryPipeline_Success(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	msgs := []matrix.Message{
		{Sender: "@a:x", Body: "dinner?", Timestamp: t1},
		{Sender: "@b:x", Body: "buy rice", Timestamp: t1.Add(time.Minute)},
	}
	p, summaries, todos, subs, source := newPipeline(`{"summary":"Dinner","reply":"Sure","needs_more_information":false,"todo_list":["Buy rice"," "]}`, msgs)

	room := &models.SubscriberRoom{ID: 1, RoomID: "!a:x", RoomCode: "k3x9"}
	got, err := p.Summarize(ctx, room)
	if err != nil || got == nil {
		t.Fatalf("Summarize: %+v %v", got, err)
	}
	if !source.admin {
		t.Fatalf("pipeline must read through the admin API")
	}
	if got.Summary != "Dinner" || got.MessageCount != 2 || !got.ToTimestamp.Equal(t1.Add(time.Minute)) || got.RoomCode != "k3x9" {
		t.Fatalf("summary = %+v", got)
	}
	if len(todos.todos) != 1 || todos.todos[0].Description != "Buy rice" || *todos.todos[0].RoomID != 1 {
		t.Fatalf("todos = %+v", todos.todos)
	}
	if !subs.lastRead[1].Equal(t1.Add(time.Minute)) {
		t.Fatalf("last read not advanced: %v", subs.lastRead)
	}

	var statuses []string
	for _, st := range summaries.saved {
		statuses = append(statuses, st.Status)
	}
	if strings.Join(statuses, ",") != "ready,processing,idle" {
		t.Fatalf("state transitions = %v", statuses)
	}
	final := summaries.states[1]
	if final.LastSummarizedAt == nil || final.ProcessingStartedAt != nil || final.LLMContextToProcess != nil {
		t.Fatalf("final state = %+v", final)
	}
}

func TestSummaryPipeline_LLMFailure(t *testing.T) {
	msgs := []matrix.Message{{Sender: "@a:x", Body: "hi", Timestamp: time.Now()}}
	summaries := newFakeSummaries()
	subs := newFakeSubscribers()
	boom := errors.New("model unavailable")
	p := NewSummaryPipeline(summaries, &fakeTodos{}, subs, &fakeMessages{messages: msgs},
		llm.NewService(&fakeCompleter{err: boom}, "@friday:x", "m"))

	if _, err := p.Summarize(ctx, &models.SubscriberRoom{ID: 1, RoomID: "!a:x"}); !errors.Is(err, boom) {
		t.Fatalf("expected model error, got %v", err)
	}
	st := summaries.states[1]
	if st.Status != models.StateFailed || !strings.Contains(st.FailureReason, "model unavailable") {
		t.Fatalf("state = %+v", st)
	}
	if len(subs.lastRead) != 0 {
		t.Fatalf("last read must not move on failure")
	}
}

func TestSummaryPipeline_LastReadFailureStopsTodos(t *testing.T) {
	msgs := []matrix.Message{{Sender: "@a:x", Body: "buy rice", Timestamp: time.Now()}}
	p, summaries, todos, subs, _ := newPipeline(`{"summary":"Rice","todo_list":["Buy rice"]}`, msgs)
	subs.readErr = errors.New("connection reset")

	got, err := p.Summarize(ctx, &models.SubscriberRoom{ID: 1, RoomID: "!a:x"})
	if err == nil || got != nil {
		t.Fatalf("expected failure, got %+v %v", got, err)
	}
	if !errors.Is(err, subs.readErr) {
		t.Fatalf("error should wrap the repository error, got %v", err)
	}
	if len(todos.todos) != 0 {
		t.Fatalf("todos must not be stored while last read is unchanged: %+v", todos.todos)
	}
	st := summaries.states[1]
	if st.Status != models.StateFailed || !strings.Contains(st.FailureReason, "advance last read") {
		t.Fatalf("state = %+v", st)
	}
}

func TestSummaryPipeline_SkipsFreshProcessing(t *testing.T) {
	msgs := []matrix.Message{{Sender: "@a:x", Body: "hi", Timestamp: time.Now()}}
	p, summaries, _, _, _ := newPipeline("{}", msgs)
	started := time.Now().Add(-time.Minute)
	summaries.states[1] = &models.ConversationProcessingState{ID: 1, RoomID: 1, Status: models.StateProcessing, ProcessingStartedAt: &started}

	got, err := p.Summarize(ctx, &models.SubscriberRoom{ID: 1, RoomID: "!a:x"})
	if err != nil || got != nil {
		t.Fatalf("expected skip, got %+v %v", got, err)
	}
}

func TestSubscriberService_AddRoom(t *testing.T) {
	subs := newFakeSubscribers()
	subs.subs[1] = &models.Subscriber{ID: 1}
	subs.plans[1] = &models.Plan{ID: 1, NumberOfRooms: 2}
	svc := NewSubscriberService(subs, &fakeMessages{})

	if _, err := svc.AddRoom(ctx, 1, AddRoomInput{RoomID: "!a:x", Platform: "telegram"}); !errors.Is(err, ErrInvalidPlatform) {
		t.Fatalf("expected ErrInvalidPlatform, got %v", err)
	}
	if _, err := svc.AddRoom(ctx, 2, AddRoomInput{RoomID: "!a:x"}); !errors.Is(err, ErrSubscriberNotFound) {
		t.Fatalf("expected ErrSubscriberNotFound, got %v", err)
	}

	room, err := svc.AddRoom(ctx, 1, AddRoomInput{RoomID: "!a:x", RoomName: "Family"})
	if err != nil {
		t.Fatalf("AddRoom: %v", err)
	}
	if len(room.RoomCode) != 4 || room.Platform != models.PlatformWhatsApp || !room.IsActive {
		t.Fatalf("room = %+v", room)
	}

	if _, err := svc.AddRoom(ctx, 1, AddRoomInput{RoomID: "!b:x", RoomCode: "MINE"}); err != nil {
		t.Fatalf("AddRoom with code: %v", err)
	}
	if subs.rooms[1].RoomCode != "mine" {
		t.Fatalf("code not normalized: %q", subs.rooms[1].RoomCode)
	}

	if _, err := svc.AddRoom(ctx, 1, AddRoomInput{RoomID: "!c:x"}); !errors.Is(err, ErrRoomLimit) {
		t.Fatalf("expected ErrRoomLimit, got %v", err)
	}
}

func TestSubscriberService_RoomMessagesRegistersRoom(t *testing.T) {
	subs := newFakeSubscribers()
	subs.subs[1] = &models.Subscriber{ID: 1}
	source := &fakeMessages{messages: []matrix.Message{{Sender: "@a:x", Body: "hi", Timestamp: time.Now()}}}
	svc := NewSubscriberService(subs, source)

	res, err := svc.RoomMessages(ctx, MessagesRequest{SubscriberID: 1, RoomID: "!a:x", RoomName: "Family"})
	if err != nil {
		t.Fatalf("RoomMessages: %v", err)
	}
	if res.Total != 1 || res.Room.Name != "Family" || len(subs.rooms) != 1 {
		t.Fatalf("res = %+v rooms=%d", res, len(subs.rooms))
	}

	if _, err := svc.RoomMessages(ctx, MessagesRequest{SubscriberID: 1, RoomID: "!a:x"}); err != nil {
		t.Fatal(err)
	}
	if len(subs.rooms) != 1 {
		t.Fatalf("room registered twice")
	}
}

func TestOperatorService(t *testing.T) {
	svc := NewOperatorService(&fakeOperators{ops: map[string]*models.Operator{}}, fakeTokens{})

	if _, err := svc.Create(ctx, "", "pw"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	op, err := svc.Create(ctx, "ops", "correct horse")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if op.PasswordHash == "correct horse" {
		t.Fatalf("password stored in clear")
	}

	token, got, err := svc.Authenticate(ctx, "ops", "correct horse")
	if err != nil || token != "token-1-ops" || got.ID != op.ID {
		t.Fatalf("Authenticate = %q %+v %v", token, got, err)
	}
	if _, _, err := svc.Authenticate(ctx, "ops", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, "nobody", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSettingsService(t *testing.T) {
	llmService := llm.NewService(&fakeCompleter{}, "@friday:x", "boot-model")
	repo := &fakeSettings{}
	svc := NewSettingsService(repo, llmService, "gpt-4o-mini")

	model, err := svc.Model(ctx)
	if err != nil || model != "gpt-4o-mini" || llmService.Model() != "gpt-4o-mini" {
		t.Fatalf("Model = %q, %v (llm=%q)", model, err, llmService.Model())
	}
	if err := svc.SetModel(ctx, " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := svc.SetModel(ctx, "gpt-4o"); err != nil || repo.model != "gpt-4o" || llmService.Model() != "gpt-4o" {
		t.Fatalf("SetModel did not apply: %v", err)
	}
}

func TestDashboardService(t *testing.T) {
	todos := &fakeTodos{}
	for _, status := range []string{"pending", "pending", "done", "cancelled", "pending", "done"} {
		todos.Create(ctx, &models.Todo{Description: "x", Status: status})
	}
	subs := newFakeSubscribers()
	subs.subs[1] = &models.Subscriber{ID: 1}
	svc := NewDashboardService(todos, subs, newFakeSummaries())

	d, err := svc.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d.Todos != (models.TodoStats{Total: 6, Pending: 3, Done: 2, Cancelled: 1}) {
		t.Fatalf("stats = %+v", d.Todos)
	}
	if len(d.RecentTodos) != 5 || d.RecentTodos[0].ID != 6 || d.ActiveSubscribers != 1 || d.RecentSummaries == nil {
		t.Fatalf("dashboard = %+v", d)
	}
}
