package service

import (
	"context"
	"errors"
	"strings"

	"friday/models"
	"friday/repository"
)

const TodoPageSize = 20

// RoomLookup resolves subscriber rooms by primary key.
type RoomLookup interface {
	GetRoom(ctx context.Context, id int64) (*models.SubscriberRoom, error)
}

type TodoService struct {
	todos repository.TodoRepository
	rooms RoomLookup
}

func NewTodoService(todos repository.TodoRepository, rooms RoomLookup) *TodoService {
	return &TodoService{todos: todos, rooms: rooms}
}

func (s *TodoService) Create(ctx context.Context, description string, roomID *int64, notes string) (*models.Todo, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}
	todo := &models.Todo{Description: description, Status: models.TodoPending, Notes: notes}
	if roomID != nil && *roomID != 0 {
		room, err := s.rooms.GetRoom(ctx, *roomID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		if err != nil {
			return nil, err
		}
		todo.RoomID = &room.ID
		todo.RoomCode = room.RoomCode
		todo.RoomName = room.RoomName
	}
	if err := s.todos.Create(ctx, todo); err != nil {
		return nil, err
	}
	return todo, nil
}

func (s *TodoService) Get(ctx context.Context, id int64) (*models.Todo, error) {
	todo, err := s.todos.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTodoNotFound
	}
	return todo, err
}

// UpdateStatus changes the status of an existing todo and returns it refreshed.
func (s *TodoService) UpdateStatus(ctx context.Context, id int64, status string) (*models.Todo, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if !models.ValidTodoStatus(status) {
		return nil, ErrInvalidStatus
	}
	if err := s.todos.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *TodoService) Delete(ctx context.Context, id int64) error {
	err := s.todos.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTodoNotFound
	}
	return err
}

type TodoPage struct {
	Todos      []*models.Todo `json:"todos"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	Total      int            `json:"total"`
	HasNext    bool           `json:"has_next"`
	HasPrev    bool           `json:"has_previous"`
}

// List returns one page of todos matching filter. Pages start at 1 and out of
// range pages are clamped. A status no todo can have matches nothing.
func (s *TodoService) List(ctx context.Context, filter repository.TodoFilter, page int) (*TodoPage, error) {
	total, err := s.todos.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	pages := (total + TodoPageSize - 1) / TodoPageSize
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	filter.Limit = TodoPageSize
	filter.Offset = (page - 1) * TodoPageSize
	todos, err := s.todos.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &TodoPage{
		Todos:      todos,
		Page:       page,
		TotalPages: pages,
		Total:      total,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}, nil
}

func (s *TodoService) Stats(ctx context.Context) (models.TodoStats, error) {
	return s.todos.Stats(ctx)
}
