package service

import (
	"context"

	"friday/models"
	"friday/repository"
)

const dashboardRecent = 5

type DashboardService struct {
	todos       repository.TodoRepository
	subscribers repository.SubscriberRepository
	summaries   repository.SummaryRepository
}

func NewDashboardService(todos repository.TodoRepository, subscribers repository.SubscriberRepository,
	summaries repository.SummaryRepository) *DashboardService {
	return &DashboardService{todos: todos, subscribers: subscribers, summaries: summaries}
}

type Dashboard struct {
	Todos             models.TodoStats      `json:"todos"`
	ActiveSubscribers int                   `json:"active_subscribers"`
	ActiveRooms       int                   `json:"active_rooms"`
	RecentTodos       []*models.Todo        `json:"recent_todos"`
	RecentSummaries   []*models.RoomSummary `json:"recent_summaries"`
}

func (s *DashboardService) Stats(ctx context.Context) (*Dashboard, error) {
	var (
		d   Dashboard
		err error
	)
	if d.Todos, err = s.todos.Stats(ctx); err != nil {
		return nil, err
	}
	if d.ActiveSubscribers, err = s.subscribers.CountActive(ctx); err != nil {
		return nil, err
	}
	if d.ActiveRooms, err = s.subscribers.ActiveRoomTotal(ctx); err != nil {
		return nil, err
	}
	if d.RecentTodos, err = s.todos.List(ctx, repository.TodoFilter{Limit: dashboardRecent}); err != nil {
		return nil, err
	}
	if d.RecentSummaries, err = s.summaries.Recent(ctx, dashboardRecent); err != nil {
		return nil, err
	}
	if d.RecentSummaries == nil {
		d.RecentSummaries = []*models.RoomSummary{}
	}
	return &d, nil
}
