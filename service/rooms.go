package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"friday/llm"
	"friday/logger"
	"friday/matrix"
	"friday/models"
	"friday/repository"
)

const conversationFetchLimit = 1000

// MessageSource reads room history from the homeserver.
type MessageSource interface {
	FetchRoomMessages(ctx context.Context, roomID string, since *time.Time, limit int) ([]matrix.Message, error)
	AdminRoomMessages(ctx context.Context, roomID string, since *time.Time, limit int) ([]matrix.Message, error)
}

// RoomService manages the rooms the bot user created and their review state.
type RoomService struct {
	rooms    repository.RoomRepository
	messages MessageSource
	llm      *llm.Service
	log      *logrus.Entry
	now      func() time.Time
}

func NewRoomService(rooms repository.RoomRepository, messages MessageSource, llmService *llm.Service) *RoomService {
	return &RoomService{
		rooms:    rooms,
		messages: messages,
		llm:      llmService,
		log:      logger.Logger.WithField("component", "rooms"),
		now:      time.Now,
	}
}

type SyncResult struct {
	SyncedCount  int `json:"synced_count"`
	NewRooms     int `json:"new_rooms"`
	UpdatedRooms int `json:"updated_rooms"`
}

// SyncRooms stores rooms reported by the homeserver. Every synced room is
// marked unchecked again.
func (s *RoomService) SyncRooms(ctx context.Context, rooms []matrix.Room) (*SyncResult, error) {
	var res SyncResult
	for _, r := range rooms {
		if r.ID() == "" {
			continue
		}
		room := &models.Room{
			RoomID:        r.ID(),
			Name:          r.Name(),
			Creator:       r.Creator(),
			MemberCount:   r.JoinedMembers(),
			RoomCreatedAt: r.CreatedAt(),
		}
		created, err := s.rooms.Upsert(ctx, room)
		if err != nil {
			return nil, fmt.Errorf("sync room %s: %w", room.RoomID, err)
		}
		if created {
			res.NewRooms++
		} else {
			res.UpdatedRooms++
		}
	}
	res.SyncedCount = res.NewRooms + res.UpdatedRooms
	s.log.WithFields(logrus.Fields{
		"new":     res.NewRooms,
		"updated": res.UpdatedRooms,
	}).Info("rooms synced")
	return &res, nil
}

func (s *RoomService) UncheckedRooms(ctx context.Context) ([]*models.Room, error) {
	return s.rooms.ListUnchecked(ctx)
}

func (s *RoomService) AllRooms(ctx context.Context) ([]*models.Room, error) {
	return s.rooms.List(ctx)
}

// MarkChecked flags the room as reviewed and records a check log.
func (s *RoomService) MarkChecked(ctx context.Context, id int64, notes string) (*models.Room, error) {
	room, err := s.rooms.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.rooms.MarkChecked(ctx, room.ID, now); err != nil {
		return nil, err
	}
	if _, err := s.rooms.CreateCheckLog(ctx, &models.RoomCheckLog{RoomID: room.ID, Notes: notes}); err != nil {
		return nil, err
	}
	room.IsChecked = true
	room.LastCheckedAt = &now
	return room, nil
}

type UncheckedSummary struct {
	Rooms          []*models.Room `json:"rooms"`
	TotalUnchecked int            `json:"total_unchecked"`
	Summary        string         `json:"summary"`
	TodoList       []llm.TodoItem `json:"todo_list"`
}

func (s *RoomService) UncheckedSummary(ctx context.Context) (*UncheckedSummary, error) {
	rooms, err := s.rooms.ListUnchecked(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := s.llm.GenerateRoomsSummary(ctx, rooms)
	if err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []*models.Room{}
	}
	return &UncheckedSummary{
		Rooms:          rooms,
		TotalUnchecked: len(rooms),
		Summary:        summary.Summary,
		TodoList:       summary.TodoList,
	}, nil
}

type ConversationResult struct {
	Room          *models.Room     `json:"room"`
	Summary       string           `json:"summary"`
	ActionItems   []llm.ActionItem `json:"action_items"`
	MessageCount  int              `json:"message_count"`
	FromTimestamp *time.Time       `json:"from_timestamp"`
	ToTimestamp   time.Time        `json:"to_timestamp"`
	CheckLogID    int64            `json:"check_log_id"`
}

// SummarizeRoomConversation summarizes everything said in the room since it
// was last checked, then marks it checked.
func (s *RoomService) SummarizeRoomConversation(ctx context.Context, matrixRoomID string) (*ConversationResult, error) {
	room, err := s.rooms.GetByRoomID(ctx, matrixRoomID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}

	from := room.LastCheckedAt
	messages, err := s.messages.FetchRoomMessages(ctx, matrixRoomID, from, conversationFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	name := room.Name
	if name == "" {
		name = room.RoomID
	}
	summary, err := s.llm.GenerateConversationSummary(ctx, name, messages)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.rooms.MarkChecked(ctx, room.ID, now); err != nil {
		return nil, err
	}
	room.IsChecked = true
	room.LastCheckedAt = &now

	notes, err := json.Marshal(summary.ActionItems)
	if err != nil {
		return nil, err
	}
	logID, err := s.rooms.CreateCheckLog(ctx, &models.RoomCheckLog{
		RoomID:  room.ID,
		Summary: summary.Summary,
		Notes:   string(notes),
	})
	if err != nil {
		return nil, err
	}

	return &ConversationResult{
		Room:          room,
		Summary:       summary.Summary,
		ActionItems:   summary.ActionItems,
		MessageCount:  len(messages),
		FromTimestamp: from,
		ToTimestamp:   now,
		CheckLogID:    logID,
	}, nil
}
