package service

import (
	"context"
	"errors"
	"strings"

	"friday/matrix"
	"friday/models"
	"friday/repository"
	"friday/roomcode"
)

const defaultMessagesLimit = 100

type SubscriberService struct {
	subscribers repository.SubscriberRepository
	messages    MessageSource
}

func NewSubscriberService(subscribers repository.SubscriberRepository, messages MessageSource) *SubscriberService {
	return &SubscriberService{subscribers: subscribers, messages: messages}
}

func (s *SubscriberService) List(ctx context.Context) ([]*models.Subscriber, error) {
	return s.subscribers.List(ctx)
}

func (s *SubscriberService) ListRooms(ctx context.Context, subscriberID int64) ([]*models.SubscriberRoom, error) {
	if _, err := s.get(ctx, subscriberID); err != nil {
		return nil, err
	}
	return s.subscribers.ActiveRooms(ctx, subscriberID)
}

func (s *SubscriberService) get(ctx context.Context, id int64) (*models.Subscriber, error) {
	sub, err := s.subscribers.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSubscriberNotFound
	}
	return sub, err
}

type AddRoomInput struct {
	Platform string `json:"platform"`
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
	RoomCode string `json:"room_code"`
}

// AddRoom starts observing a room for the subscriber. A short room code is
// generated when none is given. An active plan caps the number of rooms.
func (s *SubscriberService) AddRoom(ctx context.Context, subscriberID int64, in AddRoomInput) (*models.SubscriberRoom, error) {
	in.RoomID = strings.TrimSpace(in.RoomID)
	if in.RoomID == "" {
		return nil, ErrInvalidInput
	}
	if in.Platform == "" {
		in.Platform = models.PlatformWhatsApp
	}
	if !models.ValidPlatform(in.Platform) {
		return nil, ErrInvalidPlatform
	}
	if _, err := s.get(ctx, subscriberID); err != nil {
		return nil, err
	}

	_, plan, err := s.subscribers.ActiveSubscription(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		n, err := s.subscribers.CountActiveRooms(ctx, subscriberID)
		if err != nil {
			return nil, err
		}
		if n >= plan.NumberOfRooms {
			return nil, ErrRoomLimit
		}
	}

	code := strings.ToLower(strings.TrimSpace(in.RoomCode))
	if code == "" {
		code, err = roomcode.Generate(func(c string) (bool, error) {
			return s.subscribers.RoomCodeExists(ctx, subscriberID, c)
		})
		if err != nil {
			return nil, err
		}
	}

	room := &models.SubscriberRoom{
		SubscriberID: subscriberID,
		Platform:     in.Platform,
		RoomID:       in.RoomID,
		RoomCode:     code,
		RoomName:     strings.TrimSpace(in.RoomName),
		IsActive:     true,
	}
	if err := s.subscribers.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

type MessagesRequest struct {
	SubscriberID int64  `json:"subscriber_id"`
	RoomID       string `json:"room_id"`
	RoomName     string `json:"room_name"`
	Platform     string `json:"platform"`
	Limit        int    `json:"limit"`
}

type RoomRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RoomMessages struct {
	Room     RoomRef          `json:"room"`
	Messages []matrix.Message `json:"messages"`
	Total    int              `json:"total"`
}

// RoomMessages returns the messages a subscriber has not read yet, registering
// the room for the subscriber on first use.
func (s *SubscriberService) RoomMessages(ctx context.Context, req MessagesRequest) (*RoomMessages, error) {
	if req.Limit <= 0 {
		req.Limit = defaultMessagesLimit
	}
	rooms, err := s.ListRooms(ctx, req.SubscriberID)
	if err != nil {
		return nil, err
	}

	var room *models.SubscriberRoom
	for _, r := range rooms {
		if r.RoomID == req.RoomID {
			room = r
			break
		}
	}
	if room == nil {
		room, err = s.AddRoom(ctx, req.SubscriberID, AddRoomInput{
			Platform: req.Platform,
			RoomID:   req.RoomID,
			RoomName: req.RoomName,
		})
		if err != nil {
			return nil, err
		}
	}

	messages, err := s.messages.AdminRoomMessages(ctx, req.RoomID, room.LastReadAt, req.Limit)
	if err != nil {
		return nil, err
	}
	return &RoomMessages{
		Room:     RoomRef{ID: req.RoomID, Name: req.RoomName},
		Messages: messages,
		Total:    len(messages),
	}, nil
}
