package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"friday/matrix"
	"friday/models"
)

const (
	roomsSummaryMaxTokens        = 1024
	conversationSummaryMaxTokens = 2048
	processMaxTokens             = 1024
)

type Service struct {
	completer Completer
	actorID   string

	mu    sync.RWMutex
	model string
}

func NewService(completer Completer, actorID, model string) *Service {
	return &Service{completer: completer, actorID: actorID, model: model}
}

func (s *Service) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// SetModel switches the chat model for subsequent calls. Blank names are ignored.
func (s *Service) SetModel(model string) {
	if model == "" {
		return
	}
	s.mu.Lock()
	s.model = model
	s.mu.Unlock()
}

// extractJSON returns the text between the first "{" and the last "}".
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func decodeReply(text string, out interface{}) bool {
	raw, ok := extractJSON(text)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

// SummaryResult is what the model returns for a subscriber room.
type SummaryResult struct {
	Summary              string   `json:"summary"`
	Reply                string   `json:"reply"`
	NeedsMoreInformation bool     `json:"needs_more_information"`
	TodoList             []string `json:"todo_list"`
}

// ProcessContext asks the model to summarize the prepared context. A reply
// that is not JSON becomes the summary as-is.
func (s *Service) ProcessContext(ctx context.Context, c *Context) (*SummaryResult, error) {
	doc, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode llm context: %w", err)
	}
	prompt := fmt.Sprintf(`You are Friday, an assistant reading a chat conversation on behalf of its owner.
Messages from "yourself" were written by the owner.
Follow the goals and response rules in the context below.

Context:
%s

Respond only with a JSON object that has exactly the keys of output_format.`, doc)

	text, err := s.completer.Complete(ctx, s.Model(), prompt, processMaxTokens)
	if err != nil {
		return nil, err
	}

	var result SummaryResult
	if !decodeReply(text, &result) {
		result = SummaryResult{Summary: strings.TrimSpace(text)}
	}
	if result.TodoList == nil {
		result.TodoList = []string{}
	}
	return &result, nil
}

type TodoItem struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
	Action   string `json:"action"`
	Priority string `json:"priority"`
}

type RoomsSummary struct {
	Summary  string     `json:"summary"`
	TodoList []TodoItem `json:"todo_list"`
}

type roomInfo struct {
	RoomID      string `json:"room_id"`
	Name        string `json:"name"`
	Creator     string `json:"creator"`
	MemberCount int    `json:"member_count"`
	CreatedAt   string `json:"created_at"`
}

// GenerateRoomsSummary reviews rooms that still need an operator's attention.
func (s *Service) GenerateRoomsSummary(ctx context.Context, rooms []*models.Room) (*RoomsSummary, error) {
	if len(rooms) == 0 {
		return &RoomsSummary{Summary: "No unchecked rooms to review.", TodoList: []TodoItem{}}, nil
	}

	infos := make([]roomInfo, 0, len(rooms))
	for _, r := range rooms {
		info := roomInfo{
			RoomID:      r.RoomID,
			Name:        r.Name,
			Creator:     r.Creator,
			MemberCount: r.MemberCount,
			CreatedAt:   "Unknown",
		}
		if info.Name == "" {
			info.Name = "Unnamed Room"
		}
		if r.RoomCreatedAt != nil {
			info.CreatedAt = r.RoomCreatedAt.Format(time.RFC3339)
		}
		infos = append(infos, info)
	}
	doc, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`You are an assistant helping to manage Matrix chat rooms.
Analyze the following list of unchecked rooms and provide:
1. A brief summary of the rooms (2-3 sentences)
2. A prioritized todo list of actions that need to be taken for each room

Rooms to analyze:
%s

Respond in JSON format with the following structure:
{
    "summary": "Your summary here",
    "todo_list": [
        {
            "room_id": "!roomid:matrix.org",
            "room_name": "Room Name",
            "action": "What needs to be done",
            "priority": "high|medium|low"
        }
    ]
}

Focus on identifying rooms that might need immediate attention (many members, old unchecked, etc.).`, doc)

	text, err := s.completer.Complete(ctx, s.Model(), prompt, roomsSummaryMaxTokens)
	if err != nil {
		return nil, err
	}

	var result RoomsSummary
	if decodeReply(text, &result) {
		if result.TodoList == nil {
			result.TodoList = []TodoItem{}
		}
		return &result, nil
	}

	fallback := &RoomsSummary{Summary: text, TodoList: make([]TodoItem, 0, len(rooms))}
	for _, r := range rooms {
		name := r.Name
		if name == "" {
			name = "Unnamed"
		}
		fallback.TodoList = append(fallback.TodoList, TodoItem{
			RoomID:   r.RoomID,
			RoomName: name,
			Action:   "Review room",
			Priority: "medium",
		})
	}
	return fallback, nil
}

type ActionItem struct {
	Description string  `json:"description"`
	Assignee    *string `json:"assignee"`
	DueDate     *string `json:"due_date"`
	Priority    string  `json:"priority"`
}

type ConversationSummary struct {
	Summary     string       `json:"summary"`
	ActionItems []ActionItem `json:"action_items"`
}

// GenerateConversationSummary summarizes a room conversation into prose and
// action items.
func (s *Service) GenerateConversationSummary(ctx context.Context, roomName string, messages []matrix.Message) (*ConversationSummary, error) {
	if len(messages) == 0 {
		return &ConversationSummary{Summary: "No new messages to summarize.", ActionItems: []ActionItem{}}, nil
	}

	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", m.Timestamp.Format(time.RFC3339), m.Sender, m.Body))
	}

	prompt := fmt.Sprintf(`You are an assistant analyzing a Matrix chat room conversation.
Room: %s

Analyze the following conversation and provide:
1. A concise summary of the discussion (3-5 sentences)
2. A list of action items that were mentioned or implied

Conversation:
%s

Respond in JSON format:
{
    "summary": "Your summary of the conversation here",
    "action_items": [
        {
            "description": "What needs to be done",
            "assignee": "@user:matrix.org or null if not specified",
            "due_date": "mentioned deadline or null",
            "priority": "high|medium|low"
        }
    ]
}

Focus on:
- Key decisions made
- Questions that need answers
- Tasks assigned to specific people
- Deadlines mentioned
- Unresolved issues`, roomName, strings.Join(lines, "\n"))

	text, err := s.completer.Complete(ctx, s.Model(), prompt, conversationSummaryMaxTokens)
	if err != nil {
		return nil, err
	}

	var result ConversationSummary
	if !decodeReply(text, &result) {
		result = ConversationSummary{Summary: text}
	}
	if result.ActionItems == nil {
		result.ActionItems = []ActionItem{}
	}
	return &result, nil
}

// FormatSummaryMessage renders a summary as the plain-text message sent to a
// subscriber. count is how many summaries the room has had today.
func FormatSummaryMessage(roomLabel string, result *SummaryResult, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary for %s\n\n", roomLabel)
	b.WriteString(strings.TrimSpace(result.Summary))

	if len(result.TodoList) > 0 {
		b.WriteString("\n\nTasks:")
		for _, item := range result.TodoList {
			fmt.Fprintf(&b, "\n• %s", item)
		}
	}
	if reply := strings.TrimSpace(result.Reply); reply != "" {
		fmt.Fprintf(&b, "\n\nSuggested reply:\n%s", reply)
	}
	if result.NeedsMoreInformation {
		b.WriteString("\n\nSome details are still unclear. You may want to ask for more information.")
	}
	fmt.Fprintf(&b, "\n\nSummary %d of today", count)
	return b.String()
}
