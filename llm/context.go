package llm

import (
	"encoding/json"
	"fmt"

	"friday/matrix"
	"friday/models"
)

type MessageItem struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

type ReplyGeneration struct {
	DirectAnswerIfPossible bool `json:"direct_answer_if_possible"`
	AcknowledgeIfUnclear   bool `json:"acknowledge_if_unclear"`
}

type TaskExtraction struct {
	Enabled          bool `json:"enabled"`
	OnlyIfActionable bool `json:"only_if_actionable"`
}

type ConversationSummaryGoal struct {
	Enabled bool   `json:"enabled"`
	Length  string `json:"length"`
}

type Goals struct {
	ReplyGeneration     ReplyGeneration         `json:"reply_generation"`
	TaskExtraction      TaskExtraction          `json:"task_extraction"`
	ConversationSummary ConversationSummaryGoal `json:"conversation_summary"`
}

type ResponseRules struct {
	Language   string `json:"language"`
	Tone       string `json:"tone"`
	EmojiUsage string `json:"emoji_usage"`
	NoMarkdown bool   `json:"no_markdown"`
}

type OutputFormat struct {
	Summary              string `json:"summary"`
	Reply                string `json:"reply"`
	NeedsMoreInformation string `json:"needs_more_information"`
	TodoList             string `json:"todo_list"`
}

// Context is the document handed to the model when summarizing a room.
type Context struct {
	Messages      []MessageItem     `json:"messages"`
	SenderMapping map[string]string `json:"sender_mapping"`
	Goals         Goals             `json:"goals"`
	ResponseRules ResponseRules     `json:"response_rules"`
	OutputFormat  OutputFormat      `json:"output_format"`
}

var (
	defaultGoals = Goals{
		ReplyGeneration:     ReplyGeneration{DirectAnswerIfPossible: true, AcknowledgeIfUnclear: true},
		TaskExtraction:      TaskExtraction{Enabled: true, OnlyIfActionable: true},
		ConversationSummary: ConversationSummaryGoal{Enabled: true, Length: "short"},
	}
	defaultRules = ResponseRules{
		Language:   "same as sender",
		Tone:       "natural, polite, concise",
		EmojiUsage: "only_if_user_used",
		NoMarkdown: true,
	}
	defaultOutput = OutputFormat{
		Summary:              "string",
		Reply:                "string | null",
		NeedsMoreInformation: "boolean",
		TodoList:             "array of strings | empty",
	}
)

// BuildContext maps the bot's own messages to "yourself" and every other
// sender to itself.
func (s *Service) BuildContext(messages []MessageItem) *Context {
	mapping := map[string]string{s.actorID: "yourself"}
	items := make([]MessageItem, 0, len(messages))
	for _, m := range messages {
		if _, ok := mapping[m.Sender]; m.Sender != "" && !ok {
			mapping[m.Sender] = m.Sender
		}
		items = append(items, m)
	}
	return &Context{
		Messages:      items,
		SenderMapping: mapping,
		Goals:         defaultGoals,
		ResponseRules: defaultRules,
		OutputFormat:  defaultOutput,
	}
}

// BuildSummaryContext prepares state for processing. It returns nil when there
// is nothing new, leaving state untouched.
func (s *Service) BuildSummaryContext(state *models.ConversationProcessingState, messages []matrix.Message) (*Context, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	items := make([]MessageItem, 0, len(messages))
	newest := messages[0].Timestamp
	for _, m := range messages {
		items = append(items, MessageItem{Sender: m.Sender, Content: m.Body})
		if m.Timestamp.After(newest) {
			newest = m.Timestamp
		}
	}
	c := s.BuildContext(items)

	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode llm context: %w", err)
	}
	state.LLMContextToProcess = raw
	state.Status = models.StateReady
	state.LastMessageSyncedAt = &newest
	state.FailureReason = ""
	return c, nil
}
