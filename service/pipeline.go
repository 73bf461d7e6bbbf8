package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"friday/llm"
	"friday/logger"
	"friday/models"
	"friday/repository"
)

const (
	pipelineFetchLimit = 100
	// A room left in processing longer than this is assumed abandoned.
	staleProcessing = 10 * time.Minute
)

// LastReadUpdater advances how far a subscriber room has been read.
type LastReadUpdater interface {
	UpdateRoomLastRead(ctx context.Context, id int64, at time.Time) error
}

// SummaryPipeline turns new messages of a subscriber room into a stored
// summary and pending todos.
type SummaryPipeline struct {
	summaries repository.SummaryRepository
	todos     repository.TodoRepository
	rooms     LastReadUpdater
	messages  MessageSource
	llm       *llm.Service
	log       *logrus.Entry
	now       func() time.Time
}

func NewSummaryPipeline(summaries repository.SummaryRepository, todos repository.TodoRepository,
	rooms LastReadUpdater, messages MessageSource, llmService *llm.Service) *SummaryPipeline {
	return &SummaryPipeline{
		summaries: summaries,
		todos:     todos,
		rooms:     rooms,
		messages:  messages,
		llm:       llmService,
		log:       logger.Logger.WithField("component", "summary_pipeline"),
		now:       time.Now,
	}
}

// Summarize returns nil when the room has nothing new. The processing state
// moves idle|failed -> ready -> processing -> idle, or to failed on error.
func (p *SummaryPipeline) Summarize(ctx context.Context, room *models.SubscriberRoom) (*models.RoomSummary, error) {
	state, err := p.summaries.GetOrCreateState(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("load processing state: %w", err)
	}
	if state.Status == models.StateProcessing && state.ProcessingStartedAt != nil &&
		p.now().Sub(*state.ProcessingStartedAt) < staleProcessing {
		p.log.WithField("room_id", room.ID).Debug("room already processing")
		return nil, nil
	}

	// last_read_at only moves after a successful run, so a failed run is retried
	// with the same messages.
	messages, err := p.messages.AdminRoomMessages(ctx, room.RoomID, room.LastReadAt, pipelineFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	llmContext, err := p.llm.BuildSummaryContext(state, messages)
	if err != nil {
		return nil, err
	}
	if llmContext == nil {
		return nil, nil
	}
	if err := p.summaries.SaveState(ctx, state); err != nil {
		return nil, err
	}

	started := p.now().UTC()
	state.Status = models.StateProcessing
	state.ProcessingStartedAt = &started
	if err := p.summaries.SaveState(ctx, state); err != nil {
		return nil, err
	}

	result, err := p.llm.ProcessContext(ctx, llmContext)
	if err != nil {
		return nil, p.fail(ctx, state, err)
	}

	from, to := messages[0].Timestamp, messages[len(messages)-1].Timestamp
	summary := &models.RoomSummary{
		RoomID:               room.ID,
		Summary:              result.Summary,
		Reply:                result.Reply,
		NeedsMoreInformation: result.NeedsMoreInformation,
		TodoList:             result.TodoList,
		MessageCount:         len(messages),
		FromTimestamp:        &from,
		ToTimestamp:          &to,
	}
	if err := p.summaries.CreateSummary(ctx, summary); err != nil {
		return nil, p.fail(ctx, state, err)
	}
	summary.RoomCode = room.RoomCode
	summary.RoomName = room.RoomName

	// Todos are written only once last_read_at has moved past these messages,
	// otherwise the retry would create them a second time.
	if err := p.rooms.UpdateRoomLastRead(ctx, room.ID, to); err != nil {
		return nil, p.fail(ctx, state, fmt.Errorf("advance last read: %w", err))
	}

	for _, item := range result.TodoList {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		todo := &models.Todo{RoomID: &room.ID, Description: item, Status: models.TodoPending}
		if err := p.todos.Create(ctx, todo); err != nil {
			p.log.WithError(err).WithField("room_id", room.ID).Warn("failed to store todo")
		}
	}

	done := p.now().UTC()
	state.Status = models.StateIdle
	state.LastSummarizedAt = &done
	state.ProcessingStartedAt = nil
	state.LLMContextToProcess = nil
	if err := p.summaries.SaveState(ctx, state); err != nil {
		return nil, err
	}
	return summary, nil
}

func (p *SummaryPipeline) fail(ctx context.Context, state *models.ConversationProcessingState, cause error) error {
	state.Status = models.StateFailed
	state.FailureReason = cause.Error()
	state.ProcessingStartedAt = nil
	if err := p.summaries.SaveState(ctx, state); err != nil {
		p.log.WithError(err).WithField("room_id", state.RoomID).Error("failed to record processing failure")
	}
	return cause
}

// Result rebuilds the model output of a stored summary for formatting.
func Result(s *models.RoomSummary) *llm.SummaryResult {
	return &llm.SummaryResult{
		Summary:              s.Summary,
		Reply:                s.Reply,
		NeedsMoreInformation: s.NeedsMoreInformation,
		TodoList:             s.TodoList,
	}
}
