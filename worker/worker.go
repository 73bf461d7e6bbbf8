// Package worker runs the subscriber bot: it polls each subscriber's Matrix
// room for commands and answers them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"friday/llm"
	"friday/logger"
	"friday/matrix"
	"friday/models"
	"friday/repository"
	"friday/service"
)

const todoListLimit = 20

const (
	helpText = `Available commands:

• help - Show this help message
• rooms - List your monitored rooms
• summary all - Get summaries for all rooms
• summary {room_code} - Get summary for a specific room
• todo all - Show all pending tasks
• todo {room_code} - Show tasks for a specific room`

	msgUnknownCommand = "Sorry, I didn't recognize that command. Type 'help' to see what I can do."
	msgNoRoomsYet     = "You don't have any monitored rooms yet."
	msgNoRooms        = "You don't have any monitored rooms."
	msgNoPending      = "No pending tasks. You're all caught up!"
	msgNothingNew     = "Tidak ada pesan baru untuk diringkas."
)

// Messenger is the part of the Matrix client the bot talks through.
type Messenger interface {
	LastMessage(ctx context.Context, roomID string) (*matrix.Message, error)
	SendMessage(ctx context.Context, roomID, body string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, room *models.SubscriberRoom) (*models.RoomSummary, error)
}

type ModelLoader interface {
	Model(ctx context.Context) (string, error)
}

type Config struct {
	BotUserID string
	Interval  time.Duration
	Cooldown  time.Duration
}

type Deps struct {
	Subscribers repository.SubscriberRepository
	Summaries   repository.SummaryRepository
	Todos       repository.TodoRepository
	Matrix      Messenger
	Pipeline    Summarizer
	Settings    ModelLoader
}

type Worker struct {
	cfg  Config
	deps Deps
	log  *logrus.Entry
	now  func() time.Time
}

func New(cfg Config, deps Deps) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	return &Worker{
		cfg:  cfg,
		deps: deps,
		log:  logger.Logger.WithField("component", "worker"),
		now:  time.Now,
	}
}

// Run polls until ctx is cancelled. Cycle errors are logged and never stop
// the loop.
func (w *Worker) Run(ctx context.Context) error {
	w.log.WithField("interval", w.cfg.Interval.String()).Info("worker started")
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		if err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			workerErrors.WithLabelValues("cycle").Inc()
			w.log.WithError(err).Error("worker cycle failed")
		}
		cycleDuration.Observe(time.Since(start).Seconds())

		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce handles the latest message of every active subscriber.
func (w *Worker) RunOnce(ctx context.Context) error {
	if w.deps.Settings != nil {
		if _, err := w.deps.Settings.Model(ctx); err != nil {
			w.log.WithError(err).Warn("could not load llm model setting")
		}
	}

	subscribers, err := w.deps.Subscribers.ListActiveWithSubscription(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		w.log.Debug("no active subscribers found")
		return nil
	}

	for _, sub := range subscribers {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.processSubscriber(ctx, sub); err != nil {
			workerErrors.WithLabelValues("subscriber").Inc()
			w.log.WithError(err).WithField("subscriber_id", sub.ID).Error("failed to process subscriber")
		}
	}
	return nil
}

func (w *Worker) processSubscriber(ctx context.Context, sub *models.Subscriber) error {
	if sub.MatrixRoomID == "" {
		return nil
	}
	last, err := w.deps.Matrix.LastMessage(ctx, sub.MatrixRoomID)
	if err != nil {
		return fmt.Errorf("read last message: %w", err)
	}
	// Our own message last means the subscriber has been answered.
	if last == nil || last.Sender == w.cfg.BotUserID {
		return nil
	}

	body := strings.ToLower(strings.TrimSpace(last.Body))
	cmd, arg := ParseCommand(body)
	if cmd == CmdNone {
		if LooksLikeCommand(body) {
			commandsTotal.WithLabelValues("unknown").Inc()
			return w.reply(ctx, sub, msgUnknownCommand)
		}
		return nil
	}

	commandsTotal.WithLabelValues(string(cmd)).Inc()
	w.log.WithFields(logrus.Fields{
		"subscriber_id": sub.ID,
		"command":       string(cmd),
	}).Info("handling command")

	switch cmd {
	case CmdHelp:
		return w.reply(ctx, sub, helpText)
	case CmdRooms:
		return w.handleRooms(ctx, sub)
	case CmdSummaryAll:
		return w.handleSummaryAll(ctx, sub)
	case CmdSummaryRoom:
		return w.handleSummaryRoom(ctx, sub, arg)
	case CmdTodoAll:
		return w.handleTodoAll(ctx, sub)
	case CmdTodoRoom:
		return w.handleTodoRoom(ctx, sub, arg)
	}
	return nil
}

func (w *Worker) reply(ctx context.Context, sub *models.Subscriber, body string) error {
	if _, err := w.deps.Matrix.SendMessage(ctx, sub.MatrixRoomID, body); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

func (w *Worker) handleRooms(ctx context.Context, sub *models.Subscriber) error {
	rooms, err := w.deps.Subscribers.ActiveRooms(ctx, sub.ID)
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		return w.reply(ctx, sub, msgNoRoomsYet)
	}
	lines := []string{"Your monitored rooms:\n"}
	for _, r := range rooms {
		lines = append(lines, fmt.Sprintf("• %s - %s", r.RoomCode, r.DisplayName()))
	}
	return w.reply(ctx, sub, strings.Join(lines, "\n"))
}

// findRoom replies with a hint and returns nil when the code is unknown.
func (w *Worker) findRoom(ctx context.Context, sub *models.Subscriber, code string) (*models.SubscriberRoom, error) {
	room, err := w.deps.Subscribers.RoomByCode(ctx, sub.ID, code)
	if errors.Is(err, repository.ErrNotFound) {
		msg := fmt.Sprintf("Room '%s' not found. Use 'rooms' to see your room codes.", code)
		return nil, w.reply(ctx, sub, msg)
	}
	return room, err
}

func (w *Worker) handleSummaryAll(ctx context.Context, sub *models.Subscriber) error {
	rooms, err := w.deps.Subscribers.ActiveRooms(ctx, sub.ID)
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		return w.reply(ctx, sub, msgNoRooms)
	}
	ok, err := w.checkCooldown(ctx, sub)
	if err != nil || !ok {
		return err
	}
	return w.processSummaries(ctx, sub, rooms)
}

func (w *Worker) handleSummaryRoom(ctx context.Context, sub *models.Subscriber, code string) error {
	room, err := w.findRoom(ctx, sub, code)
	if err != nil || room == nil {
		return err
	}
	ok, err := w.checkCooldown(ctx, sub)
	if err != nil || !ok {
		return err
	}
	return w.processSummaries(ctx, sub, []*models.SubscriberRoom{room})
}

func (w *Worker) handleTodoAll(ctx context.Context, sub *models.Subscriber) error {
	todos, err := w.deps.Todos.PendingForSubscriber(ctx, sub.ID, todoListLimit)
	if err != nil {
		return err
	}
	if len(todos) == 0 {
		return w.reply(ctx, sub, msgNoPending)
	}
	lines := []string{"Your pending tasks:\n"}
	for _, t := range todos {
		label := t.RoomCode
		if label == "" {
			label = "General"
		}
		lines = append(lines, fmt.Sprintf("• [%s] %s", label, t.Description))
	}
	return w.reply(ctx, sub, strings.Join(lines, "\n"))
}

func (w *Worker) handleTodoRoom(ctx context.Context, sub *models.Subscriber, code string) error {
	room, err := w.findRoom(ctx, sub, code)
	if err != nil || room == nil {
		return err
	}
	todos, err := w.deps.Todos.PendingForRoom(ctx, room.ID, todoListLimit)
	if err != nil {
		return err
	}
	name := room.Label()
	if len(todos) == 0 {
		return w.reply(ctx, sub, fmt.Sprintf("No pending tasks for %s.", name))
	}
	lines := []string{fmt.Sprintf("Pending tasks for %s:\n", name)}
	for _, t := range todos {
		lines = append(lines, "• "+t.Description)
	}
	return w.reply(ctx, sub, strings.Join(lines, "\n"))
}

// checkCooldown tells the subscriber how long to wait when the last summary
// went out too recently.
func (w *Worker) checkCooldown(ctx context.Context, sub *models.Subscriber) (bool, error) {
	last, err := w.deps.Summaries.LastSentAt(ctx, sub.ID)
	if err != nil {
		return false, err
	}
	if last == nil {
		return true, nil
	}
	elapsed := w.now().Sub(*last)
	if elapsed >= w.cfg.Cooldown {
		return true, nil
	}
	remaining := int(w.cfg.Cooldown.Minutes()) - int(elapsed.Minutes())
	msg := fmt.Sprintf("Please wait %d more minutes for the next summary.", remaining)
	return false, w.reply(ctx, sub, msg)
}

func (w *Worker) processSummaries(ctx context.Context, sub *models.Subscriber, rooms []*models.SubscriberRoom) error {
	_, plan, err := w.deps.Subscribers.ActiveSubscription(ctx, sub.ID)
	if err != nil {
		return err
	}
	today := w.now()
	sent, limited := 0, 0

	for _, room := range rooms {
		entry := w.log.WithFields(logrus.Fields{"subscriber_id": sub.ID, "room_id": room.ID})

		if plan != nil && plan.DailySummaryQuotaPerRoom > 0 {
			count, err := w.deps.Summaries.DailyCount(ctx, room.ID, today)
			if err != nil {
				entry.WithError(err).Error("failed to read daily summary count")
				continue
			}
			if count >= plan.DailySummaryQuotaPerRoom {
				limited++
				msg := fmt.Sprintf("You've used all %d summaries for %s today. You can ask again tomorrow.",
					plan.DailySummaryQuotaPerRoom, room.Label())
				if err := w.reply(ctx, sub, msg); err != nil {
					entry.WithError(err).Error("failed to send quota notice")
				}
				continue
			}
		}

		ok, err := w.summarizeRoom(ctx, sub, room, today)
		if err != nil {
			workerErrors.WithLabelValues("summary").Inc()
			entry.WithError(err).Error("failed to summarize room")
			continue
		}
		if ok {
			sent++
			entry.Info("sent summary")
		}
	}

	if sent == 0 && limited == 0 {
		return w.reply(ctx, sub, msgNothingNew)
	}
	return nil
}

func (w *Worker) summarizeRoom(ctx context.Context, sub *models.Subscriber, room *models.SubscriberRoom, today time.Time) (bool, error) {
	summary, err := w.deps.Pipeline.Summarize(ctx, room)
	if err != nil || summary == nil {
		return false, err
	}

	count, err := w.deps.Summaries.IncrementDailyCount(ctx, room.ID, today)
	if err != nil {
		return false, fmt.Errorf("increment daily count: %w", err)
	}

	body := llm.FormatSummaryMessage(room.Label(), service.Result(summary), count)
	if _, err := w.deps.Matrix.SendMessage(ctx, sub.MatrixRoomID, body); err != nil {
		if markErr := w.deps.Summaries.MarkSendFailed(ctx, summary.ID, w.now(), err.Error()); markErr != nil {
			w.log.WithError(markErr).Error("failed to record send failure")
		}
		return false, fmt.Errorf("send summary: %w", err)
	}

	summariesSent.Inc()
	// The subscriber already has the message, so it counts as sent either way.
	if err := w.deps.Summaries.MarkSent(ctx, summary.ID, w.now()); err != nil {
		workerErrors.WithLabelValues("mark_sent").Inc()
		w.log.WithError(err).WithField("summary_id", summary.ID).Error("failed to record sent summary")
	}
	return true, nil
}
