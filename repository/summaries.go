package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"friday/models"
)

const stateColumns = `id, room_id, status, llm_context_to_process, last_message_synced_at,
	last_summarized_at, processing_started_at, failure_reason, updated_at`

type PostgresSummaryRepository struct {
	db *sql.DB
}

func NewSummaryRepository(db *sql.DB) *PostgresSummaryRepository {
	return &PostgresSummaryRepository{db: db}
}

func scanState(s scanner) (*models.ConversationProcessingState, error) {
	var (
		st                             models.ConversationProcessingState
		llmContext                     []byte
		synced, summarized, processing sql.NullTime
	)
	err := s.Scan(&st.ID, &st.RoomID, &st.Status, &llmContext, &synced, &summarized, &processing,
		&st.FailureReason, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(llmContext) > 0 {
		st.LLMContextToProcess = json.RawMessage(llmContext)
	}
	st.LastMessageSyncedAt = timePtr(synced)
	st.LastSummarizedAt = timePtr(summarized)
	st.ProcessingStartedAt = timePtr(processing)
	return &st, nil
}

// GetOrCreateState returns the processing state for a room, creating an idle
// one on first use.
func (r *PostgresSummaryRepository) GetOrCreateState(ctx context.Context, roomID int64) (*models.ConversationProcessingState, error) {
	query := `INSERT INTO conversation_processing_states (room_id, status)
		VALUES ($1, 'idle')
		ON CONFLICT (room_id) DO UPDATE SET room_id = EXCLUDED.room_id
		RETURNING ` + stateColumns
	st, err := scanState(r.db.QueryRowContext(ctx, query, roomID))
	return st, mapError(err)
}

func (r *PostgresSummaryRepository) SaveState(ctx context.Context, st *models.ConversationProcessingState) error {
	query := `UPDATE conversation_processing_states SET
			status = $2,
			llm_context_to_process = $3,
			last_message_synced_at = $4,
			last_summarized_at = $5,
			processing_started_at = $6,
			failure_reason = $7,
			updated_at = NOW()
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, st.ID, st.Status, nullJSON(st.LLMContextToProcess),
		nullTime(st.LastMessageSyncedAt), nullTime(st.LastSummarizedAt), nullTime(st.ProcessingStartedAt),
		st.FailureReason)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PostgresSummaryRepository) CreateSummary(ctx context.Context, s *models.RoomSummary) error {
	todos := s.TodoList
	if todos == nil {
		todos = []string{}
	}
	todoJSON, err := json.Marshal(todos)
	if err != nil {
		return fmt.Errorf("encode todo list: %w", err)
	}
	query := `INSERT INTO room_summaries (room_id, summary, reply, needs_more_information, todo_list,
			message_count, from_timestamp, to_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	err = r.db.QueryRowContext(ctx, query, s.RoomID, s.Summary, nullString(s.Reply), s.NeedsMoreInformation,
		todoJSON, s.MessageCount, nullTime(s.FromTimestamp), nullTime(s.ToTimestamp)).
		Scan(&s.ID, &s.CreatedAt)
	return mapError(err)
}

func (r *PostgresSummaryRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE room_summaries SET sent_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PostgresSummaryRepository) MarkSendFailed(ctx context.Context, id int64, at time.Time, sendErr string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE room_summaries SET send_failed_at = $2, send_error = $3 WHERE id = $1`, id, at, sendErr)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// LastSentAt is the newest delivery time across all of a subscriber's rooms.
func (r *PostgresSummaryRepository) LastSentAt(ctx context.Context, subscriberID int64) (*time.Time, error) {
	var last sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT MAX(rs.sent_at)
		FROM room_summaries rs
		JOIN subscriber_rooms r ON r.id = rs.room_id
		WHERE r.subscriber_id = $1 AND rs.sent_at IS NOT NULL`, subscriberID).Scan(&last)
	if err != nil {
		return nil, err
	}
	return timePtr(last), nil
}

// IncrementDailyCount bumps the room's counter for the given day and returns
// the new value in one statement.
func (r *PostgresSummaryRepository) IncrementDailyCount(ctx context.Context, roomID int64, day time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `INSERT INTO room_daily_summary_counts (room_id, date, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (room_id, date) DO UPDATE SET
			count = room_daily_summary_counts.count + 1,
			updated_at = NOW()
		RETURNING count`, roomID, dateOnly(day)).Scan(&count)
	return count, err
}

func (r *PostgresSummaryRepository) DailyCount(ctx context.Context, roomID int64, day time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count FROM room_daily_summary_counts WHERE room_id = $1 AND date = $2`,
		roomID, dateOnly(day)).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}

func (r *PostgresSummaryRepository) Recent(ctx context.Context, limit int) ([]*models.RoomSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT rs.id, rs.room_id, rs.summary, rs.reply,
			rs.needs_more_information, rs.todo_list, rs.message_count, rs.from_timestamp,
			rs.to_timestamp, rs.sent_at, rs.send_failed_at, rs.send_error, rs.created_at,
			r.room_code, r.room_name
		FROM room_summaries rs
		JOIN subscriber_rooms r ON r.id = rs.room_id
		ORDER BY rs.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.RoomSummary
	for rows.Next() {
		var (
			s                      models.RoomSummary
			reply, code, name      sql.NullString
			todoJSON               []byte
			from, to, sent, failed sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.RoomID, &s.Summary, &reply, &s.NeedsMoreInformation, &todoJSON,
			&s.MessageCount, &from, &to, &sent, &failed, &s.SendError, &s.CreatedAt, &code, &name); err != nil {
			return nil, err
		}
		if len(todoJSON) > 0 {
			if err := json.Unmarshal(todoJSON, &s.TodoList); err != nil {
				return nil, fmt.Errorf("decode todo list of summary %d: %w", s.ID, err)
			}
		}
		s.Reply = reply.String
		s.RoomCode = code.String
		s.RoomName = name.String
		s.FromTimestamp = timePtr(from)
		s.ToTimestamp = timePtr(to)
		s.SentAt = timePtr(sent)
		s.SendFailedAt = timePtr(failed)
		out = append(out, &s)
	}
	return out, rows.Err()
}
