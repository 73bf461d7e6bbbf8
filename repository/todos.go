package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"friday/models"
)

const todoSelect = `SELECT t.id, t.room_id, t.description, t.status, t.notes, t.created_at, t.updated_at,
		r.room_code, r.room_name
	FROM todos t
	LEFT JOIN subscriber_rooms r ON r.id = t.room_id`

type PostgresTodoRepository struct {
	db *sql.DB
}

func NewTodoRepository(db *sql.DB) *PostgresTodoRepository {
	return &PostgresTodoRepository{db: db}
}

func scanTodo(s scanner) (*models.Todo, error) {
	var (
		todo       models.Todo
		roomID     sql.NullInt64
		code, name sql.NullString
	)
	err := s.Scan(&todo.ID, &roomID, &todo.Description, &todo.Status, &todo.Notes,
		&todo.CreatedAt, &todo.UpdatedAt, &code, &name)
	if err != nil {
		return nil, err
	}
	if roomID.Valid {
		id := roomID.Int64
		todo.RoomID = &id
	}
	todo.RoomCode = code.String
	todo.RoomName = name.String
	return &todo, nil
}

func (r *PostgresTodoRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Todo, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := []*models.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

func (r *PostgresTodoRepository) Create(ctx context.Context, todo *models.Todo) error {
	if todo.Status == "" {
		todo.Status = models.TodoPending
	}
	var roomID sql.NullInt64
	if todo.RoomID != nil {
		roomID = sql.NullInt64{Int64: *todo.RoomID, Valid: true}
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO todos (room_id, description, status, notes) VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		roomID, todo.Description, todo.Status, todo.Notes).Scan(&todo.ID, &todo.CreatedAt, &todo.UpdatedAt)
	return mapError(err)
}

func (r *PostgresTodoRepository) Get(ctx context.Context, id int64) (*models.Todo, error) {
	todo, err := scanTodo(r.db.QueryRowContext(ctx, todoSelect+` WHERE t.id = $1`, id))
	return todo, mapError(err)
}

func (r *PostgresTodoRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE todos SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PostgresTodoRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// where renders the filter as a SQL condition with positional arguments.
func (f TodoFilter) where() (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if f.RoomID != 0 {
		args = append(args, f.RoomID)
		conds = append(conds, fmt.Sprintf("t.room_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		conds = append(conds, fmt.Sprintf("t.description ILIKE $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresTodoRepository) List(ctx context.Context, filter TodoFilter) ([]*models.Todo, error) {
	where, args := filter.where()
	query := todoSelect + where + ` ORDER BY t.created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return r.query(ctx, query, args...)
}

func (r *PostgresTodoRepository) Count(ctx context.Context, filter TodoFilter) (int, error) {
	where, args := filter.where()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos t`+where, args...).Scan(&n)
	return n, err
}

func (r *PostgresTodoRepository) PendingForSubscriber(ctx context.Context, subscriberID int64, limit int) ([]*models.Todo, error) {
	return r.query(ctx, todoSelect+`
		WHERE r.subscriber_id = $1 AND t.status = 'pending'
		ORDER BY t.created_at DESC
		LIMIT $2`, subscriberID, limit)
}

func (r *PostgresTodoRepository) PendingForRoom(ctx context.Context, roomID int64, limit int) ([]*models.Todo, error) {
	return r.query(ctx, todoSelect+`
		WHERE t.room_id = $1 AND t.status = 'pending'
		ORDER BY t.created_at DESC
		LIMIT $2`, roomID, limit)
}

func (r *PostgresTodoRepository) Stats(ctx context.Context) (models.TodoStats, error) {
	var s models.TodoStats
	err := r.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'done'),
			COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM todos`).Scan(&s.Total, &s.Pending, &s.Done, &s.Cancelled)
	return s, err
}
