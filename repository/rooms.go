package repository

import (
	"context"
	"database/sql"
	"time"

	"friday/models"
)

const roomColumns = `id, room_id, name, creator, member_count, room_created_at,
	is_checked, last_checked_at, created_at, updated_at`

type PostgresRoomRepository struct {
	db *sql.DB
}

func NewRoomRepository(db *sql.DB) *PostgresRoomRepository {
	return &PostgresRoomRepository{db: db}
}

func scanRoom(s scanner) (*models.Room, error) {
	var (
		room      models.Room
		name      sql.NullString
		createdAt sql.NullTime
		checkedAt sql.NullTime
	)
	err := s.Scan(&room.ID, &room.RoomID, &name, &room.Creator, &room.MemberCount, &createdAt,
		&room.IsChecked, &checkedAt, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, err
	}
	room.Name = name.String
	room.RoomCreatedAt = timePtr(createdAt)
	room.LastCheckedAt = timePtr(checkedAt)
	return &room, nil
}

// Upsert inserts or refreshes a room by its Matrix id and marks it unchecked.
// The boolean reports whether a new row was created.
func (r *PostgresRoomRepository) Upsert(ctx context.Context, room *models.Room) (bool, error) {
	query := `INSERT INTO rooms (room_id, name, creator, member_count, room_created_at, is_checked)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		ON CONFLICT (room_id) DO UPDATE SET
			name = EXCLUDED.name,
			creator = EXCLUDED.creator,
			member_count = EXCLUDED.member_count,
			room_created_at = EXCLUDED.room_created_at,
			is_checked = FALSE,
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS inserted`
	var inserted bool
	err := r.db.QueryRowContext(ctx, query, room.RoomID, room.Name, room.Creator, room.MemberCount,
		nullTime(room.RoomCreatedAt)).Scan(&room.ID, &inserted)
	if err != nil {
		return false, mapError(err)
	}
	room.IsChecked = false
	return inserted, nil
}

func (r *PostgresRoomRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Room, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (r *PostgresRoomRepository) List(ctx context.Context) ([]*models.Room, error) {
	return r.list(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY created_at DESC`)
}

func (r *PostgresRoomRepository) ListUnchecked(ctx context.Context) ([]*models.Room, error) {
	return r.list(ctx, `SELECT `+roomColumns+` FROM rooms WHERE is_checked = FALSE ORDER BY created_at DESC`)
}

func (r *PostgresRoomRepository) GetByID(ctx context.Context, id int64) (*models.Room, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
	room, err := scanRoom(row)
	return room, mapError(err)
}

func (r *PostgresRoomRepository) GetByRoomID(ctx context.Context, roomID string) (*models.Room, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE room_id = $1`, roomID)
	room, err := scanRoom(row)
	return room, mapError(err)
}

func (r *PostgresRoomRepository) MarkChecked(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET is_checked = TRUE, last_checked_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PostgresRoomRepository) CreateCheckLog(ctx context.Context, log *models.RoomCheckLog) (int64, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO room_check_logs (room_id, summary, notes) VALUES ($1, $2, $3) RETURNING id, checked_at`,
		log.RoomID, nullString(log.Summary), nullString(log.Notes)).Scan(&log.ID, &log.CheckedAt)
	if err != nil {
		return 0, mapError(err)
	}
	return log.ID, nil
}
