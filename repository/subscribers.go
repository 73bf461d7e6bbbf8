package repository

import (
	"context"
	"database/sql"
	"time"

	"friday/models"
)

const subscriberColumns = `s.id, s.full_name, s.email, s.phone_number, s.matrix_room_id,
	s.is_active, s.created_at, s.updated_at`

const subscriberRoomColumns = `r.id, r.subscriber_id, r.platform, r.room_id, r.room_code, r.room_name,
	r.last_read_at, r.is_active, r.created_at, r.updated_at`

type PostgresSubscriberRepository struct {
	db *sql.DB
}

func NewSubscriberRepository(db *sql.DB) *PostgresSubscriberRepository {
	return &PostgresSubscriberRepository{db: db}
}

func scanSubscriber(s scanner) (*models.Subscriber, error) {
	var (
		sub                          models.Subscriber
		fullName, email, phone, room sql.NullString
	)
	err := s.Scan(&sub.ID, &fullName, &email, &phone, &room, &sub.IsActive, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.FullName = fullName.String
	sub.Email = email.String
	sub.PhoneNumber = phone.String
	sub.MatrixRoomID = room.String
	return &sub, nil
}

func scanSubscriberRoom(s scanner) (*models.SubscriberRoom, error) {
	var (
		room       models.SubscriberRoom
		code, name sql.NullString
		lastRead   sql.NullTime
	)
	err := s.Scan(&room.ID, &room.SubscriberID, &room.Platform, &room.RoomID, &code, &name,
		&lastRead, &room.IsActive, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, err
	}
	room.RoomCode = code.String
	room.RoomName = name.String
	room.LastReadAt = timePtr(lastRead)
	return &room, nil
}

func (r *PostgresSubscriberRepository) subscribers(ctx context.Context, query string, args ...interface{}) ([]*models.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (r *PostgresSubscriberRepository) rooms(ctx context.Context, query string, args ...interface{}) ([]*models.SubscriberRoom, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.SubscriberRoom
	for rows.Next() {
		room, err := scanSubscriberRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

func (r *PostgresSubscriberRepository) List(ctx context.Context) ([]*models.Subscriber, error) {
	return r.subscribers(ctx, `SELECT `+subscriberColumns+` FROM subscribers s ORDER BY s.created_at DESC`)
}

func (r *PostgresSubscriberRepository) Get(ctx context.Context, id int64) (*models.Subscriber, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+subscriberColumns+` FROM subscribers s WHERE s.id = $1`, id)
	sub, err := scanSubscriber(row)
	return sub, mapError(err)
}

// ListActiveWithSubscription returns subscribers the bot should poll: active,
// holding an active subscription, and reachable through a Matrix room.
func (r *PostgresSubscriberRepository) ListActiveWithSubscription(ctx context.Context) ([]*models.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers s
		WHERE s.is_active = TRUE
			AND s.matrix_room_id IS NOT NULL AND s.matrix_room_id <> ''
			AND EXISTS (
				SELECT 1 FROM subscriptions sub
				WHERE sub.subscriber_id = s.id AND sub.status = 'active'
			)
		ORDER BY s.id`
	return r.subscribers(ctx, query)
}

func (r *PostgresSubscriberRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers WHERE is_active = TRUE`).Scan(&n)
	return n, err
}

// ActiveSubscription returns the subscriber's active subscription and its plan,
// or nils when there is none.
func (r *PostgresSubscriberRepository) ActiveSubscription(ctx context.Context, subscriberID int64) (*models.Subscription, *models.Plan, error) {
	query := `SELECT sub.id, sub.subscriber_id, sub.plan_id, sub.status, sub.start_at, sub.end_at,
			sub.auto_renew, sub.canceled_at, sub.created_at,
			p.id, p.name, p.price::text, p.currency, p.billing_period, p.number_of_rooms,
			p.daily_summary_quota_per_room, p.version, p.is_active, p.created_at
		FROM subscriptions sub
		JOIN plans p ON p.id = sub.plan_id
		WHERE sub.subscriber_id = $1 AND sub.status = 'active'
		LIMIT 1`
	var (
		sub      models.Subscription
		plan     models.Plan
		canceled sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, subscriberID).Scan(
		&sub.ID, &sub.SubscriberID, &sub.PlanID, &sub.Status, &sub.StartAt, &sub.EndAt,
		&sub.AutoRenew, &canceled, &sub.CreatedAt,
		&plan.ID, &plan.Name, &plan.Price, &plan.Currency, &plan.BillingPeriod, &plan.NumberOfRooms,
		&plan.DailySummaryQuotaPerRoom, &plan.Version, &plan.IsActive, &plan.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	sub.CanceledAt = timePtr(canceled)
	return &sub, &plan, nil
}

func (r *PostgresSubscriberRepository) ActiveRooms(ctx context.Context, subscriberID int64) ([]*models.SubscriberRoom, error) {
	return r.rooms(ctx, `SELECT `+subscriberRoomColumns+` FROM subscriber_rooms r
		WHERE r.subscriber_id = $1 AND r.is_active = TRUE
		ORDER BY r.created_at DESC`, subscriberID)
}

// RoomByCode matches the room code case-insensitively among active rooms.
func (r *PostgresSubscriberRepository) RoomByCode(ctx context.Context, subscriberID int64, code string) (*models.SubscriberRoom, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+subscriberRoomColumns+` FROM subscriber_rooms r
		WHERE r.subscriber_id = $1 AND LOWER(r.room_code) = LOWER($2) AND r.is_active = TRUE
		ORDER BY r.created_at DESC
		LIMIT 1`, subscriberID, code)
	room, err := scanSubscriberRoom(row)
	return room, mapError(err)
}

func (r *PostgresSubscriberRepository) GetRoom(ctx context.Context, id int64) (*models.SubscriberRoom, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+subscriberRoomColumns+` FROM subscriber_rooms r WHERE r.id = $1`, id)
	room, err := scanSubscriberRoom(row)
	return room, mapError(err)
}

func (r *PostgresSubscriberRepository) CreateRoom(ctx context.Context, room *models.SubscriberRoom) error {
	query := `INSERT INTO subscriber_rooms (subscriber_id, platform, room_id, room_code, room_name, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, room.SubscriberID, room.Platform, room.RoomID,
		nullString(room.RoomCode), nullString(room.RoomName), room.IsActive).
		Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	return mapError(err)
}

func (r *PostgresSubscriberRepository) RoomCodeExists(ctx context.Context, subscriberID int64, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriber_rooms WHERE subscriber_id = $1 AND room_code = $2)`,
		subscriberID, code).Scan(&exists)
	return exists, err
}

func (r *PostgresSubscriberRepository) UpdateRoomLastRead(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriber_rooms SET last_read_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PostgresSubscriberRepository) CountActiveRooms(ctx context.Context, subscriberID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriber_rooms WHERE subscriber_id = $1 AND is_active = TRUE`,
		subscriberID).Scan(&n)
	return n, err
}

func (r *PostgresSubscriberRepository) ActiveRoomTotal(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriber_rooms WHERE is_active = TRUE`).Scan(&n)
	return n, err
}
