package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aeterna-studio/booking-bot/pkg/repository/model"
)

type PGRepo struct{ pool *pgxpool.Pool }

func NewRepo(ctx context.Context, dsn string) (*PGRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PGRepo{pool: pool}, nil
}

func (r *PGRepo) Close() {
	r.pool.Close()
}

// Init creates the tables and the uniqueness guard if they do not exist yet.
// Записи никогда не удаляются физически — только status='cancelled'.
func (r *PGRepo) Init(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS booking (
			id           BIGSERIAL PRIMARY KEY,
			user_id      BIGINT NOT NULL,
			user_name    TEXT NOT NULL,
			user_phone   TEXT NOT NULL,
			service_name TEXT NOT NULL,
			booking_at   TIMESTAMP NOT NULL,
			status       TEXT NOT NULL DEFAULT 'confirmed'
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS booking_at_confirmed_uq
			ON booking (booking_at) WHERE status = 'confirmed'`,
		`CREATE TABLE IF NOT EXISTS time_slot (
			id      BIGSERIAL PRIMARY KEY,
			slot_at TIMESTAMP NOT NULL UNIQUE
		)`,
	}
	for _, q := range ddl {
		if _, err := r.pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGRepo) AddBooking(ctx context.Context, b model.Booking) (int64, error) {
	// Если время уже занято — сработает booking_at_confirmed_uq -> 23505
	const q = `
		INSERT INTO booking (user_id, user_name, user_phone, service_name, booking_at, status)
		VALUES ($1,$2,$3,$4,$5,'confirmed')
		RETURNING id;
	`
	var id int64
	err := r.pool.QueryRow(ctx, q, b.UserID, b.UserName, b.UserPhone, b.ServiceName, b.BookingAt).Scan(&id)
	if err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == "23505" {
			return 0, model.ErrSlotTaken
		}
		return 0, err
	}
	return id, nil
}

func (r *PGRepo) UserBookings(ctx context.Context, userID int64) ([]model.Booking, error) {
	const q = `
		SELECT id, user_id, user_name, user_phone, service_name, booking_at, status
		FROM booking
		WHERE user_id=$1 AND status='confirmed' AND booking_at > now()
		ORDER BY booking_at;
	`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// CancelBooking is idempotent: flipping an already-cancelled or absent id
// succeeds with no observable change.
func (r *PGRepo) CancelBooking(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE booking SET status='cancelled' WHERE id=$1`, id)
	return err
}

func (r *PGRepo) DailyBookings(ctx context.Context, date string) ([]model.Booking, error) {
	const q = `
		SELECT id, user_id, user_name, user_phone, service_name, booking_at, status
		FROM booking
		WHERE booking_at::date = $1::date AND status='confirmed'
		ORDER BY booking_at;
	`
	rows, err := r.pool.Query(ctx, q, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r *PGRepo) BookedTimes(ctx context.Context, date string) ([]string, error) {
	const q = `
		SELECT booking_at
		FROM booking
		WHERE booking_at::date = $1::date AND status='confirmed'
		ORDER BY booking_at;
	`
	return r.queryTimes(ctx, q, date)
}

func (r *PGRepo) AdminSlotTimes(ctx context.Context, date string) ([]string, error) {
	const q = `
		SELECT slot_at
		FROM time_slot
		WHERE slot_at::date = $1::date
		ORDER BY slot_at;
	`
	return r.queryTimes(ctx, q, date)
}

// AddAdminSlot is a no-op when the slot already exists.
func (r *PGRepo) AddAdminSlot(ctx context.Context, at time.Time) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO time_slot (slot_at) VALUES ($1) ON CONFLICT DO NOTHING`, at)
	return err
}

// RemoveAdminSlot is a no-op when the slot is absent.
func (r *PGRepo) RemoveAdminSlot(ctx context.Context, at time.Time) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM time_slot WHERE slot_at=$1`, at)
	return err
}

func (r *PGRepo) queryTimes(ctx context.Context, q, date string) ([]string, error) {
	rows, err := r.pool.Query(ctx, q, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, err
		}
		out = append(out, at.Format("15:04"))
	}
	return out, rows.Err()
}

func scanBookings(rows pgx.Rows) ([]model.Booking, error) {
	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.UserName, &b.UserPhone, &b.ServiceName, &b.BookingAt, &b.Status); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
