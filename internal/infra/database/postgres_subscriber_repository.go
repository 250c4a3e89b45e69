package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"daily_horoscope_bot/internal/domain/subscriber"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrSubscriberNotFound = fmt.Errorf("subscriber not found")
var ErrDuplicateTelegramID = fmt.Errorf("subscriber with this Telegram ID already exists")

const subscriberColumns = `id, telegram_id, first_name, sign, timezone, send_hour, send_minute,
	is_active, birth_date, last_sent_date, created_at, updated_at`

type PostgresSubscriberRepository struct {
	db *sql.DB
}

func NewPostgresSubscriberRepository(db *sql.DB) *PostgresSubscriberRepository {
	return &PostgresSubscriberRepository{db: db}
}

func scanSubscriber(row interface{ Scan(...any) error }) (*subscriber.Subscriber, error) {
	s := &subscriber.Subscriber{}
	err := row.Scan(&s.ID, &s.TelegramID, &s.FirstName, &s.Sign, &s.Timezone,
		&s.Hour, &s.Minute, &s.IsActive, &s.BirthDate, &s.LastSentDate,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresSubscriberRepository) Create(ctx context.Context, s *subscriber.Subscriber) error {
	query := `INSERT INTO subscribers (telegram_id, first_name, sign, timezone, send_hour, send_minute, is_active, birth_date)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.TelegramID, s.FirstName, s.Sign, s.Timezone, s.Hour, s.Minute, s.IsActive, s.BirthDate,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") && strings.Contains(err.Error(), "subscribers_telegram_id_key") {
			return ErrDuplicateTelegramID
		}
		return fmt.Errorf("error creating subscriber: %w", err)
	}
	return nil
}

func (r *PostgresSubscriberRepository) GetByID(ctx context.Context, id int64) (*subscriber.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE id = $1`
	s, err := scanSubscriber(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("error getting subscriber by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresSubscriberRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*subscriber.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE telegram_id = $1`
	s, err := scanSubscriber(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSubscriberNotFound
		}
		return nil, fmt.Errorf("error getting subscriber by Telegram ID: %w", err)
	}
	return s, nil
}

func (r *PostgresSubscriberRepository) Update(ctx context.Context, s *subscriber.Subscriber) error {
	// last_sent_date is intentionally not part of this statement; the
	// delivery guard owns it through SetLastSentDate.
	query := `UPDATE subscribers
               SET first_name = $1, sign = $2, timezone = $3, send_hour = $4, send_minute = $5,
                   is_active = $6, birth_date = $7, updated_at = NOW()
               WHERE id = $8
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.FirstName, s.Sign, s.Timezone, s.Hour, s.Minute, s.IsActive, s.BirthDate, s.ID,
	).Scan(&s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrSubscriberNotFound
		}
		return fmt.Errorf("error updating subscriber: %w", err)
	}
	return nil
}

func (r *PostgresSubscriberRepository) ListDispatchable(ctx context.Context) ([]*subscriber.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + `
               FROM subscribers WHERE is_active = TRUE AND sign <> '' ORDER BY id`
	return r.list(ctx, query, "dispatchable")
}

func (r *PostgresSubscriberRepository) ListActive(ctx context.Context) ([]*subscriber.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + `
               FROM subscribers WHERE is_active = TRUE ORDER BY id`
	return r.list(ctx, query, "active")
}

func (r *PostgresSubscriberRepository) list(ctx context.Context, query, kind string) ([]*subscriber.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing %s subscribers: %w", kind, err)
	}
	defer rows.Close()

	subs := make([]*subscriber.Subscriber, 0)
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning %s subscriber: %w", kind, err)
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s subscribers: %w", kind, err)
	}
	return subs, nil
}

// SetLastSentDate marks the subscriber as delivered for the given local
// calendar date. Single-row write so unrelated subscribers never serialize
// on each other.
func (r *PostgresSubscriberRepository) SetLastSentDate(ctx context.Context, id int64, date time.Time) error {
	query := `UPDATE subscribers SET last_sent_date = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, date, id)
	if err != nil {
		return fmt.Errorf("error setting last sent date: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}

func (r *PostgresSubscriberRepository) Stats(ctx context.Context) (*subscriber.Stats, error) {
	query := `SELECT
               COUNT(*),
               COUNT(*) FILTER (WHERE is_active),
               COUNT(*) FILTER (WHERE last_sent_date = CURRENT_DATE)
              FROM subscribers`
	st := &subscriber.Stats{}
	if err := r.db.QueryRowContext(ctx, query).Scan(&st.Total, &st.Active, &st.SentToday); err != nil {
		return nil, fmt.Errorf("error reading subscriber stats: %w", err)
	}
	return st, nil
}
