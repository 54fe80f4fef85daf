package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"preventivi/internal/tracker"
)

// PostgresStore хранит предложения и дневную статистику в PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore создаёт хранилище на PostgreSQL
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate создаёт таблицы, если их нет
func (r *PostgresStore) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS public.preventivi_items (
			recipient      BIGINT      NOT NULL,
			source_id      TEXT        NOT NULL,
			label          TEXT        NOT NULL,
			reference      TEXT        NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL,
			reminders_sent INTEGER     NOT NULL DEFAULT 0,
			last_action_at TIMESTAMPTZ NOT NULL,
			state          TEXT        NOT NULL,
			closed_at      TIMESTAMPTZ,
			PRIMARY KEY (recipient, source_id)
		);
		CREATE TABLE IF NOT EXISTS public.preventivi_daily (
			day       DATE    PRIMARY KEY,
			sent      INTEGER NOT NULL DEFAULT 0,
			confirmed INTEGER NOT NULL DEFAULT 0,
			expired   INTEGER NOT NULL DEFAULT 0
		);`)
	if err != nil {
		return fmt.Errorf("миграция: %w", err)
	}
	return nil
}

// Load читает все предложения и дневную статистику
func (r *PostgresStore) Load(ctx context.Context) (tracker.Document, error) {
	doc := emptyDocument()

	rows, err := r.db.QueryContext(ctx, `
		SELECT recipient, source_id, label, reference, created_at,
		       reminders_sent, last_action_at, state, closed_at
		FROM public.preventivi_items
		ORDER BY created_at, recipient, source_id`)
	if err != nil {
		return tracker.Document{}, fmt.Errorf("чтение предложений: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it       tracker.Item
			state    string
			closedAt sql.NullTime
		)
		if err := rows.Scan(&it.Key.Recipient, &it.Key.SourceID, &it.Label, &it.Reference,
			&it.CreatedAt, &it.RemindersSent, &it.LastActionAt, &state, &closedAt); err != nil {
			return tracker.Document{}, fmt.Errorf("разбор предложения: %w", err)
		}
		it.State = tracker.State(state)
		if closedAt.Valid {
			it.ClosedAt = closedAt.Time
		}
		doc.Items = append(doc.Items, it)
	}
	if err := rows.Err(); err != nil {
		return tracker.Document{}, err
	}

	dayRows, err := r.db.QueryContext(ctx, `
		SELECT TO_CHAR(day, 'YYYY-MM-DD'), sent, confirmed, expired
		FROM public.preventivi_daily`)
	if err != nil {
		return tracker.Document{}, fmt.Errorf("чтение статистики: %w", err)
	}
	defer dayRows.Close()

	for dayRows.Next() {
		var (
			day string
			s   tracker.DayStats
		)
		if err := dayRows.Scan(&day, &s.Sent, &s.Confirmed, &s.Expired); err != nil {
			return tracker.Document{}, fmt.Errorf("разбор статистики: %w", err)
		}
		doc.Daily[day] = s
	}

	return doc, dayRows.Err()
}

// Save записывает состояние одной транзакцией (upsert)
func (r *PostgresStore) Save(ctx context.Context, doc tracker.Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	itemStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO public.preventivi_items
			(recipient, source_id, label, reference, created_at, reminders_sent, last_action_at, state, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (recipient, source_id) DO UPDATE SET
			label = EXCLUDED.label,
			reference = EXCLUDED.reference,
			reminders_sent = EXCLUDED.reminders_sent,
			last_action_at = EXCLUDED.last_action_at,
			state = EXCLUDED.state,
			closed_at = EXCLUDED.closed_at`)
	if err != nil {
		return err
	}
	defer itemStmt.Close()

	for _, it := range doc.Items {
		if _, err := itemStmt.ExecContext(ctx,
			it.Key.Recipient, it.Key.SourceID, it.Label, it.Reference, it.CreatedAt,
			it.RemindersSent, it.LastActionAt, string(it.State), nullTime(it.ClosedAt),
		); err != nil {
			return fmt.Errorf("запись предложения %s: %w", it.Key, err)
		}
	}

	dayStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO public.preventivi_daily (day, sent, confirmed, expired)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (day) DO UPDATE SET
			sent = EXCLUDED.sent,
			confirmed = EXCLUDED.confirmed,
			expired = EXCLUDED.expired`)
	if err != nil {
		return err
	}
	defer dayStmt.Close()

	for day, s := range doc.Daily {
		if _, err := dayStmt.ExecContext(ctx, day, s.Sent, s.Confirmed, s.Expired); err != nil {
			return fmt.Errorf("запись статистики %s: %w", day, err)
		}
	}

	return tx.Commit()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
