package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/egov_portal/backend/internal/models"
	"github.com/egov_portal/backend/internal/tickets"
)

const maxIDAttempts = 5

// Store persists complaint tickets in Postgres and implements tickets.Repository.
type Store struct {
	Pool *pgxpool.Pool
	IDs  *tickets.IDGenerator
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool, IDs: tickets.NewIDGenerator()}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS complaints (
	id          TEXT PRIMARY KEY,
	full_name   TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	details     TEXT NOT NULL,
	directorate TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	notes       TEXT,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS complaints_status_idx ON complaints (status);
`

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schema)
	return err
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Submit inserts the complaint under a freshly issued id. The primary key is
// the cross-process uniqueness guarantee; a taken id is redrawn.
func (s *Store) Submit(ctx context.Context, data models.ComplaintData) (string, error) {
	now := time.Now().UTC()
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := s.IDs.Next()
		tag, err := s.Pool.Exec(ctx, `
			INSERT INTO complaints (id, full_name, phone, category, details, directorate, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
			ON CONFLICT (id) DO NOTHING
		`, id, data.FullName, data.Phone, data.Category, data.Details, data.Directorate, string(models.TicketNew), now)
		if err != nil {
			return "", err
		}
		if tag.RowsAffected() == 1 {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not allocate ticket id after %d attempts", maxIDAttempts)
}

func (s *Store) Track(ctx context.Context, id string) (models.Ticket, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Ticket{}, tickets.ErrNotFound
	}
	return scanTicket(s.Pool.QueryRow(ctx, `SELECT id, status, notes, updated_at FROM complaints WHERE id = $1`, id))
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status models.TicketStatus, notes string) (models.Ticket, error) {
	var out models.Ticket
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx, `SELECT status FROM complaints WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return tickets.ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := tickets.CheckTransition(models.TicketStatus(current), status); err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `
			UPDATE complaints SET status = $1, notes = NULLIF($2, ''), updated_at = NOW()
			WHERE id = $3
			RETURNING id, status, notes, updated_at
		`, string(status), notes, id)
		out, err = scanTicket(row)
		return err
	})
	return out, err
}

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var (
		t         models.Ticket
		status    string
		notes     *string
		updatedAt time.Time
	)
	if err := row.Scan(&t.ID, &status, &notes, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, tickets.ErrNotFound
		}
		return models.Ticket{}, err
	}
	t.Status = models.TicketStatus(status)
	t.LastUpdate = models.FormatLastUpdate(updatedAt)
	if notes != nil {
		t.Notes = *notes
	}
	return t, nil
}

var _ tickets.Repository = (*Store)(nil)
