package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"office-booking/internal/apperrors"
	"office-booking/internal/schedule"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrBookingOverlap  = errors.New("booking overlaps an existing booking")
)

// Store persists bookings, one table per Kind.
type Store interface {
	// Reserve loads the bookings already stored for b's kind and date, runs
	// check against them and inserts b only if check returns nil. The load,
	// check and insert happen atomically with respect to other Reserve calls.
	Reserve(ctx context.Context, kind Kind, b *Booking, check func(existing []Booking) error) error
	ListBookingsInRange(ctx context.Context, kind Kind, from, to string) ([]Booking, error)
	ListUpcoming(ctx context.Context, kind Kind, today string) ([]Booking, error)
	ListPast(ctx context.Context, kind Kind, today string) ([]Booking, error)
	// DeleteBooking removes and returns the booking, or ErrBookingNotFound.
	DeleteBooking(ctx context.Context, kind Kind, id int64) (Booking, error)
	Ping(ctx context.Context) error
}

type PGStore struct {
	pool *pgxpool.Pool
}

// OpenPool connects to Postgres with the pool limits used by the service.
func OpenPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// The exclusion constraint keeps the no-overlap invariant even for writers
// that bypass Reserve; tsrange defaults to half-open bounds.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	requester   TEXT NOT NULL CHECK (requester <> ''),
	purpose     TEXT NOT NULL CHECK (purpose <> ''),
	date        DATE NOT NULL,
	start_time  TIME NOT NULL,
	end_time    TIME NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT %[1]s_interval_check CHECK (end_time > start_time),
	CONSTRAINT %[1]s_no_overlap EXCLUDE USING gist (
		tsrange(date + start_time, date + end_time) WITH &&
	)
);
CREATE INDEX IF NOT EXISTS %[1]s_date_idx ON %[1]s (date, start_time);
`

// EnsureSchema creates the per-kind tables if they are missing.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	for _, kind := range Kinds {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf(schemaTemplate, kind.Table())); err != nil {
			return fmt.Errorf("ensure %s schema: %w", kind, err)
		}
	}
	return nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const bookingColumns = `id, requester, purpose, to_char(date, 'YYYY-MM-DD'),
	to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), created_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *PGStore) Reserve(ctx context.Context, kind Kind, b *Booking, check func(existing []Booking) error) error {
	table := kind.Table()
	if table == "" {
		return fmt.Errorf("unknown kind %v", kind)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// serialize writers per kind and date; the lock is released on commit/rollback
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, kind.String()+":"+b.Date); err != nil {
		return err
	}

	existing, err := queryBookings(ctx, tx,
		`SELECT `+bookingColumns+` FROM `+table+` WHERE date = $1::date ORDER BY start_time`, b.Date)
	if err != nil {
		return err
	}
	if err := check(existing); err != nil {
		return err
	}

	insertQ := `INSERT INTO ` + table + ` (requester, purpose, date, start_time, end_time)
		VALUES ($1, $2, $3::date, $4::time, $5::time)
		RETURNING id, created_at`
	err = tx.QueryRow(ctx, insertQ,
		b.Requester, b.Purpose, b.Date, b.StartTime.String(), b.EndTime.String(),
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return ErrBookingOverlap
		}
		return err
	}

	return tx.Commit(ctx)
}

func (s *PGStore) ListBookingsInRange(ctx context.Context, kind Kind, from, to string) ([]Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM ` + kind.Table() + `
	      WHERE date BETWEEN $1::date AND $2::date
	      ORDER BY date, start_time`
	return queryBookings(ctx, s.pool, q, from, to)
}

func (s *PGStore) ListUpcoming(ctx context.Context, kind Kind, today string) ([]Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM ` + kind.Table() + `
	      WHERE date >= $1::date
	      ORDER BY date, start_time`
	return queryBookings(ctx, s.pool, q, today)
}

func (s *PGStore) ListPast(ctx context.Context, kind Kind, today string) ([]Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM ` + kind.Table() + `
	      WHERE date < $1::date
	      ORDER BY date DESC, start_time DESC`
	return queryBookings(ctx, s.pool, q, today)
}

func (s *PGStore) DeleteBooking(ctx context.Context, kind Kind, id int64) (Booking, error) {
	q := `DELETE FROM ` + kind.Table() + ` WHERE id = $1 RETURNING ` + bookingColumns
	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return Booking{}, err
	}
	out, err := scanBookings(rows)
	if err != nil {
		return Booking{}, err
	}
	if len(out) == 0 {
		return Booking{}, ErrBookingNotFound
	}
	return out[0], nil
}

func queryBookings(ctx context.Context, db querier, q string, args ...any) ([]Booking, error) {
	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

func scanBookings(rows pgx.Rows) ([]Booking, error) {
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		var b Booking
		var start, end string
		if err := rows.Scan(&b.ID, &b.Requester, &b.Purpose, &b.Date, &start, &end, &b.CreatedAt); err != nil {
			return nil, err
		}
		var err error
		if b.StartTime, err = schedule.ParseTimeOfDay(start); err != nil {
			return nil, err
		}
		if b.EndTime, err = schedule.ParseTimeOfDay(end); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// isExclusionViolation matches SQLSTATE 23P01 raised by the no-overlap constraint.
func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

// storeError converts storage sentinels into user-facing errors.
func storeError(kind Kind, id int64, err error) error {
	switch {
	case errors.Is(err, ErrBookingNotFound):
		return apperrors.NotFoundWithID(kind.String()+" booking", id)
	case errors.Is(err, ErrBookingOverlap):
		return apperrors.SlotConflict(0)
	case apperrors.IsAppError(err):
		return err
	}
	return apperrors.Internal(apperrors.MsgInternal, err)
}
