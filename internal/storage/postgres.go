package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/polzovatel/flightcheck/internal/flight"
)

// Run is one scenario's search and what it extracted.
type Run struct {
	ID            uuid.UUID
	Scenario      string
	Origin        string
	Destination   string
	DepartureDate string
	ReturnDate    string
	StartedAt     time.Time
	Records       []flight.Record
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.ensureSchema(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SaveRun stores the run and its records in one transaction and returns the
// number of records written.
func (s *PostgresStore) SaveRun(ctx context.Context, run Run) (n int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO search_runs (id, scenario, origin, destination, departure_date, return_date, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		run.ID.String(), run.Scenario, run.Origin, run.Destination, run.DepartureDate, run.ReturnDate, started,
	); err != nil {
		return 0, fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO flights (run_id, flight_index, departure_time, arrival_time, airline, price, connection, duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, flight_index) DO UPDATE
		SET
			departure_time = EXCLUDED.departure_time,
			arrival_time = EXCLUDED.arrival_time,
			airline = EXCLUDED.airline,
			price = EXCLUDED.price,
			connection = EXCLUDED.connection,
			duration = EXCLUDED.duration`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range run.Records {
		if _, err = stmt.ExecContext(ctx,
			run.ID.String(), r.Index, r.DepartureTime, r.ArrivalTime, r.Airline, nullPrice(r.Price), r.Connection, r.Duration,
		); err != nil {
			return 0, fmt.Errorf("insert flight %d: %w", r.Index, err)
		}
		n++
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return n, nil
}

// Records loads the records of one run ordered by card index.
func (s *PostgresStore) Records(ctx context.Context, id uuid.UUID) ([]flight.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT flight_index, departure_time, arrival_time, airline, price, connection, duration
		FROM flights WHERE run_id = $1 ORDER BY flight_index`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query flights: %w", err)
	}
	defer rows.Close()

	var out []flight.Record
	for rows.Next() {
		var (
			r     flight.Record
			price sql.NullInt64
		)
		if err := rows.Scan(&r.Index, &r.DepartureTime, &r.ArrivalTime, &r.Airline, &price, &r.Connection, &r.Duration); err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		if price.Valid {
			r.Price = flight.IntPtr(int(price.Int64))
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullPrice(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS search_runs (
			id UUID PRIMARY KEY,
			scenario TEXT NOT NULL,
			origin TEXT NOT NULL DEFAULT '',
			destination TEXT NOT NULL DEFAULT '',
			departure_date TEXT NOT NULL DEFAULT '',
			return_date TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS flights (
			run_id UUID NOT NULL REFERENCES search_runs(id) ON DELETE CASCADE,
			flight_index INTEGER NOT NULL,
			departure_time TEXT NOT NULL,
			arrival_time TEXT NOT NULL,
			airline TEXT NOT NULL,
			price BIGINT,
			connection TEXT NOT NULL,
			duration TEXT NOT NULL,
			PRIMARY KEY (run_id, flight_index)
		);
		CREATE INDEX IF NOT EXISTS idx_flights_airline ON flights(airline);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
