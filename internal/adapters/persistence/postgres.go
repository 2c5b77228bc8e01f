package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/pkg/metrics"
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS schedules (
	tournament_id TEXT PRIMARY KEY,
	revision      BIGINT NOT NULL,
	payload       JSONB NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
)`

	loadSQL = `SELECT payload FROM schedules WHERE tournament_id = $1`

	// The WHERE clause keeps a newer stored revision in place.
	saveSQL = `INSERT INTO schedules (tournament_id, revision, payload, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tournament_id) DO UPDATE
SET revision = EXCLUDED.revision, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
WHERE schedules.revision <= EXCLUDED.revision`
)

// PostgresPersister stores records as JSONB rows in the schedules table.
type PostgresPersister struct {
	db *sql.DB
}

// NewPostgres opens a connection pool, pings it and ensures the schema exists.
func NewPostgres(ctx context.Context, dsn string) (*PostgresPersister, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	p := &PostgresPersister{db: db}
	if err := p.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgresFromDB wraps an existing pool.
func NewPostgresFromDB(db *sql.DB) *PostgresPersister {
	return &PostgresPersister{db: db}
}

// EnsureSchema creates the schedules table if it is missing.
func (p *PostgresPersister) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Load implements Persister.
func (p *PostgresPersister) Load(ctx context.Context, tournamentID string) (*types.ScheduleRecord, error) {
	start := time.Now()
	var payload []byte
	err := p.db.QueryRowContext(ctx, loadSQL, tournamentID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordPersistenceLoad(BackendPostgres, "miss", elapsedMs(start))
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordPersistenceError(BackendPostgres, "load")
		return nil, fmt.Errorf("postgres load %s: %w", tournamentID, err)
	}
	rec, err := decode(payload)
	if err != nil {
		metrics.RecordPersistenceError(BackendPostgres, "load")
		return nil, err
	}
	metrics.RecordPersistenceLoad(BackendPostgres, "hit", elapsedMs(start))
	return rec, nil
}

// Save implements Persister.
func (p *PostgresPersister) Save(ctx context.Context, rec *types.ScheduleRecord) error {
	start := time.Now()
	b, err := encode(rec)
	if err != nil {
		metrics.RecordPersistenceError(BackendPostgres, "save")
		return err
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	if _, err := p.db.ExecContext(ctx, saveSQL, rec.TournamentID, int64(rec.Revision), b, updated); err != nil {
		metrics.RecordPersistenceError(BackendPostgres, "save")
		return fmt.Errorf("postgres save %s: %w", rec.TournamentID, err)
	}
	metrics.RecordPersistenceSave(BackendPostgres, elapsedMs(start))
	return nil
}

// Close implements Persister.
func (p *PostgresPersister) Close() error {
	return p.db.Close()
}
