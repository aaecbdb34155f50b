package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"
)

// Store persists Integrator State as key-value records, one per integrator
// sensor key, with values as human-readable decimal strings (§6).
type Store struct {
	db *sql.DB
}

// OpenStore connects to Postgres and ensures the integrator_state table
// exists.
func OpenStore(ctx context.Context, connString string) (*Store, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS integrator_state (
			sensor_id     TEXT PRIMARY KEY,
			total_kwh     TEXT NOT NULL,
			last_reset_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create integrator_state table: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveIntegratorState upserts one integrator's persisted total and last
// reset timestamp.
func (s *Store) SaveIntegratorState(ctx context.Context, sensorID string, totalKWh float64, lastResetAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO integrator_state (sensor_id, total_kwh, last_reset_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (sensor_id) DO UPDATE SET
			total_kwh = EXCLUDED.total_kwh,
			last_reset_at = EXCLUDED.last_reset_at
	`, sensorID, strconv.FormatFloat(totalKWh, 'f', -1, 64), lastResetAt)
	if err != nil {
		return fmt.Errorf("failed to save integrator state for %q: %w", sensorID, err)
	}
	return nil
}

// LoadIntegratorState reads back a persisted total and reset timestamp. ok
// is false if no row exists for sensorID. A malformed decimal string is
// reported via err so the caller can decide to reset to zero (§4.8).
func (s *Store) LoadIntegratorState(ctx context.Context, sensorID string) (totalKWh float64, lastResetAt time.Time, ok bool, err error) {
	var totalStr string
	var resetAt sql.NullTime

	row := s.db.QueryRowContext(ctx, `
		SELECT total_kwh, last_reset_at FROM integrator_state WHERE sensor_id = $1
	`, sensorID)
	switch scanErr := row.Scan(&totalStr, &resetAt); scanErr {
	case sql.ErrNoRows:
		return 0, time.Time{}, false, nil
	case nil:
		// fall through
	default:
		return 0, time.Time{}, false, fmt.Errorf("failed to load integrator state for %q: %w", sensorID, scanErr)
	}

	total, parseErr := strconv.ParseFloat(totalStr, 64)
	if parseErr != nil {
		return 0, time.Time{}, true, fmt.Errorf("malformed total_kwh for %q: %w", sensorID, parseErr)
	}
	if resetAt.Valid {
		lastResetAt = resetAt.Time
	}
	return total, lastResetAt, true, nil
}
