package panel

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteStateRepository implements StateRepository using SQLite.
type SQLiteStateRepository struct {
	db *sql.DB
}

// NewSQLiteStateRepository creates a new actuator state repository.
func NewSQLiteStateRepository(db *sql.DB) *SQLiteStateRepository {
	return &SQLiteStateRepository{db: db}
}

// LEDStates returns the persisted state of all three LEDs.
func (r *SQLiteStateRepository) LEDStates(ctx context.Context) ([EntityCount]bool, error) {
	return r.loadStates(ctx, "leds")
}

// PushbuttonStates returns the persisted state of all three pushbuttons.
func (r *SQLiteStateRepository) PushbuttonStates(ctx context.Context) ([EntityCount]bool, error) {
	return r.loadStates(ctx, "pushbuttons")
}

// loadStates reads the fixed three rows of an actuator table.
// Table name is a compile-time constant, never user input.
func (r *SQLiteStateRepository) loadStates(ctx context.Context, table string) ([EntityCount]bool, error) {
	var states [EntityCount]bool

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, state FROM %s ORDER BY id", table)) //nolint:gosec // table is a constant
	if err != nil {
		return states, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	seen := 0
	for rows.Next() {
		var id, state int
		if err := rows.Scan(&id, &state); err != nil {
			return states, fmt.Errorf("scanning %s: %w", table, err)
		}
		if !validIndex(id) {
			return states, fmt.Errorf("%s row id %d out of range", table, id)
		}
		states[id-1] = state != 0
		seen++
	}
	if err := rows.Err(); err != nil {
		return states, fmt.Errorf("iterating %s: %w", table, err)
	}
	if seen != EntityCount {
		return states, fmt.Errorf("%s holds %d rows, want %d", table, seen, EntityCount)
	}

	return states, nil
}

// SetLEDState persists one LED state.
func (r *SQLiteStateRepository) SetLEDState(ctx context.Context, id int, state bool) error {
	return r.setState(ctx, "leds", id, state)
}

// SetPushbuttonState persists one pushbutton state.
func (r *SQLiteStateRepository) SetPushbuttonState(ctx context.Context, id int, state bool) error {
	return r.setState(ctx, "pushbuttons", id, state)
}

func (r *SQLiteStateRepository) setState(ctx context.Context, table string, id int, state bool) error {
	if !validIndex(id) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, id)
	}

	result, err := r.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET state = ?, updated_at = ? WHERE id = ?", table), //nolint:gosec // table is a constant
		boolToInt(state),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating %s %d: %w", table, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s row %d missing (schema not seeded?)", table, id)
	}

	return nil
}

// boolToInt converts a bool to SQLite's 0/1 integer representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
