package panel

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// SQLiteTransitionRepository implements TransitionRepository using SQLite.
//
// Rows are append-only: the engine never updates or deletes a
// transition once recorded.
type SQLiteTransitionRepository struct {
	db *sql.DB
}

// NewSQLiteTransitionRepository creates a new transition log repository.
func NewSQLiteTransitionRepository(db *sql.DB) *SQLiteTransitionRepository {
	return &SQLiteTransitionRepository{db: db}
}

// Record appends one transition. ID and CreatedAt are generated if empty.
func (r *SQLiteTransitionRepository) Record(ctx context.Context, t *StateTransition) error {
	if t.EntityType != EntityLED && t.EntityType != EntityPushbutton {
		return fmt.Errorf("invalid entity type %q", t.EntityType)
	}
	if !validIndex(t.EntityID) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, t.EntityID)
	}
	if t.ID == "" {
		t.ID = "trn-" + uuid.NewString()[:8]
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO state_transitions (id, entity_type, entity_id, state, origin, actor, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.EntityType, t.EntityID,
		strconv.FormatBool(t.State),
		string(t.Origin), t.Actor,
		t.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting state transition: %w", err)
	}

	return nil
}

// List returns transitions matching the filter, ordered newest first.
func (r *SQLiteTransitionRepository) List(ctx context.Context, filter TransitionFilter) ([]StateTransition, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultHistoryLimit
	}
	if filter.Limit > maxHistoryLimit {
		filter.Limit = maxHistoryLimit
	}

	var conditions []string
	var args []any

	if filter.EntityType != "" {
		conditions = append(conditions, "entity_type = ?")
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != 0 {
		conditions = append(conditions, "entity_id = ?")
		args = append(args, filter.EntityID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, entity_type, entity_id, state, origin, actor, created_at FROM state_transitions %s ORDER BY created_at DESC, id LIMIT ?",
		where,
	)
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying state transitions: %w", err)
	}
	defer rows.Close()

	transitions := make([]StateTransition, 0, filter.Limit)
	for rows.Next() {
		var t StateTransition
		var state, origin, createdAt string

		if err := rows.Scan(&t.ID, &t.EntityType, &t.EntityID, &state, &origin, &t.Actor, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning state transition: %w", err)
		}

		t.State = state == "true"
		t.Origin = Origin(origin)

		timestamp, err := parseHistoryTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		t.CreatedAt = timestamp

		transitions = append(transitions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state transitions: %w", err)
	}

	return transitions, nil
}

// parseHistoryTimestamp parses a timestamp stored in SQLite.
func parseHistoryTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02T15:04:05Z", value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
