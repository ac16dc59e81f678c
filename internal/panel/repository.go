package panel

import "context"

// StateRepository persists the current actuator states.
//
// The leds and pushbuttons tables hold exactly one row per entity,
// seeded by the initial migration; implementations only ever update
// those rows. Implementations must be thread-safe and use UTC
// timestamps.
type StateRepository interface {
	// LEDStates returns the persisted state of all three LEDs,
	// position 0 holding LED 1.
	LEDStates(ctx context.Context) ([EntityCount]bool, error)

	// PushbuttonStates returns the persisted state of all three
	// pushbuttons, position 0 holding pushbutton 1.
	PushbuttonStates(ctx context.Context) ([EntityCount]bool, error)

	// SetLEDState persists one LED state.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - id: 1-based LED index
	//   - state: New boolean state
	//
	// Returns:
	//   - error: nil on success, otherwise the underlying persistence error
	SetLEDState(ctx context.Context, id int, state bool) error

	// SetPushbuttonState persists one pushbutton state.
	SetPushbuttonState(ctx context.Context, id int, state bool) error
}

// TransitionRepository stores and retrieves the append-only state
// transition log. There is no update or delete operation.
type TransitionRepository interface {
	// Record appends one transition. ID and CreatedAt are generated
	// when empty.
	Record(ctx context.Context, t *StateTransition) error

	// List returns transitions matching the filter, newest first.
	List(ctx context.Context, filter TransitionFilter) ([]StateTransition, error)
}

// TransitionFilter controls which transitions List returns.
type TransitionFilter struct {
	EntityType string // optional: led or pushbutton
	EntityID   int    // optional: 1-based index, 0 means all
	Limit      int    // default 50, max 200
}

// ReadingRepository stores and retrieves the sensor reading log.
type ReadingRepository interface {
	// Record appends one distance reading.
	Record(ctx context.Context, value float64) error

	// List returns recent readings, newest first (limit clamped).
	List(ctx context.Context, limit int) ([]SensorReading, error)

	// Stats returns count, average, min and max over all readings.
	Stats(ctx context.Context) (ReadingStats, error)
}
