package panel

import "time"

// EntityCount is the number of LEDs and of pushbuttons on the panel.
// Indices are 1-based, 1..3.
const EntityCount = 3

// Entity type values as stored in state_transitions and audit_logs.
const (
	EntityLED        = "led"
	EntityPushbutton = "pushbutton"
	EntitySensor     = "sensor"
)

// Origin tags who caused a state transition. It is assigned at the
// event source and never inferred after the fact.
type Origin string

// Origin values.
const (
	OriginHardware Origin = "hardware"
	OriginUser     Origin = "user"
)

// SystemActor is the fixed actor identity recorded on hardware-origin
// transitions and audit events.
const SystemActor = "controller"

// StateTransition is an immutable record of one actuator state change.
type StateTransition struct {
	// ID is the unique transition identifier (trn- prefix).
	ID string `json:"id"`

	// EntityType is led or pushbutton.
	EntityType string `json:"entity_type"`

	// EntityID is the 1-based entity index.
	EntityID int `json:"entity_id"`

	// State is the new boolean state after the transition.
	State bool `json:"state"`

	// Origin records whether the controller or a user caused the change.
	Origin Origin `json:"origin"`

	// Actor is the acting user ID, or SystemActor for hardware origin.
	Actor string `json:"actor"`

	// CreatedAt is the timestamp of the transition (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// SensorReading is one logged distance measurement.
type SensorReading struct {
	ID        int64     `json:"id"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// ReadingStats summarizes the logged sensor readings.
type ReadingStats struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Snapshot is the full panel state as seen by the store.
type Snapshot struct {
	LEDs        [EntityCount]bool `json:"leds"`
	Pushbuttons [EntityCount]bool `json:"pushbuttons"`

	// LastReading is the most recent distance value, nil before the
	// first sensor frame of the session.
	LastReading *float64 `json:"last_reading"`
}

// validIndex reports whether a 1-based LED/pushbutton index is in range.
func validIndex(index int) bool {
	return index >= 1 && index <= EntityCount
}
