package panel

import (
	"context"
	"fmt"
	"sync"
)

// Store holds the in-memory authoritative view of the panel state and
// writes every mutation through to the state repository.
//
// Durability is best-effort: when a persistence call fails, the
// in-memory value is NOT rolled back. The error is returned so the
// caller can log it, and the in-memory state is allowed to diverge
// from the persisted state until the next successful write of the same
// entity. The synchronizer is the sole mutator, so no write ever races
// another.
type Store struct {
	repo StateRepository

	mu          sync.RWMutex
	leds        [EntityCount]bool
	pushbuttons [EntityCount]bool
	lastReading *float64
}

// NewStore creates a store backed by the given repository. Call Load
// before first use.
func NewStore(repo StateRepository) *Store {
	return &Store{repo: repo}
}

// Load reads the persisted actuator states once at startup.
func (s *Store) Load(ctx context.Context) error {
	leds, err := s.repo.LEDStates(ctx)
	if err != nil {
		return fmt.Errorf("loading led states: %w", err)
	}
	buttons, err := s.repo.PushbuttonStates(ctx)
	if err != nil {
		return fmt.Errorf("loading pushbutton states: %w", err)
	}

	s.mu.Lock()
	s.leds = leds
	s.pushbuttons = buttons
	s.mu.Unlock()

	return nil
}

// LED returns the current state of one LED.
func (s *Store) LED(index int) (bool, error) {
	if !validIndex(index) {
		return false, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leds[index-1], nil
}

// Pushbutton returns the current state of one pushbutton.
func (s *Store) Pushbutton(index int) (bool, error) {
	if !validIndex(index) {
		return false, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pushbuttons[index-1], nil
}

// SetLED updates one LED in memory and persists it. The in-memory
// update always takes effect; a non-nil error means persistence failed
// and the stored row is stale until the next successful write.
func (s *Store) SetLED(ctx context.Context, index int, state bool) error {
	if !validIndex(index) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	s.mu.Lock()
	s.leds[index-1] = state
	s.mu.Unlock()

	return s.repo.SetLEDState(ctx, index, state)
}

// SetPushbutton updates one pushbutton in memory and persists it, with
// the same best-effort durability as SetLED.
func (s *Store) SetPushbutton(ctx context.Context, index int, state bool) error {
	if !validIndex(index) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	s.mu.Lock()
	s.pushbuttons[index-1] = state
	s.mu.Unlock()

	return s.repo.SetPushbuttonState(ctx, index, state)
}

// SetLastReading records the most recent sensor value in memory.
// Reading history is persisted separately by the ReadingRepository.
func (s *Store) SetLastReading(value float64) {
	s.mu.Lock()
	s.lastReading = &value
	s.mu.Unlock()
}

// Snapshot returns a copy of the full panel state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		LEDs:        s.leds,
		Pushbuttons: s.pushbuttons,
	}
	if s.lastReading != nil {
		v := *s.lastReading
		snap.LastReading = &v
	}
	return snap
}
