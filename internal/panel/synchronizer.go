package panel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmoralesv/panel-core/internal/audit"
	"github.com/dmoralesv/panel-core/internal/infrastructure/logging"
	"github.com/dmoralesv/panel-core/internal/wire"
)

const (
	// intakeSize buffers bursts from the reader without blocking it.
	intakeSize = 64

	// persistTimeout bounds every persistence call made from the apply
	// loop so a stuck database cannot stall synchronization.
	persistTimeout = 5 * time.Second

	// defaultPressDuration is how long a simulated pushbutton press is
	// held before the release phase is applied.
	defaultPressDuration = 250 * time.Millisecond
)

// WebSocket event channels published by the synchronizer.
const (
	ChannelLEDChanged        = "led.changed"
	ChannelPushbuttonChanged = "pushbutton.changed"
	ChannelSensorReading     = "sensor.reading"
)

// StateEvent is the broadcast payload for led.changed and
// pushbutton.changed.
type StateEvent struct {
	ID     int    `json:"id"`
	State  bool   `json:"state"`
	Origin Origin `json:"origin"`
}

// ReadingEvent is the broadcast payload for sensor.reading.
type ReadingEvent struct {
	Value float64 `json:"value"`
}

// CommandSender transmits outbound set-LED commands to the controller.
// Nil when the serial port could not be opened (manual mode).
type CommandSender interface {
	SendSetLED(index int, state bool) error
}

// Broadcaster fans state change events out to connected clients.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Telemetry ships readings and actuator states to the time-series
// database. Implementations must tolerate being disconnected.
type Telemetry interface {
	WriteDistanceReading(value float64)
	WriteActuatorState(entityType string, id int, state bool)
}

// Intake event kinds. Exactly two producers enqueue: the transport
// reader (frameEvent) and the API command path (the rest).
type (
	frameEvent struct {
		frame wire.Frame
	}

	toggleLEDEvent struct {
		index int
		actor string
		reply chan toggleResult
	}

	toggleResult struct {
		state bool
		err   error
	}

	pressEvent struct {
		index int
		actor string
		reply chan error
	}

	releaseEvent struct {
		index int
		actor string
	}
)

// Deps holds the synchronizer's collaborators.
type Deps struct {
	Store       *Store
	Transitions TransitionRepository
	Readings    ReadingRepository
	Audit       audit.Repository
	Logger      *logging.Logger

	// Sender is nil in manual mode; user commands then apply locally
	// without an outbound write.
	Sender CommandSender

	// Broadcaster and Telemetry are optional.
	Broadcaster Broadcaster
	Telemetry   Telemetry

	// PressDuration overrides the simulated-press hold time (tests).
	PressDuration time.Duration
}

// Synchronizer is the core control loop: it consumes hardware frames
// and user commands from a single ordered intake, applies them to the
// store, records transitions and audit events, and issues outbound
// commands when (and only when) the change originated from a user.
//
// Thread Safety:
//   - HandleFrame, ToggleLED and PressPushbutton are safe for
//     concurrent use; they only enqueue.
//   - All state application happens on the single consumer goroutine,
//     so per-entity transition order is intake arrival order.
type Synchronizer struct {
	store       *Store
	transitions TransitionRepository
	readings    ReadingRepository
	audit       audit.Repository
	logger      *logging.Logger

	sender        CommandSender
	broadcaster   Broadcaster
	telemetry     Telemetry
	pressDuration time.Duration

	guard echoGuard

	intake chan any
	stop   *closeOnce
	wg     sync.WaitGroup

	// lastButtons is the last hardware-reported pushbutton vector,
	// consumer-goroutine local. Repeated identical vectors produce no
	// transitions.
	lastButtons [EntityCount]bool
}

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// NewSynchronizer validates dependencies and creates a synchronizer.
// Call Start to launch the apply loop.
func NewSynchronizer(deps Deps) (*Synchronizer, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("panel: store is required")
	}
	if deps.Transitions == nil {
		return nil, fmt.Errorf("panel: transition repository is required")
	}
	if deps.Readings == nil {
		return nil, fmt.Errorf("panel: reading repository is required")
	}
	if deps.Audit == nil {
		return nil, fmt.Errorf("panel: audit repository is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("panel: logger is required")
	}

	pressDuration := deps.PressDuration
	if pressDuration <= 0 {
		pressDuration = defaultPressDuration
	}

	return &Synchronizer{
		store:         deps.Store,
		transitions:   deps.Transitions,
		readings:      deps.Readings,
		audit:         deps.Audit,
		logger:        deps.Logger,
		sender:        deps.Sender,
		broadcaster:   deps.Broadcaster,
		telemetry:     deps.Telemetry,
		pressDuration: pressDuration,
		intake:        make(chan any, intakeSize),
		stop:          newCloseOnce(),
	}, nil
}

// Start seeds the last-known pushbutton vector from the loaded store
// and launches the consumer goroutine.
func (s *Synchronizer) Start() {
	s.lastButtons = s.store.Snapshot().Pushbuttons

	s.wg.Add(1)
	go s.run()
}

// Close stops the consumer after draining any queued events.
func (s *Synchronizer) Close() error {
	s.stop.Close()
	s.wg.Wait()
	return nil
}

// HandleFrame enqueues a decoded hardware frame. It is the transport
// reader's callback and never blocks: when the intake is full the
// frame is dropped with a warning rather than stalling the read loop.
func (s *Synchronizer) HandleFrame(frame wire.Frame) {
	select {
	case s.intake <- frameEvent{frame: frame}:
	case <-s.stop.Done():
	default:
		s.logger.Warn("intake full, dropping hardware frame")
	}
}

// ToggleLED flips one LED on behalf of a user and returns the new
// state once the apply loop has processed it. The outbound command is
// transmitted as part of the same apply step; a transport write
// failure is logged, not returned, since the state is already applied.
func (s *Synchronizer) ToggleLED(ctx context.Context, index int, actor string) (bool, error) {
	if !validIndex(index) {
		return false, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	e := toggleLEDEvent{index: index, actor: actor, reply: make(chan toggleResult, 1)}
	select {
	case s.intake <- e:
	case <-s.stop.Done():
		return false, ErrClosed
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case res := <-e.reply:
		return res.state, res.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// PressPushbutton simulates a physical press of one pushbutton: the
// button is marked pressed, the paired LED is toggled through the
// normal user LED path, and after the press duration a release event
// is enqueued. Returns once the press phase has been applied.
func (s *Synchronizer) PressPushbutton(ctx context.Context, index int, actor string) error {
	if !validIndex(index) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	e := pressEvent{index: index, actor: actor, reply: make(chan error, 1)}
	select {
	case s.intake <- e:
	case <-s.stop.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-e.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the single consumer goroutine. On shutdown it drains queued
// events so pending user commands still get their replies.
func (s *Synchronizer) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stop.Done():
			for {
				select {
				case e := <-s.intake:
					s.apply(e)
				default:
					return
				}
			}
		case e := <-s.intake:
			s.apply(e)
		}
	}
}

// apply dispatches one intake event. It never panics the loop into
// termination: every persistence or transport failure is absorbed and
// logged here or below.
func (s *Synchronizer) apply(e any) {
	switch ev := e.(type) {
	case frameEvent:
		s.applyFrame(ev.frame)
	case toggleLEDEvent:
		s.applyToggle(ev)
	case pressEvent:
		s.applyPress(ev)
	case releaseEvent:
		s.applyPushbutton(ev.index, false, OriginUser, ev.actor, "release")
	default:
		s.logger.Warn("unknown intake event", "type", fmt.Sprintf("%T", e))
	}
}

// applyFrame handles one hardware-origin frame.
func (s *Synchronizer) applyFrame(frame wire.Frame) {
	switch f := frame.(type) {
	case wire.SensorFrame:
		s.applySensorReading(f.Value)

	case wire.PushbuttonsFrame:
		// Change-only: identical repeated vectors are hardware noise,
		// not transitions.
		for i, state := range f.States {
			if state == s.lastButtons[i] {
				continue
			}
			s.lastButtons[i] = state
			s.applyPushbutton(i+1, state, OriginHardware, SystemActor, "")
		}

	case wire.LEDFrame:
		s.applyHardwareLED(f.Index, f.State)

	case wire.LEDVectorFrame:
		for i, state := range f.States {
			s.applyHardwareLED(i+1, state)
		}

	default:
		s.logger.Debug("ignoring frame", "type", fmt.Sprintf("%T", frame))
	}
}

// applySensorReading records one distance measurement. The sensor is
// read-only from hardware, so there is no echo concern.
func (s *Synchronizer) applySensorReading(value float64) {
	ctx, cancel := persistCtx()
	defer cancel()

	s.store.SetLastReading(value)

	if err := s.readings.Record(ctx, value); err != nil {
		s.logger.Error("persisting sensor reading failed", "value", value, "error", err)
	}

	s.recordAudit(ctx, &audit.AuditLog{
		Action:     "sensor_reading",
		EntityType: EntitySensor,
		Source:     string(OriginHardware),
		Details:    map[string]any{"value": value},
	})

	if s.telemetry != nil {
		s.telemetry.WriteDistanceReading(value)
	}
	s.broadcast(ChannelSensorReading, ReadingEvent{Value: value})
}

// applyHardwareLED applies a controller-reported LED state inside a
// suppression scope so it is never reflected back as a command.
func (s *Synchronizer) applyHardwareLED(index int, state bool) {
	_ = s.guard.Do(func() error {
		s.applyLED(index, state, OriginHardware, SystemActor)
		return nil
	})
}

// applyToggle handles a user LED toggle and replies with the new state.
func (s *Synchronizer) applyToggle(e toggleLEDEvent) {
	current, err := s.store.LED(e.index)
	if err != nil {
		e.reply <- toggleResult{err: err}
		return
	}

	newState := !current
	s.applyLED(e.index, newState, OriginUser, e.actor)
	e.reply <- toggleResult{state: newState}
}

// applyPress handles the press phase of a simulated pushbutton press
// and schedules the release.
func (s *Synchronizer) applyPress(e pressEvent) {
	s.applyPushbutton(e.index, true, OriginUser, e.actor, "press")

	current, err := s.store.LED(e.index)
	if err != nil {
		e.reply <- err
		return
	}
	s.applyLED(e.index, !current, OriginUser, e.actor)

	// The release goes back through the intake so it serializes with
	// whatever else arrives in the meantime. There is no cancellation:
	// if the entity is mutated again first, both apply in order and
	// last write wins, while both history records persist.
	time.AfterFunc(s.pressDuration, func() {
		select {
		case s.intake <- releaseEvent{index: e.index, actor: e.actor}:
		case <-s.stop.Done():
		}
	})

	e.reply <- nil
}

// applyLED is the single LED apply path for both origins. The outbound
// command is sent only when no suppression scope is active, which is
// exactly the user-origin case.
func (s *Synchronizer) applyLED(index int, state bool, origin Origin, actor string) {
	ctx, cancel := persistCtx()
	defer cancel()

	if err := s.store.SetLED(ctx, index, state); err != nil {
		s.logger.Error("persisting led state failed", "led", index, "error", err)
	}

	s.recordTransition(ctx, EntityLED, index, state, origin, actor)

	if s.telemetry != nil {
		s.telemetry.WriteActuatorState(EntityLED, index, state)
	}
	s.broadcast(ChannelLEDChanged, StateEvent{ID: index, State: state, Origin: origin})

	if !s.guard.Suppressed() {
		s.sendSetLED(index, state)
	}
}

// applyPushbutton applies one pushbutton state change for either
// origin. Pushbuttons are input-only: they never drive an outbound
// command. phase is "press" or "release" for user-origin changes.
func (s *Synchronizer) applyPushbutton(index int, state bool, origin Origin, actor string, phase string) {
	ctx, cancel := persistCtx()
	defer cancel()

	if err := s.store.SetPushbutton(ctx, index, state); err != nil {
		s.logger.Error("persisting pushbutton state failed", "pushbutton", index, "error", err)
	}

	details := map[string]any{"state": state}
	if phase != "" {
		details["phase"] = phase
	}
	s.recordTransitionWithDetails(ctx, EntityPushbutton, index, state, origin, actor, details)

	if s.telemetry != nil {
		s.telemetry.WriteActuatorState(EntityPushbutton, index, state)
	}
	s.broadcast(ChannelPushbuttonChanged, StateEvent{ID: index, State: state, Origin: origin})
}

// recordTransition appends a transition plus its correlated audit
// event. Both appends are best-effort.
func (s *Synchronizer) recordTransition(ctx context.Context, entityType string, index int, state bool, origin Origin, actor string) {
	s.recordTransitionWithDetails(ctx, entityType, index, state, origin, actor,
		map[string]any{"state": state})
}

func (s *Synchronizer) recordTransitionWithDetails(ctx context.Context, entityType string, index int, state bool, origin Origin, actor string, details map[string]any) {
	t := StateTransition{
		EntityType: entityType,
		EntityID:   index,
		State:      state,
		Origin:     origin,
		Actor:      actor,
	}
	if err := s.transitions.Record(ctx, &t); err != nil {
		s.logger.Error("recording state transition failed",
			"entity_type", entityType, "entity_id", index, "error", err)
	}

	entry := &audit.AuditLog{
		Action:     "state_change",
		EntityType: entityType,
		EntityID:   fmt.Sprintf("%d", index),
		Source:     string(origin),
		Details:    details,
	}
	if origin == OriginUser {
		entry.Action = "command"
		entry.UserID = actor
	}
	s.recordAudit(ctx, entry)
}

// recordAudit appends one audit event; failure is logged only.
func (s *Synchronizer) recordAudit(ctx context.Context, entry *audit.AuditLog) {
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Error("recording audit event failed", "action", entry.Action, "error", err)
	}
}

// sendSetLED transmits the outbound command for a user-origin LED
// change. The store is already updated, so a write failure is logged
// and the user may simply re-issue the toggle.
func (s *Synchronizer) sendSetLED(index int, state bool) {
	if s.sender == nil {
		s.logger.Debug("manual mode, skipping outbound command", "led", index)
		return
	}
	if err := s.sender.SendSetLED(index, state); err != nil {
		s.logger.Error("sending led command failed", "led", index, "state", state, "error", err)
	}
}

// broadcast publishes an event when a broadcaster is wired.
func (s *Synchronizer) broadcast(channel string, payload any) {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(channel, payload)
	}
}

// persistCtx bounds one persistence call from the apply loop.
func persistCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), persistTimeout)
}
