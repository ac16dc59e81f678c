package panel

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dmoralesv/panel-core/internal/audit"
	"github.com/dmoralesv/panel-core/internal/infrastructure/logging"
)

// setupPanelTestDB creates an in-memory SQLite database with the panel
// schema and the seeded actuator rows.
func setupPanelTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE leds (
			id INTEGER PRIMARY KEY CHECK (id BETWEEN 1 AND 3),
			state INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE TABLE pushbuttons (
			id INTEGER PRIMARY KEY CHECK (id BETWEEN 1 AND 3),
			state INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE TABLE sensor_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			value REAL NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE TABLE state_transitions (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id INTEGER NOT NULL,
			state TEXT NOT NULL,
			origin TEXT NOT NULL,
			actor TEXT NOT NULL,
			created_at TEXT NOT NULL
		) STRICT;
		CREATE TABLE audit_logs (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT,
			user_id TEXT,
			source TEXT NOT NULL,
			details TEXT,
			created_at TEXT NOT NULL
		) STRICT;
		INSERT INTO leds (id, state) VALUES (1, 0), (2, 0), (3, 0);
		INSERT INTO pushbuttons (id, state) VALUES (1, 0), (2, 0), (3, 0);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// discardLogger returns a logger that swallows all output.
func discardLogger() *logging.Logger {
	return &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// sentCommand is one outbound set-LED call captured by fakeSender.
type sentCommand struct {
	index int
	state bool
}

// fakeSender records outbound commands instead of writing to a port.
type fakeSender struct {
	mu   sync.Mutex
	sent []sentCommand
	err  error
}

func (f *fakeSender) SendSetLED(index int, state bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentCommand{index: index, state: state})
	return nil
}

func (f *fakeSender) commands() []sentCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentCommand, len(f.sent))
	copy(out, f.sent)
	return out
}

// broadcastEvent is one captured hub broadcast.
type broadcastEvent struct {
	channel string
	payload any
}

// fakeBroadcaster records broadcast events.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (f *fakeBroadcaster) Broadcast(channel string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastEvent{channel: channel, payload: payload})
}

func (f *fakeBroadcaster) byChannel(channel string) []broadcastEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []broadcastEvent
	for _, e := range f.events {
		if e.channel == channel {
			out = append(out, e)
		}
	}
	return out
}

// testEngine bundles a running synchronizer with its collaborators.
type testEngine struct {
	sync        *Synchronizer
	store       *Store
	transitions *SQLiteTransitionRepository
	readings    *SQLiteReadingRepository
	audit       audit.Repository
	sender      *fakeSender
	broadcaster *fakeBroadcaster
}

// newTestEngine wires a synchronizer over an in-memory database with
// fake transport and hub, starts it, and registers cleanup.
func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	db := setupPanelTestDB(t)

	store := NewStore(NewSQLiteStateRepository(db))
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	e := &testEngine{
		store:       store,
		transitions: NewSQLiteTransitionRepository(db),
		readings:    NewSQLiteReadingRepository(db),
		audit:       audit.NewSQLiteRepository(db),
		sender:      &fakeSender{},
		broadcaster: &fakeBroadcaster{},
	}

	s, err := NewSynchronizer(Deps{
		Store:         e.store,
		Transitions:   e.transitions,
		Readings:      e.readings,
		Audit:         e.audit,
		Logger:        discardLogger(),
		Sender:        e.sender,
		Broadcaster:   e.broadcaster,
		PressDuration: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewSynchronizer() error = %v", err)
	}

	s.Start()
	t.Cleanup(func() {
		s.Close()
	})

	e.sync = s
	return e
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// transitionsFor lists all recorded transitions for one entity.
func (e *testEngine) transitionsFor(t *testing.T, entityType string, id int) []StateTransition {
	t.Helper()

	list, err := e.transitions.List(context.Background(), TransitionFilter{
		EntityType: entityType,
		EntityID:   id,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	return list
}
