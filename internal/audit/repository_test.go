package audit

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupAuditTestDB creates an in-memory SQLite database with the audit_logs table.
func setupAuditTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
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
		CREATE INDEX idx_audit_logs_time ON audit_logs(created_at DESC);
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

func TestCreateAndList(t *testing.T) {
	repo := NewSQLiteRepository(setupAuditTestDB(t))
	ctx := context.Background()

	entry := &AuditLog{
		Action:     "command",
		EntityType: "led",
		EntityID:   "2",
		UserID:     "usr-12345678",
		Source:     "user",
		Details:    map[string]any{"state": true},
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !strings.HasPrefix(entry.ID, "aud-") {
		t.Errorf("generated ID = %q, want aud- prefix", entry.ID)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt not generated")
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 || len(result.Logs) != 1 {
		t.Fatalf("List() total = %d, logs = %d, want 1/1", result.Total, len(result.Logs))
	}

	got := result.Logs[0]
	if got.Action != "command" || got.EntityType != "led" || got.EntityID != "2" {
		t.Errorf("log = %+v", got)
	}
	if got.Details["state"] != true {
		t.Errorf("Details = %v, want state=true", got.Details)
	}
}

func TestList_FilterByAction(t *testing.T) {
	repo := NewSQLiteRepository(setupAuditTestDB(t))
	ctx := context.Background()

	seed := []AuditLog{
		{Action: "login", EntityType: "user", UserID: "usr-1", Source: "user"},
		{Action: "command", EntityType: "led", EntityID: "1", Source: "user"},
		{Action: "sensor_reading", EntityType: "sensor", Source: "hardware"},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	result, err := repo.List(ctx, Filter{Action: "command"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 || result.Logs[0].EntityType != "led" {
		t.Errorf("filtered result = %+v", result)
	}

	byEntity, err := repo.List(ctx, Filter{EntityType: "sensor"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if byEntity.Total != 1 || byEntity.Logs[0].Action != "sensor_reading" {
		t.Errorf("entity filter result = %+v", byEntity)
	}
}

func TestList_PaginationAndClamp(t *testing.T) {
	repo := NewSQLiteRepository(setupAuditTestDB(t))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 60; i++ {
		entry := &AuditLog{
			Action:     "command",
			EntityType: "led",
			EntityID:   "1",
			Source:     "user",
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Create(ctx, entry); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	page, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page.Logs) != 50 {
		t.Errorf("default page size = %d, want 50", len(page.Logs))
	}
	if page.Total != 60 {
		t.Errorf("Total = %d, want 60", page.Total)
	}

	offset, err := repo.List(ctx, Filter{Limit: 50, Offset: 50})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(offset.Logs) != 10 {
		t.Errorf("second page = %d logs, want 10", len(offset.Logs))
	}

	// Newest first within a page.
	first := page.Logs[0].CreatedAt
	last := page.Logs[len(page.Logs)-1].CreatedAt
	if first.Before(last) {
		t.Error("logs not ordered newest first")
	}
}

func TestList_EmptyTable(t *testing.T) {
	repo := NewSQLiteRepository(setupAuditTestDB(t))

	result, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Logs == nil || len(result.Logs) != 0 {
		t.Errorf("Logs = %v, want empty non-nil slice", result.Logs)
	}
}
