package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dmoralesv/panel-core/internal/audit"
	"github.com/dmoralesv/panel-core/internal/auth"
)

func TestHandleLogin_Success(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{
		Username: "operator",
		Password: testUserPassword,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	decodeBody(t, rec, &resp)
	if resp.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want Bearer", resp.TokenType)
	}
	if resp.ExpiresIn != 15*60 {
		t.Errorf("ExpiresIn = %d, want 900", resp.ExpiresIn)
	}

	claims, err := auth.ParseToken(resp.AccessToken, testJWTSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != ts.operator.ID || claims.Role != auth.RoleUser {
		t.Errorf("claims = %+v", claims)
	}
}

func TestHandleLogin_RecordsAuditEvent(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{
		Username: "operator",
		Password: testUserPassword,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	result, err := audit.NewSQLiteRepository(ts.db).List(context.Background(), audit.Filter{Action: "login"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 || result.Logs[0].UserID != ts.operator.ID {
		t.Errorf("login audit = %+v", result)
	}
}

func TestHandleLogin_Rejections(t *testing.T) {
	ts := newTestServer(t)

	inactive := createTestUser(t, auth.NewUserRepository(ts.db), "retired", testUserPassword, auth.RoleUser)
	if _, err := ts.db.Exec("UPDATE users SET is_active = 0 WHERE id = ?", inactive.ID); err != nil {
		t.Fatalf("deactivating user: %v", err)
	}

	tests := []struct {
		name string
		req  loginRequest
		want int
	}{
		{"wrong password", loginRequest{Username: "operator", Password: "nope-nope-nope"}, http.StatusUnauthorized},
		{"unknown user", loginRequest{Username: "ghost", Password: testUserPassword}, http.StatusUnauthorized},
		{"inactive user", loginRequest{Username: "retired", Password: testUserPassword}, http.StatusUnauthorized},
		{"missing fields", loginRequest{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", tt.req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandleWSTicket_IssuesSingleUseTicket(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/ws-ticket", ts.userToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Ticket    string `json:"ticket"`
		ExpiresIn int    `json:"expires_in"`
	}
	decodeBody(t, rec, &body)
	if body.Ticket == "" || body.ExpiresIn != 60 {
		t.Fatalf("body = %+v", body)
	}

	entry, ok := ts.srv.validateTicket(body.Ticket)
	if !ok {
		t.Fatal("freshly issued ticket did not validate")
	}
	if entry.userID != ts.operator.ID || entry.role != auth.RoleUser {
		t.Errorf("entry = %+v", entry)
	}

	// Single use: a second validation must fail.
	if _, ok := ts.srv.validateTicket(body.Ticket); ok {
		t.Error("ticket validated twice")
	}
}

func TestHandleWSTicket_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/ws-ticket", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestValidateTicket_Expired(t *testing.T) {
	ts := newTestServer(t)

	ts.srv.tickets.mu.Lock()
	ts.srv.tickets.tickets["stale"] = ticketEntry{
		userID:    "usr-12345678",
		role:      auth.RoleUser,
		expiresAt: time.Now().Add(-time.Second),
	}
	ts.srv.tickets.mu.Unlock()

	if _, ok := ts.srv.validateTicket("stale"); ok {
		t.Error("expired ticket validated")
	}
}

func TestCleanExpiredTickets(t *testing.T) {
	ts := newTestServer(t)

	ts.srv.tickets.mu.Lock()
	ts.srv.tickets.tickets["stale"] = ticketEntry{expiresAt: time.Now().Add(-time.Second)}
	ts.srv.tickets.tickets["fresh"] = ticketEntry{expiresAt: time.Now().Add(time.Minute)}
	ts.srv.tickets.mu.Unlock()

	ts.srv.cleanExpiredTickets()

	ts.srv.tickets.mu.Lock()
	defer ts.srv.tickets.mu.Unlock()
	if _, ok := ts.srv.tickets.tickets["stale"]; ok {
		t.Error("stale ticket survived cleaning")
	}
	if _, ok := ts.srv.tickets.tickets["fresh"]; !ok {
		t.Error("fresh ticket removed by cleaning")
	}
}
