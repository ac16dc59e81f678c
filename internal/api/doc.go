// Package api provides the HTTP REST API and WebSocket server for
// panel-core.
//
// The API exposes panel state, LED and pushbutton control, sensor
// reading history and statistics, the state transition log, the audit
// trail and user management under /api/v1. Authentication is JWT
// bearer tokens issued by POST /auth/login; WebSocket connections
// authenticate with single-use tickets from POST /auth/ws-ticket so
// the token never appears in a URL.
//
// State changes flow one way: handlers enqueue commands on the
// synchronizer and the synchronizer broadcasts resulting events to the
// WebSocket hub. Handlers never mutate panel state directly.
package api
