// Package auth provides authentication and authorisation for panel-core.
//
// It implements a 2-tier role model (user → admin) with:
//   - bcrypt password hashing
//   - short-lived JWT access tokens (HS256, signature-only validation)
//   - SQLite-backed user accounts seeded with an admin on first boot
//
// Users operate the panel (toggle LEDs, simulate presses, read history);
// admins additionally manage accounts. There is no per-entity access
// model: the panel is a single shared device.
package auth
