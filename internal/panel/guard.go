package panel

// echoGuard suppresses outbound LED commands while a hardware-origin
// state change is being applied. Without it, a state report from the
// controller would be reflected straight back as a command, and the
// controller's answering report would bounce again, forever.
//
// The guard is owned by the synchronizer and only ever touched from
// its single consumer goroutine, so at most one suppression scope is
// active at a time and no locking is needed.
type echoGuard struct {
	suppressed bool
}

// Do runs fn with suppression engaged, clearing it on every exit path.
func (g *echoGuard) Do(fn func() error) error {
	g.suppressed = true
	defer func() { g.suppressed = false }()
	return fn()
}

// Suppressed reports whether a suppression scope is currently active.
func (g *echoGuard) Suppressed() bool {
	return g.suppressed
}
