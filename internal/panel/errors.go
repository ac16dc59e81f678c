package panel

import "errors"

// Sentinel errors for panel operations.
var (
	// ErrInvalidIndex indicates an LED or pushbutton index outside 1..3.
	// Rejected at the call boundary: no transport write, no mutation.
	ErrInvalidIndex = errors.New("panel: index out of range")

	// ErrClosed indicates the synchronizer has been shut down.
	ErrClosed = errors.New("panel: synchronizer closed")
)
