package wire

import "errors"

// Sentinel errors for serial transport operations.
var (
	// ErrDecode indicates an inbound line could not be parsed as a frame.
	// Recoverable: the read loop logs and skips to the next line.
	ErrDecode = errors.New("wire: malformed frame")

	// ErrInvalidIndex indicates an LED index outside 1..3.
	ErrInvalidIndex = errors.New("wire: led index out of range")

	// ErrPortUnavailable indicates the serial device could not be opened.
	// The system degrades to manual operation without hardware sync.
	ErrPortUnavailable = errors.New("wire: serial port unavailable")

	// ErrWrite indicates an outbound frame could not be transmitted.
	ErrWrite = errors.New("wire: write failed")

	// ErrClosed indicates the port has been closed.
	ErrClosed = errors.New("wire: port closed")
)
