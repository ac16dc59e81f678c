package wire

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/dmoralesv/panel-core/internal/infrastructure/config"
)

// Port owns the half-duplex serial channel to the panel controller.
//
// Thread Safety:
//   - Read is consumed by the single Reader goroutine only.
//   - Write and SendSetLED are safe for concurrent use; outbound
//     frames are serialized on an internal mutex.
type Port struct {
	port serial.Port

	writeMu sync.Mutex

	closed bool
	mu     sync.RWMutex
}

// OpenPort opens the configured serial device at the configured baud
// rate (8N1). Failure to open is reported as ErrPortUnavailable so the
// caller can degrade to manual operation instead of refusing to start.
func OpenPort(cfg config.SerialConfig) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
	}

	p, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrPortUnavailable, cfg.Device, err)
	}

	// With a read timeout, a quiet line surfaces as an empty read that
	// the read loop skips; without one, Close unblocks the read.
	if cfg.ReadTimeout > 0 {
		if err := p.SetReadTimeout(time.Duration(cfg.ReadTimeout) * time.Second); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("%w: set read timeout: %w", ErrPortUnavailable, err)
		}
	}

	return &Port{port: p}, nil
}

// Read implements io.Reader for the Reader's blocking read loop.
func (p *Port) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// SendSetLED encodes and transmits one set-LED command frame.
//
// Returns ErrInvalidIndex without transmitting anything when the index
// is outside 1..3, and ErrWrite when the port rejects the frame.
func (p *Port) SendSetLED(index int, state bool) error {
	frame, err := EncodeSetLED(index, state)
	if err != nil {
		return err
	}
	return p.Write(frame)
}

// Write transmits one pre-encoded frame, retrying short writes until
// the full frame is on the wire.
func (p *Port) Write(frame []byte) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	written := 0
	for written < len(frame) {
		n, err := p.port.Write(frame[written:])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
		if n == 0 {
			// Guard against a port that reports success without
			// advancing, which would spin this loop forever.
			return fmt.Errorf("%w: write returned 0 bytes without error", ErrWrite)
		}
		written += n
	}

	return nil
}

// Close closes the underlying device. This unblocks any in-flight read
// in the Reader's loop. Safe to call multiple times.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	return p.port.Close()
}
