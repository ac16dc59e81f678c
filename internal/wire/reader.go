package wire

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

const (
	// readBufferSize is the size of the chunk buffer for port reads.
	readBufferSize = 256

	// maxLineSize caps line accumulation; anything longer is dropped
	// as garbage to bound memory on a noisy line.
	maxLineSize = 4096
)

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

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// ReaderStats holds operational statistics for the read loop.
type ReaderStats struct {
	FramesRx     uint64
	DecodeErrors uint64
	LinesDropped uint64 // Oversized or unrecognized lines
}

// Reader runs the blocking read loop over the serial channel, splits
// the byte stream into lines, decodes each into a Frame, and hands it
// to the registered callback.
//
// Thread Safety:
//   - Start launches exactly one goroutine; the callback is invoked
//     from that goroutine only.
//   - SetOnFrame and SetLogger are safe to call from any goroutine.
//
// Lifecycle: the loop exits on Close, or on a non-timeout read error
// (the line is considered lost and the system degrades to manual
// operation). Exited() is closed when the loop stops; there is no
// reconnect policy.
type Reader struct {
	r io.Reader

	onFrame    func(Frame)
	callbackMu sync.RWMutex

	stop   *closeOnce
	exited chan struct{}

	logger   Logger
	loggerMu sync.RWMutex

	framesRx     atomic.Uint64
	decodeErrors atomic.Uint64
	linesDropped atomic.Uint64
}

// NewReader constructs a Reader over an open byte stream. The stream
// is not owned by the Reader; closing it is the caller's job and is
// what unblocks a read in flight.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:      r,
		stop:   newCloseOnce(),
		exited: make(chan struct{}),
	}
}

// SetOnFrame sets the callback for decoded frames. Set it before Start.
func (rd *Reader) SetOnFrame(fn func(Frame)) {
	rd.callbackMu.Lock()
	rd.onFrame = fn
	rd.callbackMu.Unlock()
}

// SetLogger sets the logger for this reader.
func (rd *Reader) SetLogger(logger Logger) {
	rd.loggerMu.Lock()
	rd.logger = logger
	rd.loggerMu.Unlock()
}

// Start launches the read loop goroutine.
func (rd *Reader) Start() {
	go rd.readLoop()
}

// Exited is closed when the read loop has stopped, whether by Close or
// by a terminal read error. Callers watch it to log the transition to
// manual operation.
func (rd *Reader) Exited() <-chan struct{} {
	return rd.exited
}

// Close signals the read loop to stop. It does not close the
// underlying stream; close that too to unblock a pending read.
func (rd *Reader) Close() {
	rd.stop.Close()
}

// Stats returns current operational statistics.
func (rd *Reader) Stats() ReaderStats {
	return ReaderStats{
		FramesRx:     rd.framesRx.Load(),
		DecodeErrors: rd.decodeErrors.Load(),
		LinesDropped: rd.linesDropped.Load(),
	}
}

// readLoop continuously reads chunks from the port and emits complete
// newline-terminated lines to handleLine.
func (rd *Reader) readLoop() {
	defer close(rd.exited)

	buf := make([]byte, readBufferSize)
	var lineBuf []byte

	for {
		select {
		case <-rd.stop.Done():
			return
		default:
		}

		n, err := rd.r.Read(buf)
		if err != nil {
			if rd.isStopped() {
				return
			}

			// A port configured with a read timeout reports it as a
			// recoverable error; keep looping.
			var to interface{ Timeout() bool }
			if errors.As(err, &to) && to.Timeout() {
				continue
			}

			if !errors.Is(err, io.EOF) {
				rd.logError("serial read failed, stopping reader", err)
			}
			return
		}
		if n == 0 {
			continue
		}

		chunk := buf[:n]
		for len(chunk) > 0 {
			idx := bytes.IndexByte(chunk, '\n')
			if idx == -1 {
				lineBuf = append(lineBuf, chunk...)
				if len(lineBuf) > maxLineSize {
					lineBuf = lineBuf[:0]
					rd.linesDropped.Add(1)
					rd.logWarn("dropped oversized line", "max_bytes", maxLineSize)
				}
				break
			}

			lineBuf = append(lineBuf, chunk[:idx]...)
			rd.handleLine(lineBuf)
			lineBuf = lineBuf[:0]

			chunk = chunk[idx+1:]
		}
	}
}

// handleLine decodes one complete line and dispatches the frame.
// A malformed line is logged and skipped; the loop never stops for one.
func (rd *Reader) handleLine(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}

	frame, err := DecodeFrame(line)
	if err != nil {
		rd.decodeErrors.Add(1)
		rd.logWarn("dropping malformed frame", "error", err, "line", string(line))
		return
	}

	if unknown, ok := frame.(UnknownFrame); ok {
		rd.linesDropped.Add(1)
		rd.logDebug("ignoring unrecognized frame", "line", unknown.Raw)
		return
	}

	rd.framesRx.Add(1)

	rd.callbackMu.RLock()
	callback := rd.onFrame
	rd.callbackMu.RUnlock()

	if callback != nil {
		callback(frame)
	}
}

// isStopped returns true if Close has been called.
func (rd *Reader) isStopped() bool {
	select {
	case <-rd.stop.Done():
		return true
	default:
		return false
	}
}

// logDebug logs a debug message if logger is set.
func (rd *Reader) logDebug(msg string, keysAndValues ...any) {
	rd.loggerMu.RLock()
	logger := rd.logger
	rd.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// logWarn logs a warning message if logger is set.
func (rd *Reader) logWarn(msg string, keysAndValues ...any) {
	rd.loggerMu.RLock()
	logger := rd.logger
	rd.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (rd *Reader) logError(msg string, err error) {
	rd.loggerMu.RLock()
	logger := rd.logger
	rd.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
