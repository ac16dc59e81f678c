package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Number of LEDs and pushbuttons on the panel. Indices are 1-based.
const (
	MinIndex = 1
	MaxIndex = 3

	// PushbuttonCount is the fixed length of the pulsadores vector.
	PushbuttonCount = 3
)

// Frame is one decoded unit of the serial protocol. It is a tagged
// union: exactly one concrete type per recognized inbound shape, plus
// UnknownFrame for lines that parse as JSON but match no shape.
type Frame interface {
	frame()
}

// SensorFrame reports a distance reading in centimeters.
type SensorFrame struct {
	Value float64
}

// PushbuttonsFrame reports the state of all three pushbuttons.
// Position 0 is pushbutton 1.
type PushbuttonsFrame struct {
	States [PushbuttonCount]bool
}

// LEDFrame reports (inbound) or commands (outbound) a single LED state.
type LEDFrame struct {
	Index int
	State bool
}

// LEDVectorFrame reports a bulk LED state, 1-based by position.
type LEDVectorFrame struct {
	States []bool
}

// UnknownFrame carries a well-formed JSON line that matched no
// recognized shape. Callers log and drop it.
type UnknownFrame struct {
	Raw string
}

func (SensorFrame) frame()      {}
func (PushbuttonsFrame) frame() {}
func (LEDFrame) frame()         {}
func (LEDVectorFrame) frame()   {}
func (UnknownFrame) frame()     {}

// rawFrame mirrors the union of all inbound field sets. Pointer and
// slice fields distinguish absent from zero-valued.
type rawFrame struct {
	Sensor     *float64 `json:"sensor"`
	Pulsadores []bool   `json:"pulsadores"`
	LED        *int     `json:"led"`
	State      *bool    `json:"state"`
	LEDs       []bool   `json:"leds"`
}

// DecodeFrame parses one line (without its trailing newline) into a
// Frame. Lines that are not valid JSON, or that carry a recognized
// field with an invalid payload, fail with ErrDecode. Lines that are
// valid JSON but match no recognized shape decode to UnknownFrame.
func DecodeFrame(line []byte) (Frame, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrDecode)
	}

	var raw rawFrame
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	switch {
	case raw.Sensor != nil:
		return SensorFrame{Value: *raw.Sensor}, nil

	case raw.Pulsadores != nil:
		if len(raw.Pulsadores) != PushbuttonCount {
			return nil, fmt.Errorf("%w: pulsadores length %d, want %d",
				ErrDecode, len(raw.Pulsadores), PushbuttonCount)
		}
		var f PushbuttonsFrame
		copy(f.States[:], raw.Pulsadores)
		return f, nil

	case raw.LED != nil:
		if raw.State == nil {
			return nil, fmt.Errorf("%w: led frame missing state", ErrDecode)
		}
		if *raw.LED < MinIndex || *raw.LED > MaxIndex {
			return nil, fmt.Errorf("%w: led index %d", ErrDecode, *raw.LED)
		}
		return LEDFrame{Index: *raw.LED, State: *raw.State}, nil

	case raw.LEDs != nil:
		if len(raw.LEDs) == 0 || len(raw.LEDs) > MaxIndex {
			return nil, fmt.Errorf("%w: leds length %d", ErrDecode, len(raw.LEDs))
		}
		states := make([]bool, len(raw.LEDs))
		copy(states, raw.LEDs)
		return LEDVectorFrame{States: states}, nil

	default:
		return UnknownFrame{Raw: string(line)}, nil
	}
}

// setLEDCommand is the canonical outbound command shape.
type setLEDCommand struct {
	LED   int  `json:"led"`
	State bool `json:"state"`
}

// EncodeSetLED produces the newline-terminated set-LED command frame.
// The index must be within 1..3; out-of-range indices are a caller
// error and nothing is transmitted.
func EncodeSetLED(index int, state bool) ([]byte, error) {
	if index < MinIndex || index > MaxIndex {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	data, err := json.Marshal(setLEDCommand{LED: index, State: state})
	if err != nil {
		return nil, fmt.Errorf("wire: encode set-led: %w", err)
	}

	return append(data, '\n'), nil
}
