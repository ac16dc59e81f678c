// Package panel implements the device-state synchronization engine.
//
// The panel hardware is fixed: three LEDs, three pushbuttons, and one
// HC-SR05 distance sensor, reachable only over a half-duplex serial
// line. Two independent writers can originate a state change for the
// same LED: the controller itself and a user issuing commands through
// the API. The synchronizer keeps both sides consistent without echo
// loops by funnelling every event through a single ordered intake and
// suppressing outbound commands while a hardware-origin change is
// being applied.
//
// Every applied transition is durably logged with its true origin
// (hardware or user) for audit purposes. Persistence failures never
// abort the loop: in-memory state is authoritative and writes are
// best-effort.
package panel
