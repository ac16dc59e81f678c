// Package wire implements the newline-delimited JSON framing spoken by
// the panel controller over its serial line.
//
// Inbound frames report distance readings, pushbutton vectors, and LED
// states; the only outbound frame is the set-LED command. Decoding is
// forward-compatible: fields beyond the recognized ones are ignored,
// and a line matching no known shape decodes to UnknownFrame so the
// read loop can log and drop it without stalling.
package wire
