// Package sse provides a minimal, purpose-built SSE (Server-Sent Events)
// decoder for consuming agent response streams. It turns an incrementally
// delivered byte stream into an ordered sequence of Frames.
//
// Only the "event" and "data" fields are recognized. Comments, "id", "retry"
// and any other line shapes are ignored.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
//
// Field handling follows the WHATWG event stream format:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// DefaultEvent is the event name used when a frame carries no "event:" line.
const DefaultEvent = "message"

// Frame represents a single dispatched SSE event, delimited by a blank line
// in the upstream byte stream.
type Frame struct {
	// Event is the SSE event name from the "event:" field, trimmed.
	// Defaults to DefaultEvent.
	Event string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n".
	Data string
}
