// Package chunk normalizes decoded stream payloads into renderable text
// increments.
//
// Agent backends differ in how they frame streamed output: plain string
// chunks, OpenAI-style "choices[].delta", generic "delta"/"token"/"chunk"
// fields, and full message replacement payloads. The extractor walks a
// payload with an ordered list of recognized shapes so the rest of the
// client only deals in StreamChunks.
package chunk

import (
	"encoding/json"
	"strings"
)

// Mode is how a chunk's text is applied to the accumulated message.
type Mode string

const (
	// ModeAppend extends the accumulated message with the chunk text.
	ModeAppend Mode = "append"

	// ModeReplace replaces the accumulated message wholesale.
	ModeReplace Mode = "replace"
)

// doneSentinel terminates OpenAI-compatible streams.
const doneSentinel = "[DONE]"

// Body is the extractor's output for one payload.
type Body struct {
	Text string
	Mode Mode
}

// StreamChunk is the unit delivered to stream consumers. Text is never empty.
type StreamChunk struct {
	Text string
	Mode Mode

	// Event is the originating SSE event name ("message" when none was sent).
	Event string

	// Raw is the decoded payload: a JSON value, or the bare string when the
	// frame data was not valid JSON. Retained for diagnostics.
	Raw any
}

// Parse decodes frame data as JSON, falling back to the data itself as a bare
// string payload when it is not valid JSON.
func Parse(data string) any {
	var payload any
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return data
	}
	return payload
}

// Extract parses data and runs it through the shape rules.
// It reports false when the payload carries no renderable text.
func Extract(data string) (Body, bool) {
	return FromPayload(Parse(data))
}

// FromFrame builds a StreamChunk for one decoded frame.
func FromFrame(event, data string) (StreamChunk, bool) {
	payload := Parse(data)

	body, ok := FromPayload(payload)
	if !ok {
		return StreamChunk{}, false
	}

	if event == "" {
		event = "message"
	}

	return StreamChunk{
		Text:  body.Text,
		Mode:  body.Mode,
		Event: event,
		Raw:   payload,
	}, true
}

// FromPayload applies the shape rules, in priority order, to an already
// parsed payload.
func FromPayload(payload any) (Body, bool) {
	if s, ok := payload.(string); ok && isSentinel(s) {
		return Body{}, false
	}

	for _, r := range rules {
		body, outcome := r.Apply(payload)
		switch outcome {
		case Emit:
			return body, true
		case Discard:
			return Body{}, false
		}
	}

	return Body{}, false
}

// isSentinel reports whether a string payload carries no content: the
// "[DONE]" terminator or whitespace only.
func isSentinel(s string) bool {
	trimmed := strings.TrimSpace(s)
	return trimmed == "" || trimmed == doneSentinel
}
