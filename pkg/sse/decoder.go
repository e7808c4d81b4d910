package sse

import (
	"bytes"
	"strings"
)

// Decoder is an incremental SSE frame decoder. Bytes are handed to Feed in
// arbitrarily sized pieces; partial lines (and therefore partial UTF-8
// sequences, which can never contain '\n') are buffered until completed.
//
// A Decoder is not safe for concurrent use. It is owned by the goroutine
// consuming a single stream.
type Decoder struct {
	buf []byte

	event     string
	dataLines []string
}

// NewDecoder returns a Decoder ready to accept bytes.
func NewDecoder() *Decoder {
	return &Decoder{event: DefaultEvent}
}

// Feed appends p to the decoder's buffer and returns every Frame completed by
// it, in stream order. The decoder does not retain p.
func (d *Decoder) Feed(p []byte) []Frame {
	d.buf = append(d.buf, p...)

	var frames []Frame
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}

		line := decodeLine(d.buf[:i])
		d.buf = d.buf[i+1:]

		if f, ok := d.processLine(line); ok {
			frames = append(frames, f)
		}
	}

	// Compact so a long-lived stream does not pin every byte it has seen.
	if len(d.buf) == 0 {
		d.buf = nil
	}

	return frames
}

// Flush signals end of stream. Any buffered, unterminated line is processed
// as if followed by a newline and an implicit blank line, so a trailing frame
// without a dispatch boundary is still emitted.
func (d *Decoder) Flush() []Frame {
	var frames []Frame

	if len(d.buf) > 0 {
		line := decodeLine(d.buf)
		d.buf = nil
		if f, ok := d.processLine(line); ok {
			frames = append(frames, f)
		}
	}

	if f, ok := d.dispatch(); ok {
		frames = append(frames, f)
	}

	return frames
}

// processLine handles one complete line and reports whether it dispatched a
// frame.
func (d *Decoder) processLine(line string) (Frame, bool) {
	switch {
	case line == "":
		// A blank line is the event boundary. With nothing pending it is a
		// no-op (keep-alives, leading newlines).
		return d.dispatch()

	case strings.HasPrefix(line, ":"):
		// Comment.

	case strings.HasPrefix(line, "event:"):
		name := strings.TrimSpace(line[len("event:"):])
		if name == "" {
			name = DefaultEvent
		}
		d.event = name

	case strings.HasPrefix(line, "data:"):
		// A single leading space after the colon is not part of the value.
		value := strings.TrimPrefix(line[len("data:"):], " ")
		d.dataLines = append(d.dataLines, value)

	default:
		// "id", "retry" and unknown shapes are ignored.
	}

	return Frame{}, false
}

// dispatch emits the frame under construction if it has data and resets the
// decoder for the next event.
func (d *Decoder) dispatch() (Frame, bool) {
	if len(d.dataLines) == 0 {
		return Frame{}, false
	}

	f := Frame{
		Event: d.event,
		Data:  strings.Join(d.dataLines, "\n"),
	}

	d.event = DefaultEvent
	d.dataLines = nil

	return f, true
}

// decodeLine converts raw line bytes into text, stripping one trailing '\r'
// and replacing invalid UTF-8 with U+FFFD.
func decodeLine(raw []byte) string {
	raw = bytes.TrimSuffix(raw, []byte("\r"))
	return strings.ToValidUTF8(string(raw), "�")
}
