package sse

import (
	"errors"
	"io"
)

const readBufferSize = 4 * 1024

// Reader pulls Frames from a source io.Reader, optionally writing all raw
// bytes verbatim to a destination io.Writer as they are read.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌────────────────────────────┐
// │  Reader.Next()   │──▶│ tee io.Writer (optional)   │
// └──────────────────┘   └────────────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      Frame       │
// └──────────────────┘
//
// The tee receives the exact bytes of the stream, which is what the
// --dump-stream flag writes to disk for debugging backend payload shapes.
type Reader struct {
	src     io.Reader
	tee     io.Writer
	decoder *Decoder
	buf     []byte

	pending []Frame
	done    bool
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithTee writes every raw byte read from the source to w.
func WithTee(w io.Writer) ReaderOption {
	return func(r *Reader) {
		r.tee = w
	}
}

// NewReader returns a Reader that parses SSE frames from src.
func NewReader(src io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{
		src:     src,
		decoder: NewDecoder(),
		buf:     make([]byte, readBufferSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Next returns the next Frame from the source. It blocks until a complete
// frame is available or the source is exhausted.
// Next returns nil, nil when the source is exhausted and every buffered frame,
// including a trailing unterminated one, has been returned.
func (r *Reader) Next() (*Frame, error) {
	for len(r.pending) == 0 {
		if r.done {
			return nil, nil
		}

		n, err := r.src.Read(r.buf)
		if n > 0 {
			if r.tee != nil {
				if _, werr := r.tee.Write(r.buf[:n]); werr != nil {
					return nil, werr
				}
			}
			r.pending = append(r.pending, r.decoder.Feed(r.buf[:n])...)
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}

			// Source exhausted: the stream may have ended without a trailing
			// blank line, so flush the decoder for any in-progress frame.
			r.pending = append(r.pending, r.decoder.Flush()...)
			r.done = true
		}
	}

	f := r.pending[0]
	r.pending = r.pending[1:]
	return &f, nil
}
