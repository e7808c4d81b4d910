package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/papercomputeco/agentchat/pkg/chunk"
	"github.com/papercomputeco/agentchat/pkg/sse"
)

const eventStreamContentType = "text/event-stream"

// maxNonStreamBody caps a non event-stream response read into memory.
const maxNonStreamBody = 8 * 1024 * 1024

// StreamOptions configures one SendMessageStream call.
type StreamOptions struct {
	// OnChunk receives every chunk synchronously, in stream order. It may be
	// nil, in which case the stream is consumed and discarded.
	OnChunk func(chunk.StreamChunk)

	// Tee, when set, receives the raw response bytes verbatim.
	Tee io.Writer
}

// SendMessageStream posts msg to a conversation and feeds the streamed reply
// to opts.OnChunk.
//
// Cancelling ctx stops the read loop promptly: no further chunks are
// delivered and SendMessageStream returns nil. A 401 is retried once after a
// token refresh; an unrecoverable one returns an error wrapping ErrAuthFailed.
// Any other non-2xx status returns a *StatusError.
func (c *Client) SendMessageStream(ctx context.Context, conversationID string, msg Message, opts StreamOptions) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	target := c.baseURL + c.workspacePath("chats", conversationID, "messages", "stream")

	build := func(ctx context.Context, token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", eventStreamContentType)
		req.Header.Set("Cache-Control", "no-cache")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req, nil
	}

	resp, err := c.doAuthed(ctx, build)
	if err != nil {
		if ctx.Err() != nil {
			c.logger.Debug("stream cancelled before response", "conversation", conversationID)
			return nil
		}
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return newStatusError(resp)
	}

	if resp.Body == http.NoBody {
		return nil
	}

	if !isEventStream(resp.Header.Get("Content-Type")) {
		return c.deliverWhole(ctx, resp.Body, opts)
	}

	return c.deliverStream(ctx, conversationID, resp.Body, opts)
}

// deliverStream runs the decode and extract pipeline over an event stream.
func (c *Client) deliverStream(ctx context.Context, conversationID string, body io.Reader, opts StreamOptions) error {
	var readerOpts []sse.ReaderOption
	if opts.Tee != nil {
		readerOpts = append(readerOpts, sse.WithTee(opts.Tee))
	}
	reader := sse.NewReader(body, readerOpts...)

	delivered := 0
	for {
		frame, err := reader.Next()
		if ctx.Err() != nil {
			c.logger.Debug("stream cancelled",
				"conversation", conversationID,
				"chunks", delivered,
			)
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading stream: %w", err)
		}
		if frame == nil {
			c.logger.Debug("stream complete",
				"conversation", conversationID,
				"chunks", delivered,
			)
			return nil
		}

		sc, ok := chunk.FromFrame(frame.Event, frame.Data)
		if !ok {
			c.logger.Debug("discarding frame", "event", frame.Event)
			continue
		}

		delivered++
		if opts.OnChunk != nil {
			opts.OnChunk(sc)
		}
	}
}

// deliverWhole treats a non event-stream body as a single payload.
func (c *Client) deliverWhole(ctx context.Context, body io.Reader, opts StreamOptions) error {
	if opts.Tee != nil {
		body = io.TeeReader(body, opts.Tee)
	}

	data, err := io.ReadAll(io.LimitReader(body, maxNonStreamBody))
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	sc, ok := chunk.FromFrame(sse.DefaultEvent, string(data))
	if !ok {
		return nil
	}

	if opts.OnChunk != nil {
		opts.OnChunk(sc)
	}
	return nil
}

func isEventStream(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == eventStreamContentType
}
