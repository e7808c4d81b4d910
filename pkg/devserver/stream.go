package devserver

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"

	eventStreamContentType = "text/event-stream"
)

type messageRequest struct {
	Content string `json:"content"`
}

// frame is one server-sent event.
type frame struct {
	event string
	data  any
}

// handleStreamMessage records the prompt and streams the reply. Clients that
// do not accept event streams get the whole reply as a JSON message.
func (s *Server) handleStreamMessage(c *fiber.Ctx) error {
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	prompt := strings.TrimSpace(req.Content)
	if prompt == "" {
		return errorJSON(c, fiber.StatusBadRequest, "content is required")
	}

	ws, chatID := c.Params("ws"), c.Params("id")
	if !s.store.appendMessage(ws, chatID, roleUser, prompt) {
		return errorJSON(c, fiber.StatusNotFound, "chat not found")
	}

	reply := s.config.Reply(prompt)

	if !strings.Contains(c.Get(fiber.HeaderAccept), eventStreamContentType) || c.Query("stream") == "false" {
		s.store.appendMessage(ws, chatID, roleAssistant, reply)
		return c.JSON(fiber.Map{
			"message": fiber.Map{"role": roleAssistant, "content": reply},
		})
	}

	c.Set(fiber.HeaderContentType, eventStreamContentType)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// fasthttp recycles the request context once the handler returns, so the
	// writer goroutine only captures plain values.
	pr, pw := io.Pipe()
	go s.writeReply(pw, ws, chatID, prompt, reply)

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// writeReply streams the reply frames into pw and records the reply once
// every frame was written.
func (s *Server) writeReply(pw *io.PipeWriter, ws, chatID, prompt, reply string) {
	defer pw.Close()

	if _, err := io.WriteString(pw, ": stream open\n\n"); err != nil {
		return
	}

	for i, f := range replyFrames(prompt, reply) {
		if i > 0 && s.config.ChunkDelay > 0 {
			time.Sleep(s.config.ChunkDelay)
		}
		if err := writeFrame(pw, i, f); err != nil {
			s.logger.Debug("client went away", "chat", chatID, "error", err)
			return
		}
	}

	s.store.appendMessage(ws, chatID, roleAssistant, reply)
	s.logger.Debug("reply streamed", "chat", chatID, "bytes", len(reply))
}

func writeFrame(w io.Writer, id int, f frame) error {
	var data string
	switch d := f.data.(type) {
	case string:
		data = d
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return err
		}
		data = string(b)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "id: %d\n", id)
	if f.event != "" {
		fmt.Fprintf(&sb, "event: %s\n", f.event)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&sb, "data: %s\n", line)
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// replyFrames renders a reply as the mix of shapes agent backends emit: an
// echo of the user message, deltas in rotating formats, a final snapshot of
// the whole message and the terminator.
func replyFrames(prompt, reply string) []frame {
	frames := []frame{{
		event: "user_message",
		data:  map[string]any{"message": map[string]any{"role": roleUser, "content": prompt}},
	}}

	for i, piece := range splitWords(reply) {
		var data any
		switch i % 4 {
		case 0:
			data = map[string]any{
				"choices": []any{map[string]any{"delta": map[string]any{"content": piece}}},
			}
		case 1:
			data = map[string]any{"token": piece}
		case 2:
			data = map[string]any{"type": "content_block_delta", "delta": map[string]any{"text": piece}}
		default:
			data = map[string]any{"chunk": piece}
		}
		frames = append(frames, frame{data: data})
	}

	frames = append(frames,
		frame{
			event: "assistant_message",
			data:  map[string]any{"assistant_message": map[string]any{"role": roleAssistant, "content": reply}},
		},
		frame{data: "[DONE]"},
	)
	return frames
}

// splitWords cuts s into pieces that each end after a run of whitespace, so
// concatenating them yields s again.
func splitWords(s string) []string {
	var out []string
	start := 0
	inSpace := false
	for i, r := range s {
		space := r == ' ' || r == '\n' || r == '\t'
		if inSpace && !space {
			out = append(out, s[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
