package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/muesli/termenv"

	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/chunk"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/conversation"
	"github.com/papercomputeco/agentchat/pkg/history"
	"github.com/papercomputeco/agentchat/pkg/history/worker"
	"github.com/papercomputeco/agentchat/pkg/logger"
)

const helpText = `Commands:
  /new    start a new chat
  /exit   leave (Ctrl+D also works)
  /help   show this help

Ctrl+C while a reply is streaming stops it.`

// session drives one interactive chat against the backend.
type session struct {
	client *agent.Client
	view   *conversation.View
	pool   *worker.Pool
	logger *slog.Logger

	out io.Writer
	tee io.Writer

	// tty is set when out is a terminal; completed replies are then redrawn
	// as rendered markdown.
	tty      *termenv.Output
	width    int
	markdown bool

	// onNewChat is called after /new switched to a fresh chat.
	onNewChat func(chat *agent.Chat)
}

func (s *session) log() *slog.Logger {
	if s.logger == nil {
		return logger.Nop()
	}
	return s.logger
}

// loop reads prompts from in until EOF or /exit.
func (s *session) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(s.out, cliui.UserPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit", "/quit":
			fmt.Fprintln(s.out)
			return nil
		case "/help":
			fmt.Fprintf(s.out, "\n%s\n\n", cliui.DimStyle.Render(helpText))
			continue
		case "/new":
			if err := s.newChat(ctx); err != nil {
				fmt.Fprintf(s.out, "  %s %v\n\n", cliui.FailMark, err)
			}
			continue
		}

		turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		err := s.send(turnCtx, input)
		stop()

		if errors.Is(err, agent.ErrAuthFailed) {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(s.out)
	return nil
}

func (s *session) newChat(ctx context.Context) error {
	chat, err := s.client.CreateChat(ctx, "")
	if err != nil {
		return err
	}

	s.view = conversation.New(chat.ID)
	if s.onNewChat != nil {
		s.onNewChat(chat)
	}

	fmt.Fprintf(s.out, "\n  %s New chat %s\n\n", cliui.SuccessMark, cliui.IDStyle.Render(chat.ID))
	return nil
}

// send streams one exchange, printing the reply as it arrives. Failures are
// reported inline and also returned.
func (s *session) send(ctx context.Context, prompt string) error {
	started := time.Now()
	id := s.view.Send(prompt)

	fmt.Fprint(s.out, cliui.AssistantPrompt)

	p := &printer{out: s.out}
	chunks := 0

	err := s.client.SendMessageStream(ctx, s.view.ChatID(), agent.Message{Content: prompt}, agent.StreamOptions{
		Tee: s.tee,
		OnChunk: func(c chunk.StreamChunk) {
			chunks++
			if err := s.view.Apply(id, c); err != nil {
				s.log().Debug("dropping chunk", "error", err)
				return
			}
			p.apply(c)
		},
	})

	ex := &history.Exchange{
		ID:        id,
		Workspace: s.client.Workspace(),
		ChatID:    s.view.ChatID(),
		Prompt:    prompt,
		Chunks:    chunks,
		StartedAt: started,
	}

	switch {
	case err != nil:
		restored, _ := s.view.Fail(id, err)
		fmt.Fprintf(s.out, "\n  %s %v\n", cliui.FailMark, err)
		if restored != "" {
			fmt.Fprintf(s.out, "  %s\n", cliui.DimStyle.Render("Message not sent. Enter it again to retry."))
		}
		fmt.Fprintln(s.out)
		ex.Status = history.StatusFailed
		ex.Error = err.Error()

	case ctx.Err() != nil:
		_ = s.view.Complete(id)
		fmt.Fprintf(s.out, " %s\n\n", cliui.DimStyle.Render("(interrupted)"))
		ex.Status = history.StatusCancelled

	default:
		_ = s.view.Complete(id)
		s.finish(p)
		ex.Status = history.StatusComplete
	}

	ex.Reply = p.shown
	ex.CompletedAt = time.Now()
	s.record(ex)

	return err
}

// finish ends a completed reply, swapping the raw stream for rendered
// markdown when attached to a terminal.
func (s *session) finish(p *printer) {
	if s.markdown && s.tty != nil && !p.rewritten && p.shown != "" {
		rendered, err := cliui.RenderMarkdownWidth(p.shown, s.width)
		if err == nil {
			p.redraw(s.tty, s.width, rendered)
		} else {
			s.log().Debug("markdown render failed", "error", err)
		}
	}
	fmt.Fprint(s.out, "\n\n")
}

func (s *session) record(ex *history.Exchange) {
	if s.pool == nil {
		return
	}
	s.pool.Enqueue(worker.Job{Exchange: ex})
}
