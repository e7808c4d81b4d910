package chatcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/agentchat/pkg/chunk"
	"github.com/papercomputeco/agentchat/pkg/cliui"
)

// printer writes a streaming reply to the terminal as chunks arrive.
type printer struct {
	out io.Writer

	// shown is the reply text currently on screen.
	shown string

	// rewritten is set once a replacement could not be shown as a plain
	// continuation, after which the on-screen text no longer maps to a
	// clearable block.
	rewritten bool
}

func (p *printer) apply(c chunk.StreamChunk) {
	switch c.Mode {
	case chunk.ModeReplace:
		if rest, ok := strings.CutPrefix(c.Text, p.shown); ok {
			fmt.Fprint(p.out, rest)
		} else {
			fmt.Fprintf(p.out, "\n%s\n%s", cliui.DimStyle.Render("(revised)"), c.Text)
			p.rewritten = true
		}
		p.shown = c.Text
	default:
		fmt.Fprint(p.out, c.Text)
		p.shown += c.Text
	}
}

// screenLines returns how many terminal rows the prompt plus the shown text
// occupy at the given width.
func (p *printer) screenLines(prefix string, width int) int {
	if width <= 0 {
		width = 80
	}

	n := 0
	for i, line := range strings.Split(p.shown, "\n") {
		if i == 0 {
			line = prefix + line
		}
		w := lipgloss.Width(line)
		rows := (w + width - 1) / width
		if rows == 0 {
			rows = 1
		}
		n += rows
	}
	return n
}

// redraw replaces the streamed text on screen with rendered markdown.
func (p *printer) redraw(tty *termenv.Output, width int, rendered string) {
	lines := p.screenLines(cliui.AssistantPrompt, width)
	if lines > 1 {
		tty.ClearLines(lines - 1)
	}
	tty.ClearLine()
	fmt.Fprint(tty, "\r"+cliui.AssistantPrompt+"\n")
	fmt.Fprint(tty, strings.TrimRight(rendered, "\n"))
}
