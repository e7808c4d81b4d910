package tuicmder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/chunk"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/conversation"
	"github.com/papercomputeco/agentchat/pkg/history"
	"github.com/papercomputeco/agentchat/pkg/history/worker"
	"github.com/papercomputeco/agentchat/pkg/logger"
)

const streamBuffer = 64

var (
	tuiTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	tuiMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	tuiUserStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	tuiAgentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	tuiErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	tuiRuleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
)

type chatKeyMap struct {
	Send    key.Binding
	Cancel  key.Binding
	NewChat key.Binding
	Scroll  key.Binding
	Quit    key.Binding
}

func (k chatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Cancel, k.NewChat, k.Scroll, k.Quit}
}

func (k chatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Send, k.Cancel, k.NewChat}, {k.Scroll, k.Quit}}
}

func defaultKeyMap() chatKeyMap {
	return chatKeyMap{
		Send:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "stop reply")),
		NewChat: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
		Scroll:  key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d"), key.WithHelp("ctrl+c", "quit")),
	}
}

// chunkMsg carries one streamed chunk for the assistant message id.
type chunkMsg struct {
	id    string
	chunk chunk.StreamChunk
}

// streamDoneMsg ends the stream for the assistant message id.
type streamDoneMsg struct {
	id        string
	err       error
	cancelled bool
}

type chatCreatedMsg struct {
	chat *agent.Chat
	err  error
}

// activeStream is the reply currently being received.
type activeStream struct {
	id      string
	prompt  string
	started time.Time
	chunks  int
	events  chan bubbletea.Msg
	cancel  context.CancelFunc
}

type chatModel struct {
	ctx    context.Context
	client *agent.Client
	view   *conversation.View
	chat   *agent.Chat
	pool   *worker.Pool
	logger *slog.Logger

	markdown bool

	// onNewChat is called after ctrl+n switched to a fresh chat.
	onNewChat func(chat *agent.Chat)

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     chatKeyMap

	width  int
	height int
	ready  bool

	stream *activeStream
	notice string
}

func newChatModel(ctx context.Context, client *agent.Client, chat *agent.Chat, view *conversation.View) chatModel {
	input := textinput.New()
	input.Placeholder = "Message the agent"
	input.Prompt = cliui.UserPrompt
	input.PromptStyle = tuiUserStyle
	input.PlaceholderStyle = tuiMutedStyle
	input.CharLimit = 0
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = tuiAgentStyle

	return chatModel{
		ctx:      ctx,
		client:   client,
		view:     view,
		chat:     chat,
		logger:   logger.Nop(),
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		help:     help.New(),
		keys:     defaultKeyMap(),
	}
}

func (m chatModel) Init() bubbletea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case chunkMsg:
		return m.handleChunk(msg)

	case streamDoneMsg:
		return m.handleDone(msg)

	case chatCreatedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("%s %v", cliui.FailMark, msg.err)
			return m, nil
		}
		m.chat = msg.chat
		m.view = conversation.New(msg.chat.ID)
		m.notice = ""
		if m.onNewChat != nil {
			m.onNewChat(msg.chat)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.stream == nil {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd bubbletea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m chatModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.stream != nil {
			m.stopStream()
		}
		return m, bubbletea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.stream != nil {
			m.stopStream()
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Scroll):
		var cmd bubbletea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.NewChat):
		if m.stream != nil {
			return m, nil
		}
		return m, createChatCmd(m.ctx, m.client)

	case key.Matches(msg, m.keys.Send):
		prompt := strings.TrimSpace(m.input.Value())
		if prompt == "" || m.stream != nil {
			return m, nil
		}
		m.input.Reset()
		m.notice = ""
		cmd := m.startStream(prompt)
		m.refresh()
		return m, bubbletea.Batch(cmd, m.spinner.Tick)
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startStream sends prompt and returns the command that delivers the first
// stream event.
func (m *chatModel) startStream(prompt string) bubbletea.Cmd {
	id := m.view.Send(prompt)
	ctx, cancel := context.WithCancel(m.ctx)
	events := make(chan bubbletea.Msg, streamBuffer)

	m.stream = &activeStream{
		id:      id,
		prompt:  prompt,
		started: time.Now(),
		events:  events,
		cancel:  cancel,
	}

	client := m.client
	chatID := m.view.ChatID()

	go func() {
		defer close(events)

		err := client.SendMessageStream(ctx, chatID, agent.Message{Content: prompt}, agent.StreamOptions{
			OnChunk: func(c chunk.StreamChunk) {
				select {
				case events <- chunkMsg{id: id, chunk: c}:
				case <-ctx.Done():
				}
			},
		})

		select {
		case events <- streamDoneMsg{id: id, err: err, cancelled: ctx.Err() != nil}:
		case <-ctx.Done():
		}
	}()

	return waitForEvent(events)
}

// waitForEvent reads the next message of a stream. A closed channel yields
// no message.
func waitForEvent(events <-chan bubbletea.Msg) bubbletea.Cmd {
	return func() bubbletea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

func (m chatModel) handleChunk(msg chunkMsg) (bubbletea.Model, bubbletea.Cmd) {
	if m.stream == nil || msg.id != m.stream.id {
		return m, nil
	}

	m.stream.chunks++
	if err := m.view.Apply(msg.id, msg.chunk); err != nil {
		m.logger.Debug("dropping chunk", "error", err)
	}
	m.refresh()

	return m, waitForEvent(m.stream.events)
}

func (m chatModel) handleDone(msg streamDoneMsg) (bubbletea.Model, bubbletea.Cmd) {
	if m.stream == nil || msg.id != m.stream.id {
		return m, nil
	}

	st := m.stream
	m.stream = nil
	st.cancel()

	switch {
	case msg.err != nil:
		restored, _ := m.view.Fail(st.id, msg.err)
		m.notice = fmt.Sprintf("%s %v", cliui.FailMark, msg.err)
		if restored != "" {
			m.input.SetValue(restored)
			m.input.CursorEnd()
		}
		m.record(st, history.StatusFailed, msg.err)
	case msg.cancelled:
		_ = m.view.Complete(st.id)
		m.record(st, history.StatusCancelled, nil)
	default:
		_ = m.view.Complete(st.id)
		m.record(st, history.StatusComplete, nil)
	}

	m.refresh()
	return m, nil
}

// stopStream cancels the active stream and keeps whatever text arrived.
func (m *chatModel) stopStream() {
	st := m.stream
	m.stream = nil
	st.cancel()

	_ = m.view.Complete(st.id)
	m.notice = tuiMutedStyle.Render("(interrupted)")
	m.record(st, history.StatusCancelled, nil)
}

func (m *chatModel) record(st *activeStream, status history.Status, cause error) {
	if m.pool == nil {
		return
	}

	ex := &history.Exchange{
		ID:          st.id,
		Workspace:   m.client.Workspace(),
		ChatID:      m.view.ChatID(),
		Prompt:      st.prompt,
		Status:      status,
		Chunks:      st.chunks,
		StartedAt:   st.started,
		CompletedAt: time.Now(),
	}
	if msg, err := m.view.Get(st.id); err == nil {
		ex.Reply = msg.Content
	}
	if cause != nil {
		ex.Error = cause.Error()
	}

	m.pool.Enqueue(worker.Job{Exchange: ex})
}

func createChatCmd(ctx context.Context, client *agent.Client) bubbletea.Cmd {
	return func() bubbletea.Msg {
		chat, err := client.CreateChat(ctx, "")
		return chatCreatedMsg{chat: chat, err: err}
	}
}

func (m *chatModel) resize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true

	m.help.Width = width
	m.input.Width = max(width-lipgloss.Width(cliui.UserPrompt)-1, 10)

	// header, rule, input, notice and help lines
	m.viewport.Width = width
	m.viewport.Height = max(height-5, 3)
}

// refresh re-renders the transcript into the viewport and follows the tail.
func (m *chatModel) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m chatModel) transcript() string {
	var b strings.Builder

	messages := m.view.Messages()
	if len(messages) == 0 {
		b.WriteString(tuiMutedStyle.Render("No messages yet. Type below and press enter."))
		return b.String()
	}

	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.Role {
		case conversation.RoleUser:
			b.WriteString(tuiUserStyle.Render(strings.TrimSpace(cliui.UserPrompt)))
			b.WriteString(" ")
			b.WriteString(msg.Content)
		default:
			b.WriteString(m.renderReply(msg))
		}
	}

	return b.String()
}

func (m chatModel) renderReply(msg conversation.Message) string {
	label := tuiAgentStyle.Render(strings.TrimSpace(cliui.AssistantPrompt))

	switch msg.Status {
	case conversation.StatusStreaming:
		if msg.Content == "" {
			return label + " " + m.spinner.View()
		}
		return label + " " + msg.Content + " " + m.spinner.View()
	case conversation.StatusFailed:
		return label + " " + msg.Content + "\n" + tuiErrorStyle.Render(fmt.Sprintf("%s %v", cliui.FailMark, msg.Err))
	}

	if m.markdown && msg.Content != "" {
		rendered, err := cliui.RenderMarkdownWidth(msg.Content, m.width)
		if err == nil {
			return label + "\n" + strings.TrimRight(rendered, "\n")
		}
	}
	return label + " " + msg.Content
}

func (m chatModel) View() string {
	if !m.ready {
		return ""
	}

	title := "(untitled)"
	if m.chat != nil && m.chat.Title != "" {
		title = m.chat.Title
	}
	header := tuiTitleStyle.Render("agentchat") + " " + tuiMutedStyle.Render(title)

	rule := tuiRuleStyle.Render(strings.Repeat("─", max(m.width, 1)))

	return strings.Join([]string{
		header,
		m.viewport.View(),
		rule,
		m.input.View(),
		m.notice,
		m.help.View(m.keys),
	}, "\n")
}
