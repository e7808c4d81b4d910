package tuicmder

import (
	"context"
	"net"

	bubbletea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/conversation"
	"github.com/papercomputeco/agentchat/pkg/devserver"
	"github.com/papercomputeco/agentchat/pkg/history"
	"github.com/papercomputeco/agentchat/pkg/history/inmemory"
	"github.com/papercomputeco/agentchat/pkg/history/worker"
	"github.com/papercomputeco/agentchat/pkg/tokenstore"
)

// drain feeds stream events back into the model until the stream ends.
func drain(m chatModel, cmd bubbletea.Cmd) chatModel {
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			break
		}
		next, c := m.Update(msg)
		m = next.(chatModel)
		cmd = c
	}
	return m
}

func update(m chatModel, msg bubbletea.Msg) (chatModel, bubbletea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(chatModel), cmd
}

var _ = Describe("chatModel", func() {
	var (
		ctx    context.Context
		client *agent.Client
		chat   *agent.Chat
		driver *inmemory.Driver
		pool   *worker.Pool
		m      chatModel
	)

	BeforeEach(func() {
		ctx = context.Background()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		server := devserver.NewServer(devserver.Config{}, nil)
		go func() {
			defer GinkgoRecover()
			_ = server.Serve(ln)
		}()
		DeferCleanup(func() {
			Expect(server.Shutdown()).To(Succeed())
		})

		baseURL := "http://" + ln.Addr().String()
		tokens := tokenstore.NewMemory()

		anon, err := agent.NewClient(baseURL, tokens)
		Expect(err).NotTo(HaveOccurred())
		issued, err := anon.VerifyCode(ctx, "grace@example.com", devserver.DefaultCode)
		Expect(err).NotTo(HaveOccurred())
		tokens.Put(issued.WorkspaceID, issued.AccessToken, issued.RefreshToken)

		client, err = agent.NewClient(baseURL, tokens, agent.WithWorkspace(issued.WorkspaceID))
		Expect(err).NotTo(HaveOccurred())

		chat, err = client.CreateChat(ctx, "")
		Expect(err).NotTo(HaveOccurred())

		driver = inmemory.NewDriver()
		pool, err = worker.NewPool(&worker.Config{Driver: driver})
		Expect(err).NotTo(HaveOccurred())

		m = newChatModel(ctx, client, chat, conversation.New(chat.ID))
		m.pool = pool
		m, _ = update(m, bubbletea.WindowSizeMsg{Width: 100, Height: 30})
	})

	recorded := func() []*history.Exchange {
		pool.Close()
		exchanges, err := driver.List(ctx, history.Filter{})
		Expect(err).NotTo(HaveOccurred())
		return exchanges
	}

	It("renders nothing until the window size is known", func() {
		fresh := newChatModel(ctx, client, chat, conversation.New(chat.ID))
		Expect(fresh.View()).To(BeEmpty())

		Expect(m.View()).To(ContainSubstring("agentchat"))
		Expect(m.View()).To(ContainSubstring("No messages yet"))
		Expect(m.View()).To(ContainSubstring("send"))
	})

	It("sizes the viewport around the fixed lines", func() {
		Expect(m.viewport.Width).To(Equal(100))
		Expect(m.viewport.Height).To(Equal(25))
	})

	It("streams a reply into the view", func() {
		cmd := m.startStream("hello")
		Expect(m.stream).NotTo(BeNil())

		m = drain(m, cmd)

		Expect(m.stream).To(BeNil())
		messages := m.view.Messages()
		Expect(messages).To(HaveLen(2))
		Expect(messages[1].Status).To(Equal(conversation.StatusComplete))
		Expect(messages[1].Content).To(Equal(devserver.EchoReply("hello")))
		Expect(m.transcript()).To(ContainSubstring("hello"))
	})

	It("records the completed exchange", func() {
		m = drain(m, m.startStream("hello"))

		exchanges := recorded()
		Expect(exchanges).To(HaveLen(1))
		Expect(exchanges[0].Status).To(Equal(history.StatusComplete))
		Expect(exchanges[0].Reply).To(Equal(devserver.EchoReply("hello")))
		Expect(exchanges[0].Chunks).To(BeNumerically(">", 1))
	})

	It("restores the prompt when the message was not sent", func() {
		m.view = conversation.New("missing")

		m = drain(m, m.startStream("hello"))

		Expect(m.view.Messages()).To(BeEmpty())
		Expect(m.input.Value()).To(Equal("hello"))
		Expect(m.notice).NotTo(BeEmpty())

		exchanges := recorded()
		Expect(exchanges).To(HaveLen(1))
		Expect(exchanges[0].Status).To(Equal(history.StatusFailed))
	})

	It("sends the input on enter and stops on esc", func() {
		m.input.SetValue("hello")

		m, _ = update(m, bubbletea.KeyMsg{Type: bubbletea.KeyEnter})
		Expect(m.stream).NotTo(BeNil())
		Expect(m.input.Value()).To(BeEmpty())

		m, _ = update(m, bubbletea.KeyMsg{Type: bubbletea.KeyEsc})
		Expect(m.stream).To(BeNil())
		Expect(m.notice).To(ContainSubstring("(interrupted)"))

		last, ok := m.view.Last()
		Expect(ok).To(BeTrue())
		Expect(last.Status).To(Equal(conversation.StatusComplete))

		exchanges := recorded()
		Expect(exchanges).To(HaveLen(1))
		Expect(exchanges[0].Status).To(Equal(history.StatusCancelled))
	})

	It("ignores enter with blank input", func() {
		m.input.SetValue("   ")

		m, cmd := update(m, bubbletea.KeyMsg{Type: bubbletea.KeyEnter})
		Expect(cmd).To(BeNil())
		Expect(m.stream).To(BeNil())
		Expect(m.view.Messages()).To(BeEmpty())
	})

	It("ignores events from a stream that is no longer active", func() {
		m, cmd := update(m, chunkMsg{id: "stale"})
		Expect(cmd).To(BeNil())

		m, cmd = update(m, streamDoneMsg{id: "stale"})
		Expect(cmd).To(BeNil())
		Expect(m.view.Messages()).To(BeEmpty())
	})

	It("switches to a new chat on ctrl+n", func() {
		var switched *agent.Chat
		m.onNewChat = func(c *agent.Chat) { switched = c }

		m, cmd := update(m, bubbletea.KeyMsg{Type: bubbletea.KeyCtrlN})
		Expect(cmd).NotTo(BeNil())

		m, _ = update(m, cmd())
		Expect(switched).NotTo(BeNil())
		Expect(m.chat.ID).To(Equal(switched.ID))
		Expect(m.view.ChatID()).To(Equal(switched.ID))
		Expect(m.view.ChatID()).NotTo(Equal(chat.ID))
	})

	It("quits on ctrl+c", func() {
		_, cmd := update(m, bubbletea.KeyMsg{Type: bubbletea.KeyCtrlC})
		Expect(cmd).NotTo(BeNil())
		Expect(cmd()).To(Equal(bubbletea.QuitMsg{}))
	})
})
