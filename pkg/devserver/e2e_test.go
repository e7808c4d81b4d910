package devserver

import (
	"context"
	"errors"
	"net"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/chunk"
	"github.com/papercomputeco/agentchat/pkg/conversation"
	"github.com/papercomputeco/agentchat/pkg/tokenstore"
)

var _ = Describe("agent client against the dev server", func() {
	var (
		server  *Server
		baseURL string
		tokens  *tokenstore.Memory
		ctx     context.Context
	)

	BeforeEach(func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())

		server = NewServer(Config{}, nil)
		go func() {
			defer GinkgoRecover()
			_ = server.Serve(ln)
		}()

		baseURL = "http://" + ln.Addr().String()
		tokens = tokenstore.NewMemory()
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(server.Shutdown()).To(Succeed())
	})

	loginClient := func() *agent.Client {
		anon, err := agent.NewClient(baseURL, tokens)
		Expect(err).NotTo(HaveOccurred())

		Expect(anon.RequestCode(ctx, "ada@example.com")).To(Succeed())
		issued, err := anon.VerifyCode(ctx, "ada@example.com", DefaultCode)
		Expect(err).NotTo(HaveOccurred())

		workspaces, err := anon.ListWorkspaces(ctx, issued.AccessToken)
		Expect(err).NotTo(HaveOccurred())
		Expect(workspaces).To(HaveLen(1))

		tokens.Put(issued.WorkspaceID, issued.AccessToken, issued.RefreshToken)

		client, err := agent.NewClient(baseURL, tokens, agent.WithWorkspace(issued.WorkspaceID))
		Expect(err).NotTo(HaveOccurred())
		return client
	}

	It("streams a reply into a conversation view", func() {
		client := loginClient()

		chat, err := client.CreateChat(ctx, "")
		Expect(err).NotTo(HaveOccurred())

		view := conversation.New(chat.ID)
		id := view.Send("ping")

		var chunks int
		err = client.SendMessageStream(ctx, chat.ID, agent.Message{Content: "ping"}, agent.StreamOptions{
			OnChunk: func(sc chunk.StreamChunk) {
				chunks++
				Expect(view.Apply(id, sc)).To(Succeed())
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(view.Complete(id)).To(Succeed())

		Expect(chunks).To(BeNumerically(">", 1))
		reply, err := view.Get(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Content).To(Equal(EchoReply("ping")))

		messages, err := client.ListMessages(ctx, chat.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(messages).To(HaveLen(2))
		Expect(messages[1].Content).To(Equal(EchoReply("ping")))
	})

	It("refreshes an expired access token transparently", func() {
		client := loginClient()
		_, err := client.CreateChat(ctx, "kept")
		Expect(err).NotTo(HaveOccurred())

		before, _ := tokens.AccessToken(client.Workspace())
		server.store.expireAccess()

		chats, err := client.ListChats(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(chats).To(HaveLen(1))
		Expect(chats[0].Title).To(Equal("kept"))

		after, _ := tokens.AccessToken(client.Workspace())
		Expect(after).NotTo(Equal(before))
	})

	It("fails authentication once the refresh token is spent", func() {
		client := loginClient()
		refresh, _ := tokens.RefreshToken(client.Workspace())

		anon, err := agent.NewClient(baseURL, tokenstore.NewMemory())
		Expect(err).NotTo(HaveOccurred())
		_, err = anon.Refresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())

		server.store.expireAccess()

		err = client.SendMessageStream(ctx, "any", agent.Message{Content: "hi"}, agent.StreamOptions{})
		Expect(errors.Is(err, agent.ErrAuthFailed)).To(BeTrue())

		access, _ := tokens.AccessToken(client.Workspace())
		Expect(access).To(BeEmpty())
	})

	It("surfaces a missing chat as a status error", func() {
		client := loginClient()

		err := client.SendMessageStream(ctx, "missing", agent.Message{Content: "hi"}, agent.StreamOptions{})
		var statusErr *agent.StatusError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.StatusCode).To(Equal(404))
		Expect(strings.Contains(statusErr.Body, "chat not found")).To(BeTrue())
	})
})
