package historycmder

import (
	"bytes"
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/history"
	"github.com/papercomputeco/agentchat/pkg/history/inmemory"
)

var _ = Describe("history command", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
		out    *bytes.Buffer
		start  time.Time
	)

	put := func(id, ws, chatID string, offset time.Duration, status history.Status) {
		at := start.Add(offset)
		ex := &history.Exchange{
			ID:          id,
			Workspace:   ws,
			ChatID:      chatID,
			Prompt:      "prompt " + id,
			Reply:       "reply " + id,
			Status:      status,
			StartedAt:   at,
			CompletedAt: at.Add(2 * time.Second),
		}
		if status == history.StatusFailed {
			ex.Error = "server returned 500"
		}
		Expect(driver.Put(ctx, ex)).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		out = &bytes.Buffer{}
		start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		put("e1", "ws1", "chat-a", 0, history.StatusComplete)
		put("e2", "ws1", "chat-a", time.Minute, history.StatusFailed)
		put("e3", "ws1", "chat-b", 2*time.Minute, history.StatusComplete)
		put("e4", "ws2", "chat-c", 3*time.Minute, history.StatusComplete)
	})

	Describe("runChats", func() {
		It("lists recorded chats of the workspace", func() {
			Expect(runChats(ctx, out, driver, "ws1")).To(Succeed())

			Expect(out.String()).To(ContainSubstring("chat-a"))
			Expect(out.String()).To(ContainSubstring("2 exchanges"))
			Expect(out.String()).To(ContainSubstring("chat-b"))
			Expect(out.String()).To(ContainSubstring("1 exchange"))
			Expect(out.String()).NotTo(ContainSubstring("chat-c"))
		})

		It("reports an empty workspace", func() {
			Expect(runChats(ctx, out, driver, "ws3")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No recorded history."))
		})
	})

	Describe("runExchanges", func() {
		It("prints the exchanges of a chat oldest first", func() {
			Expect(runExchanges(ctx, out, driver, "ws1", "chat-a", 0, false)).To(Succeed())

			text := out.String()
			Expect(text).To(ContainSubstring("prompt e1"))
			Expect(text).To(ContainSubstring("reply e2"))
			Expect(text).To(ContainSubstring("server returned 500"))
			Expect(text).NotTo(ContainSubstring("prompt e3"))
			Expect(bytes.Index(out.Bytes(), []byte("prompt e1"))).To(BeNumerically("<", bytes.Index(out.Bytes(), []byte("prompt e2"))))
		})

		It("keeps only the most recent exchanges", func() {
			Expect(runExchanges(ctx, out, driver, "ws1", "chat-a", 1, false)).To(Succeed())

			Expect(out.String()).NotTo(ContainSubstring("prompt e1"))
			Expect(out.String()).To(ContainSubstring("prompt e2"))
		})

		It("reports a chat without history", func() {
			Expect(runExchanges(ctx, out, driver, "ws1", "chat-z", 0, false)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No recorded history for chat chat-z."))
		})

		It("renders replies as markdown when asked", func() {
			Expect(runExchanges(ctx, out, driver, "ws1", "chat-b", 0, true)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("reply"))
			Expect(out.String()).To(ContainSubstring("e3"))
		})
	})

	It("pluralizes counts", func() {
		Expect(pluralize(1, "exchange")).To(Equal("1 exchange"))
		Expect(pluralize(3, "exchange")).To(Equal("3 exchanges"))
	})
})
