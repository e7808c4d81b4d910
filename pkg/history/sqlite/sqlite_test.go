package sqlite_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/history"
	"github.com/papercomputeco/agentchat/pkg/history/sqlite"
)

func testExchange(id, chatID string, at time.Time) *history.Exchange {
	return &history.Exchange{
		ID:          id,
		Workspace:   "ws-1",
		ChatID:      chatID,
		Prompt:      "prompt " + id,
		Reply:       "reply " + id,
		Status:      history.StatusComplete,
		Chunks:      3,
		StartedAt:   at,
		CompletedAt: at.Add(time.Second),
	}
}

var _ = Describe("Driver", func() {
	var (
		driver *sqlite.Driver
		ctx    context.Context
		base   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		base = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		var err error
		driver, err = sqlite.NewDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	Describe("NewDriver", func() {
		It("creates a driver with file database", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "nested", "history.db")

			d, err := sqlite.NewDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer d.Close()

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("persists exchanges across reopen", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "history.db")

			d, err := sqlite.NewDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Put(ctx, testExchange("e1", "c1", base))).To(Succeed())
			Expect(d.Close()).To(Succeed())

			d, err = sqlite.NewDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer d.Close()

			ex, err := d.Get(ctx, "e1")
			Expect(err).NotTo(HaveOccurred())
			Expect(ex.Reply).To(Equal("reply e1"))
		})
	})

	Describe("Put and Get", func() {
		It("round-trips every field", func() {
			in := testExchange("e1", "c1", base)
			in.Status = history.StatusFailed
			in.Error = "stream reset"
			Expect(driver.Put(ctx, in)).To(Succeed())

			out, err := driver.Get(ctx, "e1")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(in))
		})

		It("replaces an existing exchange", func() {
			Expect(driver.Put(ctx, testExchange("e1", "c1", base))).To(Succeed())

			updated := testExchange("e1", "c1", base)
			updated.Reply = "edited"
			Expect(driver.Put(ctx, updated)).To(Succeed())

			out, err := driver.Get(ctx, "e1")
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Reply).To(Equal("edited"))
		})

		It("rejects a nil exchange", func() {
			Expect(driver.Put(ctx, nil)).NotTo(Succeed())
		})

		It("returns NotFoundError for an unknown ID", func() {
			_, err := driver.Get(ctx, "missing")

			var notFound history.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.ID).To(Equal("missing"))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			Expect(driver.Put(ctx, testExchange("e2", "c1", base.Add(2*time.Minute)))).To(Succeed())
			Expect(driver.Put(ctx, testExchange("e1", "c1", base.Add(time.Minute)))).To(Succeed())
			Expect(driver.Put(ctx, testExchange("e3", "c2", base.Add(3*time.Minute)))).To(Succeed())
		})

		It("returns all exchanges oldest first", func() {
			out, err := driver.List(ctx, history.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(out)).To(Equal([]string{"e1", "e2", "e3"}))
		})

		It("filters by chat", func() {
			out, err := driver.List(ctx, history.Filter{Workspace: "ws-1", ChatID: "c1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(out)).To(Equal([]string{"e1", "e2"}))
		})

		It("keeps the most recent exchanges under a limit", func() {
			out, err := driver.List(ctx, history.Filter{Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(out)).To(Equal([]string{"e2", "e3"}))
		})

		It("returns nothing for another workspace", func() {
			out, err := driver.List(ctx, history.Filter{Workspace: "ws-2"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeEmpty())
		})
	})

	Describe("Chats", func() {
		It("summarizes chats most recent first", func() {
			Expect(driver.Put(ctx, testExchange("e1", "c1", base))).To(Succeed())
			Expect(driver.Put(ctx, testExchange("e2", "c1", base.Add(time.Minute)))).To(Succeed())
			Expect(driver.Put(ctx, testExchange("e3", "c2", base.Add(2*time.Minute)))).To(Succeed())

			chats, err := driver.Chats(ctx, "ws-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(chats).To(HaveLen(2))
			Expect(chats[0].ChatID).To(Equal("c2"))
			Expect(chats[1].ChatID).To(Equal("c1"))
			Expect(chats[1].Exchanges).To(Equal(2))
			Expect(chats[1].LastAt).To(Equal(base.Add(time.Minute)))
		})
	})
})

func ids(exs []*history.Exchange) []string {
	out := make([]string, len(exs))
	for i, ex := range exs {
		out[i] = ex.ID
	}
	return out
}
