package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/dotdir"
)

var _ = Describe("dotdir.Manager session", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-session-test-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadSession", func() {
		It("returns an empty state when no session file exists", func() {
			state, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Active).To(BeEmpty())
		})

		It("loads a valid session file", func() {
			data := `{"active":{"ws_1":{"chat_id":"chat_9","title":"Roadmap"}}}`
			err := os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			state, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Active).To(HaveKeyWithValue("ws_1", dotdir.ActiveChat{ChatID: "chat_9", Title: "Roadmap"}))
		})

		It("returns an error for malformed JSON", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte("{not json"), 0o600)
			Expect(err).NotTo(HaveOccurred())

			state, err := m.LoadSession(tmpDir)
			Expect(err).To(HaveOccurred())
			Expect(state).To(BeNil())
		})
	})

	Describe("SetActiveChat", func() {
		It("round-trips per workspace", func() {
			Expect(m.SetActiveChat("ws_1", dotdir.ActiveChat{ChatID: "a"}, tmpDir)).To(Succeed())
			Expect(m.SetActiveChat("ws_2", dotdir.ActiveChat{ChatID: "b"}, tmpDir)).To(Succeed())

			state, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Active["ws_1"].ChatID).To(Equal("a"))
			Expect(state.Active["ws_2"].ChatID).To(Equal("b"))
		})

		It("rejects an empty workspace", func() {
			Expect(m.SetActiveChat("", dotdir.ActiveChat{ChatID: "a"}, tmpDir)).NotTo(Succeed())
		})

		It("writes the file with restricted permissions", func() {
			Expect(m.SetActiveChat("ws_1", dotdir.ActiveChat{ChatID: "a"}, tmpDir)).To(Succeed())

			info, err := os.Stat(filepath.Join(tmpDir, "session.json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})
	})

	Describe("ClearActiveChat", func() {
		It("removes only the given workspace", func() {
			Expect(m.SetActiveChat("ws_1", dotdir.ActiveChat{ChatID: "a"}, tmpDir)).To(Succeed())
			Expect(m.SetActiveChat("ws_2", dotdir.ActiveChat{ChatID: "b"}, tmpDir)).To(Succeed())

			Expect(m.ClearActiveChat("ws_1", tmpDir)).To(Succeed())

			state, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Active).NotTo(HaveKey("ws_1"))
			Expect(state.Active).To(HaveKey("ws_2"))
		})

		It("is a no-op when nothing is recorded", func() {
			Expect(m.ClearActiveChat("ws_1", tmpDir)).To(Succeed())
		})
	})
})
