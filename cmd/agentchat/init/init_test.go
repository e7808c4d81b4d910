package initcmder_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/agentchat/cmd/agentchat/init"
	"github.com/papercomputeco/agentchat/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	execute := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "agentchat-init-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		Expect(os.Chdir(tmpDir)).To(Succeed())
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("creates a .agentchat directory with a default config", func() {
		Expect(execute()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".agentchat"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Client.BaseURL).To(Equal("http://localhost:8787"))
		Expect(cfg.Serve.Listen).To(Equal(":8787"))
		Expect(cfg.History.Enabled).To(BeTrue())
		Expect(out.String()).To(ContainSubstring("Initialized .agentchat directory"))
	})

	It("does not overwrite existing contents when already initialized", func() {
		dir := filepath.Join(tmpDir, ".agentchat")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		session := filepath.Join(dir, "session.json")
		Expect(os.WriteFile(session, []byte(`{"active":{}}`), 0o600)).To(Succeed())

		Expect(execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Already initialized"))

		data, err := os.ReadFile(session)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"active":{}}`))

		_, err = os.Stat(filepath.Join(dir, "config.toml"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("applies a named preset", func() {
		Expect(execute("--preset", "offline")).To(Succeed())

		cfg := loadConfig(tmpDir)
		Expect(cfg.UI.Markdown).To(BeFalse())
	})

	It("overwrites the config when re-run with a preset", func() {
		Expect(execute("--preset", "offline")).To(Succeed())
		Expect(loadConfig(tmpDir).UI.Markdown).To(BeFalse())

		Expect(execute("--preset", "local")).To(Succeed())
		Expect(loadConfig(tmpDir).UI.Markdown).To(BeTrue())
		Expect(out.String()).To(ContainSubstring("Applied preset local"))
	})

	It("rejects unknown preset names", func() {
		err := execute("--preset", "invalid-preset")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unknown preset"))

		_, statErr := os.Stat(filepath.Join(tmpDir, ".agentchat"))
		Expect(os.IsNotExist(statErr)).To(BeTrue())
	})

	Describe("--preset with remote URL", func() {
		It("fetches and writes remote config.toml", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `version = 0

[client]
base_url = "https://agents.example.com"
workspace = "ws_team"
`)
			}))
			defer server.Close()

			Expect(execute("--preset", server.URL)).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Client.BaseURL).To(Equal("https://agents.example.com"))
			Expect(cfg.Client.Workspace).To(Equal("ws_team"))
			Expect(cfg.Client.Timeout).To(Equal("30s"))
			Expect(cfg.Serve.Listen).To(Equal(":8787"))
		})

		It("returns error for non-200 responses", func() {
			server := httptest.NewServer(http.NotFoundHandler())
			defer server.Close()

			err := execute("--preset", server.URL)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("HTTP 404"))
		})

		It("returns error for invalid TOML from URL", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			err := execute("--preset", server.URL)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parsing"))
		})

		It("keeps defaults for keys the remote config leaves out", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "[ui]\nmarkdown = false\n")
			}))
			defer server.Close()

			Expect(execute("--preset", server.URL)).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.UI.Markdown).To(BeFalse())
			Expect(cfg.History.Enabled).To(BeTrue())
			Expect(cfg.Client.BaseURL).To(Equal("http://localhost:8787"))
		})

		It("returns error for unreachable URL", func() {
			err := execute("--preset", "http://127.0.0.1:1")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("fetching remote config"))
		})
	})
})

// loadConfig is a test helper that reads and parses the config.toml from the
// .agentchat directory within the given base directory.
func loadConfig(baseDir string) *config.Config {
	configPath := filepath.Join(baseDir, ".agentchat", "config.toml")
	data, err := os.ReadFile(configPath)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	err = toml.Unmarshal(data, cfg)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return cfg
}
