// Package initcmder provides the init command for initializing a local
// .agentchat directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .agentchat/ directory in the current working directory.

Creates a local .agentchat/ directory that takes precedence over the default
~/.agentchat/ directory for configuration, credentials, the active chat and
the history database. A config.toml with default values is written.

Use --preset to seed config.toml from a named preset or from a config.toml
published at a URL. Re-running with --preset overwrites the existing config.

This is useful for keeping separate backends or accounts per project.

Examples:
  agentchat init
  agentchat init --preset local
  agentchat init --preset https://agents.example.com/agentchat.toml`

const initShortDesc string = "Initialize a local .agentchat/ directory"

const fetchTimeout = 10 * time.Second

// maxPresetSize caps a remote config.toml.
const maxPresetSize = 1 << 20

// presets are the named configurations accepted by --preset.
var presets = map[string]func() *config.Config{
	"local": config.NewDefaultConfig,
	"offline": func() *config.Config {
		cfg := config.NewDefaultConfig()
		cfg.UI.Markdown = false
		return cfg
	},
}

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Named preset ("+strings.Join(presetNames(), ", ")+") or URL of a config.toml")

	return cmd
}

func (c *initCommander) run(ctx context.Context, out io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dotdir.DirName)

	var cfg *config.Config
	if c.preset != "" {
		cfg, err = loadPreset(ctx, c.preset)
		if err != nil {
			return err
		}
	}

	info, err := os.Stat(dir)
	exists := err == nil && info.IsDir()

	if exists && cfg == nil {
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .agentchat directory: %w", err)
	}

	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	if exists {
		fmt.Fprintf(out, "Applied preset %s to %s\n", c.preset, cfger.GetTarget())
		return nil
	}

	fmt.Fprintf(out, "Initialized .agentchat directory: %s\n", dir)
	return nil
}

func loadPreset(ctx context.Context, preset string) (*config.Config, error) {
	if strings.HasPrefix(preset, "http://") || strings.HasPrefix(preset, "https://") {
		return fetchPreset(ctx, preset)
	}

	build, ok := presets[preset]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (valid presets: %s)", preset, strings.Join(presetNames(), ", "))
	}
	return build(), nil
}

func fetchPreset(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPresetSize))
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	if _, err := config.ParseConfigTOML(data); err != nil {
		return nil, err
	}

	// Keys the remote file leaves out keep their defaults.
	cfg := config.NewDefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing remote config: %w", err)
	}
	cfg.Version = config.CurrentV

	return cfg, nil
}

func presetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
