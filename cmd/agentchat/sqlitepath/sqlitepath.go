// Package sqlitepath resolves where the local history database lives.
package sqlitepath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
)

// ResolveSQLitePath returns the history database path. An explicit override
// wins; otherwise an existing database under $XDG_DATA_HOME/agentchat is
// reused, and finally history.db in the .agentchat/ directory is used
// (creating ~/.agentchat/ if needed).
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		return override, nil
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidate := filepath.Join(xdgHome, "agentchat", config.HistoryFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	dir, err := dotdir.NewManager().EnsureHome(configDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, config.HistoryFile), nil
}
