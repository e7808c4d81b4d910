// Package cmdenv builds the state shared by agentchat commands from the
// global flags, config.toml and the environment.
package cmdenv

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/agentchat/cmd/agentchat/sqlitepath"
	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/history"
	"github.com/papercomputeco/agentchat/pkg/history/sqlite"
	"github.com/papercomputeco/agentchat/pkg/logger"
	"github.com/papercomputeco/agentchat/pkg/tokenstore"
)

// ErrNotLoggedIn is returned when no workspace credentials are stored.
var ErrNotLoggedIn = errors.New("not logged in: run 'agentchat auth login'")

// Env is the per-invocation state of a command.
type Env struct {
	ConfigDir string
	Debug     bool
	Viper     *viper.Viper
	Logger    *slog.Logger

	errOut  io.Writer
	closers []io.Closer
}

// Load resolves the global flags and config for cmd and binds the given flag
// registry keys into the viper precedence chain.
func Load(cmd *cobra.Command, flagKeys ...string) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")
	logFile, _ := cmd.Flags().GetString("log-file")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, flagKeys)

	env := &Env{
		ConfigDir: configDir,
		Debug:     debug,
		Viper:     v,
		errOut:    cmd.ErrOrStderr(),
	}

	console := logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(true),
		logger.WithWriter(env.errOut),
	)
	env.Logger = console

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		env.closers = append(env.closers, f)
		env.Logger = logger.Multi(console, logger.New(
			logger.WithDebug(true),
			logger.WithJSON(true),
			logger.WithWriter(f),
		))
	}

	return env, nil
}

// Close releases resources opened through the Env.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// Tokens opens the token store in the .agentchat/ directory.
func (e *Env) Tokens() (*tokenstore.FileStore, error) {
	store, err := tokenstore.NewFileStore(e.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("opening token store: %w", err)
	}
	return store, nil
}

// Workspace returns the selected workspace: the configured one, or the only
// workspace with stored credentials.
func (e *Env) Workspace(tokens *tokenstore.FileStore) (string, error) {
	if ws := e.Viper.GetString("client.workspace"); ws != "" {
		return ws, nil
	}

	stored, err := tokens.ListWorkspaces()
	if err != nil {
		return "", err
	}

	switch len(stored) {
	case 0:
		return "", ErrNotLoggedIn
	case 1:
		return stored[0], nil
	default:
		return "", errors.New("several workspaces are logged in: pick one with 'agentchat workspace use <id>'")
	}
}

// Client builds an agent client for the backend. When workspace is empty the
// client is unscoped, which is enough for the auth endpoints.
func (e *Env) Client(tokens tokenstore.Store, workspace string) (*agent.Client, error) {
	opts := []agent.Option{
		agent.WithLogger(e.Logger),
		agent.WithTimeout(e.Viper.GetDuration("client.timeout")),
		agent.WithAuthFailureHook(func(ws string) {
			fmt.Fprintf(e.errOut, "\n  %s Session for workspace %s expired. Run %s to log in again.\n",
				cliui.WarnMark,
				cliui.IDStyle.Render(ws),
				cliui.NameStyle.Render("agentchat auth login"),
			)
		}),
	}
	if workspace != "" {
		opts = append(opts, agent.WithWorkspace(workspace))
	}

	return agent.NewClient(e.Viper.GetString("client.base_url"), tokens, opts...)
}

// ScopedClient opens the token store and returns a client for the selected
// workspace.
func (e *Env) ScopedClient() (*agent.Client, error) {
	tokens, err := e.Tokens()
	if err != nil {
		return nil, err
	}

	ws, err := e.Workspace(tokens)
	if err != nil {
		return nil, err
	}

	return e.Client(tokens, ws)
}

// History opens the local history database. It returns nil when history is
// disabled.
func (e *Env) History() (history.Driver, error) {
	if !e.Viper.GetBool("history.enabled") {
		return nil, nil
	}
	return e.OpenHistory()
}

// OpenHistory opens the local history database whether or not recording is
// enabled.
func (e *Env) OpenHistory() (history.Driver, error) {
	path, err := sqlitepath.ResolveSQLitePath(e.Viper.GetString("history.sqlite_path"), e.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("resolving history database: %w", err)
	}

	driver, err := sqlite.NewDriver(path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	e.Logger.Debug("opened history database", "path", path)
	return driver, nil
}
