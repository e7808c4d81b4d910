package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --workspace
// on "agentchat chat", "agentchat chats list" and "agentchat tui").
type Flag struct {
	// Name is the long flag name (e.g. "base-url").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.base_url").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddBoolFlag, AddDurationFlag
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagBaseURL   = "base-url"
	FlagWorkspace = "workspace"
	FlagTimeout   = "timeout"
	FlagHistory   = "history"
	FlagSQLite    = "sqlite"
	FlagListen    = "listen"
	FlagMarkdown  = "markdown"
)

// Flags is the agentchat flag registry.
var Flags = FlagSet{
	FlagBaseURL:   {Name: "base-url", Shorthand: "u", ViperKey: "client.base_url", Description: "Agent backend URL"},
	FlagWorkspace: {Name: "workspace", Shorthand: "w", ViperKey: "client.workspace", Description: "Workspace ID"},
	FlagTimeout:   {Name: "timeout", ViperKey: "client.timeout", Description: "Timeout for non-streaming requests"},
	FlagHistory:   {Name: "history", ViperKey: "history.enabled", Description: "Record exchanges in the local history database"},
	FlagSQLite:    {Name: "sqlite", Shorthand: "s", ViperKey: "history.sqlite_path", Description: "Path to the history database"},
	FlagListen:    {Name: "listen", Shorthand: "l", ViperKey: "serve.listen", Description: "Address for the dev backend to listen on"},
	FlagMarkdown:  {Name: "markdown", ViperKey: "ui.markdown", Description: "Render completed replies as markdown"},
}

// ClientFlags are the registry keys every backend-facing command binds.
var ClientFlags = []string{FlagBaseURL, FlagWorkspace, FlagTimeout}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddDurationFlag registers a duration flag on cmd from the given FlagSet.
func AddDurationFlag(cmd *cobra.Command, fs FlagSet, key string, target *time.Duration) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetDuration(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().DurationVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().DurationVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddClientFlags registers the ClientFlags on cmd.
func AddClientFlags(cmd *cobra.Command, baseURL, workspace *string, timeout *time.Duration) {
	AddStringFlag(cmd, Flags, FlagBaseURL, baseURL)
	AddStringFlag(cmd, Flags, FlagWorkspace, workspace)
	AddDurationFlag(cmd, Flags, FlagTimeout, timeout)
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper instance holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
