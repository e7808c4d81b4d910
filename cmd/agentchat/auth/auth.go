// Package authcmder provides the auth commands for logging in to the agent
// backend with an emailed one-time code.
package authcmder

import (
	"github.com/spf13/cobra"
)

const authLongDesc string = `Log in to the agent backend and manage stored credentials.

Logging in emails a six digit code to your address. The issued tokens are
stored per workspace in tokens.toml in the .agentchat/ directory and are
refreshed automatically when they expire.

Examples:
  agentchat auth login --email ada@example.com
  agentchat auth status
  agentchat auth logout`

const authShortDesc string = "Log in to the agent backend"

func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: authShortDesc,
		Long:  authLongDesc,
	}

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}
