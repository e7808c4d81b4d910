// Package agentchatcmder
package agentchatcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/agentchat/cmd/agentchat/auth"
	chatcmder "github.com/papercomputeco/agentchat/cmd/agentchat/chat"
	chatscmder "github.com/papercomputeco/agentchat/cmd/agentchat/chats"
	configcmder "github.com/papercomputeco/agentchat/cmd/agentchat/config"
	historycmder "github.com/papercomputeco/agentchat/cmd/agentchat/history"
	initcmder "github.com/papercomputeco/agentchat/cmd/agentchat/init"
	servecmder "github.com/papercomputeco/agentchat/cmd/agentchat/serve"
	tuicmder "github.com/papercomputeco/agentchat/cmd/agentchat/tui"
	workspacecmder "github.com/papercomputeco/agentchat/cmd/agentchat/workspace"
	versioncmder "github.com/papercomputeco/agentchat/cmd/version"
)

const agentchatLongDesc string = `agentchat is a terminal client for remote AI agents.

Log in, pick a workspace and chat. Replies stream into the terminal as the
agent writes them.

Get started:
  agentchat auth login       Log in with a one-time email code
  agentchat chat             Chat in the terminal
  agentchat tui              Chat in a full-screen interface
  agentchat serve            Run a local dev backend to try it offline`

const agentchatShortDesc string = "agentchat - chat with remote agents"

func NewAgentChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "agentchat",
		Short:        agentchatShortDesc,
		Long:         agentchatLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .agentchat/ directory")
	cmd.PersistentFlags().String("log-file", "", "Also write JSON debug logs to this file")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(workspacecmder.NewWorkspaceCmd())
	cmd.AddCommand(chatscmder.NewChatsCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(tuicmder.NewTUICmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
