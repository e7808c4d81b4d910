// Package chatscmder provides commands for managing the chats of a workspace.
package chatscmder

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/config"
)

const chatsLongDesc string = `Manage the chats of the selected workspace.

Examples:
  agentchat chats list
  agentchat chats new "Release planning"
  agentchat chats rename <chat-id> "Q3 release planning"
  agentchat chats show <chat-id>
  agentchat chats delete <chat-id>`

const chatsShortDesc string = "Manage chats"

// clientFlags holds the backend flags every chats subcommand accepts.
type clientFlags struct {
	baseURL   string
	workspace string
	timeout   time.Duration
}

func (f *clientFlags) register(cmd *cobra.Command) {
	config.AddClientFlags(cmd, &f.baseURL, &f.workspace, &f.timeout)
}

// load builds the env and a workspace-scoped client for cmd.
func load(cmd *cobra.Command) (*cmdenv.Env, *agent.Client, error) {
	env, err := cmdenv.Load(cmd, config.ClientFlags...)
	if err != nil {
		return nil, nil, err
	}

	client, err := env.ScopedClient()
	if err != nil {
		env.Close()
		return nil, nil, err
	}

	return env, client, nil
}

func NewChatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: chatsShortDesc,
		Long:  chatsLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newNewCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}
