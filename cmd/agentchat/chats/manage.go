package chatscmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
)

func newNewCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "new [title]",
		Short: "Create a chat and make it the active one",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, client, err := load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			chat, err := client.CreateChat(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			env.RememberChat(client.Workspace(), chat)

			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Created %s %s\n\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(titleOf(*chat)),
				cliui.IDStyle.Render(chat.ID),
			)
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

func newRenameCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "rename <chat-id> <title>",
		Short: "Rename a chat",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, client, err := load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			chat, err := client.RenameChat(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Renamed %s to %s\n\n",
				cliui.SuccessMark,
				cliui.IDStyle.Render(chat.ID),
				cliui.NameStyle.Render(chat.Title),
			)
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

func newDeleteCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "delete <chat-id>",
		Short: "Delete a chat and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, client, err := load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := client.DeleteChat(cmd.Context(), args[0]); err != nil {
				return err
			}

			ddm := dotdir.NewManager()
			if state, err := ddm.LoadSession(env.ConfigDir); err == nil && state.Active[client.Workspace()].ChatID == args[0] {
				if err := ddm.ClearActiveChat(client.Workspace(), env.ConfigDir); err != nil {
					env.Logger.Warn("could not clear active chat", "error", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Deleted %s\n\n", cliui.SuccessMark, cliui.IDStyle.Render(args[0]))
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
