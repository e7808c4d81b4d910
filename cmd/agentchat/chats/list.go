package chatscmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
	"github.com/papercomputeco/agentchat/pkg/utils"
)

const untitled = "(untitled)"

func newListCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chats, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, client, err := load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			active := ""
			if state, err := dotdir.NewManager().LoadSession(env.ConfigDir); err == nil {
				active = state.Active[client.Workspace()].ChatID
			}

			return runList(cmd.Context(), client, cmd.OutOrStdout(), active)
		},
	}

	flags.register(cmd)

	return cmd
}

func runList(ctx context.Context, client *agent.Client, out io.Writer, active string) error {
	chats, err := client.ListChats(ctx)
	if err != nil {
		return err
	}

	if len(chats) == 0 {
		fmt.Fprintf(out, "\n  %s No chats yet. Start one with 'agentchat chat'.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Chats"))
	for _, c := range chats {
		marker := " "
		if c.ID == active {
			marker = cliui.SuccessMark
		}
		fmt.Fprintf(out, "  %s  %s  %s  %s\n",
			marker,
			cliui.IDStyle.Render(c.ID),
			cliui.NameStyle.Render(titleOf(c)),
			cliui.DimStyle.Render(c.UpdatedAt.Local().Format("2006-01-02 15:04")),
		)
	}
	fmt.Fprintln(out)

	return nil
}

func titleOf(c agent.Chat) string {
	if c.Title == "" {
		return untitled
	}
	return utils.Truncate(c.Title, 60)
}
