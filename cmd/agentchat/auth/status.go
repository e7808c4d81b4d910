package authcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/cliui"
)

const statusShortDesc string = "Show login state"

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			return runStatus(env, cmd.OutOrStdout())
		},
	}

	return cmd
}

func runStatus(env *cmdenv.Env, out io.Writer) error {
	tokens, err := env.Tokens()
	if err != nil {
		return err
	}

	stored, err := tokens.Load()
	if err != nil {
		return err
	}

	if len(stored.Workspaces) == 0 {
		fmt.Fprintf(out, "\n  %s Not logged in.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(out, "  Use 'agentchat auth login' to log in.\n\n")
		return nil
	}

	selected := env.Viper.GetString("client.workspace")

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Logged in"))
	fmt.Fprintln(out, cliui.KeyValue("Account", stored.Email))
	fmt.Fprintf(out, "%s\n\n", cliui.KeyValue("Backend", env.Viper.GetString("client.base_url")))

	ids, err := tokens.ListWorkspaces()
	if err != nil {
		return err
	}
	for _, id := range ids {
		wt := stored.Workspaces[id]
		marker := " "
		if id == selected {
			marker = cliui.SuccessMark
		}
		fmt.Fprintf(out, "  %s  %s  %s  %s\n",
			marker,
			cliui.IDStyle.Render(id),
			cliui.NameStyle.Render(displayName(wt.Name, id)),
			cliui.DimStyle.Render("updated "+wt.UpdatedAt.Local().Format("2006-01-02 15:04")),
		)
	}
	fmt.Fprintln(out)

	if selected == "" {
		fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("No workspace selected. Use 'agentchat workspace use <id>'."))
	}

	return nil
}
