package authcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
)

const logoutShortDesc string = "Remove stored credentials"

func newLogoutCmd() *cobra.Command {
	var all bool
	var workspace string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: logoutShortDesc,
		Long: `Remove stored credentials for the selected workspace, or for every
workspace with --all.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd, config.FlagWorkspace)
			if err != nil {
				return err
			}
			defer env.Close()

			return runLogout(env, cmd.OutOrStdout(), all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Log out of every workspace")
	config.AddStringFlag(cmd, config.Flags, config.FlagWorkspace, &workspace)

	return cmd
}

func runLogout(env *cmdenv.Env, out io.Writer, all bool) error {
	tokens, err := env.Tokens()
	if err != nil {
		return err
	}

	var targets []string
	if all {
		targets, err = tokens.ListWorkspaces()
		if err != nil {
			return err
		}
	} else {
		ws, err := env.Workspace(tokens)
		if err != nil {
			return err
		}
		targets = []string{ws}
	}

	if len(targets) == 0 {
		fmt.Fprintf(out, "\n  %s Not logged in.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	ddm := dotdir.NewManager()
	for _, ws := range targets {
		if err := tokens.Clear(ws); err != nil {
			return fmt.Errorf("clearing workspace %s: %w", ws, err)
		}
		if err := ddm.ClearActiveChat(ws, env.ConfigDir); err != nil {
			env.Logger.Warn("could not clear active chat", "workspace", ws, "error", err)
		}
		fmt.Fprintf(out, "\n  %s Logged out of %s", cliui.SuccessMark, cliui.IDStyle.Render(ws))
	}
	fmt.Fprint(out, "\n\n")

	return nil
}
