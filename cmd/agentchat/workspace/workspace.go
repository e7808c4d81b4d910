// Package workspacecmder provides commands for listing and selecting the
// workspace agentchat talks to.
package workspacecmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
)

const workspaceLongDesc string = `List and select workspaces.

Examples:
  agentchat workspace list
  agentchat workspace use 3f1c2a9e-...`

const workspaceShortDesc string = "List and select workspaces"

func NewWorkspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   workspaceShortDesc,
		Long:    workspaceLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newUseCmd())

	return cmd
}

func newListCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workspaces with stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd, config.FlagBaseURL)
			if err != nil {
				return err
			}
			defer env.Close()

			return runList(cmd.Context(), env, cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &baseURL)

	return cmd
}

func runList(ctx context.Context, env *cmdenv.Env, out io.Writer) error {
	tokens, err := env.Tokens()
	if err != nil {
		return err
	}

	stored, err := tokens.Load()
	if err != nil {
		return err
	}
	ids, err := tokens.ListWorkspaces()
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		return cmdenv.ErrNotLoggedIn
	}

	selected := env.Viper.GetString("client.workspace")

	// Refresh names from the backend where the stored token still works.
	client, err := env.Client(tokens, "")
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Workspaces"))
	for _, id := range ids {
		wt := stored.Workspaces[id]
		name := wt.Name

		if remote, err := client.ListWorkspaces(ctx, wt.AccessToken); err == nil {
			for _, ws := range remote {
				if ws.ID == id && ws.Name != "" {
					name = ws.Name
				}
			}
		} else {
			env.Logger.Debug("could not refresh workspace name", "workspace", id, "error", err)
		}

		marker := " "
		if id == selected {
			marker = cliui.SuccessMark
		}
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(out, "  %s  %s  %s\n", marker, cliui.IDStyle.Render(id), cliui.NameStyle.Render(name))
	}
	fmt.Fprintln(out)

	return nil
}

func newUseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use <workspace-id>",
		Short: "Select the workspace used by other commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdenv.Load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			return runUse(env, cmd.OutOrStdout(), args[0])
		},
	}

	return cmd
}

func runUse(env *cmdenv.Env, out io.Writer, id string) error {
	tokens, err := env.Tokens()
	if err != nil {
		return err
	}

	access, err := tokens.AccessToken(id)
	if err != nil {
		return err
	}
	if access == "" {
		return fmt.Errorf("no credentials stored for workspace %q: run 'agentchat auth login'", id)
	}

	cfger, err := config.NewConfiger(env.ConfigDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SetConfigValue("client.workspace", id); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Using workspace %s\n\n", cliui.SuccessMark, cliui.IDStyle.Render(id))
	return nil
}
