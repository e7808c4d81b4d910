// Package historycmder provides the history command for browsing exchanges
// recorded in the local history database.
package historycmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/history"
	"github.com/papercomputeco/agentchat/pkg/utils"
)

const historyLongDesc string = `Browse locally recorded chat history.

Without arguments, lists the chats of the selected workspace that have
recorded exchanges. With a chat ID, prints that chat's most recent
exchanges, oldest first. History is read from the local database and
works without a connection to the backend.

Examples:
  agentchat history
  agentchat history <chat-id>
  agentchat history <chat-id> --limit 5 --raw`

const historyShortDesc string = "Browse local chat history"

const timeLayout = "2006-01-02 15:04"

type historyCommander struct {
	workspace  string
	sqlitePath string
	limit      int
	raw        bool
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history [chat-id]",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdenv.Load(cmd, config.FlagWorkspace, config.FlagSQLite, config.FlagMarkdown)
			if err != nil {
				return err
			}
			defer env.Close()

			tokens, err := env.Tokens()
			if err != nil {
				return err
			}
			ws, err := env.Workspace(tokens)
			if err != nil {
				return err
			}

			driver, err := env.OpenHistory()
			if err != nil {
				return err
			}
			defer driver.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				return runChats(cmd.Context(), out, driver, ws)
			}

			markdown := env.Viper.GetBool("ui.markdown") && !cmder.raw
			return runExchanges(cmd.Context(), out, driver, ws, args[0], cmder.limit, markdown)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagWorkspace, &cmder.workspace)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	cmd.Flags().IntVarP(&cmder.limit, "limit", "l", 20, "Maximum number of exchanges to show")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print replies without markdown rendering")

	return cmd
}

func runChats(ctx context.Context, out io.Writer, driver history.Driver, workspace string) error {
	chats, err := driver.Chats(ctx, workspace)
	if err != nil {
		return fmt.Errorf("listing recorded chats: %w", err)
	}

	fmt.Fprintf(out, "\n  %s %s\n\n", cliui.KeyStyle.Render("Workspace:"), cliui.IDStyle.Render(workspace))

	if len(chats) == 0 {
		fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("No recorded history."))
		return nil
	}

	for _, c := range chats {
		fmt.Fprintf(out, "  %s  %s  %s\n",
			cliui.IDStyle.Render(c.ChatID),
			cliui.ValueStyle.Render(pluralize(c.Exchanges, "exchange")),
			cliui.DimStyle.Render("last "+c.LastAt.Local().Format(timeLayout)),
		)
	}
	fmt.Fprintln(out)

	return nil
}

func runExchanges(ctx context.Context, out io.Writer, driver history.Driver, workspace, chatID string, limit int, markdown bool) error {
	exchanges, err := driver.List(ctx, history.Filter{
		Workspace: workspace,
		ChatID:    chatID,
		Limit:     limit,
	})
	if err != nil {
		return fmt.Errorf("listing exchanges: %w", err)
	}

	if len(exchanges) == 0 {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No recorded history for chat "+chatID+"."))
		return nil
	}

	fmt.Fprintln(out)
	for _, ex := range exchanges {
		fmt.Fprintf(out, "  %s %s  %s\n",
			statusMark(ex.Status),
			cliui.DimStyle.Render(ex.StartedAt.Local().Format(timeLayout)),
			cliui.DimStyle.Render(cliui.FormatDuration(ex.CompletedAt.Sub(ex.StartedAt))),
		)
		fmt.Fprintf(out, "%s%s\n", cliui.UserPrompt, ex.Prompt)

		reply := ex.Reply
		if markdown && reply != "" {
			if rendered, err := cliui.RenderMarkdown(reply); err == nil {
				reply = "\n" + strings.TrimRight(rendered, "\n")
			}
		}
		fmt.Fprintf(out, "%s%s\n", cliui.AssistantPrompt, reply)

		if ex.Error != "" {
			fmt.Fprintf(out, "  %s\n", cliui.ErrorStyle.Render(utils.Truncate(ex.Error, 200)))
		}
		fmt.Fprintln(out)
	}

	return nil
}

func statusMark(s history.Status) string {
	switch s {
	case history.StatusComplete:
		return cliui.SuccessMark
	case history.StatusFailed:
		return cliui.FailMark
	default:
		return cliui.WarnMark
	}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
