package chatscmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/cliui"
)

func newShowCmd() *cobra.Command {
	flags := &clientFlags{}
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <chat-id>",
		Short: "Print a chat's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, client, err := load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			return runShow(cmd.Context(), client, cmd.OutOrStdout(), args[0], !raw)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "Print message text without markdown rendering")

	return cmd
}

func runShow(ctx context.Context, client *agent.Client, out io.Writer, chatID string, markdown bool) error {
	messages, err := client.ListMessages(ctx, chatID)
	if err != nil {
		return err
	}

	if len(messages) == 0 {
		fmt.Fprintf(out, "\n  %s No messages in this chat.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Fprintln(out)
	for _, m := range messages {
		prompt := cliui.AssistantPrompt
		if m.Role == "user" {
			prompt = cliui.UserPrompt
		}

		body := m.Content
		if markdown && m.Role != "user" {
			if rendered, err := cliui.RenderMarkdown(m.Content); err == nil {
				body = rendered
			}
		}

		fmt.Fprintf(out, "%s%s\n", prompt, cliui.DimStyle.Render(m.CreatedAt.Local().Format("15:04")))
		fmt.Fprintln(out, body)
	}

	return nil
}
