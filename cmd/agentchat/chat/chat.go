// Package chatcmder provides the chat command: a line-oriented REPL that
// streams agent replies to the terminal.
package chatcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/history/worker"
)

const chatLongDesc string = `Start an interactive chat with the agent.

Replies are streamed to the terminal as they arrive and, when attached to a
terminal, re-rendered as markdown once complete. Without a chat ID the
active chat of the workspace is resumed, or a new chat is started.

Completed exchanges are recorded in the local history database unless
--history=false is given. Use --dump-stream to capture the raw event
stream of every reply for debugging.

Examples:
  agentchat chat
  agentchat chat <chat-id>
  agentchat chat --new
  echo "summarize our last release" | agentchat chat --new`

const chatShortDesc string = "Chat with the agent"

type chatCommander struct {
	baseURL    string
	workspace  string
	timeout    time.Duration
	history    bool
	sqlitePath string
	markdown   bool
	dumpStream string
	newChat    bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [chat-id]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdenv.Load(cmd, append(config.ClientFlags,
				config.FlagHistory, config.FlagSQLite, config.FlagMarkdown)...)
			if err != nil {
				return err
			}
			defer env.Close()

			chatID := ""
			if len(args) == 1 {
				chatID = args[0]
			}

			return cmder.run(cmd.Context(), env, chatID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	config.AddClientFlags(cmd, &cmder.baseURL, &cmder.workspace, &cmder.timeout)
	config.AddBoolFlag(cmd, config.Flags, config.FlagHistory, &cmder.history)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddBoolFlag(cmd, config.Flags, config.FlagMarkdown, &cmder.markdown)
	cmd.Flags().StringVar(&cmder.dumpStream, "dump-stream", "", "Append raw response streams to this file")
	cmd.Flags().BoolVarP(&cmder.newChat, "new", "n", false, "Start a new chat instead of resuming the active one")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, env *cmdenv.Env, chatID string, in io.Reader, out io.Writer) error {
	client, err := env.ScopedClient()
	if err != nil {
		return err
	}

	chat, view, err := env.OpenChat(ctx, client, chatID, c.newChat)
	if err != nil {
		return err
	}

	s := &session{
		client:   client,
		view:     view,
		logger:   env.Logger,
		out:      out,
		markdown: env.Viper.GetBool("ui.markdown"),
		onNewChat: func(chat *agent.Chat) {
			env.RememberChat(client.Workspace(), chat)
		},
	}

	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		s.tty = termenv.NewOutput(f)
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			s.width = w
		}
	}

	driver, err := env.History()
	if err != nil {
		return err
	}
	if driver != nil {
		defer driver.Close()

		pool, err := worker.NewPool(&worker.Config{
			Driver: driver,
			Logger: env.Logger,
		})
		if err != nil {
			return fmt.Errorf("starting history pool: %w", err)
		}
		defer pool.Close()
		s.pool = pool
	}

	if c.dumpStream != "" {
		f, err := os.OpenFile(c.dumpStream, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening stream dump: %w", err)
		}
		defer f.Close()
		s.tee = f
	}

	fmt.Fprintf(out, "\n  %s %s %s\n",
		cliui.KeyStyle.Render("Chat:"),
		cliui.NameStyle.Render(chatTitle(chat)),
		cliui.IDStyle.Render(chat.ID),
	)
	if n := len(view.Messages()); n > 0 {
		fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render(fmt.Sprintf("Resuming with %d messages.", n)))
	}
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /help for commands, Ctrl+D to quit."))

	return s.loop(ctx, in)
}

func chatTitle(chat *agent.Chat) string {
	if chat.Title == "" {
		return "(untitled)"
	}
	return chat.Title
}
