// Package tuicmder provides the tui command: a full-screen chat with a
// scrollable transcript and live streaming replies.
package tuicmder

import (
	"context"
	"fmt"
	"os"
	"time"

	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/history/worker"
)

const tuiLongDesc string = `Open a full-screen chat with the agent.

The transcript scrolls above the input line. Replies stream in as they
arrive and are rendered as markdown once complete. Press esc to stop a
reply, ctrl+n to start a new chat and ctrl+c to quit.

Examples:
  agentchat tui
  agentchat tui <chat-id>
  agentchat tui --new`

const tuiShortDesc string = "Full-screen chat with the agent"

type tuiCommander struct {
	baseURL    string
	workspace  string
	timeout    time.Duration
	history    bool
	sqlitePath string
	markdown   bool
	newChat    bool
}

func NewTUICmd() *cobra.Command {
	cmder := &tuiCommander{}

	cmd := &cobra.Command{
		Use:   "tui [chat-id]",
		Short: tuiShortDesc,
		Long:  tuiLongDesc,
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

			return cmder.run(cmd.Context(), env, chatID)
		},
	}

	config.AddClientFlags(cmd, &cmder.baseURL, &cmder.workspace, &cmder.timeout)
	config.AddBoolFlag(cmd, config.Flags, config.FlagHistory, &cmder.history)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddBoolFlag(cmd, config.Flags, config.FlagMarkdown, &cmder.markdown)
	cmd.Flags().BoolVarP(&cmder.newChat, "new", "n", false, "Start a new chat instead of resuming the active one")

	return cmd
}

func (c *tuiCommander) run(ctx context.Context, env *cmdenv.Env, chatID string) error {
	client, err := env.ScopedClient()
	if err != nil {
		return err
	}

	chat, view, err := env.OpenChat(ctx, client, chatID, c.newChat)
	if err != nil {
		return err
	}

	model := newChatModel(ctx, client, chat, view)
	model.logger = env.Logger
	model.markdown = env.Viper.GetBool("ui.markdown")
	model.onNewChat = func(chat *agent.Chat) {
		env.RememberChat(client.Workspace(), chat)
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
		model.pool = pool
	}

	// Force TrueColor so lipgloss does not fall back to ASCII inside the
	// alt screen. See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
		bubbletea.WithMouseCellMotion(),
	)
	_, err = program.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
