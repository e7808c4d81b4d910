// Package servecmder provides the serve command, which runs the local dev
// server that emulates the agent backend.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/devserver"
)

const serveLongDesc string = `Run the local agentchat dev server.

The dev server emulates the agent backend: one-time code login, token
refresh, workspaces, chats and the streaming message endpoint. Every email
is accepted with the login code (default 424242). Replies echo the prompt
back and are streamed in the payload shapes real backends emit.

Examples:
  agentchat serve
  agentchat serve --listen :9000 --delay 50ms
  agentchat serve --access-ttl 30s`

const serveShortDesc string = "Run the local dev server"

type ServeCommander struct {
	listen    string
	code      string
	delay     time.Duration
	accessTTL time.Duration
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd, config.FlagListen)
			if err != nil {
				return err
			}
			defer env.Close()

			return cmder.run(env)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	cmd.Flags().StringVar(&cmder.code, "code", devserver.DefaultCode, "One-time login code accepted for every email")
	cmd.Flags().DurationVar(&cmder.delay, "delay", 30*time.Millisecond, "Delay between streamed reply frames")
	cmd.Flags().DurationVar(&cmder.accessTTL, "access-ttl", devserver.DefaultAccessTTL, "Lifetime of issued access tokens")

	return cmd
}

func (c *ServeCommander) run(env *cmdenv.Env) error {
	listen := env.Viper.GetString("serve.listen")

	server := devserver.NewServer(devserver.Config{
		ListenAddr: listen,
		Code:       c.code,
		AccessTTL:  c.accessTTL,
		ChunkDelay: c.delay,
	}, env.Logger)

	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("dev server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		env.Logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}
