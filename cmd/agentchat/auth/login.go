package authcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/tokenstore"
)

const loginLongDesc string = `Log in with an emailed one-time code.

The code is read with hidden input when stdin is a terminal. When stdin is
a pipe, the email (if --email is not given) and the code are read from it,
one per line.

Examples:
  agentchat auth login
  agentchat auth login --email ada@example.com
  printf 'ada@example.com\n424242\n' | agentchat auth login`

const loginShortDesc string = "Log in with an emailed one-time code"

type loginCommander struct {
	email   string
	baseURL string

	in  io.Reader
	out io.Writer
}

func newLoginCmd() *cobra.Command {
	cmder := &loginCommander{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: loginShortDesc,
		Long:  loginLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd, config.FlagBaseURL)
			if err != nil {
				return err
			}
			defer env.Close()

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context(), env)
		},
	}

	cmd.Flags().StringVarP(&cmder.email, "email", "e", "", "Account email address")
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)

	return cmd
}

func (c *loginCommander) run(ctx context.Context, env *cmdenv.Env) error {
	if ctx == nil {
		ctx = context.Background()
	}

	tokens, err := env.Tokens()
	if err != nil {
		return err
	}

	client, err := env.Client(tokens, "")
	if err != nil {
		return err
	}

	reader := bufio.NewReader(c.in)

	email := strings.TrimSpace(c.email)
	if email == "" {
		fmt.Fprint(c.out, "Email: ")
		email, err = readLine(reader)
		if err != nil {
			return fmt.Errorf("reading email: %w", err)
		}
	}
	if err := agent.ValidateEmail(email); err != nil {
		return err
	}

	if err := cliui.Step(c.out, "Sending login code to "+email, func() error {
		return client.RequestCode(ctx, email)
	}); err != nil {
		return err
	}

	code, err := c.readCode(reader)
	if err != nil {
		return err
	}
	if err := agent.ValidateCode(code); err != nil {
		return err
	}

	var issued *agent.Tokens
	if err := cliui.Step(c.out, "Verifying code", func() error {
		issued, err = client.VerifyCode(ctx, email, code)
		return err
	}); err != nil {
		return err
	}

	workspaces, err := client.ListWorkspaces(ctx, issued.AccessToken)
	if err != nil {
		return fmt.Errorf("listing workspaces: %w", err)
	}

	workspace := issued.WorkspaceID
	if workspace == "" && len(workspaces) > 0 {
		workspace = workspaces[0].ID
	}
	if workspace == "" {
		return errors.New("login succeeded but no workspace is available")
	}

	name := ""
	for _, ws := range workspaces {
		if ws.ID == workspace {
			name = ws.Name
		}
	}

	if err := tokens.SetWorkspace(email, workspace, tokenstore.WorkspaceTokens{
		Name:         name,
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
	}); err != nil {
		return fmt.Errorf("storing tokens: %w", err)
	}

	cfger, err := config.NewConfiger(env.ConfigDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SetConfigValue("client.workspace", workspace); err != nil {
		return fmt.Errorf("selecting workspace: %w", err)
	}

	fmt.Fprintf(c.out, "\n  %s Logged in as %s in %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(email),
		cliui.ValueStyle.Render(displayName(name, workspace)),
		cliui.DimStyle.Render("("+workspace+")"),
	)
	return nil
}

// readCode reads the one-time code, hidden when stdin is a terminal.
func (c *loginCommander) readCode(reader *bufio.Reader) (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.out, "Code: ")
		code, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("reading code: %w", err)
		}
		return strings.TrimSpace(string(code)), nil
	}

	code, err := readLine(reader)
	if err != nil {
		return "", fmt.Errorf("reading code: %w", err)
	}
	return code, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	line = strings.TrimSpace(line)
	switch {
	case err == nil:
		return line, nil
	case errors.Is(err, io.EOF) && line != "":
		return line, nil
	case errors.Is(err, io.EOF):
		return "", errors.New("no input received on stdin")
	default:
		return "", err
	}
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
