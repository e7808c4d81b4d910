// Package devserver provides a local emulation of the agent backend.
//
// It implements the endpoints the agent client talks to: one-time code login,
// token refresh, workspaces, chat management and the streaming message
// endpoint. Replies are streamed as a mix of the payload shapes real agent
// backends emit so the whole client pipeline can be exercised offline.
package devserver

import "time"

const (
	// DefaultCode is the one-time code accepted for every email.
	DefaultCode = "424242"

	// DefaultAccessTTL is how long an issued access token stays valid.
	DefaultAccessTTL = 15 * time.Minute
)

// Config is the dev server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8787")
	ListenAddr string

	// Code is the one-time login code. Defaults to DefaultCode.
	Code string

	// AccessTTL bounds access token lifetime. Defaults to DefaultAccessTTL.
	AccessTTL time.Duration

	// ChunkDelay is slept between streamed frames. Zero streams as fast as
	// the client reads.
	ChunkDelay time.Duration

	// Reply produces the assistant answer for a prompt. Defaults to an echo.
	Reply func(prompt string) string
}

func (c *Config) applyDefaults() {
	if c.Code == "" {
		c.Code = DefaultCode
	}
	if c.AccessTTL <= 0 {
		c.AccessTTL = DefaultAccessTTL
	}
	if c.Reply == nil {
		c.Reply = EchoReply
	}
}

// EchoReply answers with the prompt quoted back in markdown.
func EchoReply(prompt string) string {
	return "You said:\n\n> " + prompt + "\n\nThis reply was streamed by the **agentchat** dev server."
}
