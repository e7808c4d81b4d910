// Package tokenstore holds bearer credentials per workspace.
//
// The store is process-wide state keyed by workspace ID. It is injected into
// the agent client as the Store interface so the streaming path can be tested
// against the in-memory implementation.
package tokenstore

import "time"

// Store is the capability the agent client needs from credential storage.
// Getters return an empty string (and no error) when nothing is stored.
// Implementations must be safe for concurrent use.
type Store interface {
	AccessToken(workspace string) (string, error)
	RefreshToken(workspace string) (string, error)
	SetAccessToken(workspace, token string) error
	SetRefreshToken(workspace, token string) error

	// Clear removes all stored auth for the workspace.
	Clear(workspace string) error
}

// Tokens represents the stored credentials in tokens.toml.
type Tokens struct {
	Version    int                        `toml:"version"`
	Email      string                     `toml:"email,omitempty"`
	Workspaces map[string]WorkspaceTokens `toml:"workspaces"`
}

// WorkspaceTokens holds the bearer credentials for a single workspace.
type WorkspaceTokens struct {
	Name         string    `toml:"name,omitempty"`
	AccessToken  string    `toml:"access_token,omitempty"`
	RefreshToken string    `toml:"refresh_token,omitempty"`
	UpdatedAt    time.Time `toml:"updated_at"`
}
