package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	sessionFile = "session.json"
)

// SessionState is the persisted pointer to the chat the user was last
// working in, per workspace. "agentchat chat" with no argument resumes it.
type SessionState struct {
	// Active maps a workspace ID to its active chat.
	Active map[string]ActiveChat `json:"active"`
}

// ActiveChat identifies the active chat of one workspace.
type ActiveChat struct {
	ChatID string `json:"chat_id"`
	Title  string `json:"title,omitempty"`
}

// LoadSession loads the session state from a target .agentchat/session.json.
// Returns an empty state if no session file exists.
func (m *Manager) LoadSession(overrideDir string) (*SessionState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	state := &SessionState{Active: make(map[string]ActiveChat)}
	if dir == "" {
		return state, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, sessionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state, nil
		}
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing session state: %w", err)
	}
	if state.Active == nil {
		state.Active = make(map[string]ActiveChat)
	}

	return state, nil
}

// SetActiveChat records chat as the active chat for workspace.
func (m *Manager) SetActiveChat(workspace string, chat ActiveChat, overrideDir string) error {
	if workspace == "" {
		return errors.New("workspace is required")
	}

	state, err := m.LoadSession(overrideDir)
	if err != nil {
		return err
	}
	state.Active[workspace] = chat

	return m.saveSession(state, overrideDir)
}

// ClearActiveChat forgets the active chat for workspace. It is a no-op if
// none is recorded.
func (m *Manager) ClearActiveChat(workspace, overrideDir string) error {
	state, err := m.LoadSession(overrideDir)
	if err != nil {
		return err
	}
	if _, ok := state.Active[workspace]; !ok {
		return nil
	}
	delete(state.Active, workspace)

	return m.saveSession(state, overrideDir)
}

func (m *Manager) saveSession(state *SessionState, overrideDir string) error {
	dir, err := m.EnsureHome(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, sessionFile), data, 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}

	return nil
}
