package tokenstore

import "sync"

// Memory is an in-memory Store used by tests and ephemeral sessions.
type Memory struct {
	mu     sync.RWMutex
	tokens map[string]WorkspaceTokens
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tokens: make(map[string]WorkspaceTokens)}
}

// Put seeds a workspace's credentials.
func (m *Memory) Put(workspace, access, refresh string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[workspace] = WorkspaceTokens{AccessToken: access, RefreshToken: refresh}
}

func (m *Memory) AccessToken(workspace string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.tokens[workspace].AccessToken, nil
}

func (m *Memory) RefreshToken(workspace string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.tokens[workspace].RefreshToken, nil
}

func (m *Memory) SetAccessToken(workspace, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wt := m.tokens[workspace]
	wt.AccessToken = token
	m.tokens[workspace] = wt
	return nil
}

func (m *Memory) SetRefreshToken(workspace, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wt := m.tokens[workspace]
	wt.RefreshToken = token
	m.tokens[workspace] = wt
	return nil
}

func (m *Memory) Clear(workspace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tokens, workspace)
	return nil
}
