package tokenstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/agentchat/pkg/dotdir"
)

const (
	tokensFile = "tokens.toml"

	currentVersion = 0
)

// FileStore manages reading and writing tokens.toml in the .agentchat/
// directory. Every call re-reads the file so separate agentchat processes
// observe each other's refreshes; the mutex serializes read-modify-write
// cycles within this process.
type FileStore struct {
	mu         sync.Mutex
	targetPath string
	now        func() time.Time
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a new FileStore. If override is non-empty it is used as
// the .agentchat/ directory; otherwise the standard dotdir resolution applies.
// When no .agentchat/ directory is found, one is created at ~/.agentchat/.
func NewFileStore(override string) (*FileStore, error) {
	target, err := dotdir.NewManager().EnsureHome(override)
	if err != nil {
		return nil, err
	}

	return &FileStore{
		targetPath: filepath.Join(target, tokensFile),
		now:        time.Now,
	}, nil
}

// Load reads tokens.toml from the target directory.
// Returns empty Tokens if the file does not exist.
func (s *FileStore) Load() (*Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

func (s *FileStore) load() (*Tokens, error) {
	data, err := os.ReadFile(s.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Tokens{
				Version:    currentVersion,
				Workspaces: make(map[string]WorkspaceTokens),
			}, nil
		}
		return nil, fmt.Errorf("reading tokens: %w", err)
	}

	tokens := &Tokens{}
	if err := toml.Unmarshal(data, tokens); err != nil {
		return nil, fmt.Errorf("parsing tokens: %w", err)
	}

	if tokens.Workspaces == nil {
		tokens.Workspaces = make(map[string]WorkspaceTokens)
	}

	return tokens, nil
}

// Save writes tokens to tokens.toml with 0600 permissions.
func (s *FileStore) Save(tokens *Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(tokens)
}

func (s *FileStore) save(tokens *Tokens) error {
	if tokens == nil {
		return errors.New("cannot save nil tokens")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(tokens); err != nil {
		return fmt.Errorf("encoding tokens: %w", err)
	}

	if err := os.WriteFile(s.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing tokens: %w", err)
	}

	return nil
}

// update runs fn against the current file contents and persists the result.
func (s *FileStore) update(fn func(t *Tokens)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.load()
	if err != nil {
		return err
	}

	fn(tokens)

	return s.save(tokens)
}

// get returns the stored tokens for workspace, or a zero value.
func (s *FileStore) get(workspace string) (WorkspaceTokens, error) {
	tokens, err := s.Load()
	if err != nil {
		return WorkspaceTokens{}, err
	}

	return tokens.Workspaces[workspace], nil
}

// AccessToken returns the stored access token for workspace.
func (s *FileStore) AccessToken(workspace string) (string, error) {
	wt, err := s.get(workspace)
	return wt.AccessToken, err
}

// RefreshToken returns the stored refresh token for workspace.
func (s *FileStore) RefreshToken(workspace string) (string, error) {
	wt, err := s.get(workspace)
	return wt.RefreshToken, err
}

// SetAccessToken persists a new access token for workspace, keeping its
// refresh token.
func (s *FileStore) SetAccessToken(workspace, token string) error {
	return s.update(func(t *Tokens) {
		wt := t.Workspaces[workspace]
		wt.AccessToken = token
		wt.UpdatedAt = s.now().UTC()
		t.Workspaces[workspace] = wt
	})
}

// SetRefreshToken persists a new refresh token for workspace.
func (s *FileStore) SetRefreshToken(workspace, token string) error {
	return s.update(func(t *Tokens) {
		wt := t.Workspaces[workspace]
		wt.RefreshToken = token
		wt.UpdatedAt = s.now().UTC()
		t.Workspaces[workspace] = wt
	})
}

// SetWorkspace stores a full credential set after a login, along with the
// account email.
func (s *FileStore) SetWorkspace(email, workspace string, wt WorkspaceTokens) error {
	return s.update(func(t *Tokens) {
		if email != "" {
			t.Email = email
		}
		wt.UpdatedAt = s.now().UTC()
		t.Workspaces[workspace] = wt
	})
}

// Clear deletes the stored credentials for workspace.
func (s *FileStore) Clear(workspace string) error {
	return s.update(func(t *Tokens) {
		delete(t.Workspaces, workspace)
		if len(t.Workspaces) == 0 {
			t.Email = ""
		}
	})
}

// ListWorkspaces returns the IDs of workspaces that have stored credentials.
func (s *FileStore) ListWorkspaces() ([]string, error) {
	tokens, err := s.Load()
	if err != nil {
		return nil, err
	}

	workspaces := make([]string, 0, len(tokens.Workspaces))
	for id := range tokens.Workspaces {
		workspaces = append(workspaces, id)
	}

	sort.Strings(workspaces)

	return workspaces, nil
}

// GetTarget returns the resolved path to the tokens file.
func (s *FileStore) GetTarget() string {
	return s.targetPath
}
