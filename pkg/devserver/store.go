package devserver

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/agentchat/pkg/agent"
)

type session struct {
	workspace string
	expiresAt time.Time
}

type chatRecord struct {
	chat     agent.Chat
	messages []agent.ChatMessage
}

type workspaceRecord struct {
	info  agent.Workspace
	chats map[string]*chatRecord
}

// store is the dev server's in-memory state.
type store struct {
	mu  sync.Mutex
	now func() time.Time

	// accounts maps an email to its workspace ID.
	accounts   map[string]string
	workspaces map[string]*workspaceRecord
	access     map[string]session
	refresh    map[string]string
}

func newStore() *store {
	return &store{
		now:        time.Now,
		accounts:   make(map[string]string),
		workspaces: make(map[string]*workspaceRecord),
		access:     make(map[string]session),
		refresh:    make(map[string]string),
	}
}

// account returns the workspace for email, creating it on first login.
func (s *store) account(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ws, ok := s.accounts[email]; ok {
		return ws
	}

	name, _, _ := strings.Cut(email, "@")
	ws := uuid.NewString()
	s.accounts[email] = ws
	s.workspaces[ws] = &workspaceRecord{
		info:  agent.Workspace{ID: ws, Name: name + "'s workspace"},
		chats: make(map[string]*chatRecord),
	}
	return ws
}

// issue mints an access/refresh token pair for workspace.
func (s *store) issue(workspace string, ttl time.Duration) agent.Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := agent.Tokens{
		AccessToken:  "at_" + uuid.NewString(),
		RefreshToken: "rt_" + uuid.NewString(),
		WorkspaceID:  workspace,
	}
	s.access[tokens.AccessToken] = session{workspace: workspace, expiresAt: s.now().Add(ttl)}
	s.refresh[tokens.RefreshToken] = workspace
	return tokens
}

// rotate exchanges a refresh token for a new pair, invalidating the old one.
func (s *store) rotate(refresh string, ttl time.Duration) (agent.Tokens, bool) {
	s.mu.Lock()
	ws, ok := s.refresh[refresh]
	if ok {
		delete(s.refresh, refresh)
	}
	s.mu.Unlock()

	if !ok {
		return agent.Tokens{}, false
	}
	return s.issue(ws, ttl), true
}

// authorize resolves an access token to its workspace.
func (s *store) authorize(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.access[token]
	if !ok {
		return "", false
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.access, token)
		return "", false
	}
	return sess.workspace, true
}

// expireAccess invalidates every access token, leaving refresh tokens usable.
func (s *store) expireAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = make(map[string]session)
}

func (s *store) workspace(id string) (agent.Workspace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.workspaces[id]
	if !ok {
		return agent.Workspace{}, false
	}
	return rec.info, true
}

// chats lists a workspace's chats, most recently updated first.
func (s *store) chats(ws string) []agent.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.workspaces[ws]
	if !ok {
		return nil
	}

	out := make([]agent.Chat, 0, len(rec.chats))
	for _, c := range rec.chats {
		out = append(out, c.chat)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (s *store) createChat(ws, title string) (agent.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.workspaces[ws]
	if !ok {
		return agent.Chat{}, false
	}

	now := s.now().UTC()
	chat := agent.Chat{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec.chats[chat.ID] = &chatRecord{chat: chat}
	return chat, true
}

func (s *store) renameChat(ws, id, title string) (agent.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.chatLocked(ws, id)
	if c == nil {
		return agent.Chat{}, false
	}
	c.chat.Title = title
	c.chat.UpdatedAt = s.now().UTC()
	return c.chat, true
}

func (s *store) deleteChat(ws, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.workspaces[ws]
	if !ok {
		return false
	}
	if _, ok := rec.chats[id]; !ok {
		return false
	}
	delete(rec.chats, id)
	return true
}

func (s *store) messages(ws, id string) ([]agent.ChatMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.chatLocked(ws, id)
	if c == nil {
		return nil, false
	}
	out := make([]agent.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out, true
}

// appendMessage records a message and bumps the chat. A chat without a title
// takes the first line of its first user message.
func (s *store) appendMessage(ws, id, role, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.chatLocked(ws, id)
	if c == nil {
		return false
	}

	now := s.now().UTC()
	c.messages = append(c.messages, agent.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: now,
	})
	c.chat.UpdatedAt = now
	if c.chat.Title == "" && role == roleUser {
		c.chat.Title = titleFrom(content)
	}
	return true
}

func (s *store) chatLocked(ws, id string) *chatRecord {
	rec, ok := s.workspaces[ws]
	if !ok {
		return nil
	}
	return rec.chats[id]
}
