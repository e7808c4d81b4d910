// Package conversation keeps an optimistic local view of one chat while a
// reply is streaming in.
package conversation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/agentchat/pkg/chunk"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status tracks a message through its optimistic lifecycle.
type Status string

const (
	// StatusPending is a user message not yet acknowledged by a reply.
	StatusPending Status = "pending"

	// StatusStreaming is an assistant message still receiving chunks.
	StatusStreaming Status = "streaming"

	// StatusComplete is a settled message.
	StatusComplete Status = "complete"

	// StatusFailed is an assistant message whose stream errored.
	StatusFailed Status = "failed"
)

// ErrUnknownMessage is returned when an ID does not name a message in the view.
var ErrUnknownMessage = errors.New("unknown message")

// Message is one entry of the view.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Status    Status
	Err       error
	CreatedAt time.Time
}

// View is the local state of one conversation.
type View struct {
	mu       sync.Mutex
	chatID   string
	messages []Message
	now      func() time.Time
}

// New returns a View for chatID seeded with already persisted messages.
func New(chatID string, history ...Message) *View {
	v := &View{
		chatID: chatID,
		now:    time.Now,
	}
	for _, m := range history {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.Status == "" {
			m.Status = StatusComplete
		}
		v.messages = append(v.messages, m)
	}
	return v
}

// ChatID returns the conversation the view belongs to.
func (v *View) ChatID() string {
	return v.chatID
}

// Send appends the user's message and an empty assistant placeholder,
// returning the placeholder's ID for Apply, Complete and Fail.
func (v *View) Send(content string) string {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	v.messages = append(v.messages,
		Message{
			ID:        uuid.NewString(),
			Role:      RoleUser,
			Content:   content,
			Status:    StatusPending,
			CreatedAt: now,
		},
		Message{
			ID:        uuid.NewString(),
			Role:      RoleAssistant,
			Status:    StatusStreaming,
			CreatedAt: now,
		},
	)

	return v.messages[len(v.messages)-1].ID
}

// Apply folds one stream chunk into the assistant message.
func (v *View) Apply(id string, c chunk.StreamChunk) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	i, err := v.index(id)
	if err != nil {
		return err
	}

	switch c.Mode {
	case chunk.ModeReplace:
		v.messages[i].Content = c.Text
	default:
		v.messages[i].Content += c.Text
	}

	return nil
}

// Complete settles the assistant message and the user message before it.
func (v *View) Complete(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	i, err := v.index(id)
	if err != nil {
		return err
	}

	v.messages[i].Status = StatusComplete
	if i > 0 && v.messages[i-1].Status == StatusPending {
		v.messages[i-1].Status = StatusComplete
	}

	return nil
}

// Fail marks the assistant message as failed. When it received no text the
// optimistic exchange is rolled back and the user's content is returned so the
// caller can offer it for a retry.
func (v *View) Fail(id string, cause error) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	i, err := v.index(id)
	if err != nil {
		return "", err
	}

	if v.messages[i].Content != "" {
		v.messages[i].Status = StatusFailed
		v.messages[i].Err = cause
		if i > 0 && v.messages[i-1].Status == StatusPending {
			v.messages[i-1].Status = StatusComplete
		}
		return "", nil
	}

	var content string
	start := i
	if i > 0 && v.messages[i-1].Role == RoleUser && v.messages[i-1].Status == StatusPending {
		content = v.messages[i-1].Content
		start = i - 1
	}

	v.messages = append(v.messages[:start], v.messages[i+1:]...)

	return content, nil
}

// Last returns the most recent message, if any.
func (v *View) Last() (Message, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.messages) == 0 {
		return Message{}, false
	}
	return v.messages[len(v.messages)-1], true
}

// Get returns a copy of the message with id.
func (v *View) Get(id string) (Message, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	i, err := v.index(id)
	if err != nil {
		return Message{}, err
	}
	return v.messages[i], nil
}

// Messages returns a snapshot of the view.
func (v *View) Messages() []Message {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]Message, len(v.messages))
	copy(out, v.messages)
	return out
}

func (v *View) index(id string) (int, error) {
	for i := len(v.messages) - 1; i >= 0; i-- {
		if v.messages[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrUnknownMessage, id)
}
