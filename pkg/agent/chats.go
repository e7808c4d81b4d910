package agent

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ListChats returns the chats of the client's workspace, most recent first.
func (c *Client) ListChats(ctx context.Context) ([]Chat, error) {
	var out struct {
		Chats []Chat `json:"chats"`
	}
	if err := c.doJSON(ctx, true, http.MethodGet, c.workspacePath("chats"), nil, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// CreateChat starts a new chat. An empty title lets the backend pick one.
func (c *Client) CreateChat(ctx context.Context, title string) (*Chat, error) {
	chat := &Chat{}
	err := c.doJSON(ctx, true, http.MethodPost, c.workspacePath("chats"),
		map[string]string{"title": strings.TrimSpace(title)}, chat)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// RenameChat changes a chat's title.
func (c *Client) RenameChat(ctx context.Context, chatID, title string) (*Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title is required")
	}

	chat := &Chat{}
	err := c.doJSON(ctx, true, http.MethodPatch, c.workspacePath("chats", chatID),
		map[string]string{"title": title}, chat)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// DeleteChat removes a chat and its messages.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.doJSON(ctx, true, http.MethodDelete, c.workspacePath("chats", chatID), nil, nil)
}

// ListMessages returns a chat's persisted messages in order.
func (c *Client) ListMessages(ctx context.Context, chatID string) ([]ChatMessage, error) {
	var out struct {
		Messages []ChatMessage `json:"messages"`
	}
	err := c.doJSON(ctx, true, http.MethodGet, c.workspacePath("chats", chatID, "messages"), nil, &out)
	if err != nil {
		return nil, err
	}
	return out.Messages, nil
}
