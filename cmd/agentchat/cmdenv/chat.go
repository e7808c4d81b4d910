package cmdenv

import (
	"context"
	"fmt"

	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/conversation"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
)

// OpenChat resolves which chat to talk in and loads its messages: the given
// ID, else the workspace's active chat (unless fresh is set), else a newly
// created chat. The chosen chat becomes the active chat.
func (e *Env) OpenChat(ctx context.Context, client *agent.Client, chatID string, fresh bool) (*agent.Chat, *conversation.View, error) {
	ddm := dotdir.NewManager()

	if chatID == "" && !fresh {
		if state, err := ddm.LoadSession(e.ConfigDir); err == nil {
			chatID = state.Active[client.Workspace()].ChatID
		}
	}

	if chatID == "" {
		chat, err := client.CreateChat(ctx, "")
		if err != nil {
			return nil, nil, fmt.Errorf("creating chat: %w", err)
		}
		e.RememberChat(client.Workspace(), chat)
		return chat, conversation.New(chat.ID), nil
	}

	messages, err := client.ListMessages(ctx, chatID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading chat %s: %w", chatID, err)
	}

	chat := &agent.Chat{ID: chatID}
	if chats, err := client.ListChats(ctx); err == nil {
		for _, c := range chats {
			if c.ID == chatID {
				chat = &c
				break
			}
		}
	}

	seed := make([]conversation.Message, 0, len(messages))
	for _, m := range messages {
		seed = append(seed, conversation.Message{
			ID:        m.ID,
			Role:      conversation.Role(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}

	e.RememberChat(client.Workspace(), chat)
	return chat, conversation.New(chat.ID, seed...), nil
}

// RememberChat records chat as the workspace's active chat.
func (e *Env) RememberChat(workspace string, chat *agent.Chat) {
	err := dotdir.NewManager().SetActiveChat(workspace, dotdir.ActiveChat{
		ChatID: chat.ID,
		Title:  chat.Title,
	}, e.ConfigDir)
	if err != nil {
		e.Logger.Warn("could not record active chat", "error", err)
	}
}
