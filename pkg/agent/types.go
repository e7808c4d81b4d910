package agent

import "time"

// Message is the request body of a chat turn.
type Message struct {
	Content string `json:"content"`
}

// Tokens is the credential pair issued by the auth endpoints. RefreshToken is
// empty when the backend does not rotate refresh tokens.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	WorkspaceID  string `json:"workspace_id,omitempty"`
}

// Workspace is a tenant the account can chat in.
type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Chat is one conversation within a workspace.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is a persisted message of a chat.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
