// Package history records completed chat exchanges locally so past answers
// can be browsed without the backend.
package history

import (
	"context"
	"time"
)

// Status is how an exchange ended.
type Status string

const (
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Exchange is one prompt and the reply streamed back for it.
type Exchange struct {
	ID          string
	Workspace   string
	ChatID      string
	Prompt      string
	Reply       string
	Status      Status
	Error       string
	Chunks      int
	StartedAt   time.Time
	CompletedAt time.Time
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Workspace string
	ChatID    string

	// Limit caps the number of returned exchanges, most recent kept.
	Limit int
}

// ChatSummary aggregates the exchanges recorded for one chat.
type ChatSummary struct {
	Workspace string
	ChatID    string
	Exchanges int
	LastAt    time.Time
}

// Driver defines the interface for persisting and retrieving exchanges.
type Driver interface {
	// Put stores an exchange, replacing any existing one with the same ID.
	Put(ctx context.Context, ex *Exchange) error

	// Get retrieves an exchange by ID.
	Get(ctx context.Context, id string) (*Exchange, error)

	// List returns matching exchanges, oldest first.
	List(ctx context.Context, f Filter) ([]*Exchange, error)

	// Chats summarizes recorded chats of a workspace, most recent first.
	Chats(ctx context.Context, workspace string) ([]ChatSummary, error)

	// Close closes the store and releases any resources.
	Close() error
}
