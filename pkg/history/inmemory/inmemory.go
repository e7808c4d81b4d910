// Package inmemory provides a map-backed history driver.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/papercomputeco/agentchat/pkg/history"
)

// Driver implements history.Driver using an in-memory map.
type Driver struct {
	mu sync.RWMutex

	exchanges map[string]*history.Exchange
}

var _ history.Driver = (*Driver)(nil)

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		exchanges: make(map[string]*history.Exchange),
	}
}

// Put stores a copy of ex.
func (d *Driver) Put(_ context.Context, ex *history.Exchange) error {
	if ex == nil {
		return errors.New("cannot store nil exchange")
	}
	if ex.ID == "" {
		return errors.New("exchange ID is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stored := *ex
	d.exchanges[ex.ID] = &stored
	return nil
}

// Get retrieves an exchange by ID.
func (d *Driver) Get(_ context.Context, id string) (*history.Exchange, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ex, ok := d.exchanges[id]
	if !ok {
		return nil, history.NotFoundError{ID: id}
	}

	out := *ex
	return &out, nil
}

// List returns matching exchanges ordered by start time.
func (d *Driver) List(_ context.Context, f history.Filter) ([]*history.Exchange, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*history.Exchange
	for _, ex := range d.exchanges {
		if f.Workspace != "" && ex.Workspace != f.Workspace {
			continue
		}
		if f.ChatID != "" && ex.ChatID != f.ChatID {
			continue
		}
		cp := *ex
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}

	return out, nil
}

// Chats summarizes the chats recorded for workspace.
func (d *Driver) Chats(_ context.Context, workspace string) ([]history.ChatSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	byChat := make(map[string]*history.ChatSummary)
	for _, ex := range d.exchanges {
		if ex.Workspace != workspace {
			continue
		}

		s, ok := byChat[ex.ChatID]
		if !ok {
			s = &history.ChatSummary{Workspace: workspace, ChatID: ex.ChatID}
			byChat[ex.ChatID] = s
		}
		s.Exchanges++
		if ex.StartedAt.After(s.LastAt) {
			s.LastAt = ex.StartedAt
		}
	}

	out := make([]history.ChatSummary, 0, len(byChat))
	for _, s := range byChat {
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastAt.After(out[j].LastAt)
	})

	return out, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
