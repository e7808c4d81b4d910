package agent

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAuthFailed is returned when the backend rejects the workspace
	// credentials and they could not be refreshed. The stored tokens for the
	// workspace have been cleared by the time it is returned.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNoWorkspace is returned by workspace-scoped calls on a client that
	// was built without one.
	ErrNoWorkspace = errors.New("no workspace selected")
)

// StatusError is a non-success HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	status := http.StatusText(e.StatusCode)
	if status == "" {
		status = "unexpected status"
	}

	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("request failed: %d %s", e.StatusCode, status)
	}
	return fmt.Sprintf("request failed: %d %s: %s", e.StatusCode, status, body)
}

// maxErrorBody caps how much of an error response is kept in a StatusError.
const maxErrorBody = 4 * 1024
