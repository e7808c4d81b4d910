package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
)

// ValidateEmail reports whether email looks like a deliverable address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", email)
	}
	return nil
}

// ValidateCode reports whether code is a six digit one-time code.
func ValidateCode(code string) error {
	code = strings.TrimSpace(code)
	if len(code) != 6 {
		return errors.New("code must be 6 digits")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return errors.New("code must be 6 digits")
		}
	}
	return nil
}

// RequestCode asks the backend to email a one-time login code.
func (c *Client) RequestCode(ctx context.Context, email string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}

	return c.doJSON(ctx, false, http.MethodPost, "/api/auth/code",
		map[string]string{"email": strings.TrimSpace(email)}, nil)
}

// VerifyCode exchanges an emailed one-time code for workspace tokens.
func (c *Client) VerifyCode(ctx context.Context, email, code string) (*Tokens, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateCode(code); err != nil {
		return nil, err
	}

	tokens := &Tokens{}
	err := c.doJSON(ctx, false, http.MethodPost, "/api/auth/verify", map[string]string{
		"email": strings.TrimSpace(email),
		"code":  strings.TrimSpace(code),
	}, tokens)
	if err != nil {
		return nil, err
	}
	if tokens.AccessToken == "" {
		return nil, errors.New("verify response carried no access token")
	}

	return tokens, nil
}

// Refresh exchanges a refresh token for a new access token. The returned
// RefreshToken is set only when the backend rotated it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	tokens := &Tokens{}
	err := c.doJSON(ctx, false, http.MethodPost, "/api/auth/refresh",
		map[string]string{"refresh_token": refreshToken}, tokens)
	if err != nil {
		return nil, err
	}
	if tokens.AccessToken == "" {
		return nil, errors.New("refresh response carried no access token")
	}

	return tokens, nil
}

// ListWorkspaces returns the workspaces visible to accessToken. It is used
// during login, before a workspace is selected, so it takes the token
// directly instead of reading the store.
func (c *Client) ListWorkspaces(ctx context.Context, accessToken string) ([]Workspace, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	build, err := c.jsonRequest(http.MethodGet, "/api/workspaces", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, build, accessToken)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, newStatusError(resp)
	}

	var out struct {
		Workspaces []Workspace `json:"workspaces"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding workspaces: %w", err)
	}

	return out.Workspaces, nil
}
