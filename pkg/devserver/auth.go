package devserver

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/agentchat/pkg/agent"
)

const localsWorkspace = "workspace"

type codeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// handleRequestCode pretends to email a login code.
func (s *Server) handleRequestCode(c *fiber.Ctx) error {
	var req codeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := agent.ValidateEmail(req.Email); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	s.logger.Info("login code requested",
		"email", req.Email,
		"code", s.config.Code,
	)
	return c.SendStatus(fiber.StatusNoContent)
}

// handleVerifyCode exchanges the dev code for a token pair.
func (s *Server) handleVerifyCode(c *fiber.Ctx) error {
	var req codeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := agent.ValidateEmail(req.Email); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Code) != s.config.Code {
		return errorJSON(c, fiber.StatusUnauthorized, "invalid code")
	}

	ws := s.store.account(strings.TrimSpace(req.Email))
	tokens := s.store.issue(ws, s.config.AccessTTL)

	s.logger.Debug("issued tokens", "workspace", ws)
	return c.JSON(tokens)
}

// handleRefresh rotates a refresh token.
func (s *Server) handleRefresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	tokens, ok := s.store.rotate(req.RefreshToken, s.config.AccessTTL)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "invalid refresh token")
	}

	s.logger.Debug("refreshed tokens", "workspace", tokens.WorkspaceID)
	return c.JSON(tokens)
}

// handleListWorkspaces returns the workspace the bearer token belongs to.
func (s *Server) handleListWorkspaces(c *fiber.Ctx) error {
	ws, _ := c.Locals(localsWorkspace).(string)

	info, ok := s.store.workspace(ws)
	if !ok {
		return c.JSON(fiber.Map{"workspaces": []agent.Workspace{}})
	}
	return c.JSON(fiber.Map{"workspaces": []agent.Workspace{info}})
}

// requireToken rejects requests without a live bearer token.
func (s *Server) requireToken(c *fiber.Ctx) error {
	token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || token == "" {
		return errorJSON(c, fiber.StatusUnauthorized, "missing bearer token")
	}

	ws, ok := s.store.authorize(token)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "invalid or expired token")
	}

	c.Locals(localsWorkspace, ws)
	return c.Next()
}

// requireWorkspace rejects tokens used against another workspace.
func (s *Server) requireWorkspace(c *fiber.Ctx) error {
	ws, _ := c.Locals(localsWorkspace).(string)
	if c.Params("ws") != ws {
		return errorJSON(c, fiber.StatusForbidden, "token not valid for workspace")
	}
	return c.Next()
}
