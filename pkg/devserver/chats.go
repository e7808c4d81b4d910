package devserver

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/utils"
)

const maxTitleLen = 48

type titleRequest struct {
	Title string `json:"title"`
}

func titleFrom(content string) string {
	return utils.Truncate(utils.FirstLine(content), maxTitleLen)
}

func (s *Server) handleListChats(c *fiber.Ctx) error {
	chats := s.store.chats(c.Params("ws"))
	if chats == nil {
		chats = []agent.Chat{}
	}
	return c.JSON(fiber.Map{"chats": chats})
}

func (s *Server) handleCreateChat(c *fiber.Ctx) error {
	var req titleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	chat, ok := s.store.createChat(c.Params("ws"), strings.TrimSpace(req.Title))
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, "workspace not found")
	}
	return c.Status(fiber.StatusCreated).JSON(chat)
}

func (s *Server) handleRenameChat(c *fiber.Ctx) error {
	var req titleRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return errorJSON(c, fiber.StatusBadRequest, "title is required")
	}

	chat, ok := s.store.renameChat(c.Params("ws"), c.Params("id"), title)
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, "chat not found")
	}
	return c.JSON(chat)
}

func (s *Server) handleDeleteChat(c *fiber.Ctx) error {
	if !s.store.deleteChat(c.Params("ws"), c.Params("id")) {
		return errorJSON(c, fiber.StatusNotFound, "chat not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleListMessages(c *fiber.Ctx) error {
	messages, ok := s.store.messages(c.Params("ws"), c.Params("id"))
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, "chat not found")
	}
	return c.JSON(fiber.Map{"messages": messages})
}
