package devserver

import (
	"log/slog"
	"net"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/agentchat/pkg/logger"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the dev backend.
type Server struct {
	config Config
	store  *store
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new dev server. A nil logger discards output.
func NewServer(config Config, log *slog.Logger) *Server {
	config.applyDefaults()
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		store:  newStore(),
		logger: log,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	auth := app.Group("/api/auth")
	auth.Post("/code", s.handleRequestCode)
	auth.Post("/verify", s.handleVerifyCode)
	auth.Post("/refresh", s.handleRefresh)

	app.Get("/api/workspaces", s.requireToken, s.handleListWorkspaces)

	const chat = "/api/workspaces/:ws/chats"
	scoped := func(h fiber.Handler) []fiber.Handler {
		return []fiber.Handler{s.requireToken, s.requireWorkspace, h}
	}
	app.Get(chat, scoped(s.handleListChats)...)
	app.Post(chat, scoped(s.handleCreateChat)...)
	app.Patch(chat+"/:id", scoped(s.handleRenameChat)...)
	app.Delete(chat+"/:id", scoped(s.handleDeleteChat)...)
	app.Get(chat+"/:id/messages", scoped(s.handleListMessages)...)
	app.Post(chat+"/:id/messages/stream", scoped(s.handleStreamMessage)...)

	return s
}

// Run starts the dev server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting dev server",
		"listen", s.config.ListenAddr,
		"code", s.config.Code,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Serve runs the dev server on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting dev server", "listen", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown gracefully shuts down the dev server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}
