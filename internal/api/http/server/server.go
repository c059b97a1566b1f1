package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Server wraps the fiber application lifecycle.
type Server struct {
	app  *fiber.App
	addr string
}

// NewServer creates a Server listening on addr once started.
func NewServer(app *fiber.App, addr string) *Server {
	return &Server{
		app:  app,
		addr: addr,
	}
}

// Start blocks serving requests until Stop is called or an error occurs.
func (s *Server) Start() error {
	return s.app.Listen(s.addr)
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.addr
}
