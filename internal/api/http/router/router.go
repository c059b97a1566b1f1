package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/openbanco/account-server/internal/api/http/handler"
	"github.com/openbanco/account-server/internal/api/http/middleware"
	"github.com/openbanco/account-server/internal/logger"
)

// Config carries router construction parameters.
type Config struct {
	CORSOrigins string
	StaticDir   string
	// BodyLimit caps request bodies, mainly the picture upload.
	BodyLimit int
}

// New builds the fiber application with all account routes registered.
func New(h *handler.AccountHandler, l *logger.Logger, cfg Config) *fiber.App {
	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 16 << 20
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
	})

	app.Use(middleware.RequestLogger(l))
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))
	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	app.Post("/account/new", h.Create)
	app.Post("/account/reject", h.Reject)
	app.Post("/account/approve-first-step", h.ApproveFirst)
	app.Post("/account/approve-identity", h.ApproveIdentity)
	app.Get("/account/permit-picture/:id", h.PermitPicture)
	app.Post("/account/upload-picture/:id", h.UploadPicture)
	app.Get("/account", h.List)
	app.Get("/account/news", h.ListNew)
	app.Get("/account/pending-identity", h.ListPendingIdentity)
	app.Get("/picture/:id", h.Picture)

	return app
}
