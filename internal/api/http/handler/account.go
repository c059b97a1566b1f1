package handler

import (
	"context"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/openbanco/account-server/internal/logger"
	"github.com/openbanco/account-server/internal/model"
)

// Workflow is the approval service surface the handlers depend on.
type Workflow interface {
	Submit(ctx context.Context, draft model.AccountDraft) (model.Account, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) error
	ApproveFirst(ctx context.Context, id uuid.UUID) error
	ApproveIdentity(ctx context.Context, id uuid.UUID) error
	PermitPictureUpload(ctx context.Context, id uuid.UUID) (bool, error)
	UploadPicture(ctx context.Context, id uuid.UUID, file io.Reader, filename, contentType string, size int64) error
	Accounts(ctx context.Context) ([]model.Account, error)
	NewAccounts(ctx context.Context) ([]model.Account, error)
	AccountsPendingIdentity(ctx context.Context) ([]model.Account, error)
	Picture(ctx context.Context, ref string) (io.ReadCloser, model.BlobMetadata, error)
}

// AccountHandler exposes the approval workflow over HTTP.
type AccountHandler struct {
	workflow Workflow
	logger   *logger.Logger
}

func NewAccountHandler(workflow Workflow, logger *logger.Logger) *AccountHandler {
	return &AccountHandler{
		workflow: workflow,
		logger:   logger,
	}
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, model.NewInvalidError("a valid account id is required")
	}
	return id, nil
}

// Create handles POST /account/new.
func (h *AccountHandler) Create(c *fiber.Ctx) error {
	var draft model.AccountDraft
	if err := c.BodyParser(&draft); err != nil {
		return sendError(c, model.NewInvalidError("malformed request body"))
	}

	account, err := h.workflow.Submit(c.UserContext(), draft)
	if err != nil {
		return sendError(c, err)
	}

	h.logger.Info("account requested", "account_id", account.ID, "ci", account.CI)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "account requested successfully, please wait for approval and watch your email",
	})
}

// Reject handles POST /account/reject.
func (h *AccountHandler) Reject(c *fiber.Ctx) error {
	var req struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, model.NewInvalidError("malformed request body"))
	}
	id, err := parseID(req.ID)
	if err != nil {
		return sendError(c, err)
	}

	if err := h.workflow.Reject(c.UserContext(), id, req.Reason); err != nil {
		return sendError(c, err)
	}

	h.logger.Info("account rejected", "account_id", id)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "account rejected successfully"})
}

// ApproveFirst handles POST /account/approve-first-step.
func (h *AccountHandler) ApproveFirst(c *fiber.Ctx) error {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, model.NewInvalidError("malformed request body"))
	}
	id, err := parseID(req.ID)
	if err != nil {
		return sendError(c, err)
	}

	if err := h.workflow.ApproveFirst(c.UserContext(), id); err != nil {
		return sendError(c, err)
	}

	h.logger.Info("account passed first approval", "account_id", id)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "first approval phase completed successfully"})
}

// ApproveIdentity handles POST /account/approve-identity.
func (h *AccountHandler) ApproveIdentity(c *fiber.Ctx) error {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, model.NewInvalidError("malformed request body"))
	}
	id, err := parseID(req.ID)
	if err != nil {
		return sendError(c, err)
	}

	if err := h.workflow.ApproveIdentity(c.UserContext(), id); err != nil {
		return sendError(c, err)
	}

	h.logger.Info("account fully approved", "account_id", id)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "account approved successfully"})
}

// PermitPicture handles GET /account/permit-picture/:id.
func (h *AccountHandler) PermitPicture(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return sendError(c, err)
	}

	permit, err := h.workflow.PermitPictureUpload(c.UserContext(), id)
	if err != nil {
		return sendError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"permit": permit})
}

// UploadPicture handles POST /account/upload-picture/:id with a multipart
// form carrying the picture in the "file" field.
func (h *AccountHandler) UploadPicture(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return sendError(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return sendError(c, model.NewInvalidError("no picture file was sent"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("failed to open uploaded file", "account_id", id, "error", err)
		return sendError(c, fmt.Errorf("failed to open uploaded file: %w", err))
	}
	defer file.Close()

	contentType := fileHeader.Header.Get(fiber.HeaderContentType)
	if err := h.workflow.UploadPicture(c.UserContext(), id, file, fileHeader.Filename, contentType, fileHeader.Size); err != nil {
		return sendError(c, err)
	}

	h.logger.Info("identity picture uploaded", "account_id", id, "size", fileHeader.Size)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "identity document submitted successfully"})
}

// List handles GET /account.
func (h *AccountHandler) List(c *fiber.Ctx) error {
	return h.sendAccounts(c, h.workflow.Accounts)
}

// ListNew handles GET /account/news.
func (h *AccountHandler) ListNew(c *fiber.Ctx) error {
	return h.sendAccounts(c, h.workflow.NewAccounts)
}

// ListPendingIdentity handles GET /account/pending-identity.
func (h *AccountHandler) ListPendingIdentity(c *fiber.Ctx) error {
	return h.sendAccounts(c, h.workflow.AccountsPendingIdentity)
}

func (h *AccountHandler) sendAccounts(c *fiber.Ctx, list func(context.Context) ([]model.Account, error)) error {
	accounts, err := list(c.UserContext())
	if err != nil {
		return sendError(c, err)
	}
	if accounts == nil {
		accounts = []model.Account{}
	}
	return c.Status(fiber.StatusOK).JSON(accounts)
}

// Picture handles GET /picture/:id and streams the stored blob back with
// headers taken from its metadata.
func (h *AccountHandler) Picture(c *fiber.Ctx) error {
	stream, meta, err := h.workflow.Picture(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendError(c, err)
	}

	c.Set(fiber.HeaderContentType, meta.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", meta.OriginalName))
	return c.SendStream(stream, int(meta.Size))
}
