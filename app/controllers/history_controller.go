package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/gitreadapp/GitRead/app/models"
	"github.com/gitreadapp/GitRead/internal/pkg/usercontext"
)

type createHistoryRequest struct {
	RepoURL      string `json:"repoUrl" validate:"required"`
	Readme       string `json:"readme" validate:"required"`
	InputTokens  int    `json:"inputTokens" validate:"gte=0"`
	OutputTokens int    `json:"outputTokens" validate:"gte=0"`
}

// HandleGetReadmeHistory returns the caller's generated readmes, newest first.
func HandleGetReadmeHistory(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	repo := getReadmeRepository()
	if repo == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "database unavailable"})
	}

	readmes, err := repo.GetByUserID(userCtx.UserID, offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "failed to load history"})
	}
	total, err := repo.CountByUserID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "failed to load history"})
	}

	items := make([]fiber.Map, 0, len(readmes))
	for _, r := range readmes {
		items = append(items, fiber.Map{
			"id":           r.UUID,
			"repoUrl":      r.RepoURL,
			"readme":       r.ReadmeContent,
			"inputTokens":  r.InputTokens,
			"outputTokens": r.OutputTokens,
			"createdAt":    r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{"items": items, "total": total})
}

// HandleCreateReadmeHistory stores a history entry on behalf of the caller.
// Server-side generation already persists automatically; this endpoint exists
// for clients that generate elsewhere and want the entry recorded.
func HandleCreateReadmeHistory(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}

	var req createHistoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "malformed request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "repoUrl and readme are required"})
	}

	repo := getReadmeRepository()
	if repo == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "database unavailable"})
	}

	record := &models.GeneratedReadme{
		UUID:          uuid.NewString(),
		UserID:        userCtx.UserID,
		RepoURL:       req.RepoURL,
		ReadmeContent: req.Readme,
		InputTokens:   req.InputTokens,
		OutputTokens:  req.OutputTokens,
	}
	if err := repo.Create(record); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "failed to store history entry"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": record.UUID})
}
