package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gitreadapp/GitRead/internal/pkg/ledger"
	"github.com/gitreadapp/GitRead/internal/pkg/usercontext"
)

type setCreditsRequest struct {
	Credits *int64 `json:"credits" validate:"required"`
}

// HandleGetCredits returns the caller's balance, creating the account with the
// starting balance on first contact.
func HandleGetCredits(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}

	ctx, cancel := requestContext(10 * time.Second)
	defer cancel()

	balance, err := getLedgerService().GetBalance(ctx, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "failed to load credit balance"})
	}

	return c.JSON(fiber.Map{"credits": balance})
}

// HandleSetCredits overwrites the caller's balance. Negative values are
// rejected; credit grants from payments go through the webhook and
// verification paths instead.
func HandleSetCredits(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}

	var req setCreditsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "malformed request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "credits is required"})
	}

	ctx, cancel := requestContext(10 * time.Second)
	defer cancel()

	svc := getLedgerService()
	if err := svc.SetBalance(ctx, userCtx.UserID, *req.Credits); err != nil {
		if errors.Is(err, ledger.ErrInvalidCredits) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_credits", "message": "credits must not be negative"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "failed to update credit balance"})
	}

	return c.JSON(fiber.Map{"credits": *req.Credits})
}
