package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/gitreadapp/GitRead/app/models"
	"github.com/gitreadapp/GitRead/internal/pkg/generator"
	"github.com/gitreadapp/GitRead/internal/pkg/githubapi"
	"github.com/gitreadapp/GitRead/internal/pkg/ingest"
	"github.com/gitreadapp/GitRead/internal/pkg/ledger"
	"github.com/gitreadapp/GitRead/internal/pkg/usercontext"
)

type generateRequest struct {
	RepoURL string `json:"repoUrl" validate:"required"`
}

// HandleGenerate runs the full generation pipeline for an authenticated user:
// balance check, concurrency slot, ingest + model call, then the atomic debit
// and a best-effort history insert.
func HandleGenerate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}

	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "malformed request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "repoUrl is required"})
	}
	if _, _, err := githubapi.ParseRepoURL(req.RepoURL); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_repo_url", "message": "a public github.com repository URL is required"})
	}

	ctx, cancel := requestContext(5 * time.Minute)
	defer cancel()

	svc := getLedgerService()
	balance, err := svc.GetBalance(ctx, userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "failed to load credit balance"})
	}
	if balance <= 0 {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "insufficient_credits", "message": "no credits left"})
	}

	release, ok, err := getGenerateSemaphore().Acquire(ctx)
	if err != nil {
		// A coordination outage must not take the product down.
		log.Warnf("generation semaphore unavailable: %v", err)
	} else if !ok {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too_many_requests", "message": "too many generations in flight, try again shortly"})
	}
	defer release()

	result, err := getReadmeGenerator().Generate(ctx, req.RepoURL)
	if err != nil {
		switch {
		case errors.Is(err, githubapi.ErrInvalidRepoURL):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_repo_url", "message": "a public github.com repository URL is required"})
		case errors.Is(err, ingest.ErrContentTooLarge):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content_too_large", "message": "repository content exceeds the maximum token limit"})
		case errors.Is(err, generator.ErrEmptyReadme):
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upstream_error", "message": "generation produced no content"})
		default:
			log.Errorf("readme generation failed for %s: %v", req.RepoURL, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upstream_error", "message": "readme generation failed"})
		}
	}

	// The user already paid for the model call with compute; a failed debit is
	// an accounting problem to investigate, not a reason to withhold the result.
	if _, err := svc.Debit(ctx, userCtx.UserID); err != nil {
		if errors.Is(err, ledger.ErrInsufficientCredits) {
			log.Warnf("debit raced to zero for user %s", userCtx.UserID)
		} else {
			log.Errorf("credit debit failed for user %s: %v", userCtx.UserID, err)
		}
	}

	if repo := getReadmeRepository(); repo != nil {
		record := &models.GeneratedReadme{
			UUID:          uuid.NewString(),
			UserID:        userCtx.UserID,
			RepoURL:       req.RepoURL,
			ReadmeContent: result.Readme,
			InputTokens:   result.InputTokens,
			OutputTokens:  result.OutputTokens,
		}
		if err := repo.Create(record); err != nil {
			log.Warnf("history insert failed for user %s: %v", userCtx.UserID, err)
		}
	}

	return c.JSON(fiber.Map{
		"readme":       result.Readme,
		"inputTokens":  result.InputTokens,
		"outputTokens": result.OutputTokens,
	})
}
