package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/gitreadapp/GitRead/internal/pkg/env"
	"github.com/gitreadapp/GitRead/internal/pkg/ledger"
	"github.com/gitreadapp/GitRead/internal/pkg/payments"
	"github.com/gitreadapp/GitRead/internal/pkg/pricing"
	"github.com/gitreadapp/GitRead/internal/pkg/usercontext"
)

type verifyPaymentRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type createCheckoutRequest struct {
	PackageID string `json:"packageId" validate:"required"`
}

// HandlePaymentWebhook ingests provider events. The signature is verified on
// the raw body before anything is parsed. Duplicate deliveries and irrelevant
// events are acknowledged with 200 so the provider stops retrying; storage
// failures answer 500 so it retries.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	if !payments.VerifyWebhookSignature(rawBody, signature, secret, payments.DefaultSignatureTolerance) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature", "message": "webhook signature verification failed"})
	}

	event, err := payments.ParseEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "malformed event payload"})
	}
	if event.Type != payments.EventTypeCheckoutCompleted {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "ignored": true})
	}

	session, err := event.CheckoutSession()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "malformed checkout session"})
	}
	if session.PaymentStatus != payments.PaymentStatusPaid {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "ignored": true})
	}

	userID := session.MetadataUserID()
	credits := session.MetadataCredits()
	if userID == "" || credits <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "session metadata is missing userId or credits"})
	}

	ctx, cancel := requestContext(15 * time.Second)
	defer cancel()

	result, err := getLedgerService().ApplyPayment(ctx, ledger.PaymentEventID(session.ID), userID, credits)
	if err != nil {
		log.Errorf("webhook credit application failed for session %s: %v", session.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "failed to apply payment"})
	}
	if !result.Applied {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}

// HandleVerifyPayment is the client-driven fallback for a missed webhook. It
// short-circuits on already-processed events, otherwise asks the provider for
// the session and applies the same idempotent credit grant.
func HandleVerifyPayment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}

	var req verifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "malformed request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "sessionId is required"})
	}

	ctx, cancel := requestContext(20 * time.Second)
	defer cancel()

	svc := getLedgerService()
	eventID := ledger.PaymentEventID(req.SessionID)

	processed, err := svc.HasProcessedEvent(ctx, eventID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "failed to check payment status"})
	}
	if processed {
		balance, err := svc.GetBalance(ctx, userCtx.UserID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "failed to load credit balance"})
		}
		return c.JSON(fiber.Map{"verified": true, "duplicate": true, "credits": balance})
	}

	session, err := getPaymentsClient().GetCheckoutSession(ctx, req.SessionID)
	if err != nil {
		log.Errorf("checkout session lookup failed for %s: %v", req.SessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upstream_error", "message": "payment provider lookup failed"})
	}
	if session.MetadataUserID() != userCtx.UserID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "session_owner_mismatch", "message": "checkout session belongs to a different user"})
	}
	if session.PaymentStatus != payments.PaymentStatusPaid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "payment_not_completed", "message": "payment has not completed"})
	}
	credits := session.MetadataCredits()
	if credits <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "session metadata is missing credits"})
	}

	result, err := svc.ApplyPayment(ctx, eventID, userCtx.UserID, credits)
	if err != nil {
		log.Errorf("verification credit application failed for session %s: %v", req.SessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "failed to apply payment"})
	}

	return c.JSON(fiber.Map{"verified": true, "duplicate": !result.Applied, "credits": result.Balance})
}

// HandleCreateCheckout creates a hosted checkout session for a credit package.
func HandleCreateCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}

	var req createCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "malformed request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "packageId is required"})
	}

	pkg, ok := pricing.FindPackage(req.PackageID)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "unknown credit package"})
	}

	client := getPaymentsClient()
	if !client.IsConfigured() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "payment_provider_not_configured", "message": "payments are not configured on this deployment"})
	}

	ctx, cancel := requestContext(20 * time.Second)
	defer cancel()

	domain := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:3000")
	session, err := client.CreateCheckoutSession(ctx, payments.CheckoutSessionParams{
		UserID:      userCtx.UserID,
		Credits:     pkg.Credits,
		AmountCents: pkg.AmountCents,
		Currency:    pkg.Currency,
		ProductName: pkg.Name,
		SuccessURL:  domain + "/?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   domain + "/",
	})
	if err != nil {
		log.Errorf("checkout session creation failed for user %s: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upstream_error", "message": "payment provider request failed"})
	}

	return c.JSON(fiber.Map{"sessionId": session.ID, "url": session.URL})
}
