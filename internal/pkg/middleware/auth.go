package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gitreadapp/GitRead/internal/pkg/env"
	"github.com/gitreadapp/GitRead/internal/pkg/security"
	"github.com/gitreadapp/GitRead/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session token (if any) into a user
// context. It never rejects: anonymous requests pass through with an
// anonymous context, route guards decide what requires login.
func UserContextMiddleware(c *fiber.Ctx) error {
	token := extractSessionToken(c)
	if token == "" {
		return c.Next()
	}

	secret := env.GetEnv("AUTH_SESSION_SECRET", "")
	claims, err := security.VerifySessionToken(token, secret)
	if err != nil {
		return c.Next()
	}

	userCtx := usercontext.UserContext{
		UserID:     claims.Sub,
		IsLoggedIn: true,
	}
	c.Locals("USER_CONTEXT", userCtx)
	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUserID, claims.Sub)

	return c.Next()
}

// RequireAPIAuth ensures an authenticated caller for API routes and returns
// JSON 401 instead of a redirect.
func RequireAPIAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

func extractSessionToken(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Get("X-Session-Token")); token != "" {
		return token
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
