package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlimiter "github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/gitreadapp/GitRead/app/controllers"
	"github.com/gitreadapp/GitRead/app/repository"
	"github.com/gitreadapp/GitRead/internal/pkg/cache"
	"github.com/gitreadapp/GitRead/internal/pkg/constants"
	"github.com/gitreadapp/GitRead/internal/pkg/database"
	"github.com/gitreadapp/GitRead/internal/pkg/env"
	"github.com/gitreadapp/GitRead/internal/pkg/generator"
	"github.com/gitreadapp/GitRead/internal/pkg/ledger"
	"github.com/gitreadapp/GitRead/internal/pkg/limiter"
	"github.com/gitreadapp/GitRead/internal/pkg/middleware"
	"github.com/gitreadapp/GitRead/internal/pkg/payments"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	db := database.GetDB()
	repository.InitializeFactory(db)
	controllers.InitializeControllers(
		ledger.NewServiceFromDB(db),
		payments.NewClientFromEnv(),
		generator.NewFromEnv(),
		limiter.NewFromEnv(),
		repository.GetGlobalFactory().GetReadmeRepository(),
	)

	// The webhook authenticates via its signature and must stay reachable
	// when a client exhausts the rate limit.
	app.Post(constants.APIRoute+constants.WebhookRoute, controllers.HandlePaymentWebhook)

	api := app.Group(constants.APIRoute, fiberlimiter.New(fiberlimiter.Config{
		Max:        requestsPerMinute(),
		Expiration: time.Minute,
		Storage:    newLimiterStorage(),
	}))

	api.Get("/v1/ping", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "pong",
		})
	})

	api.Post(constants.GenerateRoute, middleware.RequireAPIAuth, controllers.HandleGenerate)
	api.Get(constants.CreditsRoute, middleware.RequireAPIAuth, controllers.HandleGetCredits)
	api.Post(constants.CreditsRoute, middleware.RequireAPIAuth, controllers.HandleSetCredits)
	api.Post(constants.VerifyRoute, middleware.RequireAPIAuth, controllers.HandleVerifyPayment)
	api.Post(constants.CheckoutRoute, middleware.RequireAPIAuth, controllers.HandleCreateCheckout)
	api.Get(constants.HistoryRoute, middleware.RequireAPIAuth, controllers.HandleGetReadmeHistory)
	api.Post(constants.HistoryRoute, middleware.RequireAPIAuth, controllers.HandleCreateReadmeHistory)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

// newLimiterStorage backs the rate limiter with Redis so the limit holds
// across instances. Database 1 keeps limiter keys away from the cache (DB 0).
func newLimiterStorage() *redisstorage.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient := cache.GetClient(); cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}

func requestsPerMinute() int {
	if raw := env.GetEnv("API_RATE_LIMIT_PER_MINUTE", ""); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return 60
}
