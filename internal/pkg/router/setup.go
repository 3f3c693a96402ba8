package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/RiyaTorgal/SocietyPay-backend/app/controllers"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/middleware"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps is everything the routers hand out to requests
type Deps struct {
	Tokens middleware.TokenParser

	Auth        *controllers.AuthController
	Flats       *controllers.FlatController
	Maintenance *controllers.MaintenanceController
	Payments    *controllers.PaymentController
	Receipts    *controllers.ReceiptController
	Exports     *controllers.ExportController
	Admin       *controllers.AdminController

	// LimiterStorage backs the /api rate limiter; nil keeps counters in memory
	LimiterStorage  fiber.Storage
	RateLimitMax    int
	RateLimitWindow time.Duration
	CORSOrigins     string

	MetricsUser     string
	MetricsPassword string
	// OpenAPIFile is served under /docs/api/v1 when it exists
	OpenAPIFile string
}

func InstallRouter(app *fiber.App, deps Deps) {
	// System routes first so /metrics and the docs bypass the /api limiter.
	setup(app, NewSystemRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
