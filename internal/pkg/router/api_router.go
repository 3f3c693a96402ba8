package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/RiyaTorgal/SocietyPay-backend/app/controllers"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/middleware"
)

const (
	defaultRateLimitMax    = 120
	defaultRateLimitWindow = time.Minute
)

type ApiRouter struct {
	deps Deps
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", h.limiter(), cors.New(h.corsConfig()), helmet.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "SocietyPay API is running",
		})
	})

	requireAuth := middleware.RequireAuth(h.deps.Tokens)
	requireAdmin := middleware.RequireAdmin

	h.registerAuthRoutes(api, requireAuth, requireAdmin)
	h.registerFlatRoutes(api, requireAuth, requireAdmin)
	h.registerMaintenanceRoutes(api, requireAuth, requireAdmin)
	h.registerPaymentRoutes(api, requireAuth, requireAdmin)
	h.registerReceiptRoutes(api, requireAuth, requireAdmin)
	h.registerAdminRoutes(api, requireAuth, requireAdmin)
}

func (h ApiRouter) limiter() fiber.Handler {
	limit := h.deps.RateLimitMax
	if limit <= 0 {
		limit = defaultRateLimitMax
	}
	window := h.deps.RateLimitWindow
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	return limiter.New(limiter.Config{
		Max:          limit,
		Expiration:   window,
		KeyGenerator: controllers.ClientKey,
		Storage:      h.deps.LimiterStorage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "too many requests, slow down",
			})
		},
	})
}

func (h ApiRouter) corsConfig() cors.Config {
	origins := h.deps.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    fiber.HeaderContentDisposition,
		AllowCredentials: origins != "*",
	}
}

func (h ApiRouter) registerAuthRoutes(api fiber.Router, requireAuth, requireAdmin fiber.Handler) {
	ac := h.deps.Auth
	auth := api.Group("/auth")
	auth.Post("/register", ac.HandleRegister)
	auth.Post("/login", ac.HandleLogin)
	auth.Get("/contact", ac.HandleContact)
	auth.Get("/profile", requireAuth, ac.HandleProfile)

	users := auth.Group("/users", requireAuth, requireAdmin)
	users.Get("/", ac.HandleListUsers)
	users.Get("/:id", ac.HandleGetUser)
	users.Put("/:id", ac.HandleUpdateUser)
	users.Delete("/:id", ac.HandleDeleteUser)
}

func (h ApiRouter) registerFlatRoutes(api fiber.Router, requireAuth, requireAdmin fiber.Handler) {
	fc := h.deps.Flats
	flats := api.Group("/flats", requireAuth)
	flats.Get("/me", fc.HandleMyFlat)
	flats.Post("/", requireAdmin, fc.HandleCreate)
	flats.Post("/assign", requireAdmin, fc.HandleAssign)
	flats.Get("/all", requireAdmin, fc.HandleList)
	flats.Put("/:id/maintenance", requireAdmin, fc.HandleUpdateMaintenance)
}

func (h ApiRouter) registerMaintenanceRoutes(api fiber.Router, requireAuth, requireAdmin fiber.Handler) {
	mc := h.deps.Maintenance
	maintenance := api.Group("/maintenance", requireAuth)
	maintenance.Get("/month/current", mc.HandleCurrentMonth)
	maintenance.Post("/month", requireAdmin, mc.HandleCreateMonth)
	maintenance.Post("/year", requireAdmin, mc.HandleProvisionYear)
	maintenance.Get("/months", requireAdmin, mc.HandleListMonths)
}

func (h ApiRouter) registerPaymentRoutes(api fiber.Router, requireAuth, requireAdmin fiber.Handler) {
	pc := h.deps.Payments
	payments := api.Group("/payments", requireAuth)
	payments.Get("/upi-config", pc.HandleUPIConfig)
	payments.Post("/initiate", pc.HandleInitiate)
	payments.Post("/proof", pc.HandleSubmitProof)
	payments.Post("/proof/upload", pc.HandleUploadProof)
	payments.Get("/verify/:transactionId", pc.HandleVerify)
	payments.Get("/my", pc.HandleMyPayments)
	payments.Post("/admin-confirm", requireAdmin, pc.HandleAdminConfirm)
	payments.Get("/all", requireAdmin, pc.HandleListAll)
}

func (h ApiRouter) registerReceiptRoutes(api fiber.Router, requireAuth, requireAdmin fiber.Handler) {
	rc := h.deps.Receipts
	receipts := api.Group("/receipts", requireAuth)
	receipts.Post("/generate-missing", requireAdmin, rc.HandleGenerateMissing)
	receipts.Get("/my", rc.HandleMyReceipts)
	receipts.Post("/:paymentId", requireAdmin, rc.HandleIssue)
	receipts.Get("/:id", rc.HandleGet)
	receipts.Get("/:id/download", rc.HandleDownload)
}
