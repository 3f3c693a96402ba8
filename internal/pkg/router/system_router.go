package router

import (
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"
)

// SystemRouter serves the operator endpoints: fiber metrics and the API docs
type SystemRouter struct {
	deps Deps
}

func NewSystemRouter(deps Deps) *SystemRouter {
	return &SystemRouter{deps: deps}
}

func (s SystemRouter) InstallRouter(app *fiber.App) {
	if s.deps.MetricsUser != "" && s.deps.MetricsPassword != "" {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{
				s.deps.MetricsUser: s.deps.MetricsPassword,
			},
		}), monitor.New(monitor.Config{Title: "SocietyPay Metrics"}))
	} else {
		log.Warn("[Router] METRICS_USER/METRICS_PASSWORD not set, /metrics is disabled")
	}

	// swagger.New panics on a missing document
	if s.deps.OpenAPIFile == "" {
		return
	}
	if _, err := os.Stat(s.deps.OpenAPIFile); err != nil {
		log.Warnf("[Router] OpenAPI document %s not found, /docs/api is disabled", s.deps.OpenAPIFile)
		return
	}
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: s.deps.OpenAPIFile,
		Path:     "v1",
		Title:    "SocietyPay API",
	}))
}
