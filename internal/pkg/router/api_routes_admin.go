package router

import (
	"github.com/gofiber/fiber/v2"
)

func (h ApiRouter) registerAdminRoutes(api fiber.Router, requireAuth, requireAdmin fiber.Handler) {
	ec := h.deps.Exports
	export := api.Group("/export", requireAuth, requireAdmin)
	export.Get("/payments/csv", ec.HandleCSV)
	export.Get("/payments/xlsx", ec.HandleXLSX)

	adm := h.deps.Admin
	admin := api.Group("/admin", requireAuth, requireAdmin)
	admin.Post("/payments/create-monthly-payments", adm.HandleCreateMonthlyPayments)
	admin.Post("/payments/mark-overdue-payments", adm.HandleMarkOverduePayments)
	admin.Get("/dashboard", adm.HandleDashboard)
	admin.Get("/jobs/stats", adm.HandleJobStats)
}
