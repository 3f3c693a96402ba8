package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/export"
)

type ExportController struct {
	exports *export.Service
}

func NewExportController(exports *export.Service) *ExportController {
	return &ExportController{exports: exports}
}

func (ec *ExportController) HandleCSV(c *fiber.Ctx) error {
	return ec.send(c, export.FormatCSV)
}

func (ec *ExportController) HandleXLSX(c *fiber.Ctx) error {
	return ec.send(c, export.FormatXLSX)
}

// send streams the payments export; ?month= and ?year= narrow it
func (ec *ExportController) send(c *fiber.Ctx, format string) error {
	month, err := queryInt(c, "month")
	if err != nil {
		return respondError(c, err)
	}
	year, err := queryInt(c, "year")
	if err != nil {
		return respondError(c, err)
	}
	file, err := ec.exports.Payments(c.UserContext(), month, year, format)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Name))
	return c.Send(file.Data)
}
