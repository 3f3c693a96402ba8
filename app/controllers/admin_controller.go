package controllers

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/apperr"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/jobqueue"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/payment"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/statistics"
)

// BillingTrigger runs the billing sweeps on demand
type BillingTrigger interface {
	TriggerMonthlyGeneration(ctx context.Context) (*payment.GenerationResult, error)
	TriggerOverdueCheck(ctx context.Context) (*payment.OverdueResult, error)
	Watermark() string
}

type DashboardSource interface {
	Dashboard(ctx context.Context) (*statistics.Dashboard, error)
	Invalidate(ctx context.Context)
}

// JobStatsSource reports on the receipt delivery queue
type JobStatsSource interface {
	GetJobStats(ctx context.Context) (map[jobqueue.JobStatus]int64, error)
	GetQueueSize(ctx context.Context) (int64, error)
	GetProcessingSize(ctx context.Context) (int64, error)
}

// AdminController handles the administrator sweep and monitoring endpoints
type AdminController struct {
	billing BillingTrigger
	stats   DashboardSource
	jobs    JobStatsSource
}

// NewAdminController creates an admin controller. jobs may be nil when no queue runs.
func NewAdminController(billing BillingTrigger, stats DashboardSource, jobs JobStatsSource) *AdminController {
	return &AdminController{billing: billing, stats: stats, jobs: jobs}
}

// HandleCreateMonthlyPayments opens the current month's PENDING charge for every occupied flat
func (ac *AdminController) HandleCreateMonthlyPayments(c *fiber.Ctx) error {
	res, err := ac.billing.TriggerMonthlyGeneration(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	ac.stats.Invalidate(c.UserContext())
	return c.JSON(fiber.Map{
		"message":             "monthly payments created successfully",
		"period":              res.Period,
		"total":               res.Total,
		"successful":          res.Created + res.Existing,
		"created":             res.Created,
		"existing":            res.Existing,
		"failed":              res.Failed,
		"errors":              res.Errors,
		"lastGeneratedPeriod": ac.billing.Watermark(),
	})
}

// HandleMarkOverduePayments fails the current month's PENDING payments once the grace window has passed
func (ac *AdminController) HandleMarkOverduePayments(c *fiber.Ctx) error {
	res, err := ac.billing.TriggerOverdueCheck(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	ac.stats.Invalidate(c.UserContext())

	message := "No overdue payments found"
	switch {
	case res.Skipped:
		message = fmt.Sprintf("Payments for %s are not overdue before day %d", res.Period, payment.GraceDays+1)
	case res.Updated > 0:
		message = fmt.Sprintf("Marked %d payments as failed", res.Updated)
	}
	return c.JSON(fiber.Map{
		"message": message,
		"period":  res.Period,
		"updated": res.Updated,
		"skipped": res.Skipped,
	})
}

func (ac *AdminController) HandleDashboard(c *fiber.Ctx) error {
	d, err := ac.stats.Dashboard(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(d)
}

func (ac *AdminController) HandleJobStats(c *fiber.Ctx) error {
	if ac.jobs == nil {
		return respondError(c, apperr.InvalidState("job queue is not running"))
	}
	ctx := c.UserContext()
	stats, err := ac.jobs.GetJobStats(ctx)
	if err != nil {
		return respondError(c, apperr.Wrap(apperr.KindInternal, err, "job stats"))
	}
	queued, err := ac.jobs.GetQueueSize(ctx)
	if err != nil {
		return respondError(c, apperr.Wrap(apperr.KindInternal, err, "queue size"))
	}
	processing, err := ac.jobs.GetProcessingSize(ctx)
	if err != nil {
		return respondError(c, apperr.Wrap(apperr.KindInternal, err, "processing size"))
	}
	return c.JSON(fiber.Map{
		"stats":      stats,
		"queued":     queued,
		"processing": processing,
	})
}
