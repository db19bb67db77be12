package handlers

import (
	"context"

	"cleanbook/internal/app"
	adminController "cleanbook/internal/controllers/admin"
	cleanersController "cleanbook/internal/controllers/cleaners"
	jobsController "cleanbook/internal/controllers/jobs"
	"cleanbook/internal/handlers/middleware"
	"cleanbook/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AdminHandler struct {
	Handler
	adminController    adminController.AdminControllerInterface
	cleanersController cleanersController.CleanersControllerInterface
	jobsController     jobsController.JobsControllerInterface
}

func NewAdminHandler(app app.App, router fiber.Router) *AdminHandler {
	return &AdminHandler{
		adminController:    app.Controllers.Admin,
		cleanersController: app.Controllers.Cleaners,
		jobsController:     app.Controllers.Jobs,
		Handler:            newHandler(app, router, "admin_handler"),
	}
}

func (h *AdminHandler) Register() {
	admin := h.router.Group("/admin", h.middleware.RequireAuth(), h.middleware.RequireAdmin())

	cleaners := admin.Group("/cleaners")
	cleaners.Post("/:id/approve", h.cleanerTransition(h.cleanersController.Approve))
	cleaners.Post("/:id/reject", h.rejectCleaner)
	cleaners.Post("/:id/suspend", h.suspendCleaner)
	cleaners.Post("/:id/unsuspend", h.cleanerTransition(h.cleanersController.Unsuspend))

	jobs := admin.Group("/jobs")
	jobs.Post("/:id/capture", h.jobPayment(h.jobsController.CapturePayment))
	jobs.Post("/:id/transfer", h.jobPayment(h.jobsController.TransferPayout))
	jobs.Post("/:id/refund", h.jobPayment(h.jobsController.RefundPayment))

	admin.Get("/payouts", h.listAwaitingPayout)
	admin.Post("/payouts/retry", h.retryPayouts)
	admin.Post("/requests/reconcile", h.reconcileRequests)
}

func (h *AdminHandler) cleanerTransition(
	apply func(ctx context.Context, cleanerID uuid.UUID) (*models.Cleaner, error),
) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cleanerID, err := paramID(c, "id")
		if err != nil {
			return err
		}

		cleaner, err := apply(c.UserContext(), cleanerID)
		if err != nil {
			return err
		}

		h.log.TraceFromContext(c.UserContext()).Function("cleanerTransition").Info(
			"cleaner status changed",
			"cleanerID", cleanerID,
			"status", cleaner.Status,
			"adminID", middleware.GetUser(c).ID,
		)
		return c.JSON(fiber.Map{"cleaner": cleaner})
	}
}

type reasonBody struct {
	Reason string `json:"reason"`
}

func (h *AdminHandler) rejectCleaner(c *fiber.Ctx) error {
	return h.cleanerWithReason(c, h.cleanersController.Reject)
}

func (h *AdminHandler) suspendCleaner(c *fiber.Ctx) error {
	return h.cleanerWithReason(c, h.cleanersController.Suspend)
}

func (h *AdminHandler) cleanerWithReason(
	c *fiber.Ctx,
	apply func(ctx context.Context, cleanerID uuid.UUID, reason string) (*models.Cleaner, error),
) error {
	var body reasonBody
	if err := parseOptionalBody(c, &body); err != nil {
		return err
	}

	return h.cleanerTransition(func(ctx context.Context, cleanerID uuid.UUID) (*models.Cleaner, error) {
		return apply(ctx, cleanerID, body.Reason)
	})(c)
}

func (h *AdminHandler) jobPayment(
	apply func(ctx context.Context, jobID uuid.UUID) (*models.CleaningJob, error),
) fiber.Handler {
	return func(c *fiber.Ctx) error {
		jobID, err := paramID(c, "id")
		if err != nil {
			return err
		}

		job, err := apply(c.UserContext(), jobID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"job": job})
	}
}

func (h *AdminHandler) listAwaitingPayout(c *fiber.Ctx) error {
	jobs, err := h.adminController.ListAwaitingPayout(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"jobs": jobs})
}

func (h *AdminHandler) retryPayouts(c *fiber.Ctx) error {
	summary, err := h.adminController.RetryPendingPayouts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

func (h *AdminHandler) reconcileRequests(c *fiber.Ctx) error {
	declined, err := h.adminController.ReconcileRequests(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"declined": declined})
}
