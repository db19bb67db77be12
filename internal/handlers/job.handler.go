package handlers

import (
	"context"

	"cleanbook/internal/app"
	jobsController "cleanbook/internal/controllers/jobs"
	"cleanbook/internal/handlers/middleware"
	"cleanbook/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type JobHandler struct {
	Handler
	jobsController jobsController.JobsControllerInterface
}

func NewJobHandler(app app.App, router fiber.Router) *JobHandler {
	return &JobHandler{
		jobsController: app.Controllers.Jobs,
		Handler:        newHandler(app, router, "job_handler"),
	}
}

func (h *JobHandler) Register() {
	jobs := h.router.Group("/jobs", h.middleware.RequireAuth())
	jobs.Post("/", h.createJob)
	jobs.Get("/mine", h.listMine)
	jobs.Get("/open", h.listOpen)
	jobs.Get("/assigned", h.listAssigned)
	jobs.Get("/:id", h.getJob)

	jobs.Get("/:id/requests", h.listRequests)
	jobs.Post("/:id/requests", h.submitRequest)
	jobs.Post("/:id/requests/:requestId/accept", h.acceptRequest)
	jobs.Post("/:id/requests/:requestId/decline", h.declineRequest)
	jobs.Post("/:id/requests/:requestId/withdraw", h.withdrawRequest)

	jobs.Post("/:id/start", h.transition(h.jobsController.StartJob))
	jobs.Post("/:id/complete", h.transition(h.jobsController.CompleteJob))
	jobs.Post("/:id/cancel", h.cancelJob)
	jobs.Post("/:id/rate", h.rateJob)
	jobs.Post("/:id/authorize", h.authorizePayment)
	jobs.Post("/:id/sync-authorization", h.syncAuthorization)
}

func (h *JobHandler) createJob(c *fiber.Ctx) error {
	var req jobsController.CreateJobRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	job, err := h.jobsController.CreateJob(c.UserContext(), middleware.GetUser(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"job": job})
}

func (h *JobHandler) listMine(c *fiber.Ctx) error {
	return h.list(c, h.jobsController.ListMine)
}

func (h *JobHandler) listOpen(c *fiber.Ctx) error {
	return h.list(c, h.jobsController.ListOpen)
}

func (h *JobHandler) listAssigned(c *fiber.Ctx) error {
	return h.list(c, h.jobsController.ListAssigned)
}

func (h *JobHandler) list(
	c *fiber.Ctx,
	fetch func(ctx context.Context, user *models.User) ([]*models.CleaningJob, error),
) error {
	jobs, err := fetch(c.UserContext(), middleware.GetUser(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"jobs": jobs})
}

func (h *JobHandler) getJob(c *fiber.Ctx) error {
	jobID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	job, err := h.jobsController.GetJob(c.UserContext(), middleware.GetUser(c), jobID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"job": job})
}

func (h *JobHandler) listRequests(c *fiber.Ctx) error {
	jobID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	requests, err := h.jobsController.ListRequests(c.UserContext(), middleware.GetUser(c), jobID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"requests": requests})
}

type submitRequestBody struct {
	Message *string `json:"message,omitempty"`
}

func (h *JobHandler) submitRequest(c *fiber.Ctx) error {
	jobID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var body submitRequestBody
	if err := parseOptionalBody(c, &body); err != nil {
		return err
	}

	request, err := h.jobsController.SubmitRequest(c.UserContext(), middleware.GetUser(c), jobID, body.Message)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"request": request})
}

func (h *JobHandler) acceptRequest(c *fiber.Ctx) error {
	jobID, requestID, err := requestParams(c)
	if err != nil {
		return err
	}

	job, err := h.jobsController.AcceptRequest(c.UserContext(), middleware.GetUser(c), jobID, requestID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"job": job})
}

func (h *JobHandler) declineRequest(c *fiber.Ctx) error {
	jobID, requestID, err := requestParams(c)
	if err != nil {
		return err
	}

	request, err := h.jobsController.DeclineRequest(c.UserContext(), middleware.GetUser(c), jobID, requestID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"request": request})
}

func (h *JobHandler) withdrawRequest(c *fiber.Ctx) error {
	jobID, requestID, err := requestParams(c)
	if err != nil {
		return err
	}

	request, err := h.jobsController.WithdrawRequest(c.UserContext(), middleware.GetUser(c), jobID, requestID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"request": request})
}

func requestParams(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	jobID, err := paramID(c, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	requestID, err := paramID(c, "requestId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return jobID, requestID, nil
}

func (h *JobHandler) transition(
	apply func(ctx context.Context, user *models.User, jobID uuid.UUID) (*models.CleaningJob, error),
) fiber.Handler {
	return func(c *fiber.Ctx) error {
		jobID, err := paramID(c, "id")
		if err != nil {
			return err
		}

		job, err := apply(c.UserContext(), middleware.GetUser(c), jobID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"job": job})
	}
}

// cancelJob reports a failed payment release next to the cancelled job
// instead of failing the request.
func (h *JobHandler) cancelJob(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("cancelJob")

	jobID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	job, err := h.jobsController.CancelJob(c.UserContext(), middleware.GetUser(c), jobID)
	if job == nil {
		return err
	}

	response := fiber.Map{"job": job}
	if err != nil {
		log.Warn("job cancelled but payment not released", "jobID", jobID, "error", err)
		_, body := middleware.StatusFor(err)
		response["paymentError"] = body.Error
	}
	return c.JSON(response)
}

func (h *JobHandler) rateJob(c *fiber.Ctx) error {
	jobID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req jobsController.RateJobRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	job, err := h.jobsController.RateJob(c.UserContext(), middleware.GetUser(c), jobID, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"job": job})
}

type authorizePaymentBody struct {
	PaymentMethodID string `json:"paymentMethodId"`
}

func (h *JobHandler) authorizePayment(c *fiber.Ctx) error {
	jobID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var body authorizePaymentBody
	if err := parseOptionalBody(c, &body); err != nil {
		return err
	}

	result, err := h.jobsController.AuthorizePayment(
		c.UserContext(),
		middleware.GetUser(c),
		jobID,
		body.PaymentMethodID,
	)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *JobHandler) syncAuthorization(c *fiber.Ctx) error {
	jobID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	result, err := h.jobsController.SyncAuthorization(c.UserContext(), middleware.GetUser(c), jobID)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
