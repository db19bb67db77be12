package handlers

import (
	"cleanbook/internal/app"
	cleanersController "cleanbook/internal/controllers/cleaners"
	"cleanbook/internal/handlers/middleware"

	"github.com/gofiber/fiber/v2"
)

type CleanerHandler struct {
	Handler
	cleanersController cleanersController.CleanersControllerInterface
}

func NewCleanerHandler(app app.App, router fiber.Router) *CleanerHandler {
	return &CleanerHandler{
		cleanersController: app.Controllers.Cleaners,
		Handler:            newHandler(app, router, "cleaner_handler"),
	}
}

func (h *CleanerHandler) Register() {
	me := h.router.Group("/cleaners/me", h.middleware.RequireAuth())
	me.Get("/", h.getMe)
	me.Post("/", h.createIfMissing)
	me.Post("/pause", h.pause)
	me.Post("/resume", h.resume)
	me.Post("/hms-card", h.attachHMSCard)
	me.Post("/connect", h.createConnectAccount)
	me.Post("/connect/refresh", h.refreshConnectStatus)
	me.Post("/onboarding", h.startOnboarding)
}

func (h *CleanerHandler) getMe(c *fiber.Ctx) error {
	cleaner, err := h.cleanersController.GetMe(c.UserContext(), middleware.GetUser(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"cleaner": cleaner})
}

func (h *CleanerHandler) createIfMissing(c *fiber.Ctx) error {
	cleaner, err := h.cleanersController.CreateIfMissing(c.UserContext(), middleware.GetUser(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"cleaner": cleaner})
}

func (h *CleanerHandler) pause(c *fiber.Ctx) error {
	cleaner, err := h.cleanersController.Pause(c.UserContext(), middleware.GetUser(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"cleaner": cleaner})
}

func (h *CleanerHandler) resume(c *fiber.Ctx) error {
	cleaner, err := h.cleanersController.ResumeFromPause(c.UserContext(), middleware.GetUser(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"cleaner": cleaner})
}

type hmsCardBody struct {
	StorageID string `json:"storageId"`
}

func (h *CleanerHandler) attachHMSCard(c *fiber.Ctx) error {
	var body hmsCardBody
	if err := parseBody(c, &body); err != nil {
		return err
	}

	cleaner, err := h.cleanersController.AttachHMSCard(c.UserContext(), middleware.GetUser(c), body.StorageID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"cleaner": cleaner})
}

func (h *CleanerHandler) createConnectAccount(c *fiber.Ctx) error {
	cleaner, err := h.cleanersController.CreateConnectAccount(c.UserContext(), middleware.GetUser(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"cleaner": cleaner})
}

func (h *CleanerHandler) refreshConnectStatus(c *fiber.Ctx) error {
	cleaner, err := h.cleanersController.RefreshConnectStatus(c.UserContext(), middleware.GetUser(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"cleaner": cleaner})
}

type onboardingBody struct {
	RefreshURL string `json:"refreshUrl"`
	ReturnURL  string `json:"returnUrl"`
}

func (h *CleanerHandler) startOnboarding(c *fiber.Ctx) error {
	var body onboardingBody
	if err := parseBody(c, &body); err != nil {
		return err
	}

	url, err := h.cleanersController.StartOnboarding(
		c.UserContext(),
		middleware.GetUser(c),
		body.RefreshURL,
		body.ReturnURL,
	)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"url": url})
}
