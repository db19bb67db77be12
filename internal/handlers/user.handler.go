package handlers

import (
	"cleanbook/internal/app"
	userController "cleanbook/internal/controllers/users"
	"cleanbook/internal/handlers/middleware"
	"cleanbook/internal/models"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	Handler
	userController userController.UserControllerInterface
}

func NewUserHandler(app app.App, router fiber.Router) *UserHandler {
	return &UserHandler{
		userController: app.Controllers.User,
		Handler:        newHandler(app, router, "user_handler"),
	}
}

func (h *UserHandler) Register() {
	users := h.router.Group("/users", h.middleware.RequireAuth())
	users.Get("/me", h.getCurrentUser)
	users.Patch("/me", h.setUserType)

	landlords := h.router.Group("/landlords", h.middleware.RequireAuth())
	landlords.Post("/onboard", h.onboardLandlord)
}

func (h *UserHandler) getCurrentUser(c *fiber.Ctx) error {
	me, err := h.userController.GetMe(c.UserContext(), middleware.GetUser(c))
	if err != nil {
		return err
	}
	return c.JSON(me)
}

type setUserTypeRequest struct {
	UserType models.UserType `json:"userType"`
}

func (h *UserHandler) setUserType(c *fiber.Ctx) error {
	var req setUserTypeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	me, err := h.userController.SetUserType(c.UserContext(), middleware.GetUser(c), req.UserType)
	if err != nil {
		return err
	}
	return c.JSON(me)
}

func (h *UserHandler) onboardLandlord(c *fiber.Ctx) error {
	var req userController.OnboardLandlordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	landlord, err := h.userController.OnboardLandlord(c.UserContext(), middleware.GetUser(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"landlord": landlord})
}
