package handlers

import (
	"cleanbook/internal/app"
	propertiesController "cleanbook/internal/controllers/properties"
	"cleanbook/internal/handlers/middleware"

	"github.com/gofiber/fiber/v2"
)

type PropertyHandler struct {
	Handler
	propertiesController propertiesController.PropertiesControllerInterface
}

func NewPropertyHandler(app app.App, router fiber.Router) *PropertyHandler {
	return &PropertyHandler{
		propertiesController: app.Controllers.Properties,
		Handler:              newHandler(app, router, "property_handler"),
	}
}

func (h *PropertyHandler) Register() {
	properties := h.router.Group("/properties", h.middleware.RequireAuth())
	properties.Get("/", h.list)
	properties.Post("/", h.create)
	properties.Get("/:id", h.get)
	properties.Patch("/:id", h.update)
	properties.Delete("/:id", h.delete)
}

func (h *PropertyHandler) list(c *fiber.Ctx) error {
	properties, err := h.propertiesController.List(c.UserContext(), middleware.GetUser(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"properties": properties})
}

func (h *PropertyHandler) create(c *fiber.Ctx) error {
	var req propertiesController.CreatePropertyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	property, err := h.propertiesController.Create(c.UserContext(), middleware.GetUser(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"property": property})
}

func (h *PropertyHandler) get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	property, err := h.propertiesController.Get(c.UserContext(), middleware.GetUser(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"property": property})
}

func (h *PropertyHandler) update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req propertiesController.UpdatePropertyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	property, err := h.propertiesController.Update(c.UserContext(), middleware.GetUser(c), id, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"property": property})
}

func (h *PropertyHandler) delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.propertiesController.Delete(c.UserContext(), middleware.GetUser(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
