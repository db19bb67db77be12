package handlers

import (
	"cleanbook/internal/app"
	lookupController "cleanbook/internal/controllers/lookup"

	"github.com/gofiber/fiber/v2"
)

type LookupHandler struct {
	Handler
	lookupController lookupController.LookupControllerInterface
}

func NewLookupHandler(app app.App, router fiber.Router) *LookupHandler {
	return &LookupHandler{
		lookupController: app.Controllers.Lookup,
		Handler:          newHandler(app, router, "lookup_handler"),
	}
}

func (h *LookupHandler) Register() {
	lookup := h.router.Group("/lookup", h.middleware.RequireAuth())
	lookup.Get("/companies", h.searchCompanies)
	lookup.Get("/addresses", h.searchAddresses)
	lookup.Get("/addresses/:placeId", h.getAddress)
}

func (h *LookupHandler) searchCompanies(c *fiber.Ctx) error {
	companies, err := h.lookupController.SearchCompanies(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"companies": companies})
}

func (h *LookupHandler) searchAddresses(c *fiber.Ctx) error {
	suggestions, err := h.lookupController.SearchAddresses(
		c.UserContext(),
		c.Query("q"),
		c.Query("sessionToken"),
	)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"suggestions": suggestions})
}

func (h *LookupHandler) getAddress(c *fiber.Ctx) error {
	address, err := h.lookupController.GetAddress(
		c.UserContext(),
		c.Params("placeId"),
		c.Query("sessionToken"),
	)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"address": address})
}
