package handlers

import (
	"cleanbook/internal/app"
	paymentsController "cleanbook/internal/controllers/payments"
	"cleanbook/internal/handlers/middleware"

	"github.com/gofiber/fiber/v2"
)

const stripeSignatureHeader = "Stripe-Signature"

type PaymentHandler struct {
	Handler
	paymentsController paymentsController.PaymentsControllerInterface
}

func NewPaymentHandler(app app.App, router fiber.Router) *PaymentHandler {
	return &PaymentHandler{
		paymentsController: app.Controllers.Payments,
		Handler:            newHandler(app, router, "payment_handler"),
	}
}

func (h *PaymentHandler) Register() {
	payments := h.router.Group("/payments", h.middleware.RequireAuth())
	payments.Get("/methods", h.listPaymentMethods)
}

func (h *PaymentHandler) listPaymentMethods(c *fiber.Ctx) error {
	methods, err := h.paymentsController.ListPaymentMethods(c.UserContext(), middleware.GetUser(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"paymentMethods": methods})
}

// WebhookHandler receives provider callbacks. It sits outside RequireAuth;
// the signature header authenticates the caller.
type WebhookHandler struct {
	Handler
	paymentsController paymentsController.PaymentsControllerInterface
}

func NewWebhookHandler(app app.App, router fiber.Router) *WebhookHandler {
	return &WebhookHandler{
		paymentsController: app.Controllers.Payments,
		Handler:            newHandler(app, router, "webhook_handler"),
	}
}

func (h *WebhookHandler) Register() {
	webhooks := h.router.Group("/webhooks")
	webhooks.Post("/stripe", h.stripe)
}

func (h *WebhookHandler) stripe(c *fiber.Ctx) error {
	if err := h.paymentsController.HandleWebhook(
		c.UserContext(),
		c.Body(),
		c.Get(stripeSignatureHeader),
	); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"received": true})
}
