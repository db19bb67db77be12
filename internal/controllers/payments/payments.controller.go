package paymentsController

import (
	"context"

	. "cleanbook/internal/models"
	"cleanbook/internal/services"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
)

type PaymentsController struct {
	payment *services.PaymentService
	webhook services.WebhookParser
	log     logger.Logger
}

type PaymentsControllerInterface interface {
	ListPaymentMethods(ctx context.Context, user *User) ([]*PaymentMethod, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

func New(services services.Service) PaymentsControllerInterface {
	return &PaymentsController{
		payment: services.Payment,
		webhook: services.Stripe,
		log:     logger.New("paymentsController"),
	}
}

// ListPaymentMethods refreshes the stored cards from the provider first.
func (c *PaymentsController) ListPaymentMethods(ctx context.Context, user *User) ([]*PaymentMethod, error) {
	if !user.IsLandlord() {
		return nil, types.Forbidden("only landlords have payment methods")
	}
	return c.payment.SyncPaymentMethods(ctx, user)
}

// HandleWebhook verifies the signature before applying the event.
func (c *PaymentsController) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	log := c.log.TraceFromContext(ctx).Function("HandleWebhook")

	if signature == "" {
		return types.Unauthorized("missing webhook signature")
	}

	event, err := c.webhook.ParseWebhook(payload, signature)
	if err != nil {
		log.Warn("rejected webhook", "error", err)
		return types.Unauthorized("invalid webhook signature")
	}

	log.Info("webhook received", "eventID", event.ID, "type", event.Type)
	return c.payment.HandleWebhook(ctx, event)
}
