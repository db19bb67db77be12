package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cleanbook/config"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

const (
	stripeAccountTypeExpress = "express"
	stripeOnboardingLinkType = "account_onboarding"
)

// WebhookEvent is a verified provider event reduced to the objects the
// payment flow reacts to.
type WebhookEvent struct {
	ID            string
	Type          string
	PaymentIntent *PaymentIntent
	Account       *ConnectAccount
}

type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// StripeService implements PaymentProvider on a per-process Stripe client.
type StripeService struct {
	api           *client.API
	webhookSecret string
	log           logger.Logger
}

func NewStripeService(cfg config.Config) (*StripeService, error) {
	log := logger.New("StripeService").Function("NewStripeService")

	if cfg.StripeSecretKey == "" {
		return nil, log.ErrMsg("STRIPE_SECRET_KEY is required")
	}

	api := &client.API{}
	api.Init(cfg.StripeSecretKey, nil)

	return &StripeService{
		api:           api,
		webhookSecret: cfg.StripeWebhookSecret,
		log:           logger.New("StripeService"),
	}, nil
}

func (s *StripeService) CreateCustomer(
	ctx context.Context,
	params CreateCustomerParams,
) (*ProviderCustomer, error) {
	p := &stripe.CustomerParams{Params: stripe.Params{Context: ctx}}
	if params.Email != "" {
		p.Email = stripe.String(params.Email)
	}
	if params.Name != "" {
		p.Name = stripe.String(params.Name)
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		p.SetIdempotencyKey(params.IdempotencyKey)
	}

	customer, err := s.api.Customers.New(p)
	if err != nil {
		return nil, toProviderError(err)
	}

	return &ProviderCustomer{ID: customer.ID, Email: customer.Email}, nil
}

func (s *StripeService) DeleteCustomer(ctx context.Context, customerID string) error {
	_, err := s.api.Customers.Del(customerID, &stripe.CustomerParams{Params: stripe.Params{Context: ctx}})
	return toProviderError(err)
}

func (s *StripeService) CreatePaymentIntent(
	ctx context.Context,
	params CreateIntentParams,
) (*PaymentIntent, error) {
	p := &stripe.PaymentIntentParams{
		Params:        stripe.Params{Context: ctx},
		Amount:        stripe.Int64(params.Amount),
		Currency:      stripe.String(params.Currency),
		Customer:      stripe.String(params.CustomerID),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	if params.Description != "" {
		p.Description = stripe.String(params.Description)
	}
	if params.PaymentMethodID != "" {
		p.PaymentMethod = stripe.String(params.PaymentMethodID)
		p.Confirm = stripe.Bool(true)
		p.OffSession = stripe.Bool(true)
	} else {
		p.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		}
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		p.SetIdempotencyKey(params.IdempotencyKey)
	}

	intent, err := s.api.PaymentIntents.New(p)
	if err != nil {
		return nil, toProviderError(err)
	}

	return fromStripeIntent(intent), nil
}

func (s *StripeService) RetrievePaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	intent, err := s.api.PaymentIntents.Get(
		intentID,
		&stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}},
	)
	if err != nil {
		return nil, toProviderError(err)
	}

	return fromStripeIntent(intent), nil
}

func (s *StripeService) CapturePaymentIntent(
	ctx context.Context,
	params CaptureParams,
) (*PaymentIntent, error) {
	p := &stripe.PaymentIntentCaptureParams{Params: stripe.Params{Context: ctx}}
	if params.Amount > 0 {
		p.AmountToCapture = stripe.Int64(params.Amount)
	}
	if params.IdempotencyKey != "" {
		p.SetIdempotencyKey(params.IdempotencyKey)
	}

	intent, err := s.api.PaymentIntents.Capture(params.IntentID, p)
	if err != nil {
		return nil, toProviderError(err)
	}

	return fromStripeIntent(intent), nil
}

func (s *StripeService) CancelPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	intent, err := s.api.PaymentIntents.Cancel(
		intentID,
		&stripe.PaymentIntentCancelParams{Params: stripe.Params{Context: ctx}},
	)
	if err != nil {
		return nil, toProviderError(err)
	}

	return fromStripeIntent(intent), nil
}

func (s *StripeService) CreateRefund(
	ctx context.Context,
	intentID string,
	idempotencyKey string,
) (*Refund, error) {
	p := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(intentID),
	}
	if idempotencyKey != "" {
		p.SetIdempotencyKey(idempotencyKey)
	}

	refund, err := s.api.Refunds.New(p)
	if err != nil {
		return nil, toProviderError(err)
	}

	return &Refund{ID: refund.ID, Status: string(refund.Status), Amount: refund.Amount}, nil
}

func (s *StripeService) CreateConnectAccount(
	ctx context.Context,
	params CreateAccountParams,
) (*ConnectAccount, error) {
	p := &stripe.AccountParams{
		Params:  stripe.Params{Context: ctx},
		Type:    stripe.String(stripeAccountTypeExpress),
		Country: stripe.String(params.Country),
		Email:   stripe.String(params.Email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		p.SetIdempotencyKey(params.IdempotencyKey)
	}

	account, err := s.api.Accounts.New(p)
	if err != nil {
		return nil, toProviderError(err)
	}

	return fromStripeAccount(account), nil
}

func (s *StripeService) RetrieveConnectAccount(ctx context.Context, accountID string) (*ConnectAccount, error) {
	account, err := s.api.Accounts.GetByID(
		accountID,
		&stripe.AccountParams{Params: stripe.Params{Context: ctx}},
	)
	if err != nil {
		return nil, toProviderError(err)
	}

	return fromStripeAccount(account), nil
}

func (s *StripeService) CreateAccountOnboardingLink(
	ctx context.Context,
	accountID, refreshURL, returnURL string,
) (string, error) {
	link, err := s.api.AccountLinks.New(&stripe.AccountLinkParams{
		Params:     stripe.Params{Context: ctx},
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String(stripeOnboardingLinkType),
	})
	if err != nil {
		return "", toProviderError(err)
	}

	return link.URL, nil
}

func (s *StripeService) CreateTransfer(ctx context.Context, params TransferParams) (*Transfer, error) {
	p := &stripe.TransferParams{
		Params:      stripe.Params{Context: ctx},
		Amount:      stripe.Int64(params.Amount),
		Currency:    stripe.String(params.Currency),
		Destination: stripe.String(params.DestinationAccount),
	}
	if params.TransferGroup != "" {
		p.TransferGroup = stripe.String(params.TransferGroup)
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		p.SetIdempotencyKey(params.IdempotencyKey)
	}

	transfer, err := s.api.Transfers.New(p)
	if err != nil {
		return nil, toProviderError(err)
	}

	return fromStripeTransfer(transfer), nil
}

func (s *StripeService) FindTransfer(ctx context.Context, transferGroup string) (*Transfer, error) {
	p := &stripe.TransferListParams{TransferGroup: stripe.String(transferGroup)}
	p.Context = ctx
	p.Limit = stripe.Int64(1)

	iter := s.api.Transfers.List(p)
	for iter.Next() {
		if t := iter.Transfer(); t != nil && !t.Reversed {
			return fromStripeTransfer(t), nil
		}
	}
	if err := iter.Err(); err != nil {
		return nil, toProviderError(err)
	}

	return nil, nil
}

func (s *StripeService) ListPaymentMethods(
	ctx context.Context,
	customerID string,
) ([]SavedPaymentMethod, error) {
	p := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	p.Context = ctx

	methods := make([]SavedPaymentMethod, 0)
	iter := s.api.PaymentMethods.List(p)
	for iter.Next() {
		pm := iter.PaymentMethod()
		if pm == nil || pm.Card == nil {
			continue
		}
		methods = append(methods, SavedPaymentMethod{
			ID:       pm.ID,
			Brand:    string(pm.Card.Brand),
			Last4:    pm.Card.Last4,
			ExpMonth: int(pm.Card.ExpMonth),
			ExpYear:  int(pm.Card.ExpYear),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, toProviderError(err)
	}

	return methods, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the objects
// we react to. Other event types come back with only ID and Type set.
func (s *StripeService) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	log := s.log.Function("ParseWebhook")

	if s.webhookSecret == "" {
		return nil, log.ErrMsg("STRIPE_WEBHOOK_SECRET is not configured")
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	result := &WebhookEvent{ID: event.ID, Type: string(event.Type)}

	switch {
	case event.Data == nil:
	case strings.HasPrefix(string(event.Type), "payment_intent."):
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, log.Err("failed to decode payment intent", err, "eventID", event.ID)
		}
		result.PaymentIntent = fromStripeIntent(&intent)
	case event.Type == "account.updated":
		var account stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
			return nil, log.Err("failed to decode account", err, "eventID", event.ID)
		}
		result.Account = fromStripeAccount(&account)
	}

	return result, nil
}

func fromStripeIntent(intent *stripe.PaymentIntent) *PaymentIntent {
	result := &PaymentIntent{
		ID:             intent.ID,
		Status:         IntentStatus(intent.Status),
		Amount:         intent.Amount,
		AmountReceived: intent.AmountReceived,
		Currency:       string(intent.Currency),
		ClientSecret:   intent.ClientSecret,
	}
	if intent.Customer != nil {
		result.CustomerID = intent.Customer.ID
	}
	if intent.LastPaymentError != nil {
		result.LastError = intent.LastPaymentError.Msg
	}
	return result
}

func fromStripeAccount(account *stripe.Account) *ConnectAccount {
	result := &ConnectAccount{
		ID:               account.ID,
		Email:            account.Email,
		ChargesEnabled:   account.ChargesEnabled,
		PayoutsEnabled:   account.PayoutsEnabled,
		DetailsSubmitted: account.DetailsSubmitted,
	}
	if account.Requirements != nil {
		result.DisabledReason = string(account.Requirements.DisabledReason)
	}
	if account.Settings != nil && account.Settings.Payouts != nil && account.Settings.Payouts.Schedule != nil {
		result.PayoutSchedule = string(account.Settings.Payouts.Schedule.Interval)
	}
	if account.ExternalAccounts != nil {
		for _, external := range account.ExternalAccounts.Data {
			if external.BankAccount != nil {
				result.BankSummary = fmt.Sprintf(
					"%s ****%s",
					external.BankAccount.BankName,
					external.BankAccount.Last4,
				)
				break
			}
		}
	}
	return result
}

func fromStripeTransfer(transfer *stripe.Transfer) *Transfer {
	result := &Transfer{ID: transfer.ID, Amount: transfer.Amount}
	if transfer.Destination != nil {
		result.Destination = transfer.Destination.ID
	}
	return result
}

// toProviderError keeps the Stripe code and message and drops everything
// else. It returns nil for a nil error.
func toProviderError(err error) error {
	if err == nil {
		return nil
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &ProviderError{
			Type:        string(stripeErr.Type),
			Code:        string(stripeErr.Code),
			DeclineCode: string(stripeErr.DeclineCode),
			Message:     stripeErr.Msg,
			HTTPStatus:  stripeErr.HTTPStatusCode,
			RequestID:   stripeErr.RequestID,
		}
	}

	return &ProviderError{Type: "api_connection_error", Message: err.Error()}
}
