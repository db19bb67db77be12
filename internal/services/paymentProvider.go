package services

import (
	"context"
	"errors"
	"fmt"
)

// IntentStatus mirrors the provider's payment intent lifecycle.
type IntentStatus string

const (
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentRequiresAction        IntentStatus = "requires_action"
	IntentProcessing            IntentStatus = "processing"
	IntentRequiresCapture       IntentStatus = "requires_capture"
	IntentCanceled              IntentStatus = "canceled"
	IntentSucceeded             IntentStatus = "succeeded"
)

// Voidable is true for every state where the hold can still be released
// without a refund.
func (s IntentStatus) Voidable() bool {
	switch s {
	case IntentRequiresPaymentMethod,
		IntentRequiresConfirmation,
		IntentRequiresAction,
		IntentProcessing,
		IntentRequiresCapture:
		return true
	}
	return false
}

type ProviderCustomer struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

type CreateCustomerParams struct {
	Email          string            `json:"email,omitempty"`
	Name           string            `json:"name,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	IdempotencyKey string            `json:"-"`
}

type PaymentIntent struct {
	ID             string       `json:"id"`
	Status         IntentStatus `json:"status"`
	Amount         int64        `json:"amount"`
	AmountReceived int64        `json:"amountReceived"`
	Currency       string       `json:"currency"`
	CustomerID     string       `json:"customerId,omitempty"`
	ClientSecret   string       `json:"-"`
	LastError      string       `json:"lastError,omitempty"`
}

// CreateIntentParams always requests manual capture. Amount is in minor units.
type CreateIntentParams struct {
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	CustomerID      string            `json:"customerId"`
	PaymentMethodID string            `json:"paymentMethodId,omitempty"`
	Description     string            `json:"description,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	IdempotencyKey  string            `json:"-"`
}

type CaptureParams struct {
	IntentID       string `json:"intentId"`
	Amount         int64  `json:"amount,omitempty"`
	IdempotencyKey string `json:"-"`
}

type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

type ConnectAccount struct {
	ID               string `json:"id"`
	Email            string `json:"email,omitempty"`
	ChargesEnabled   bool   `json:"chargesEnabled"`
	PayoutsEnabled   bool   `json:"payoutsEnabled"`
	DetailsSubmitted bool   `json:"detailsSubmitted"`
	DisabledReason   string `json:"disabledReason,omitempty"`
	PayoutSchedule   string `json:"payoutSchedule,omitempty"`
	BankSummary      string `json:"bankSummary,omitempty"`
}

type CreateAccountParams struct {
	Email          string            `json:"email"`
	Country        string            `json:"country"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	IdempotencyKey string            `json:"-"`
}

type TransferParams struct {
	Amount             int64             `json:"amount"`
	Currency           string            `json:"currency"`
	DestinationAccount string            `json:"destination"`
	TransferGroup      string            `json:"transferGroup,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	IdempotencyKey     string            `json:"-"`
}

type Transfer struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Destination string `json:"destination"`
}

type SavedPaymentMethod struct {
	ID       string `json:"id"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"expMonth"`
	ExpYear  int    `json:"expYear"`
}

// PaymentProvider is the set of payment primitives the orchestrator needs.
// All amounts are integers in the currency's minor unit.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, params CreateCustomerParams) (*ProviderCustomer, error)
	DeleteCustomer(ctx context.Context, customerID string) error
	CreatePaymentIntent(ctx context.Context, params CreateIntentParams) (*PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error)
	CapturePaymentIntent(ctx context.Context, params CaptureParams) (*PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error)
	CreateRefund(ctx context.Context, intentID string, idempotencyKey string) (*Refund, error)
	CreateConnectAccount(ctx context.Context, params CreateAccountParams) (*ConnectAccount, error)
	RetrieveConnectAccount(ctx context.Context, accountID string) (*ConnectAccount, error)
	CreateAccountOnboardingLink(
		ctx context.Context,
		accountID, refreshURL, returnURL string,
	) (string, error)
	CreateTransfer(ctx context.Context, params TransferParams) (*Transfer, error)
	// FindTransfer returns the transfer already made for a group, or nil.
	FindTransfer(ctx context.Context, transferGroup string) (*Transfer, error)
	ListPaymentMethods(ctx context.Context, customerID string) ([]SavedPaymentMethod, error)
}

// ProviderError is the provider-neutral form of a failed call.
type ProviderError struct {
	Type        string `json:"type,omitempty"`
	Code        string `json:"code,omitempty"`
	DeclineCode string `json:"declineCode,omitempty"`
	Message     string `json:"message"`
	HTTPStatus  int    `json:"httpStatus,omitempty"`
	RequestID   string `json:"requestId,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// IsCardError reports a decline the customer has to resolve.
func (e *ProviderError) IsCardError() bool {
	return e.Type == "card_error"
}

// IsStateError reports a request rejected because the object is in the
// wrong state, as opposed to an outage or throttling.
func (e *ProviderError) IsStateError() bool {
	return e.Code == "payment_intent_unexpected_state" ||
		e.Code == "charge_already_captured" ||
		e.Code == "charge_already_refunded"
}

func AsProviderError(err error) (*ProviderError, bool) {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr, true
	}
	return nil, false
}
