package testutil

import (
	"context"
	"fmt"
	"sync"

	"cleanbook/internal/services"
)

// FakeProvider is an in-memory PaymentProvider. It follows the provider's
// state rules closely enough for lifecycle tests: captures need
// requires_capture, refunds need succeeded, idempotency keys replay.
type FakeProvider struct {
	mu sync.Mutex

	Customers      map[string]*services.ProviderCustomer
	Intents        map[string]*services.PaymentIntent
	Accounts       map[string]*services.ConnectAccount
	Transfers      map[string]*services.Transfer
	Refunds        map[string]*services.Refund
	PaymentMethods map[string][]services.SavedPaymentMethod

	// FailNext makes the next call of the named operation return the error.
	FailNext map[string]error
	Calls    []string

	idempotent map[string]any
	seq        int
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		Customers:      make(map[string]*services.ProviderCustomer),
		Intents:        make(map[string]*services.PaymentIntent),
		Accounts:       make(map[string]*services.ConnectAccount),
		Transfers:      make(map[string]*services.Transfer),
		Refunds:        make(map[string]*services.Refund),
		PaymentMethods: make(map[string][]services.SavedPaymentMethod),
		FailNext:       make(map[string]error),
		idempotent:     make(map[string]any),
	}
}

// CallCount returns how often an operation was invoked.
func (f *FakeProvider) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, call := range f.Calls {
		if call == op {
			count++
		}
	}
	return count
}

// SetIntentStatus changes an intent as if the customer or provider acted on it.
func (f *FakeProvider) SetIntentStatus(intentID string, status services.IntentStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if intent, ok := f.Intents[intentID]; ok {
		intent.Status = status
		if status == services.IntentSucceeded {
			intent.AmountReceived = intent.Amount
		}
	}
}

// AddAccount registers a connect account without a CreateConnectAccount call.
func (f *FakeProvider) AddAccount(account services.ConnectAccount) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Accounts[account.ID] = &account
}

func (f *FakeProvider) begin(op string) error {
	f.Calls = append(f.Calls, op)
	if err, ok := f.FailNext[op]; ok {
		delete(f.FailNext, op)
		return err
	}
	return nil
}

func (f *FakeProvider) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_%d", prefix, f.seq)
}

func unexpectedState(message string) error {
	return &services.ProviderError{
		Type:       "invalid_request_error",
		Code:       "payment_intent_unexpected_state",
		Message:    message,
		HTTPStatus: 400,
	}
}

func notFound(id string) error {
	return &services.ProviderError{
		Type:       "invalid_request_error",
		Code:       "resource_missing",
		Message:    "No such object: " + id,
		HTTPStatus: 404,
	}
}

func (f *FakeProvider) CreateCustomer(
	ctx context.Context,
	params services.CreateCustomerParams,
) (*services.ProviderCustomer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.begin("CreateCustomer"); err != nil {
		return nil, err
	}

	customer := &services.ProviderCustomer{ID: f.nextID("cus"), Email: params.Email}
	f.Customers[customer.ID] = customer
	copied := *customer
	return &copied, nil
}

func (f *FakeProvider) DeleteCustomer(ctx context.Context, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.begin("DeleteCustomer"); err != nil {
		return err
	}
	delete(f.Customers, customerID)
	return nil
}

func (f *FakeProvider) CreatePaymentIntent(
	ctx context.Context,
	params services.CreateIntentParams,
) (*services.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.begin("CreatePaymentIntent"); err != nil {
		return nil, err
	}

	if params.IdempotencyKey != "" {
		if prior, ok := f.idempotent[params.IdempotencyKey].(*services.PaymentIntent); ok {
			copied := *f.Intents[prior.ID]
			return &copied, nil
		}
	}

	status := services.IntentRequiresPaymentMethod
	if params.PaymentMethodID != "" {
		status = services.IntentRequiresCapture
	}

	intent := &services.PaymentIntent{
		ID:         f.nextID("pi"),
		Status:     status,
		Amount:     params.Amount,
		Currency:   params.Currency,
		CustomerID: params.CustomerID,
	}
	intent.ClientSecret = intent.ID + "_secret"
	f.Intents[intent.ID] = intent
	if params.IdempotencyKey != "" {
		f.idempotent[params.IdempotencyKey] = intent
	}

	copied := *intent
	return &copied, nil
}

func (f *FakeProvider) RetrievePaymentIntent(
	ctx context.Context,
	intentID string,
) (*services.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.begin("RetrievePaymentIntent"); err != nil {
		return nil, err
	}

	intent, ok := f.Intents[intentID]
	if !ok {
		return nil, notFound(intentID)
	}
	copied := *intent
	return &copied, nil
}

func (f *FakeProvider) CapturePaymentIntent(
	ctx context.Context,
	params services.CaptureParams,
) (*services.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.begin("CapturePaymentIntent"); err != nil {
		return nil, err
	}

	intent, ok := f.Intents[params.IntentID]
	if !ok {
		return nil, notFound(params.IntentID)
	}

	if params.IdempotencyKey != "" {
		if _, replay := f.idempotent[params.IdempotencyKey]; replay {
			copied := *intent
			return &copied, nil
		}
	}

	if intent.Status != services.IntentRequiresCapture {
		return nil, unexpectedState("This PaymentIntent could not be captured because it has a status of " + string(intent.Status))
	}

	amount := intent.Amount
	if params.Amount > 0 {
		amount = params.Amount
	}
	intent.Status = services.IntentSucceeded
	intent.AmountReceived = amount
	if params.IdempotencyKey != "" {
		f.idempotent[params.IdempotencyKey] = intent
	}

	copied := *intent
	return &copied, nil
}

func (f *FakeProvider) CancelPaymentIntent(
	ctx context.Context,
	intentID string,
) (*services.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.begin("CancelPaymentIntent"); err != nil {
		return nil, err
	}

	intent, ok := f.Intents[intentID]
	if !ok {
		return nil, notFound(intentID)
	}
	if !intent.Status.Voidable() {
		return nil, unexpectedState("This PaymentIntent cannot be canceled because it has a status of " + string(intent.Status))
	}

	intent.Status = services.IntentCanceled
	copied := *intent
	return &copied, nil
}

func (f *FakeProvider) CreateRefund(
	ctx context.Context,
	intentID string,
	idempotencyKey string,
) (*services.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.begin("CreateRefund"); err != nil {
		return nil, err
	}

	if prior, ok := f.idempotent[idempotencyKey].(*services.Refund); ok && idempotencyKey != "" {
		copied := *prior
		return &copied, nil
	}

	intent, ok := f.Intents[intentID]
	if !ok {
		return nil, notFound(intentID)
	}
	if intent.Status != services.IntentSucceeded {
		return nil, &services.ProviderError{
			Type:    "invalid_request_error",
			Code:    "charge_not_refundable",
			Message: "PaymentIntent has no captured charge",
		}
	}

	refund := &services.Refund{ID: f.nextID("re"), Status: "succeeded", Amount: intent.AmountReceived}
	f.Refunds[refund.ID] = refund
	if idempotencyKey != "" {
		f.idempotent[idempotencyKey] = refund
	}

	copied := *refund
	return &copied, nil
}

func (f *FakeProvider) CreateConnectAccount(
	ctx context.Context,
	params services.CreateAccountParams,
) (*services.ConnectAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.begin("CreateConnectAccount"); err != nil {
		return nil, err
	}

	account := &services.ConnectAccount{ID: f.nextID("acct"), Email: params.Email}
	f.Accounts[account.ID] = account
	copied := *account
	return &copied, nil
}

func (f *FakeProvider) RetrieveConnectAccount(
	ctx context.Context,
	accountID string,
) (*services.ConnectAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.begin("RetrieveConnectAccount"); err != nil {
		return nil, err
	}

	account, ok := f.Accounts[accountID]
	if !ok {
		return nil, notFound(accountID)
	}
	copied := *account
	return &copied, nil
}

func (f *FakeProvider) CreateAccountOnboardingLink(
	ctx context.Context,
	accountID, refreshURL, returnURL string,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.begin("CreateAccountOnboardingLink"); err != nil {
		return "", err
	}
	if _, ok := f.Accounts[accountID]; !ok {
		return "", notFound(accountID)
	}
	return "https://connect.example.test/setup/" + accountID, nil
}

func (f *FakeProvider) CreateTransfer(
	ctx context.Context,
	params services.TransferParams,
) (*services.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.begin("CreateTransfer"); err != nil {
		return nil, err
	}

	if prior, ok := f.idempotent[params.IdempotencyKey].(*services.Transfer); ok && params.IdempotencyKey != "" {
		copied := *prior
		return &copied, nil
	}

	account, ok := f.Accounts[params.DestinationAccount]
	if !ok {
		return nil, notFound(params.DestinationAccount)
	}
	if !account.ChargesEnabled {
		return nil, &services.ProviderError{
			Type:    "invalid_request_error",
			Code:    "insufficient_capabilities_for_transfer",
			Message: "Destination account has no transfer capability",
		}
	}

	transfer := &services.Transfer{
		ID:          f.nextID("tr"),
		Amount:      params.Amount,
		Destination: params.DestinationAccount,
	}
	f.Transfers[params.TransferGroup] = transfer
	if params.IdempotencyKey != "" {
		f.idempotent[params.IdempotencyKey] = transfer
	}

	copied := *transfer
	return &copied, nil
}

func (f *FakeProvider) FindTransfer(
	ctx context.Context,
	transferGroup string,
) (*services.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.begin("FindTransfer"); err != nil {
		return nil, err
	}

	transfer, ok := f.Transfers[transferGroup]
	if !ok {
		return nil, nil
	}
	copied := *transfer
	return &copied, nil
}

func (f *FakeProvider) ListPaymentMethods(
	ctx context.Context,
	customerID string,
) ([]services.SavedPaymentMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.begin("ListPaymentMethods"); err != nil {
		return nil, err
	}

	methods := f.PaymentMethods[customerID]
	out := make([]services.SavedPaymentMethod, len(methods))
	copy(out, methods)
	return out, nil
}

var _ services.PaymentProvider = (*FakeProvider)(nil)
