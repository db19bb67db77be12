package services_test

import (
	"context"
	"testing"

	"cleanbook/config"
	"cleanbook/internal/database"
	. "cleanbook/internal/models"
	"cleanbook/internal/repositories"
	"cleanbook/internal/services"
	"cleanbook/internal/testutil"
	"cleanbook/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentFixture struct {
	ctx      context.Context
	db       database.DB
	repos    repositories.Repository
	provider *testutil.FakeProvider
	service  *services.PaymentService
	landlord *User
	job      *CleaningJob
}

func setupPayments(t *testing.T) *paymentFixture {
	t.Helper()

	db := testutil.NewDB(t)
	repos := repositories.New(db)
	provider := testutil.NewFakeProvider()
	service := services.NewPaymentService(db, repos, provider, config.Config{
		StripeCurrency:       "NOK",
		StripeConnectCountry: "NO",
	})

	user, landlord := testutil.CreateLandlord(t, db)
	property := testutil.CreateProperty(t, db, user, 45)
	job := testutil.CreateJob(t, db, landlord, property, JobStatusConfirmed, 1000)

	return &paymentFixture{
		ctx:      context.Background(),
		db:       db,
		repos:    repos,
		provider: provider,
		service:  service,
		landlord: user,
		job:      job,
	}
}

func (f *paymentFixture) authorize(t *testing.T) {
	t.Helper()

	result, err := f.service.Authorize(f.ctx, f.job.ID, f.landlord, "pm_card_visa")
	require.NoError(t, err)
	require.Equal(t, PaymentStatusAuthorized, result.PaymentStatus)
}

func (f *paymentFixture) capture(t *testing.T) {
	t.Helper()

	f.authorize(t)
	job, err := f.service.Capture(f.ctx, f.job.ID)
	require.NoError(t, err)
	require.Equal(t, PaymentStatusPaid, job.PaymentStatus)
}

func (f *paymentFixture) assignCleaner(t *testing.T, accountID string, chargesEnabled bool) *Cleaner {
	t.Helper()

	_, cleaner := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, accountID, chargesEnabled)
	require.NoError(t, f.db.SQL.Model(&CleaningJob{}).
		Where("id = ?", f.job.ID).
		Update("assigned_cleaner_id", cleaner.ID).Error)
	return cleaner
}

func auditFor(t *testing.T, db database.DB, operation string) []StripeLog {
	t.Helper()

	var matched []StripeLog
	for _, entry := range testutil.AuditLogs(t, db) {
		if entry.Operation == operation {
			matched = append(matched, entry)
		}
	}
	return matched
}

func TestPaymentService_AuthorizeWithSavedMethod(t *testing.T) {
	f := setupPayments(t)

	result, err := f.service.Authorize(f.ctx, f.job.ID, f.landlord, "pm_card_visa")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusAuthorized, result.PaymentStatus)
	assert.Equal(t, services.IntentRequiresCapture, result.IntentStatus)

	job := testutil.ReloadJob(t, f.db, f.job.ID)
	assert.Equal(t, PaymentStatusAuthorized, job.PaymentStatus)
	require.NotNil(t, job.PaymentIntentID)
	assert.Equal(t, result.PaymentIntentID, *job.PaymentIntentID)
	require.NotNil(t, job.ProviderCustomerID)

	intent := f.provider.Intents[*job.PaymentIntentID]
	assert.Equal(t, int64(100000), intent.Amount)
	assert.Equal(t, "nok", intent.Currency)

	customer, err := f.repos.Customer.GetByUserID(f.ctx, f.db.SQL, f.landlord.ID)
	require.NoError(t, err)
	assert.Equal(t, *job.ProviderCustomerID, customer.ProviderCustomerID)

	created := auditFor(t, f.db, services.OpCreatePaymentIntent)
	require.Len(t, created, 1)
	assert.Equal(t, StripeLogStatusSuccess, created[0].Status)
	require.NotNil(t, created[0].IdempotencyKey)
	assert.Equal(t, "authorize-"+f.job.ID.String(), *created[0].IdempotencyKey)
	assert.Len(t, auditFor(t, f.db, services.OpCreateCustomer), 1)
}

func TestPaymentService_AuthorizeThenSync(t *testing.T) {
	f := setupPayments(t)

	result, err := f.service.Authorize(f.ctx, f.job.ID, f.landlord, "")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, result.PaymentStatus)
	assert.NotEmpty(t, result.ClientSecret)

	synced, err := f.service.SyncAuthorization(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, synced.PaymentStatus)

	f.provider.SetIntentStatus(result.PaymentIntentID, services.IntentRequiresCapture)

	synced, err = f.service.SyncAuthorization(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusAuthorized, synced.PaymentStatus)
	assert.Equal(t, PaymentStatusAuthorized, testutil.ReloadJob(t, f.db, f.job.ID).PaymentStatus)
}

func TestPaymentService_AuthorizeReusesIntent(t *testing.T) {
	f := setupPayments(t)

	first, err := f.service.Authorize(f.ctx, f.job.ID, f.landlord, "")
	require.NoError(t, err)

	second, err := f.service.Authorize(f.ctx, f.job.ID, f.landlord, "")
	require.NoError(t, err)

	assert.Equal(t, first.PaymentIntentID, second.PaymentIntentID)
	assert.Equal(t, 1, f.provider.CallCount("CreatePaymentIntent"))
	assert.Equal(t, 1, f.provider.CallCount("CreateCustomer"))
}

func TestPaymentService_AuthorizeCardDeclined(t *testing.T) {
	f := setupPayments(t)
	f.provider.FailNext["CreatePaymentIntent"] = &services.ProviderError{
		Type:    "card_error",
		Code:    "card_declined",
		Message: "Your card was declined.",
	}

	_, err := f.service.Authorize(f.ctx, f.job.ID, f.landlord, "pm_card_declined")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPaymentSetupFailed)

	job := testutil.ReloadJob(t, f.db, f.job.ID)
	assert.Equal(t, PaymentStatusPending, job.PaymentStatus)
	assert.Nil(t, job.PaymentIntentID)
	require.NotNil(t, job.PaymentFailureReason)
	assert.Equal(t, "Your card was declined.", *job.PaymentFailureReason)

	entries := auditFor(t, f.db, services.OpCreatePaymentIntent)
	require.Len(t, entries, 1)
	assert.Equal(t, StripeLogStatusFailed, entries[0].Status)
	require.NotNil(t, entries[0].ErrorCode)
	assert.Equal(t, "card_declined", *entries[0].ErrorCode)
}

func TestPaymentService_AuthorizeClosedJob(t *testing.T) {
	f := setupPayments(t)
	require.NoError(t, f.db.SQL.Model(&CleaningJob{}).
		Where("id = ?", f.job.ID).
		Update("status", JobStatusCancelled).Error)

	_, err := f.service.Authorize(f.ctx, f.job.ID, f.landlord, "pm_card_visa")
	assert.ErrorIs(t, err, types.Validation(""))
	assert.Equal(t, 0, f.provider.CallCount("CreatePaymentIntent"))
}

func TestPaymentService_EnsureCustomerOnce(t *testing.T) {
	f := setupPayments(t)

	first, err := f.service.EnsureCustomer(f.ctx, f.landlord)
	require.NoError(t, err)
	second, err := f.service.EnsureCustomer(f.ctx, f.landlord)
	require.NoError(t, err)

	assert.Equal(t, first.ProviderCustomerID, second.ProviderCustomerID)
	assert.Equal(t, 1, f.provider.CallCount("CreateCustomer"))
}

func TestPaymentService_CaptureTwiceChargesOnce(t *testing.T) {
	f := setupPayments(t)
	f.authorize(t)

	job, err := f.service.Capture(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, job.PaymentStatus)
	require.NotNil(t, job.CapturedAmount)
	assert.True(t, decimal.NewFromInt(1000).Equal(*job.CapturedAmount))

	job, err = f.service.Capture(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, job.PaymentStatus)
	assert.Equal(t, 1, f.provider.CallCount("CapturePaymentIntent"))

	captures := auditFor(t, f.db, services.OpCapturePaymentIntent)
	require.Len(t, captures, 1)
	assert.Equal(t, "capture-"+f.job.ID.String(), *captures[0].IdempotencyKey)
}

func TestPaymentService_CaptureAlreadySucceededRemotely(t *testing.T) {
	f := setupPayments(t)
	f.authorize(t)

	job := testutil.ReloadJob(t, f.db, f.job.ID)
	f.provider.SetIntentStatus(*job.PaymentIntentID, services.IntentSucceeded)

	job, err := f.service.Capture(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, job.PaymentStatus)
	assert.Equal(t, 0, f.provider.CallCount("CapturePaymentIntent"))
}

func TestPaymentService_CaptureProviderFailureKeepsAuthorized(t *testing.T) {
	f := setupPayments(t)
	f.authorize(t)

	f.provider.FailNext["CapturePaymentIntent"] = &services.ProviderError{
		Type:    "api_connection_error",
		Message: "connection reset by peer",
	}

	job, err := f.service.Capture(f.ctx, f.job.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrProviderError)
	assert.Equal(t, PaymentStatusAuthorized, job.PaymentStatus)
	require.NotNil(t, job.PaymentFailureReason)
	assert.Equal(t, "connection reset by peer", *job.PaymentFailureReason)

	failed := auditFor(t, f.db, services.OpCapturePaymentIntent)
	require.Len(t, failed, 1)
	assert.Equal(t, StripeLogStatusFailed, failed[0].Status)

	job, err = f.service.Capture(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, job.PaymentStatus)
	assert.Nil(t, job.PaymentFailureReason)
}

// The landlord confirmed client side and nobody synced; capture records the
// hold as authorized before charging it.
func TestPaymentService_CapturePendingWithRemoteHold(t *testing.T) {
	f := setupPayments(t)
	result, err := f.service.Authorize(f.ctx, f.job.ID, f.landlord, "")
	require.NoError(t, err)
	require.Equal(t, PaymentStatusPending, result.PaymentStatus)
	f.provider.SetIntentStatus(result.PaymentIntentID, services.IntentRequiresCapture)

	job, err := f.service.Capture(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, job.PaymentStatus)
	assert.Equal(t, 1, f.provider.CallCount("CapturePaymentIntent"))
	require.NotNil(t, job.CapturedAmount)
	assert.True(t, decimal.NewFromInt(1000).Equal(*job.CapturedAmount))
}

func TestPaymentService_CaptureNotCapturable(t *testing.T) {
	f := setupPayments(t)
	f.authorize(t)

	job := testutil.ReloadJob(t, f.db, f.job.ID)
	f.provider.SetIntentStatus(*job.PaymentIntentID, services.IntentCanceled)

	job, err := f.service.Capture(f.ctx, f.job.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotCapturable)
	assert.Equal(t, PaymentStatusFailed, job.PaymentStatus)
	require.NotNil(t, job.PaymentFailureReason)
	assert.Contains(t, *job.PaymentFailureReason, "canceled")
}

func TestPaymentService_CaptureWithoutIntent(t *testing.T) {
	f := setupPayments(t)

	job, err := f.service.Capture(f.ctx, f.job.ID)
	assert.ErrorIs(t, err, types.ErrNotCapturable)
	assert.Equal(t, PaymentStatusFailed, job.PaymentStatus)
	assert.Equal(t, 0, f.provider.CallCount("RetrievePaymentIntent"))
}

func TestPaymentService_TransferBlockedUntilOnboarded(t *testing.T) {
	f := setupPayments(t)
	f.capture(t)
	cleaner := f.assignCleaner(t, "acct_cleaner", false)
	f.provider.AddAccount(services.ConnectAccount{ID: "acct_cleaner", DetailsSubmitted: true})

	job, err := f.service.Transfer(f.ctx, f.job.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPayoutBlocked)
	assert.Equal(t, PayoutStatusPending, job.PayoutStatus)
	require.NotNil(t, job.PayoutPendingReason)
	assert.Equal(t, 0, f.provider.CallCount("CreateTransfer"))

	reloaded := testutil.ReloadCleaner(t, f.db, cleaner.ID)
	require.NotNil(t, reloaded.ConnectAccountStatus)
	assert.Equal(t, ConnectStatusRestricted, *reloaded.ConnectAccountStatus)

	f.provider.Accounts["acct_cleaner"].ChargesEnabled = true

	job, err = f.service.Transfer(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, PayoutStatusPaid, job.PayoutStatus)
	require.NotNil(t, job.TransferID)
	assert.NotNil(t, job.PayoutDate)
	assert.Nil(t, job.PayoutPendingReason)

	transfer := f.provider.Transfers["job_"+f.job.ID.String()]
	require.NotNil(t, transfer)
	assert.Equal(t, int64(85000), transfer.Amount)

	_, err = f.service.Transfer(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.provider.CallCount("CreateTransfer"))

	reloaded = testutil.ReloadCleaner(t, f.db, cleaner.ID)
	assert.True(t, reloaded.ChargesEnabled)
	assert.Equal(t, ConnectStatusActive, *reloaded.ConnectAccountStatus)
}

func TestPaymentService_TransferRequiresCapturedPayment(t *testing.T) {
	f := setupPayments(t)
	f.authorize(t)
	f.assignCleaner(t, "acct_ready", true)
	f.provider.AddAccount(services.ConnectAccount{ID: "acct_ready", ChargesEnabled: true})

	job, err := f.service.Transfer(f.ctx, f.job.ID)
	assert.ErrorIs(t, err, types.ErrPayoutBlocked)
	assert.Equal(t, PayoutStatusPending, job.PayoutStatus)
	assert.Equal(t, 0, f.provider.CallCount("RetrieveConnectAccount"))
}

func TestPaymentService_TransferWithoutConnectAccount(t *testing.T) {
	f := setupPayments(t)
	f.capture(t)
	f.assignCleaner(t, "", false)

	job, err := f.service.Transfer(f.ctx, f.job.ID)
	assert.ErrorIs(t, err, types.ErrPayoutBlocked)
	require.NotNil(t, job.PayoutPendingReason)
	assert.Contains(t, *job.PayoutPendingReason, "payout account")
}

func TestPaymentService_TransferRecoversExistingTransfer(t *testing.T) {
	f := setupPayments(t)
	f.capture(t)
	f.assignCleaner(t, "acct_ready", true)
	f.provider.AddAccount(services.ConnectAccount{ID: "acct_ready", ChargesEnabled: true})
	f.provider.Transfers["job_"+f.job.ID.String()] = &services.Transfer{
		ID:          "tr_previous",
		Amount:      85000,
		Destination: "acct_ready",
	}

	job, err := f.service.Transfer(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, PayoutStatusPaid, job.PayoutStatus)
	assert.Equal(t, "tr_previous", *job.TransferID)
	assert.Equal(t, 0, f.provider.CallCount("CreateTransfer"))
}

func TestPaymentService_RefundCapturedPayment(t *testing.T) {
	f := setupPayments(t)
	f.capture(t)

	job, err := f.service.RefundOrVoid(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusRefunded, job.PaymentStatus)
	assert.Equal(t, 1, f.provider.CallCount("CreateRefund"))
	assert.Equal(t, 0, f.provider.CallCount("CancelPaymentIntent"))

	_, err = f.service.RefundOrVoid(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.provider.CallCount("CreateRefund"))
}

func TestPaymentService_VoidAuthorizedPayment(t *testing.T) {
	f := setupPayments(t)
	f.authorize(t)

	job, err := f.service.RefundOrVoid(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusRefunded, job.PaymentStatus)
	assert.Equal(t, 1, f.provider.CallCount("CancelPaymentIntent"))
	assert.Equal(t, 0, f.provider.CallCount("CreateRefund"))
	assert.Equal(t, services.IntentCanceled, f.provider.Intents[*job.PaymentIntentID].Status)
}

func TestPaymentService_RefundPendingPayment(t *testing.T) {
	f := setupPayments(t)

	_, err := f.service.RefundOrVoid(f.ctx, f.job.ID)
	assert.ErrorIs(t, err, types.ErrNotRefundable)
}

func TestPaymentService_RefundProviderFailure(t *testing.T) {
	f := setupPayments(t)
	f.capture(t)
	f.provider.FailNext["CreateRefund"] = &services.ProviderError{Type: "api_error", Message: "try again"}

	job, err := f.service.RefundOrVoid(f.ctx, f.job.ID)
	assert.ErrorIs(t, err, types.ErrProviderError)
	assert.Equal(t, PaymentStatusPaid, job.PaymentStatus)

	job, err = f.service.RefundOrVoid(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusRefunded, job.PaymentStatus)
}

func TestPaymentService_ReleasePayment(t *testing.T) {
	t.Run("unconfirmed intent is voided and stays pending", func(t *testing.T) {
		f := setupPayments(t)
		result, err := f.service.Authorize(f.ctx, f.job.ID, f.landlord, "")
		require.NoError(t, err)

		job, err := f.service.ReleasePayment(f.ctx, f.job.ID)
		require.NoError(t, err)
		assert.Equal(t, PaymentStatusPending, job.PaymentStatus)
		assert.Equal(t, services.IntentCanceled, f.provider.Intents[result.PaymentIntentID].Status)
	})

	t.Run("authorized after the caller read the job is still voided", func(t *testing.T) {
		f := setupPayments(t)
		stale := testutil.ReloadJob(t, f.db, f.job.ID)
		require.Equal(t, PaymentStatusPending, stale.PaymentStatus)
		f.authorize(t)

		job, err := f.service.ReleasePayment(f.ctx, f.job.ID)
		require.NoError(t, err)
		assert.Equal(t, PaymentStatusRefunded, job.PaymentStatus)
		assert.Equal(t, services.IntentCanceled, f.provider.Intents[*job.PaymentIntentID].Status)
	})

	t.Run("nothing to release without an intent", func(t *testing.T) {
		f := setupPayments(t)

		job, err := f.service.ReleasePayment(f.ctx, f.job.ID)
		require.NoError(t, err)
		assert.Equal(t, PaymentStatusPending, job.PaymentStatus)
		assert.Equal(t, 0, f.provider.CallCount("CancelPaymentIntent"))
	})
}

// A hold confirmed client side is never recorded on a cancelled job; the
// provider hold is released instead.
func TestPaymentService_HoldOnCancelledJobIsVoided(t *testing.T) {
	f := setupPayments(t)
	result, err := f.service.Authorize(f.ctx, f.job.ID, f.landlord, "")
	require.NoError(t, err)
	f.provider.SetIntentStatus(result.PaymentIntentID, services.IntentRequiresCapture)

	require.NoError(t, f.db.SQL.Model(&CleaningJob{}).
		Where("id = ?", f.job.ID).
		Update("status", JobStatusCancelled).Error)

	synced, err := f.service.SyncAuthorization(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, synced.PaymentStatus)
	assert.Equal(t, PaymentStatusPending, testutil.ReloadJob(t, f.db, f.job.ID).PaymentStatus)
	assert.Equal(t, services.IntentCanceled, f.provider.Intents[result.PaymentIntentID].Status)

	// the voided intent is not reported as a failed payment either
	synced, err = f.service.SyncAuthorization(f.ctx, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, synced.PaymentStatus)
}

func TestPaymentService_HandleWebhook(t *testing.T) {
	t.Run("amount capturable marks authorized", func(t *testing.T) {
		f := setupPayments(t)
		result, err := f.service.Authorize(f.ctx, f.job.ID, f.landlord, "")
		require.NoError(t, err)
		f.provider.SetIntentStatus(result.PaymentIntentID, services.IntentRequiresCapture)

		err = f.service.HandleWebhook(f.ctx, &services.WebhookEvent{
			ID:   "evt_1",
			Type: "payment_intent.amount_capturable_updated",
			PaymentIntent: &services.PaymentIntent{
				ID:     result.PaymentIntentID,
				Status: services.IntentRequiresCapture,
			},
		})
		require.NoError(t, err)
		assert.Equal(t, PaymentStatusAuthorized, testutil.ReloadJob(t, f.db, f.job.ID).PaymentStatus)
	})

	t.Run("stale capturable event follows the live intent", func(t *testing.T) {
		f := setupPayments(t)
		result, err := f.service.Authorize(f.ctx, f.job.ID, f.landlord, "")
		require.NoError(t, err)

		err = f.service.HandleWebhook(f.ctx, &services.WebhookEvent{
			ID:   "evt_stale",
			Type: "payment_intent.amount_capturable_updated",
			PaymentIntent: &services.PaymentIntent{
				ID:     result.PaymentIntentID,
				Status: services.IntentRequiresCapture,
			},
		})
		require.NoError(t, err)
		assert.Equal(t, PaymentStatusPending, testutil.ReloadJob(t, f.db, f.job.ID).PaymentStatus)
		assert.Equal(t, 1, f.provider.CallCount("RetrievePaymentIntent"))
	})

	t.Run("payment failed stores reason", func(t *testing.T) {
		f := setupPayments(t)
		result, err := f.service.Authorize(f.ctx, f.job.ID, f.landlord, "")
		require.NoError(t, err)

		err = f.service.HandleWebhook(f.ctx, &services.WebhookEvent{
			ID:   "evt_2",
			Type: "payment_intent.payment_failed",
			PaymentIntent: &services.PaymentIntent{
				ID:        result.PaymentIntentID,
				Status:    services.IntentRequiresPaymentMethod,
				LastError: "insufficient funds",
			},
		})
		require.NoError(t, err)

		job := testutil.ReloadJob(t, f.db, f.job.ID)
		assert.Equal(t, PaymentStatusFailed, job.PaymentStatus)
		assert.Equal(t, "insufficient funds", *job.PaymentFailureReason)
	})

	t.Run("account updated refreshes cleaner", func(t *testing.T) {
		f := setupPayments(t)
		_, cleaner := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "acct_hook", false)

		err := f.service.HandleWebhook(f.ctx, &services.WebhookEvent{
			ID:   "evt_3",
			Type: "account.updated",
			Account: &services.ConnectAccount{
				ID:             "acct_hook",
				ChargesEnabled: true,
				PayoutsEnabled: true,
				PayoutSchedule: "weekly",
				BankSummary:    "DNB ****4321",
			},
		})
		require.NoError(t, err)

		reloaded := testutil.ReloadCleaner(t, f.db, cleaner.ID)
		assert.True(t, reloaded.ChargesEnabled)
		assert.Equal(t, ConnectStatusActive, *reloaded.ConnectAccountStatus)
		assert.Equal(t, "DNB ****4321", *reloaded.BankSummary)
	})

	t.Run("unknown objects are ignored", func(t *testing.T) {
		f := setupPayments(t)

		err := f.service.HandleWebhook(f.ctx, &services.WebhookEvent{
			ID:            "evt_4",
			Type:          "payment_intent.payment_failed",
			PaymentIntent: &services.PaymentIntent{ID: "pi_unknown"},
		})
		assert.NoError(t, err)
	})
}

func TestPaymentService_SyncPaymentMethods(t *testing.T) {
	f := setupPayments(t)

	methods, err := f.service.SyncPaymentMethods(f.ctx, f.landlord)
	require.NoError(t, err)
	assert.Empty(t, methods)
	assert.Equal(t, 0, f.provider.CallCount("ListPaymentMethods"))

	customer, err := f.service.EnsureCustomer(f.ctx, f.landlord)
	require.NoError(t, err)
	f.provider.PaymentMethods[customer.ProviderCustomerID] = []services.SavedPaymentMethod{
		{ID: "pm_1", Brand: "visa", Last4: "4242", ExpMonth: 12, ExpYear: 2030},
		{ID: "pm_2", Brand: "mastercard", Last4: "4444", ExpMonth: 1, ExpYear: 2029},
	}

	methods, err = f.service.SyncPaymentMethods(f.ctx, f.landlord)
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.True(t, methods[0].IsDefault)

	f.provider.PaymentMethods[customer.ProviderCustomerID] = []services.SavedPaymentMethod{
		{ID: "pm_2", Brand: "mastercard", Last4: "4444", ExpMonth: 1, ExpYear: 2029},
	}
	_, err = f.service.SyncPaymentMethods(f.ctx, f.landlord)
	require.NoError(t, err)

	stored, err := f.repos.PaymentMethod.GetByUserID(f.ctx, f.db.SQL, f.landlord.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "pm_2", stored[0].ProviderPaymentMethodID)
}

func TestPaymentService_ConnectOnboarding(t *testing.T) {
	f := setupPayments(t)
	_, cleaner := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)

	_, err := f.service.CreateOnboardingLink(f.ctx, cleaner, "https://app/refresh", "https://app/return")
	assert.ErrorIs(t, err, types.Validation(""))

	account, err := f.service.CreateConnectAccount(f.ctx, cleaner, "cleaner@example.no")
	require.NoError(t, err)
	cleaner.ConnectAccountID = &account.ID

	url, err := f.service.CreateOnboardingLink(f.ctx, cleaner, "https://app/refresh", "https://app/return")
	require.NoError(t, err)
	assert.Contains(t, url, account.ID)

	assert.Len(t, auditFor(t, f.db, services.OpCreateConnectAccount), 1)
	assert.Len(t, auditFor(t, f.db, services.OpCreateOnboardingLink), 1)
}

func TestConnectStatusFor(t *testing.T) {
	tests := []struct {
		name    string
		account services.ConnectAccount
		want    ConnectAccountStatus
	}{
		{"charges enabled", services.ConnectAccount{ChargesEnabled: true, DetailsSubmitted: true}, ConnectStatusActive},
		{"disabled", services.ConnectAccount{DisabledReason: "rejected.fraud"}, ConnectStatusDisabled},
		{"details submitted", services.ConnectAccount{DetailsSubmitted: true}, ConnectStatusRestricted},
		{"nothing yet", services.ConnectAccount{}, ConnectStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, services.ConnectStatusFor(&tt.account))
		})
	}
}
