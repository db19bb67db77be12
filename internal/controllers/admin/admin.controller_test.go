package adminController

import (
	"context"
	"testing"

	"cleanbook/config"
	"cleanbook/internal/database"
	. "cleanbook/internal/models"
	"cleanbook/internal/repositories"
	"cleanbook/internal/services"
	"cleanbook/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (context.Context, database.DB, *testutil.FakeProvider, AdminControllerInterface) {
	t.Helper()

	db := testutil.NewDB(t)
	repos := repositories.New(db)
	provider := testutil.NewFakeProvider()
	svc := services.Service{
		Transaction: services.NewTransactionService(db),
		Payment: services.NewPaymentService(db, repos, provider, config.Config{
			StripeCurrency:       "nok",
			StripeConnectCountry: "NO",
		}),
	}
	return context.Background(), db, provider, New(repos, svc, db)
}

// capturedJob stores a completed job whose payment was captured and whose
// payout is still pending.
func capturedJob(t *testing.T, db database.DB, cleaner *Cleaner) *CleaningJob {
	t.Helper()

	user, landlord := testutil.CreateLandlord(t, db)
	property := testutil.CreateProperty(t, db, user, 45)
	job := testutil.CreateJob(t, db, landlord, property, JobStatusCompleted, 1400)
	require.NoError(t, db.SQL.Model(&CleaningJob{}).Where("id = ?", job.ID).Updates(map[string]any{
		"payment_status":      PaymentStatusPaid,
		"assigned_cleaner_id": cleaner.ID,
	}).Error)
	return testutil.ReloadJob(t, db, job.ID)
}

func TestRetryPendingPayouts(t *testing.T) {
	ctx, db, provider, controller := setup(t)

	_, ready := testutil.CreateCleaner(t, db, CleanerStatusApproved, "acct_ready", true)
	provider.AddAccount(services.ConnectAccount{ID: "acct_ready", ChargesEnabled: true, PayoutsEnabled: true})
	_, onboarding := testutil.CreateCleaner(t, db, CleanerStatusApproved, "acct_onboarding", false)
	provider.AddAccount(services.ConnectAccount{ID: "acct_onboarding"})

	paid := capturedJob(t, db, ready)
	blocked := capturedJob(t, db, onboarding)

	awaiting, err := controller.ListAwaitingPayout(ctx)
	require.NoError(t, err)
	assert.Len(t, awaiting, 2)

	summary, err := controller.RetryPendingPayouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, &PayoutRetrySummary{Attempted: 2, PaidOut: 1, Blocked: 1}, summary)

	assert.Equal(t, PayoutStatusPaid, testutil.ReloadJob(t, db, paid.ID).PayoutStatus)
	stillPending := testutil.ReloadJob(t, db, blocked.ID)
	assert.Equal(t, PayoutStatusPending, stillPending.PayoutStatus)
	require.NotNil(t, stillPending.PayoutPendingReason)
	assert.Equal(t, 1, provider.CallCount("CreateTransfer"))

	// the paid job drops out of the next pass
	summary, err = controller.RetryPendingPayouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, provider.CallCount("CreateTransfer"))
}

func TestRetryPendingPayouts_Nothing(t *testing.T) {
	ctx, _, provider, controller := setup(t)

	summary, err := controller.RetryPendingPayouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, &PayoutRetrySummary{}, summary)
	assert.Empty(t, provider.Calls)
}

func TestReconcileRequests(t *testing.T) {
	ctx, db, _, controller := setup(t)

	user, landlord := testutil.CreateLandlord(t, db)
	property := testutil.CreateProperty(t, db, user, 45)
	open := testutil.CreateJob(t, db, landlord, property, JobStatusRequested, 1400)
	confirmed := testutil.CreateJob(t, db, landlord, property, JobStatusConfirmed, 1400)
	cancelled := testutil.CreateJob(t, db, landlord, property, JobStatusCancelled, 1400)

	fresh := &CleanerRequest{JobID: open.ID, CleanerID: uuid.New(), Status: RequestStatusPending}
	staleConfirmed := &CleanerRequest{JobID: confirmed.ID, CleanerID: uuid.New(), Status: RequestStatusPending}
	staleCancelled := &CleanerRequest{JobID: cancelled.ID, CleanerID: uuid.New(), Status: RequestStatusPending}
	accepted := &CleanerRequest{JobID: confirmed.ID, CleanerID: uuid.New(), Status: RequestStatusAccepted}
	for _, request := range []*CleanerRequest{fresh, staleConfirmed, staleCancelled, accepted} {
		require.NoError(t, db.SQL.Omit("Cleaner").Create(request).Error)
	}

	declined, err := controller.ReconcileRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, declined)

	status := func(id uuid.UUID) RequestStatus {
		var request CleanerRequest
		require.NoError(t, db.SQL.First(&request, "id = ?", id).Error)
		return request.Status
	}
	assert.Equal(t, RequestStatusPending, status(fresh.ID))
	assert.Equal(t, RequestStatusDeclined, status(staleConfirmed.ID))
	assert.Equal(t, RequestStatusDeclined, status(staleCancelled.ID))
	assert.Equal(t, RequestStatusAccepted, status(accepted.ID))

	declined, err = controller.ReconcileRequests(ctx)
	require.NoError(t, err)
	assert.Zero(t, declined)
}
