package jobsController

import (
	"context"
	"sync"
	"testing"
	"time"

	"cleanbook/config"
	"cleanbook/internal/database"
	"cleanbook/internal/events"
	. "cleanbook/internal/models"
	"cleanbook/internal/repositories"
	"cleanbook/internal/services"
	"cleanbook/internal/testutil"
	"cleanbook/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(channel events.Channel, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	event.Channel = channel
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) actions() []events.JobAction {
	p.mu.Lock()
	defer p.mu.Unlock()

	actions := make([]events.JobAction, 0, len(p.events))
	for _, event := range p.events {
		actions = append(actions, event.Data["action"].(events.JobAction))
	}
	return actions
}

func (p *recordingPublisher) last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type fixture struct {
	ctx          context.Context
	db           database.DB
	provider     *testutil.FakeProvider
	publisher    *recordingPublisher
	controller   *JobsController
	landlordUser *User
	landlord     *Landlord
	property     *Property
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	testutil.SeedPricing(t, db, ServiceTypeBnbCleaning, 1000)

	repos := repositories.New(db)
	provider := testutil.NewFakeProvider()
	publisher := &recordingPublisher{}
	svc := services.Service{
		Transaction: services.NewTransactionService(db),
		Pricing:     services.NewPricingService(db, repos.ServicePricing, 15),
		Payment: services.NewPaymentService(db, repos, provider, config.Config{
			StripeCurrency:       "nok",
			StripeConnectCountry: "NO",
		}),
	}

	user, landlord := testutil.CreateLandlord(t, db)
	return &fixture{
		ctx:          context.Background(),
		db:           db,
		provider:     provider,
		publisher:    publisher,
		controller:   New(repos, svc, publisher, db).(*JobsController),
		landlordUser: user,
		landlord:     landlord,
		property:     testutil.CreateProperty(t, db, user, 45),
	}
}

func (f *fixture) createJob(t *testing.T) *CleaningJob {
	t.Helper()

	job, err := f.controller.CreateJob(f.ctx, f.landlordUser, CreateJobRequest{
		PropertyID:    f.property.ID,
		ServiceType:   ServiceTypeBnbCleaning,
		ScheduledDate: time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	return job
}

func (f *fixture) request(t *testing.T, job *CleaningJob, cleanerUser *User) *CleanerRequest {
	t.Helper()

	request, err := f.controller.SubmitRequest(f.ctx, cleanerUser, job.ID, nil)
	require.NoError(t, err)
	return request
}

// assigned walks a fresh job to confirmed with the given cleaner.
func (f *fixture) assigned(t *testing.T, cleanerUser *User) *CleaningJob {
	t.Helper()

	job := f.createJob(t)
	request := f.request(t, job, cleanerUser)
	job, err := f.controller.AcceptRequest(f.ctx, f.landlordUser, job.ID, request.ID)
	require.NoError(t, err)
	return job
}

func (f *fixture) requestStatus(t *testing.T, id uuid.UUID) RequestStatus {
	t.Helper()

	var request CleanerRequest
	require.NoError(t, f.db.SQL.First(&request, "id = ?", id).Error)
	return request.Status
}

func TestCreateJob_ResolvesBucketPrice(t *testing.T) {
	f := setup(t)

	job := f.createJob(t)

	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, PaymentStatusPending, job.PaymentStatus)
	assert.Equal(t, PayoutStatusPending, job.PayoutStatus)
	assert.True(t, decimal.NewFromInt(1400).Equal(job.TotalPrice), job.TotalPrice.String())
	assert.True(t, job.Price.Equal(job.TotalPrice))
	assert.True(t, job.PricePerDate.Equal(job.TotalPrice))
	assert.True(t, decimal.NewFromInt(210).Equal(job.PlatformFee), job.PlatformFee.String())
	assert.True(t, decimal.NewFromInt(1190).Equal(job.CleanerPayout), job.CleanerPayout.String())

	stored := testutil.ReloadJob(t, f.db, job.ID)
	assert.Equal(t, f.landlord.ID, stored.LandlordID)
	assert.Equal(t, []events.JobAction{events.JobCreated}, f.publisher.actions())
	assert.Equal(t, []uuid.UUID{f.landlordUser.ID}, f.publisher.last().Recipients)
}

func TestCreateJob_Validation(t *testing.T) {
	f := setup(t)
	otherUser, _ := testutil.CreateLandlord(t, f.db)
	otherProperty := testutil.CreateProperty(t, f.db, otherUser, 30)
	tooLarge := testutil.CreateProperty(t, f.db, f.landlordUser, 301)

	testCases := []struct {
		name string
		req  CreateJobRequest
		want error
	}{
		{
			name: "missing property",
			req:  CreateJobRequest{ServiceType: ServiceTypeBnbCleaning, ScheduledDate: time.Now()},
			want: types.Validation(""),
		},
		{
			name: "property of another landlord",
			req: CreateJobRequest{
				PropertyID:    otherProperty.ID,
				ServiceType:   ServiceTypeBnbCleaning,
				ScheduledDate: time.Now(),
			},
			want: types.Validation(""),
		},
		{
			name: "unknown service type",
			req: CreateJobRequest{
				PropertyID:    f.property.ID,
				ServiceType:   "window-washing",
				ScheduledDate: time.Now(),
			},
			want: types.Validation(""),
		},
		{
			name: "size outside the price table",
			req: CreateJobRequest{
				PropertyID:    tooLarge.ID,
				ServiceType:   ServiceTypeBnbCleaning,
				ScheduledDate: time.Now(),
			},
			want: types.Validation(""),
		},
		{
			name: "service type without prices",
			req: CreateJobRequest{
				PropertyID:    f.property.ID,
				ServiceType:   ServiceTypeDeepCleaning,
				ScheduledDate: time.Now(),
			},
			want: types.ErrPricingNotConfigured,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			job, err := f.controller.CreateJob(f.ctx, f.landlordUser, tc.req)
			assert.Nil(t, job)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	var count int64
	require.NoError(t, f.db.SQL.Model(&CleaningJob{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateJob_NormalizesSchedule(t *testing.T) {
	f := setup(t)
	oslo := time.FixedZone("CEST", 2*60*60)
	scheduledTime := "9.30"
	instructions := "  Nøkkel i postkassen \x00"

	job, err := f.controller.CreateJob(f.ctx, f.landlordUser, CreateJobRequest{
		PropertyID:          f.property.ID,
		ServiceType:         ServiceTypeBnbCleaning,
		ScheduledDate:       time.Date(2026, 6, 1, 0, 30, 0, 0, oslo),
		ScheduledTime:       &scheduledTime,
		SpecialInstructions: &instructions,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), job.ScheduledDate)
	require.NotNil(t, job.ScheduledTime)
	assert.Equal(t, "09:30", *job.ScheduledTime)
	require.NotNil(t, job.SpecialInstructions)
	assert.Equal(t, "Nøkkel i postkassen", *job.SpecialInstructions)

	invalid := "kl 25"
	_, err = f.controller.CreateJob(f.ctx, f.landlordUser, CreateJobRequest{
		PropertyID:    f.property.ID,
		ServiceType:   ServiceTypeBnbCleaning,
		ScheduledDate: time.Now(),
		ScheduledTime: &invalid,
	})
	assert.ErrorIs(t, err, types.Validation(""))
}

func TestCreateJob_RequiresLandlord(t *testing.T) {
	f := setup(t)
	cleanerUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)

	_, err := f.controller.CreateJob(f.ctx, cleanerUser, CreateJobRequest{
		PropertyID:    f.property.ID,
		ServiceType:   ServiceTypeBnbCleaning,
		ScheduledDate: time.Now(),
	})
	assert.ErrorIs(t, err, types.Forbidden(""))
}

func TestSubmitRequest(t *testing.T) {
	f := setup(t)
	job := f.createJob(t)
	cleanerUser, cleaner := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)

	message := "  Kan komme tidlig  "
	request, err := f.controller.SubmitRequest(f.ctx, cleanerUser, job.ID, &message)
	require.NoError(t, err)
	assert.Equal(t, RequestStatusPending, request.Status)
	assert.Equal(t, cleaner.ID, request.CleanerID)
	require.NotNil(t, request.Message)
	assert.Equal(t, "Kan komme tidlig", *request.Message)
	assert.Equal(t, JobStatusRequested, testutil.ReloadJob(t, f.db, job.ID).Status)

	_, err = f.controller.SubmitRequest(f.ctx, cleanerUser, job.ID, nil)
	assert.ErrorIs(t, err, types.ErrDuplicateRequest)

	recipients := f.publisher.last().Recipients
	assert.ElementsMatch(t, []uuid.UUID{f.landlordUser.ID, cleanerUser.ID}, recipients)
}

func TestSubmitRequest_Guards(t *testing.T) {
	f := setup(t)
	job := f.createJob(t)

	pausedUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusPaused, "", false)
	_, err := f.controller.SubmitRequest(f.ctx, pausedUser, job.ID, nil)
	assert.ErrorIs(t, err, types.Forbidden(""))

	_, err = f.controller.SubmitRequest(f.ctx, f.landlordUser, job.ID, nil)
	assert.ErrorIs(t, err, types.Forbidden(""))

	cleanerUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)
	confirmed := testutil.CreateJob(t, f.db, f.landlord, f.property, JobStatusConfirmed, 1000)
	_, err = f.controller.SubmitRequest(f.ctx, cleanerUser, confirmed.ID, nil)
	assert.ErrorIs(t, err, types.InvalidTransition("", ""))
}

func TestWithdrawRequest_ReopensJob(t *testing.T) {
	f := setup(t)
	job := f.createJob(t)
	cleanerUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)
	otherUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)

	first := f.request(t, job, cleanerUser)
	second := f.request(t, job, otherUser)

	_, err := f.controller.WithdrawRequest(f.ctx, otherUser, job.ID, first.ID)
	assert.ErrorIs(t, err, types.Forbidden(""))

	withdrawn, err := f.controller.WithdrawRequest(f.ctx, cleanerUser, job.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestStatusWithdrawn, withdrawn.Status)
	assert.NotNil(t, withdrawn.RespondedAt)
	assert.Equal(t, JobStatusRequested, testutil.ReloadJob(t, f.db, job.ID).Status)

	_, err = f.controller.WithdrawRequest(f.ctx, otherUser, job.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, testutil.ReloadJob(t, f.db, job.ID).Status)

	_, err = f.controller.WithdrawRequest(f.ctx, cleanerUser, job.ID, first.ID)
	assert.ErrorIs(t, err, types.InvalidTransition("", ""))

	// a withdrawn request no longer blocks a new one
	again := f.request(t, job, cleanerUser)
	assert.Equal(t, RequestStatusPending, again.Status)
}

func TestDeclineRequest(t *testing.T) {
	f := setup(t)
	job := f.createJob(t)
	cleanerUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)
	request := f.request(t, job, cleanerUser)

	_, err := f.controller.DeclineRequest(f.ctx, cleanerUser, job.ID, request.ID)
	assert.ErrorIs(t, err, types.Forbidden(""))

	declined, err := f.controller.DeclineRequest(f.ctx, f.landlordUser, job.ID, request.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestStatusDeclined, declined.Status)
	assert.Equal(t, JobStatusPending, testutil.ReloadJob(t, f.db, job.ID).Status)
	assert.Contains(t, f.publisher.last().Recipients, cleanerUser.ID)
}

// Two cleaners request, the landlord picks the first, the second can no
// longer be accepted.
func TestAcceptRequest_AssignsOneCleaner(t *testing.T) {
	f := setup(t)
	job := f.createJob(t)
	firstUser, first := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)
	secondUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)

	request1 := f.request(t, job, firstUser)
	request2 := f.request(t, job, secondUser)

	accepted, err := f.controller.AcceptRequest(f.ctx, f.landlordUser, job.ID, request1.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusConfirmed, accepted.Status)
	require.NotNil(t, accepted.AssignedCleanerID)
	assert.Equal(t, first.ID, *accepted.AssignedCleanerID)

	assert.Equal(t, RequestStatusAccepted, f.requestStatus(t, request1.ID))
	assert.Equal(t, RequestStatusDeclined, f.requestStatus(t, request2.ID))

	_, err = f.controller.AcceptRequest(f.ctx, f.landlordUser, job.ID, request2.ID)
	assert.ErrorIs(t, err, types.ErrAlreadyAssigned)

	stored := testutil.ReloadJob(t, f.db, job.ID)
	assert.Equal(t, first.ID, *stored.AssignedCleanerID)

	event := f.publisher.last()
	assert.Equal(t, events.JobAccepted, event.Data["action"])
	assert.ElementsMatch(t, []uuid.UUID{f.landlordUser.ID, firstUser.ID, secondUser.ID}, event.Recipients)
}

func TestAcceptRequest_ConcurrentAcceptsAssignOnce(t *testing.T) {
	f := setup(t)
	job := f.createJob(t)

	requests := make([]*CleanerRequest, 0, 4)
	for range 4 {
		user, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)
		requests = append(requests, f.request(t, job, user))
	}

	var wg sync.WaitGroup
	results := make([]error, len(requests))
	for i, request := range requests {
		wg.Add(1)
		go func(i int, requestID uuid.UUID) {
			defer wg.Done()
			_, results[i] = f.controller.AcceptRequest(f.ctx, f.landlordUser, job.ID, requestID)
		}(i, request.ID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, types.ErrAlreadyAssigned)
	}
	assert.Equal(t, 1, succeeded)

	var acceptedCount int64
	require.NoError(t, f.db.SQL.Model(&CleanerRequest{}).
		Where("job_id = ? AND status = ?", job.ID, RequestStatusAccepted).
		Count(&acceptedCount).Error)
	assert.Equal(t, int64(1), acceptedCount)
}

func TestAcceptRequest_OnlyOwner(t *testing.T) {
	f := setup(t)
	job := f.createJob(t)
	cleanerUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)
	request := f.request(t, job, cleanerUser)
	otherUser, _ := testutil.CreateLandlord(t, f.db)

	_, err := f.controller.AcceptRequest(f.ctx, otherUser, job.ID, request.ID)
	assert.ErrorIs(t, err, types.Forbidden(""))
	assert.Equal(t, JobStatusRequested, testutil.ReloadJob(t, f.db, job.ID).Status)
}

func TestAcceptRequest_SuspendedCleanerRollsBack(t *testing.T) {
	f := setup(t)
	job := f.createJob(t)
	cleanerUser, cleaner := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)
	request := f.request(t, job, cleanerUser)

	require.NoError(t, f.db.SQL.Model(&Cleaner{}).
		Where("id = ?", cleaner.ID).
		Update("status", CleanerStatusSuspended).Error)

	_, err := f.controller.AcceptRequest(f.ctx, f.landlordUser, job.ID, request.ID)
	assert.ErrorIs(t, err, types.Validation(""))

	stored := testutil.ReloadJob(t, f.db, job.ID)
	assert.Equal(t, JobStatusRequested, stored.Status)
	assert.Nil(t, stored.AssignedCleanerID)
	assert.Equal(t, RequestStatusPending, f.requestStatus(t, request.ID))
}

func TestStartAndComplete_OnlyAssignedCleaner(t *testing.T) {
	f := setup(t)
	cleanerUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)
	otherUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)
	job := f.assigned(t, cleanerUser)

	_, err := f.controller.StartJob(f.ctx, otherUser, job.ID)
	assert.ErrorIs(t, err, types.Forbidden(""))

	_, err = f.controller.CompleteJob(f.ctx, cleanerUser, job.ID)
	assert.ErrorIs(t, err, types.InvalidTransition("", ""))

	started, err := f.controller.StartJob(f.ctx, cleanerUser, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusInProgress, started.Status)
	assert.NotNil(t, started.StartedAt)

	_, err = f.controller.StartJob(f.ctx, cleanerUser, job.ID)
	assert.ErrorIs(t, err, types.InvalidTransition("", ""))
}

// Completion without an authorized payment keeps the work status and
// records why nothing can be paid out.
func TestCompleteJob_WithoutPayment(t *testing.T) {
	f := setup(t)
	cleanerUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)
	job := f.assigned(t, cleanerUser)
	_, err := f.controller.StartJob(f.ctx, cleanerUser, job.ID)
	require.NoError(t, err)

	completed, err := f.controller.CompleteJob(f.ctx, cleanerUser, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	assert.Equal(t, PaymentStatusFailed, completed.PaymentStatus)
	require.NotNil(t, completed.PaymentFailureReason)
	require.NotNil(t, completed.PayoutPendingReason)
	assert.Equal(t, PayoutStatusPending, completed.PayoutStatus)
}

// Capture succeeds, the payout is held until the cleaner finishes
// onboarding, and the job stays completed.
func TestCompleteJob_PayoutBlockedUntilOnboarded(t *testing.T) {
	f := setup(t)
	cleanerUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "acct_cleaner", false)
	f.provider.AddAccount(services.ConnectAccount{ID: "acct_cleaner"})
	job := f.assigned(t, cleanerUser)

	result, err := f.controller.AuthorizePayment(f.ctx, f.landlordUser, job.ID, "pm_card_visa")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusAuthorized, result.PaymentStatus)

	_, err = f.controller.StartJob(f.ctx, cleanerUser, job.ID)
	require.NoError(t, err)
	completed, err := f.controller.CompleteJob(f.ctx, cleanerUser, job.ID)
	require.NoError(t, err)

	assert.Equal(t, JobStatusCompleted, completed.Status)
	assert.Equal(t, PaymentStatusPaid, completed.PaymentStatus)
	assert.Equal(t, PayoutStatusPending, completed.PayoutStatus)
	require.NotNil(t, completed.PayoutPendingReason)
	assert.Equal(t, 1, f.provider.CallCount("CapturePaymentIntent"))
	assert.Equal(t, 0, f.provider.CallCount("CreateTransfer"))

	f.provider.Accounts["acct_cleaner"].ChargesEnabled = true
	paidOut, err := f.controller.TransferPayout(f.ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, PayoutStatusPaid, paidOut.PayoutStatus)
	assert.Equal(t, JobStatusCompleted, paidOut.Status)

	transfer := f.provider.Transfers["job_"+job.ID.String()]
	require.NotNil(t, transfer)
	assert.Equal(t, int64(119000), transfer.Amount)
}

func TestCompleteJob_PaysOut(t *testing.T) {
	f := setup(t)
	cleanerUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "acct_ready", true)
	f.provider.AddAccount(services.ConnectAccount{ID: "acct_ready", ChargesEnabled: true, PayoutsEnabled: true})
	job := f.assigned(t, cleanerUser)

	_, err := f.controller.AuthorizePayment(f.ctx, f.landlordUser, job.ID, "pm_card_visa")
	require.NoError(t, err)
	_, err = f.controller.StartJob(f.ctx, cleanerUser, job.ID)
	require.NoError(t, err)

	completed, err := f.controller.CompleteJob(f.ctx, cleanerUser, job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, completed.PaymentStatus)
	assert.Equal(t, PayoutStatusPaid, completed.PayoutStatus)
	require.NotNil(t, completed.TransferID)

	// a second capture attempt is a no-op
	again, err := f.controller.CapturePayment(f.ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, again.PaymentStatus)
	assert.Equal(t, 1, f.provider.CallCount("CapturePaymentIntent"))
}

// Cancelling an authorized job releases the hold and never pays out.
func TestCancelJob_RefundsAuthorizedPayment(t *testing.T) {
	f := setup(t)
	cleanerUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "acct_ready", true)
	f.provider.AddAccount(services.ConnectAccount{ID: "acct_ready", ChargesEnabled: true})

	job := testutil.CreateJob(t, f.db, f.landlord, f.property, JobStatusPending, 1000)
	request := f.request(t, job, cleanerUser)
	_, err := f.controller.AcceptRequest(f.ctx, f.landlordUser, job.ID, request.ID)
	require.NoError(t, err)

	_, err = f.controller.AuthorizePayment(f.ctx, f.landlordUser, job.ID, "pm_card_visa")
	require.NoError(t, err)

	cancelled, err := f.controller.CancelJob(f.ctx, f.landlordUser, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, PaymentStatusRefunded, cancelled.PaymentStatus)
	assert.Equal(t, 0, f.provider.CallCount("CreateTransfer"))

	intent := f.provider.Intents[*cancelled.PaymentIntentID]
	assert.Equal(t, services.IntentCanceled, intent.Status)
	assert.Equal(t, int64(100000), intent.Amount)

	_, err = f.controller.CancelJob(f.ctx, f.landlordUser, job.ID)
	assert.ErrorIs(t, err, types.InvalidTransition("", ""))
}

// The landlord confirmed the card client side but cancelled before any sync.
// The hold is voided and a late capturable event leaves the job unauthorized.
func TestCancelJob_LateAuthorizationEvent(t *testing.T) {
	f := setup(t)
	job := f.createJob(t)

	started, err := f.controller.AuthorizePayment(f.ctx, f.landlordUser, job.ID, "")
	require.NoError(t, err)
	require.Equal(t, PaymentStatusPending, started.PaymentStatus)
	f.provider.SetIntentStatus(started.PaymentIntentID, services.IntentRequiresCapture)

	cancelled, err := f.controller.CancelJob(f.ctx, f.landlordUser, job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, cancelled.PaymentStatus)
	assert.Equal(t, services.IntentCanceled, f.provider.Intents[started.PaymentIntentID].Status)

	err = f.controller.payment.HandleWebhook(f.ctx, &services.WebhookEvent{
		ID:   "evt_late",
		Type: "payment_intent.amount_capturable_updated",
		PaymentIntent: &services.PaymentIntent{
			ID:     started.PaymentIntentID,
			Status: services.IntentRequiresCapture,
		},
	})
	require.NoError(t, err)

	stored := testutil.ReloadJob(t, f.db, job.ID)
	assert.Equal(t, JobStatusCancelled, stored.Status)
	assert.Equal(t, PaymentStatusPending, stored.PaymentStatus)
}

func TestCancelJob_DeclinesPendingRequests(t *testing.T) {
	f := setup(t)
	job := f.createJob(t)
	cleanerUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)
	request := f.request(t, job, cleanerUser)

	cancelled, err := f.controller.CancelJob(f.ctx, f.landlordUser, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCancelled, cancelled.Status)
	assert.Equal(t, PaymentStatusPending, cancelled.PaymentStatus)
	assert.Equal(t, RequestStatusDeclined, f.requestStatus(t, request.ID))
	assert.Contains(t, f.publisher.last().Recipients, cleanerUser.ID)
}

func TestCancelJob_NotAfterCompletion(t *testing.T) {
	f := setup(t)
	job := testutil.CreateJob(t, f.db, f.landlord, f.property, JobStatusCompleted, 1000)

	_, err := f.controller.CancelJob(f.ctx, f.landlordUser, job.ID)
	assert.ErrorIs(t, err, types.InvalidTransition("", ""))

	admin := testutil.CreateUser(t, f.db, UserTypeLandlord)
	admin.IsAdmin = true
	_, err = f.controller.CancelJob(f.ctx, admin, job.ID)
	assert.ErrorIs(t, err, types.InvalidTransition("", ""))
}

func TestRateJob(t *testing.T) {
	f := setup(t)
	job := testutil.CreateJob(t, f.db, f.landlord, f.property, JobStatusCompleted, 1000)
	open := testutil.CreateJob(t, f.db, f.landlord, f.property, JobStatusConfirmed, 1000)

	for _, rating := range []int{0, 6} {
		_, err := f.controller.RateJob(f.ctx, f.landlordUser, job.ID, RateJobRequest{Rating: rating})
		assert.ErrorIs(t, err, types.Validation(""))
	}

	_, err := f.controller.RateJob(f.ctx, f.landlordUser, open.ID, RateJobRequest{Rating: 5})
	assert.ErrorIs(t, err, types.Validation(""))

	feedback := "Veldig grundig"
	rated, err := f.controller.RateJob(f.ctx, f.landlordUser, job.ID, RateJobRequest{Rating: 4, Feedback: &feedback})
	require.NoError(t, err)
	require.NotNil(t, rated.CleanerRating)
	assert.Equal(t, 4, *rated.CleanerRating)
	assert.Equal(t, feedback, *rated.Feedback)

	rated, err = f.controller.RateJob(f.ctx, f.landlordUser, job.ID, RateJobRequest{Rating: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, *rated.CleanerRating)
	assert.Nil(t, rated.Feedback)
}

func TestListings(t *testing.T) {
	f := setup(t)
	cleanerUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)
	otherUser, _ := testutil.CreateCleaner(t, f.db, CleanerStatusApproved, "", false)

	open := f.createJob(t)
	assigned := f.assigned(t, cleanerUser)
	f.request(t, open, otherUser)

	mine, err := f.controller.ListMine(f.ctx, f.landlordUser)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	openJobs, err := f.controller.ListOpen(f.ctx, otherUser)
	require.NoError(t, err)
	require.Len(t, openJobs, 1)
	assert.Equal(t, open.ID, openJobs[0].ID)

	assignedJobs, err := f.controller.ListAssigned(f.ctx, cleanerUser)
	require.NoError(t, err)
	require.Len(t, assignedJobs, 1)
	assert.Equal(t, assigned.ID, assignedJobs[0].ID)

	all, err := f.controller.ListRequests(f.ctx, f.landlordUser, open.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	own, err := f.controller.ListRequests(f.ctx, cleanerUser, open.ID)
	require.NoError(t, err)
	assert.Empty(t, own)

	_, err = f.controller.GetJob(f.ctx, otherUser, assigned.ID)
	assert.ErrorIs(t, err, types.NotFound(""))

	got, err := f.controller.GetJob(f.ctx, cleanerUser, assigned.ID)
	require.NoError(t, err)
	assert.Equal(t, assigned.ID, got.ID)
}
