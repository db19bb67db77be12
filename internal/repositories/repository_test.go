package repositories

import (
	"context"
	"testing"
	"time"

	"cleanbook/internal/database"
	. "cleanbook/internal/models"
	"cleanbook/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepos(t *testing.T) (Repository, database.DB) {
	t.Helper()

	db, err := database.NewSQLiteForTests()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return New(db), db
}

func newJob(landlordID, propertyID uuid.UUID, status JobStatus) *CleaningJob {
	price := decimal.NewFromInt(1000)
	return &CleaningJob{
		LandlordID:    landlordID,
		PropertyID:    propertyID,
		ServiceType:   ServiceTypeBnbCleaning,
		ScheduledDate: time.Now().Add(48 * time.Hour),
		Status:        status,
		Price:         price,
		PricePerDate:  price,
		TotalPrice:    price,
		PlatformFee:   decimal.NewFromInt(150),
		CleanerPayout: decimal.NewFromInt(850),
		PaymentStatus: PaymentStatusPending,
		PayoutStatus:  PayoutStatusPending,
	}
}

func TestCleaningJobRepository_UpdateWhereStatus(t *testing.T) {
	repos, db := setupRepos(t)
	ctx := context.Background()

	job := newJob(uuid.New(), uuid.New(), JobStatusRequested)
	require.NoError(t, repos.CleaningJob.Create(ctx, db.SQL, job))

	first := uuid.New()
	second := uuid.New()

	claimed, err := repos.CleaningJob.UpdateWhereStatus(
		ctx, db.SQL, job.ID, OpenJobStatuses(),
		map[string]any{"status": JobStatusConfirmed, "assigned_cleaner_id": first},
	)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repos.CleaningJob.UpdateWhereStatus(
		ctx, db.SQL, job.ID, OpenJobStatuses(),
		map[string]any{"status": JobStatusConfirmed, "assigned_cleaner_id": second},
	)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim must not overwrite the first")

	stored, err := repos.CleaningJob.GetByID(ctx, db.SQL, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusConfirmed, stored.Status)
	require.NotNil(t, stored.AssignedCleanerID)
	assert.Equal(t, first, *stored.AssignedCleanerID)
	assert.True(t, stored.TotalPrice.Equal(decimal.NewFromInt(1000)))
}

func TestCleaningJobRepository_PaymentPatchSkipsCancelledJob(t *testing.T) {
	repos, db := setupRepos(t)
	ctx := context.Background()

	job := newJob(uuid.New(), uuid.New(), JobStatusCancelled)
	require.NoError(t, repos.CleaningJob.Create(ctx, db.SQL, job))

	changed, err := repos.CleaningJob.UpdateWherePaymentAndJobStatus(
		ctx, db.SQL, job.ID,
		[]PaymentStatus{PaymentStatusPending},
		PayableJobStatuses(),
		map[string]any{"payment_status": PaymentStatusAuthorized},
	)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := repos.CleaningJob.GetByID(ctx, db.SQL, job.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, stored.PaymentStatus)
}

func TestCleaningJobRepository_UpdateWherePayoutStatus(t *testing.T) {
	repos, db := setupRepos(t)
	ctx := context.Background()

	job := newJob(uuid.New(), uuid.New(), JobStatusCompleted)
	require.NoError(t, repos.CleaningJob.Create(ctx, db.SQL, job))

	changed, err := repos.CleaningJob.UpdateWherePayoutStatus(
		ctx, db.SQL, job.ID,
		[]PayoutStatus{PayoutStatusPending},
		map[string]any{"payout_status": PayoutStatusPaid, "transfer_id": "tr_1"},
	)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repos.CleaningJob.UpdateWherePayoutStatus(
		ctx, db.SQL, job.ID,
		[]PayoutStatus{PayoutStatusPending},
		map[string]any{"payout_pending_reason": "late"},
	)
	require.NoError(t, err)
	assert.False(t, changed, "a paid out job keeps its record")

	stored, err := repos.CleaningJob.GetByID(ctx, db.SQL, job.ID)
	require.NoError(t, err)
	assert.Equal(t, PayoutStatusPaid, stored.PayoutStatus)
	assert.Nil(t, stored.PayoutPendingReason)
}

func TestCleaningJobRepository_NotFound(t *testing.T) {
	repos, db := setupRepos(t)

	_, err := repos.CleaningJob.GetByID(context.Background(), db.SQL, uuid.New())

	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeNotFound, appErr.Code)
}

func TestCleaningJobRepository_GetAwaitingPayout(t *testing.T) {
	repos, db := setupRepos(t)
	ctx := context.Background()

	waiting := newJob(uuid.New(), uuid.New(), JobStatusCompleted)
	waiting.PaymentStatus = PaymentStatusPaid
	paidOut := newJob(uuid.New(), uuid.New(), JobStatusCompleted)
	paidOut.PaymentStatus = PaymentStatusPaid
	paidOut.PayoutStatus = PayoutStatusPaid
	uncaptured := newJob(uuid.New(), uuid.New(), JobStatusCompleted)
	uncaptured.PaymentStatus = PaymentStatusAuthorized

	for _, job := range []*CleaningJob{waiting, paidOut, uncaptured} {
		require.NoError(t, repos.CleaningJob.Create(ctx, db.SQL, job))
	}

	jobs, err := repos.CleaningJob.GetAwaitingPayout(ctx, db.SQL)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, waiting.ID, jobs[0].ID)
}

func TestCleanerRequestRepository_DeclinePendingForJob(t *testing.T) {
	repos, db := setupRepos(t)
	ctx := context.Background()
	jobID := uuid.New()

	keep := &CleanerRequest{JobID: jobID, CleanerID: uuid.New(), Status: RequestStatusPending}
	other := &CleanerRequest{JobID: jobID, CleanerID: uuid.New(), Status: RequestStatusPending}
	withdrawn := &CleanerRequest{JobID: jobID, CleanerID: uuid.New(), Status: RequestStatusWithdrawn}
	for _, request := range []*CleanerRequest{keep, other, withdrawn} {
		require.NoError(t, repos.CleanerRequest.Create(ctx, db.SQL, request))
	}

	declined, err := repos.CleanerRequest.DeclinePendingForJob(ctx, db.SQL, jobID, &keep.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{other.CleanerID}, declined)

	requests, err := repos.CleanerRequest.GetByJob(ctx, db.SQL, jobID)
	require.NoError(t, err)

	statuses := map[uuid.UUID]RequestStatus{}
	for _, request := range requests {
		statuses[request.ID] = request.Status
	}
	assert.Equal(t, RequestStatusPending, statuses[keep.ID])
	assert.Equal(t, RequestStatusDeclined, statuses[other.ID])
	assert.Equal(t, RequestStatusWithdrawn, statuses[withdrawn.ID])

	count, err := repos.CleanerRequest.CountPending(ctx, db.SQL, jobID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCleanerRequestRepository_GetStalePending(t *testing.T) {
	repos, db := setupRepos(t)
	ctx := context.Background()

	open := newJob(uuid.New(), uuid.New(), JobStatusRequested)
	closed := newJob(uuid.New(), uuid.New(), JobStatusConfirmed)
	require.NoError(t, repos.CleaningJob.Create(ctx, db.SQL, open))
	require.NoError(t, repos.CleaningJob.Create(ctx, db.SQL, closed))

	fresh := &CleanerRequest{JobID: open.ID, CleanerID: uuid.New(), Status: RequestStatusPending}
	stale := &CleanerRequest{JobID: closed.ID, CleanerID: uuid.New(), Status: RequestStatusPending}
	accepted := &CleanerRequest{JobID: closed.ID, CleanerID: uuid.New(), Status: RequestStatusAccepted}
	for _, request := range []*CleanerRequest{fresh, stale, accepted} {
		require.NoError(t, repos.CleanerRequest.Create(ctx, db.SQL, request))
	}

	requests, err := repos.CleanerRequest.GetStalePending(ctx, db.SQL)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, stale.ID, requests[0].ID)
}

func TestCleanerRepository_UpdateWhereStatus(t *testing.T) {
	repos, db := setupRepos(t)
	ctx := context.Background()

	cleaner := &Cleaner{UserID: uuid.New(), Status: CleanerStatusPaused, IsActive: true}
	require.NoError(t, repos.Cleaner.Create(ctx, db.SQL, cleaner))

	changed, err := repos.Cleaner.UpdateWhereStatus(
		ctx, db.SQL, cleaner.ID,
		[]CleanerStatus{CleanerStatusApproved},
		map[string]any{"status": CleanerStatusPaused},
	)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repos.Cleaner.UpdateWhereStatus(
		ctx, db.SQL, cleaner.ID,
		[]CleanerStatus{CleanerStatusPaused},
		map[string]any{"status": CleanerStatusApproved},
	)
	require.NoError(t, err)
	assert.True(t, changed)

	stored, err := repos.Cleaner.GetActiveByUserID(ctx, db.SQL, cleaner.UserID)
	require.NoError(t, err)
	assert.Equal(t, CleanerStatusApproved, stored.Status)
}

func TestServicePricingRepository_GetActive(t *testing.T) {
	repos, db := setupRepos(t)
	ctx := context.Background()

	_, err := repos.ServicePricing.GetActive(ctx, db.SQL, ServiceTypeBnbCleaning, "41-50")
	assert.ErrorIs(t, err, types.ErrPricingNotConfigured)

	require.NoError(t, repos.ServicePricing.Upsert(ctx, db.SQL, []*ServicePricing{
		{ServiceType: ServiceTypeBnbCleaning, SizeRange: "41-50", Price: decimal.NewFromInt(890), Currency: "nok", IsActive: true},
	}))

	row, err := repos.ServicePricing.GetActive(ctx, db.SQL, ServiceTypeBnbCleaning, "41-50")
	require.NoError(t, err)
	assert.True(t, row.Price.Equal(decimal.NewFromInt(890)))

	require.NoError(t, repos.ServicePricing.Upsert(ctx, db.SQL, []*ServicePricing{
		{ServiceType: ServiceTypeBnbCleaning, SizeRange: "41-50", Price: decimal.NewFromInt(990), Currency: "nok", IsActive: true},
	}))

	row, err = repos.ServicePricing.GetActive(ctx, db.SQL, ServiceTypeBnbCleaning, "41-50")
	require.NoError(t, err)
	assert.True(t, row.Price.Equal(decimal.NewFromInt(990)))

	rows, err := repos.ServicePricing.GetAllActive(ctx, db.SQL)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCompanyRepository_Upsert(t *testing.T) {
	repos, db := setupRepos(t)
	ctx := context.Background()

	first := &Company{OrganizationNumber: "912345678", Name: "Rent Vask AS"}
	require.NoError(t, repos.Company.Upsert(ctx, db.SQL, first))

	second := &Company{OrganizationNumber: "912345678", Name: "Rent Vask Oslo AS"}
	require.NoError(t, repos.Company.Upsert(ctx, db.SQL, second))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Rent Vask Oslo AS", second.Name)

	err := repos.Company.Upsert(ctx, db.SQL, &Company{Name: "missing"})
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeValidationFailed, appErr.Code)
}

func TestUserRepository_CreateAndUpdate(t *testing.T) {
	repos, db := setupRepos(t)
	ctx := context.Background()

	user := &User{AuthSubject: "user_2abc", FirstName: "Kari"}
	require.NoError(t, repos.User.Create(ctx, db.SQL, user))

	stored, err := repos.User.GetByAuthSubject(ctx, db.SQL, "user_2abc")
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
	assert.Nil(t, stored.UserType)

	landlord := UserTypeLandlord
	require.NoError(t, repos.User.Update(ctx, db.SQL, stored, map[string]any{"user_type": landlord}))
	assert.True(t, stored.IsLandlord())

	_, err = repos.User.GetByAuthSubject(ctx, db.SQL, "unknown")
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeNotFound, appErr.Code)
}

func TestPaymentMethodRepository_ReplaceForUser(t *testing.T) {
	repos, db := setupRepos(t)
	ctx := context.Background()
	userID := uuid.New()
	customerID := uuid.New()

	require.NoError(t, repos.PaymentMethod.ReplaceForUser(ctx, db.SQL, userID, []*PaymentMethod{
		{CustomerID: customerID, ProviderPaymentMethodID: "pm_1", Brand: "visa", Last4: "4242"},
		{CustomerID: customerID, ProviderPaymentMethodID: "pm_2", Brand: "mastercard", Last4: "4444"},
	}))

	require.NoError(t, repos.PaymentMethod.ReplaceForUser(ctx, db.SQL, userID, []*PaymentMethod{
		{CustomerID: customerID, ProviderPaymentMethodID: "pm_2", Brand: "mastercard", Last4: "4444", IsDefault: true},
	}))

	methods, err := repos.PaymentMethod.GetByUserID(ctx, db.SQL, userID)
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "pm_2", methods[0].ProviderPaymentMethodID)
	assert.True(t, methods[0].IsDefault)
}

func TestStripeLogRepository_Record(t *testing.T) {
	repos, db := setupRepos(t)
	jobID := uuid.New()
	message := "card_declined"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repos.StripeLog.Record(ctx, &StripeLog{
		Operation:    "capture",
		Status:       StripeLogStatusFailed,
		JobID:        &jobID,
		ErrorMessage: &message,
	})
	require.NoError(t, err, "a cancelled request must still be audited")

	var count int64
	require.NoError(t, db.SQL.Model(&StripeLog{}).Where("job_id = ?", jobID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
