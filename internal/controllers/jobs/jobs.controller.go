package jobsController

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	txContext "cleanbook/internal/context"
	"cleanbook/internal/database"
	"cleanbook/internal/events"
	. "cleanbook/internal/models"
	"cleanbook/internal/repositories"
	"cleanbook/internal/services"
	"cleanbook/internal/types"
	"cleanbook/internal/utils"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// free text fields are cut to this many characters
const maxTextRunes = 2000

type CreateJobRequest struct {
	PropertyID          uuid.UUID   `json:"propertyId"`
	ServiceType         ServiceType `json:"serviceType"`
	ScheduledDate       time.Time   `json:"scheduledDate"`
	ScheduledTime       *string     `json:"scheduledTime,omitempty"`
	SpecialInstructions *string     `json:"specialInstructions,omitempty"`
}

type RateJobRequest struct {
	Rating   int     `json:"rating"`
	Feedback *string `json:"feedback,omitempty"`
}

type JobsController struct {
	jobRepo      repositories.CleaningJobRepository
	requestRepo  repositories.CleanerRequestRepository
	cleanerRepo  repositories.CleanerRepository
	landlordRepo repositories.LandlordRepository
	propertyRepo repositories.PropertyRepository
	pricing      *services.PricingService
	payment      *services.PaymentService
	transaction  *services.TransactionService
	publisher    events.Publisher
	db           database.DB
	log          logger.Logger
}

type JobsControllerInterface interface {
	CreateJob(ctx context.Context, user *User, req CreateJobRequest) (*CleaningJob, error)
	GetJob(ctx context.Context, user *User, jobID uuid.UUID) (*CleaningJob, error)
	ListMine(ctx context.Context, user *User) ([]*CleaningJob, error)
	ListOpen(ctx context.Context, user *User) ([]*CleaningJob, error)
	ListAssigned(ctx context.Context, user *User) ([]*CleaningJob, error)

	SubmitRequest(ctx context.Context, user *User, jobID uuid.UUID, message *string) (*CleanerRequest, error)
	ListRequests(ctx context.Context, user *User, jobID uuid.UUID) ([]*CleanerRequest, error)
	WithdrawRequest(ctx context.Context, user *User, jobID, requestID uuid.UUID) (*CleanerRequest, error)
	DeclineRequest(ctx context.Context, user *User, jobID, requestID uuid.UUID) (*CleanerRequest, error)
	AcceptRequest(ctx context.Context, user *User, jobID, requestID uuid.UUID) (*CleaningJob, error)

	StartJob(ctx context.Context, user *User, jobID uuid.UUID) (*CleaningJob, error)
	CompleteJob(ctx context.Context, user *User, jobID uuid.UUID) (*CleaningJob, error)
	CancelJob(ctx context.Context, user *User, jobID uuid.UUID) (*CleaningJob, error)
	RateJob(ctx context.Context, user *User, jobID uuid.UUID, req RateJobRequest) (*CleaningJob, error)

	AuthorizePayment(
		ctx context.Context,
		user *User,
		jobID uuid.UUID,
		paymentMethodID string,
	) (*services.AuthorizationResult, error)
	SyncAuthorization(ctx context.Context, user *User, jobID uuid.UUID) (*services.AuthorizationResult, error)

	CapturePayment(ctx context.Context, jobID uuid.UUID) (*CleaningJob, error)
	TransferPayout(ctx context.Context, jobID uuid.UUID) (*CleaningJob, error)
	RefundPayment(ctx context.Context, jobID uuid.UUID) (*CleaningJob, error)
}

func New(
	repos repositories.Repository,
	services services.Service,
	publisher events.Publisher,
	db database.DB,
) JobsControllerInterface {
	return &JobsController{
		jobRepo:      repos.CleaningJob,
		requestRepo:  repos.CleanerRequest,
		cleanerRepo:  repos.Cleaner,
		landlordRepo: repos.Landlord,
		propertyRepo: repos.Property,
		pricing:      services.Pricing,
		payment:      services.Payment,
		transaction:  services.Transaction,
		publisher:    publisher,
		db:           db,
		log:          logger.New("jobsController"),
	}
}

func (c *JobsController) CreateJob(
	ctx context.Context,
	user *User,
	req CreateJobRequest,
) (*CleaningJob, error) {
	log := c.log.TraceFromContext(ctx).Function("CreateJob")

	landlord, err := c.landlordFor(ctx, user)
	if err != nil {
		return nil, err
	}

	if req.PropertyID == uuid.Nil {
		return nil, types.Validation("propertyId is required")
	}
	if req.ScheduledDate.IsZero() {
		return nil, types.Validation("scheduledDate is required")
	}
	var scheduledTime *string
	if req.ScheduledTime != nil && strings.TrimSpace(*req.ScheduledTime) != "" {
		normalized, err := utils.NormalizeTimeOfDay(*req.ScheduledTime)
		if err != nil {
			return nil, types.Validation("scheduledTime must be HH:MM")
		}
		scheduledTime = &normalized
	}

	property, err := c.propertyRepo.GetByID(ctx, c.db.SQLWithContext(ctx), req.PropertyID)
	if err != nil {
		if errors.Is(err, types.NotFound("")) {
			return nil, types.Validation("property does not exist")
		}
		return nil, err
	}
	if !property.IsOwnedBy(user.ID) || !property.IsActive {
		return nil, types.Validation("property is not owned by the requesting landlord")
	}

	quote, err := c.pricing.Quote(ctx, req.ServiceType, property.SizeSqm)
	if err != nil {
		return nil, err
	}

	job := &CleaningJob{
		LandlordID:          landlord.ID,
		PropertyID:          property.ID,
		ServiceType:         req.ServiceType,
		ScheduledDate:       utils.DateOnly(req.ScheduledDate),
		ScheduledTime:       scheduledTime,
		SpecialInstructions: utils.CleanText(req.SpecialInstructions, maxTextRunes),
		Status:              JobStatusPending,
		Price:               quote.Price,
		PricePerDate:        quote.PricePerDate,
		TotalPrice:          quote.TotalPrice,
		PlatformFee:         quote.PlatformFee,
		CleanerPayout:       quote.CleanerPayout,
		PaymentStatus:       PaymentStatusPending,
		PayoutStatus:        PayoutStatusPending,
	}
	if err := c.jobRepo.Create(ctx, c.db.SQLWithContext(ctx), job); err != nil {
		return nil, log.Err("failed to create job", err, "propertyID", property.ID)
	}

	log.Info(
		"job created",
		"jobID", job.ID,
		"serviceType", job.ServiceType,
		"sizeRange", quote.SizeRange,
		"total", job.TotalPrice.String(),
	)
	c.publish(ctx, events.JobCreated, job)
	return job, nil
}

// GetJob is visible to the owning landlord, the assigned cleaner, admins,
// and any cleaner while the job is still open.
func (c *JobsController) GetJob(ctx context.Context, user *User, jobID uuid.UUID) (*CleaningJob, error) {
	job, err := c.jobRepo.GetByID(ctx, c.db.SQLWithContext(ctx), jobID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin {
		return job, nil
	}

	if landlord, err := c.landlordRepo.GetActiveByUserID(ctx, c.db.SQLWithContext(ctx), user.ID); err == nil &&
		landlord.ID == job.LandlordID {
		return job, nil
	}

	if cleaner, err := c.cleanerRepo.GetActiveByUserID(ctx, c.db.SQLWithContext(ctx), user.ID); err == nil {
		if job.IsAssignedTo(cleaner.ID) || job.Status.IsOpen() {
			return job, nil
		}
	}

	return nil, types.NotFound("job not found")
}

func (c *JobsController) ListMine(ctx context.Context, user *User) ([]*CleaningJob, error) {
	landlord, err := c.landlordFor(ctx, user)
	if err != nil {
		return nil, err
	}
	return c.jobRepo.GetByLandlord(ctx, c.db.SQLWithContext(ctx), landlord.ID)
}

func (c *JobsController) ListOpen(ctx context.Context, user *User) ([]*CleaningJob, error) {
	if _, err := c.cleanerFor(ctx, user); err != nil {
		return nil, err
	}
	return c.jobRepo.GetByStatus(ctx, c.db.SQLWithContext(ctx), OpenJobStatuses()...)
}

func (c *JobsController) ListAssigned(ctx context.Context, user *User) ([]*CleaningJob, error) {
	cleaner, err := c.cleanerFor(ctx, user)
	if err != nil {
		return nil, err
	}
	return c.jobRepo.GetByAssignedCleaner(ctx, c.db.SQLWithContext(ctx), cleaner.ID)
}

// SubmitRequest records the cleaner's interest in an open job. One active
// request per cleaner per job.
func (c *JobsController) SubmitRequest(
	ctx context.Context,
	user *User,
	jobID uuid.UUID,
	message *string,
) (*CleanerRequest, error) {
	log := c.log.TraceFromContext(ctx).Function("SubmitRequest")

	cleaner, err := c.cleanerFor(ctx, user)
	if err != nil {
		return nil, err
	}
	if !cleaner.CanRequestJobs() {
		return nil, types.Forbidden("cleaner is not approved to request jobs")
	}

	message = utils.CleanText(message, maxTextRunes)

	var request *CleanerRequest
	var job *CleaningJob
	err = c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		job, err = c.jobRepo.GetByID(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if !job.Status.IsOpen() {
			return types.InvalidTransition(string(job.Status), string(JobStatusRequested))
		}

		existing, err := c.requestRepo.GetActiveForCleaner(ctx, tx, jobID, cleaner.ID)
		switch {
		case err == nil:
			return types.ErrDuplicateRequest.WithReason("request " + existing.ID.String() + " is " + string(existing.Status))
		case !errors.Is(err, types.NotFound("")):
			return err
		}

		request = &CleanerRequest{
			JobID:     jobID,
			CleanerID: cleaner.ID,
			Status:    RequestStatusPending,
			Message:   message,
		}
		if err := c.requestRepo.Create(ctx, tx, request); err != nil {
			return err
		}

		if job.Status == JobStatusPending {
			if _, err := c.jobRepo.UpdateWhereStatus(
				ctx,
				tx,
				jobID,
				[]JobStatus{JobStatusPending},
				map[string]any{"status": JobStatusRequested},
			); err != nil {
				return err
			}
			job.Status = JobStatusRequested
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("cleaner request submitted", "jobID", jobID, "cleanerID", cleaner.ID, "requestID", request.ID)
	c.publish(ctx, events.JobRequested, job, cleaner.ID)
	return request, nil
}

// ListRequests returns every request for the job owner or an admin, and only
// the caller's own requests for a cleaner.
func (c *JobsController) ListRequests(
	ctx context.Context,
	user *User,
	jobID uuid.UUID,
) ([]*CleanerRequest, error) {
	job, err := c.jobRepo.GetByID(ctx, c.db.SQLWithContext(ctx), jobID)
	if err != nil {
		return nil, err
	}

	requests, err := c.requestRepo.GetByJob(ctx, c.db.SQLWithContext(ctx), jobID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin {
		return requests, nil
	}

	if landlord, err := c.landlordRepo.GetActiveByUserID(ctx, c.db.SQLWithContext(ctx), user.ID); err == nil &&
		landlord.ID == job.LandlordID {
		return requests, nil
	}

	cleaner, err := c.cleanerFor(ctx, user)
	if err != nil {
		return nil, types.NotFound("job not found")
	}
	own := make([]*CleanerRequest, 0, 1)
	for _, request := range requests {
		if request.CleanerID == cleaner.ID {
			own = append(own, request)
		}
	}
	return own, nil
}

func (c *JobsController) WithdrawRequest(
	ctx context.Context,
	user *User,
	jobID, requestID uuid.UUID,
) (*CleanerRequest, error) {
	log := c.log.TraceFromContext(ctx).Function("WithdrawRequest")

	cleaner, err := c.cleanerFor(ctx, user)
	if err != nil {
		return nil, err
	}

	request, job, err := c.respond(ctx, jobID, requestID, RequestStatusWithdrawn, func(request *CleanerRequest) error {
		if request.CleanerID != cleaner.ID {
			return types.Forbidden("request belongs to another cleaner")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("cleaner request withdrawn", "jobID", jobID, "requestID", requestID)
	c.publish(ctx, events.JobRequestWithdrawn, job, cleaner.ID)
	return request, nil
}

func (c *JobsController) DeclineRequest(
	ctx context.Context,
	user *User,
	jobID, requestID uuid.UUID,
) (*CleanerRequest, error) {
	log := c.log.TraceFromContext(ctx).Function("DeclineRequest")

	if _, _, err := c.ownedJob(ctx, user, jobID); err != nil {
		return nil, err
	}

	request, job, err := c.respond(ctx, jobID, requestID, RequestStatusDeclined, nil)
	if err != nil {
		return nil, err
	}

	log.Info("cleaner request declined", "jobID", jobID, "requestID", requestID)
	c.publish(ctx, events.JobRequestDeclined, job, request.CleanerID)
	return request, nil
}

// respond moves one pending request to a final status. When no pending
// requests remain the job falls back from requested to pending.
func (c *JobsController) respond(
	ctx context.Context,
	jobID, requestID uuid.UUID,
	next RequestStatus,
	authorize func(request *CleanerRequest) error,
) (*CleanerRequest, *CleaningJob, error) {
	var request *CleanerRequest
	var job *CleaningJob

	err := c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		request, err = c.requestRepo.GetByID(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if request.JobID != jobID {
			return types.NotFound("cleaner request not found")
		}
		if authorize != nil {
			if err := authorize(request); err != nil {
				return err
			}
		}
		if !request.Status.CanTransitionTo(next) {
			return types.InvalidTransition(string(request.Status), string(next))
		}

		now := time.Now()
		updated, err := c.requestRepo.UpdateWhereStatus(
			ctx,
			tx,
			requestID,
			[]RequestStatus{RequestStatusPending},
			map[string]any{"status": next, "responded_at": now},
		)
		if err != nil {
			return err
		}
		if !updated {
			return types.InvalidTransition(string(request.Status), string(next))
		}
		request.Status = next
		request.RespondedAt = &now

		remaining, err := c.requestRepo.CountPending(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if _, err := c.jobRepo.UpdateWhereStatus(
				ctx,
				tx,
				jobID,
				[]JobStatus{JobStatusRequested},
				map[string]any{"status": JobStatusPending},
			); err != nil {
				return err
			}
		}

		job, err = c.jobRepo.GetByID(ctx, tx, jobID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return request, job, nil
}

// AcceptRequest assigns the job to the request's cleaner. The conditional
// claim on the job row decides concurrent accepts; the loser gets
// ALREADY_ASSIGNED and nothing it touched is committed.
func (c *JobsController) AcceptRequest(
	ctx context.Context,
	user *User,
	jobID, requestID uuid.UUID,
) (*CleaningJob, error) {
	log := c.log.TraceFromContext(ctx).Function("AcceptRequest")

	if _, _, err := c.ownedJob(ctx, user, jobID); err != nil {
		return nil, err
	}

	var job *CleaningJob
	var accepted *CleanerRequest
	var declined []uuid.UUID
	err := c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		request, err := c.requestRepo.GetByID(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if request.JobID != jobID {
			return types.NotFound("cleaner request not found")
		}

		cleaner, err := c.cleanerRepo.GetByID(ctx, tx, request.CleanerID)
		if err != nil {
			return err
		}

		claimed, err := c.jobRepo.UpdateWhereStatus(
			ctx,
			tx,
			jobID,
			OpenJobStatuses(),
			map[string]any{
				"status":              JobStatusConfirmed,
				"assigned_cleaner_id": request.CleanerID,
			},
		)
		if err != nil {
			return err
		}
		if !claimed {
			return types.ErrAlreadyAssigned
		}

		if !cleaner.CanRequestJobs() {
			return types.Validation("cleaner can no longer take jobs")
		}

		now := time.Now()
		ok, err := c.requestRepo.UpdateWhereStatus(
			ctx,
			tx,
			requestID,
			[]RequestStatus{RequestStatusPending},
			map[string]any{"status": RequestStatusAccepted, "responded_at": now},
		)
		if err != nil {
			return err
		}
		if !ok {
			return types.InvalidTransition(string(request.Status), string(RequestStatusAccepted))
		}
		accepted = request

		declined, err = c.requestRepo.DeclinePendingForJob(ctx, tx, jobID, &requestID)
		if err != nil {
			return err
		}

		job, err = c.jobRepo.GetByID(ctx, tx, jobID)
		return err
	})
	if err != nil {
		if errors.Is(err, types.ErrAlreadyAssigned) {
			log.Warn("job already assigned", "jobID", jobID, "requestID", requestID)
		}
		return nil, err
	}

	log.Info(
		"cleaner request accepted",
		"jobID", jobID,
		"cleanerID", accepted.CleanerID,
		"declined", len(declined),
	)
	c.publish(ctx, events.JobAccepted, job, declined...)
	return job, nil
}

func (c *JobsController) StartJob(ctx context.Context, user *User, jobID uuid.UUID) (*CleaningJob, error) {
	log := c.log.TraceFromContext(ctx).Function("StartJob")

	job, err := c.assignedJob(ctx, user, jobID)
	if err != nil {
		return nil, err
	}

	job, err = c.advance(ctx, job, JobStatusConfirmed, JobStatusInProgress, "started_at")
	if err != nil {
		return nil, err
	}

	log.Info("job started", "jobID", job.ID)
	c.publish(ctx, events.JobStarted, job)
	return job, nil
}

// CompleteJob commits completed before touching payments. Capture and
// payout failures are stored on the job and never revert the status.
func (c *JobsController) CompleteJob(ctx context.Context, user *User, jobID uuid.UUID) (*CleaningJob, error) {
	log := c.log.TraceFromContext(ctx).Function("CompleteJob")

	job, err := c.assignedJob(ctx, user, jobID)
	if err != nil {
		return nil, err
	}

	job, err = c.advance(ctx, job, JobStatusInProgress, JobStatusCompleted, "completed_at")
	if err != nil {
		return nil, err
	}
	log.Info("job completed", "jobID", job.ID)
	c.publish(ctx, events.JobCompleted, job)

	c.settle(ctx, job)

	job, err = c.jobRepo.GetByID(ctx, c.db.SQLWithContext(ctx), jobID)
	if err != nil {
		return nil, err
	}
	c.publish(ctx, events.JobPaymentUpdated, job)
	return job, nil
}

// settle captures the held payment and pays the cleaner out.
func (c *JobsController) settle(ctx context.Context, job *CleaningJob) {
	log := c.log.TraceFromContext(ctx).Function("settle")

	captured, err := c.payment.Capture(ctx, job.ID)
	if err != nil {
		log.Warn("capture after completion failed", "jobID", job.ID, "error", err)
		c.holdPayout(ctx, job.ID, "payment not captured: "+reasonOf(err))
		return
	}
	if captured.PaymentStatus != PaymentStatusPaid {
		return
	}

	if _, err := c.payment.Transfer(ctx, job.ID); err != nil {
		log.Warn("payout after completion deferred", "jobID", job.ID, "error", err)
	}
}

func (c *JobsController) holdPayout(ctx context.Context, jobID uuid.UUID, reason string) {
	log := c.log.TraceFromContext(ctx).Function("holdPayout")

	if _, err := c.jobRepo.UpdateWherePayoutStatus(
		ctx,
		c.db.SQLWithContext(ctx),
		jobID,
		[]PayoutStatus{PayoutStatusPending},
		map[string]any{"payout_pending_reason": reason},
	); err != nil {
		log.Er("failed to store payout reason", err, "jobID", jobID)
	}
}

// CancelJob is open to the owning landlord and admins until the job is
// completed. A held payment is voided and a captured one refunded after the
// cancellation is committed; a provider failure is returned but does not
// undo the cancellation.
func (c *JobsController) CancelJob(ctx context.Context, user *User, jobID uuid.UUID) (*CleaningJob, error) {
	log := c.log.TraceFromContext(ctx).Function("CancelJob")

	job, _, err := c.ownedJob(ctx, user, jobID)
	if err != nil {
		return nil, err
	}

	var declined []uuid.UUID
	err = c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		cancelled, err := c.jobRepo.UpdateWhereStatus(
			ctx,
			tx,
			jobID,
			CancellableJobStatuses(),
			map[string]any{"status": JobStatusCancelled, "cancelled_at": time.Now()},
		)
		if err != nil {
			return err
		}
		if !cancelled {
			current, err := c.jobRepo.GetByID(ctx, tx, jobID)
			if err != nil {
				return err
			}
			return types.InvalidTransition(string(current.Status), string(JobStatusCancelled))
		}

		declined, err = c.requestRepo.DeclinePendingForJob(ctx, tx, jobID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info("job cancelled", "jobID", jobID, "previousStatus", job.Status, "declined", len(declined))

	// the release path is picked from the payment status after the cancel
	// committed; holds recorded later are voided by the payment service
	_, paymentErr := c.payment.ReleasePayment(ctx, jobID)
	if paymentErr != nil {
		log.Er("failed to release payment for cancelled job", paymentErr, "jobID", jobID)
	}

	job, err = c.jobRepo.GetByID(ctx, c.db.SQLWithContext(ctx), jobID)
	if err != nil {
		return nil, err
	}
	c.publish(ctx, events.JobCancelled, job, declined...)
	return job, paymentErr
}

// RateJob overwrites any earlier rating.
func (c *JobsController) RateJob(
	ctx context.Context,
	user *User,
	jobID uuid.UUID,
	req RateJobRequest,
) (*CleaningJob, error) {
	log := c.log.TraceFromContext(ctx).Function("RateJob")

	if req.Rating < 1 || req.Rating > 5 {
		return nil, types.Validation("rating must be between 1 and 5")
	}

	job, landlord, err := c.ownedJob(ctx, user, jobID)
	if err != nil {
		return nil, err
	}
	if landlord == nil {
		return nil, types.Forbidden("only the landlord can rate a job")
	}
	if job.Status != JobStatusCompleted {
		return nil, types.Validation("only completed jobs can be rated")
	}

	fields := map[string]any{"cleaner_rating": req.Rating, "feedback": nil}
	if feedback := utils.CleanText(req.Feedback, maxTextRunes); feedback != nil {
		fields["feedback"] = *feedback
	}

	updated, err := c.jobRepo.UpdateWhereStatus(
		ctx,
		c.db.SQLWithContext(ctx),
		jobID,
		[]JobStatus{JobStatusCompleted},
		fields,
	)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, types.Validation("only completed jobs can be rated")
	}

	job, err = c.jobRepo.GetByID(ctx, c.db.SQLWithContext(ctx), jobID)
	if err != nil {
		return nil, err
	}

	log.Info("job rated", "jobID", jobID, "rating", req.Rating)
	c.publish(ctx, events.JobRated, job)
	return job, nil
}

func (c *JobsController) AuthorizePayment(
	ctx context.Context,
	user *User,
	jobID uuid.UUID,
	paymentMethodID string,
) (*services.AuthorizationResult, error) {
	job, landlord, err := c.ownedJob(ctx, user, jobID)
	if err != nil {
		return nil, err
	}
	if landlord == nil {
		return nil, types.Forbidden("only the landlord can pay for a job")
	}

	result, err := c.payment.Authorize(ctx, job.ID, user, strings.TrimSpace(paymentMethodID))
	if err != nil {
		return nil, err
	}
	if result.PaymentStatus == PaymentStatusAuthorized {
		c.publish(ctx, events.JobPaymentAuthorized, job)
	}
	return result, nil
}

func (c *JobsController) SyncAuthorization(
	ctx context.Context,
	user *User,
	jobID uuid.UUID,
) (*services.AuthorizationResult, error) {
	job, _, err := c.ownedJob(ctx, user, jobID)
	if err != nil {
		return nil, err
	}

	before := job.PaymentStatus
	result, err := c.payment.SyncAuthorization(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if result.PaymentStatus != before {
		c.publish(ctx, events.JobPaymentUpdated, job)
	}
	return result, nil
}

// CapturePayment is the admin retry for a capture that did not go through
// on completion.
func (c *JobsController) CapturePayment(ctx context.Context, jobID uuid.UUID) (*CleaningJob, error) {
	job, err := c.jobRepo.GetByID(ctx, c.db.SQLWithContext(ctx), jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != JobStatusCompleted {
		return nil, types.ErrNotCapturable.WithReason("job is " + string(job.Status))
	}

	job, err = c.payment.Capture(ctx, jobID)
	if err != nil {
		return job, err
	}
	if job.PayoutPendingReason != nil && job.PayoutStatus == PayoutStatusPending {
		if _, err := c.jobRepo.UpdateWherePayoutStatus(
			ctx,
			c.db.SQLWithContext(ctx),
			jobID,
			[]PayoutStatus{PayoutStatusPending},
			map[string]any{"payout_pending_reason": nil},
		); err != nil {
			return nil, err
		}
		job.PayoutPendingReason = nil
	}
	c.publish(ctx, events.JobPaymentUpdated, job)
	return job, nil
}

func (c *JobsController) TransferPayout(ctx context.Context, jobID uuid.UUID) (*CleaningJob, error) {
	job, err := c.payment.Transfer(ctx, jobID)
	if err != nil {
		return job, err
	}
	c.publish(ctx, events.JobPaymentUpdated, job)
	return job, nil
}

func (c *JobsController) RefundPayment(ctx context.Context, jobID uuid.UUID) (*CleaningJob, error) {
	job, err := c.payment.RefundOrVoid(ctx, jobID)
	if err != nil {
		return job, err
	}
	c.publish(ctx, events.JobPaymentUpdated, job)
	return job, nil
}

// advance moves the job along one forward edge and stamps the given column.
func (c *JobsController) advance(
	ctx context.Context,
	job *CleaningJob,
	from, to JobStatus,
	stampColumn string,
) (*CleaningJob, error) {
	if job.Status != from {
		return nil, types.InvalidTransition(string(job.Status), string(to))
	}

	updated, err := c.jobRepo.UpdateWhereStatus(
		ctx,
		c.db.SQLWithContext(ctx),
		job.ID,
		[]JobStatus{from},
		map[string]any{"status": to, stampColumn: time.Now()},
	)
	if err != nil {
		return nil, err
	}

	current, err := c.jobRepo.GetByID(ctx, c.db.SQLWithContext(ctx), job.ID)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, types.InvalidTransition(string(current.Status), string(to))
	}
	return current, nil
}

func (c *JobsController) landlordFor(ctx context.Context, user *User) (*Landlord, error) {
	landlord, err := c.landlordRepo.GetActiveByUserID(ctx, c.db.SQLWithContext(ctx), user.ID)
	if err != nil {
		if errors.Is(err, types.NotFound("")) {
			return nil, types.Forbidden("a landlord profile is required")
		}
		return nil, err
	}
	return landlord, nil
}

func (c *JobsController) cleanerFor(ctx context.Context, user *User) (*Cleaner, error) {
	cleaner, err := c.cleanerRepo.GetActiveByUserID(ctx, c.db.SQLWithContext(ctx), user.ID)
	if err != nil {
		if errors.Is(err, types.NotFound("")) {
			return nil, types.Forbidden("a cleaner profile is required")
		}
		return nil, err
	}
	return cleaner, nil
}

// ownedJob loads a job the user may manage. The landlord is nil when access
// comes from the admin flag.
func (c *JobsController) ownedJob(
	ctx context.Context,
	user *User,
	jobID uuid.UUID,
) (*CleaningJob, *Landlord, error) {
	job, err := c.jobRepo.GetByID(ctx, c.db.SQLWithContext(ctx), jobID)
	if err != nil {
		return nil, nil, err
	}

	landlord, err := c.landlordRepo.GetActiveByUserID(ctx, c.db.SQLWithContext(ctx), user.ID)
	switch {
	case err == nil && landlord.ID == job.LandlordID:
		return job, landlord, nil
	case err != nil && !errors.Is(err, types.NotFound("")):
		return nil, nil, err
	case user.IsAdmin:
		return job, nil, nil
	}
	return nil, nil, types.Forbidden("job belongs to another landlord")
}

func (c *JobsController) assignedJob(ctx context.Context, user *User, jobID uuid.UUID) (*CleaningJob, error) {
	cleaner, err := c.cleanerFor(ctx, user)
	if err != nil {
		return nil, err
	}

	job, err := c.jobRepo.GetByID(ctx, c.db.SQLWithContext(ctx), jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsAssignedTo(cleaner.ID) {
		return nil, types.Forbidden("job is assigned to another cleaner")
	}
	return job, nil
}

// publish notifies the landlord, the assigned cleaner and any extra cleaners
// once the surrounding transaction, if any, has committed. Delivery problems
// are logged only.
func (c *JobsController) publish(
	ctx context.Context,
	action events.JobAction,
	job *CleaningJob,
	cleanerIDs ...uuid.UUID,
) {
	if c.publisher == nil || job == nil {
		return
	}
	txContext.AfterCommit(ctx, func() {
		c.deliver(ctx, action, job, cleanerIDs...)
	})
}

func (c *JobsController) deliver(
	ctx context.Context,
	action events.JobAction,
	job *CleaningJob,
	cleanerIDs ...uuid.UUID,
) {
	log := c.log.TraceFromContext(ctx).Function("deliver")

	tx := c.db.SQLWithContext(ctx)
	recipients := make([]uuid.UUID, 0, len(cleanerIDs)+2)
	if landlord, err := c.landlordRepo.GetByID(ctx, tx, job.LandlordID); err == nil {
		recipients = append(recipients, landlord.UserID)
	} else {
		log.Warn("failed to resolve landlord for event", "jobID", job.ID, "error", err)
	}

	if job.AssignedCleanerID != nil {
		cleanerIDs = append(cleanerIDs, *job.AssignedCleanerID)
	}
	if len(cleanerIDs) > 0 {
		cleaners, err := c.cleanerRepo.GetByIDs(ctx, tx, cleanerIDs)
		if err != nil {
			log.Warn("failed to resolve cleaners for event", "jobID", job.ID, "error", err)
		}
		seen := make(map[uuid.UUID]bool, len(cleaners))
		for _, cleaner := range cleaners {
			if seen[cleaner.UserID] {
				continue
			}
			seen[cleaner.UserID] = true
			recipients = append(recipients, cleaner.UserID)
		}
	}

	event := events.NewJobEvent(action, job.ID, string(job.Status), recipients...)
	event.Data["paymentStatus"] = string(job.PaymentStatus)
	event.Data["payoutStatus"] = string(job.PayoutStatus)
	if err := c.publisher.Publish(events.JOBS_CHANNEL, event); err != nil {
		log.Warn("failed to publish job event", "jobID", job.ID, "action", action, "error", err)
	}
}

func reasonOf(err error) string {
	if appErr, ok := types.AsAppError(err); ok {
		if appErr.Reason != "" {
			return appErr.Reason
		}
		return appErr.Message
	}
	return fmt.Sprint(err)
}
