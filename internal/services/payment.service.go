package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cleanbook/config"
	"cleanbook/internal/database"
	. "cleanbook/internal/models"
	"cleanbook/internal/repositories"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	OpCreateCustomer        = "create_customer"
	OpDeleteCustomer        = "delete_customer"
	OpCreatePaymentIntent   = "create_payment_intent"
	OpRetrievePaymentIntent = "retrieve_payment_intent"
	OpCapturePaymentIntent  = "capture_payment_intent"
	OpCancelPaymentIntent   = "cancel_payment_intent"
	OpCreateRefund          = "create_refund"
	OpCreateConnectAccount  = "create_connect_account"
	OpRetrieveConnect       = "retrieve_connect_account"
	OpCreateOnboardingLink  = "create_account_link"
	OpCreateTransfer        = "create_transfer"
	OpFindTransfer          = "find_transfer"
	OpListPaymentMethods    = "list_payment_methods"
)

// AuthorizationResult is returned to the landlord's client so it can confirm
// the payment when no saved card was used.
type AuthorizationResult struct {
	PaymentIntentID string        `json:"paymentIntentId"`
	ClientSecret    string        `json:"clientSecret,omitempty"`
	IntentStatus    IntentStatus  `json:"intentStatus"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
}

// PaymentService coordinates the payment provider with the job record.
// Provider calls never run inside a database transaction, and every call is
// written to the audit sink before the result is acted on.
type PaymentService struct {
	db       database.DB
	repos    repositories.Repository
	provider PaymentProvider
	currency string
	country  string
	log      logger.Logger
}

func NewPaymentService(
	db database.DB,
	repos repositories.Repository,
	provider PaymentProvider,
	cfg config.Config,
) *PaymentService {
	currency := strings.ToLower(cfg.StripeCurrency)
	if currency == "" {
		currency = config.DefaultCurrency
	}
	country := cfg.StripeConnectCountry
	if country == "" {
		country = config.DefaultConnectCountry
	}

	return &PaymentService{
		db:       db,
		repos:    repos,
		provider: provider,
		currency: currency,
		country:  country,
		log:      logger.New("PaymentService"),
	}
}

func captureKey(jobID uuid.UUID) string   { return "capture-" + jobID.String() }
func transferKey(jobID uuid.UUID) string  { return "transfer-" + jobID.String() }
func authorizeKey(jobID uuid.UUID) string { return "authorize-" + jobID.String() }
func refundKey(jobID uuid.UUID) string    { return "refund-" + jobID.String() }
func transferGroup(jobID uuid.UUID) string {
	return "job_" + jobID.String()
}

type auditRef struct {
	jobID          *uuid.UUID
	userID         *uuid.UUID
	objectID       string
	idempotencyKey string
}

func (s *PaymentService) audit(
	ctx context.Context,
	operation string,
	ref auditRef,
	request any,
	response any,
	callErr error,
) {
	entry := &StripeLog{
		Operation: operation,
		Status:    StripeLogStatusSuccess,
		JobID:     ref.jobID,
		UserID:    ref.userID,
		Request:   toJSON(request),
	}
	if ref.objectID != "" {
		entry.ProviderObjectID = &ref.objectID
	}
	if ref.idempotencyKey != "" {
		entry.IdempotencyKey = &ref.idempotencyKey
	}

	if callErr != nil {
		entry.Status = StripeLogStatusFailed
		message := callErr.Error()
		entry.ErrorMessage = &message
		if providerErr, ok := AsProviderError(callErr); ok {
			if providerErr.Code != "" {
				entry.ErrorCode = &providerErr.Code
			}
			entry.Response = toJSON(providerErr)
		}
	} else {
		entry.Response = toJSON(response)
	}

	if err := s.repos.StripeLog.Record(ctx, entry); err != nil {
		s.log.TraceFromContext(ctx).Function("audit").Warn(
			"audit entry was not stored",
			"operation", operation,
			"error", err,
		)
	}
}

func toJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

// providerReason is the text stored on the job for a failed provider call.
func providerReason(err error) string {
	if providerErr, ok := AsProviderError(err); ok {
		if providerErr.Message != "" {
			return providerErr.Message
		}
		return providerErr.Code
	}
	return err.Error()
}

func (s *PaymentService) loadJob(ctx context.Context, jobID uuid.UUID) (*CleaningJob, error) {
	return s.repos.CleaningJob.GetByID(ctx, s.db.SQLWithContext(ctx), jobID)
}

// patchJob writes payment fields other than the status itself.
func (s *PaymentService) patchJob(
	ctx context.Context,
	jobID uuid.UUID,
	allowed []PaymentStatus,
	fields map[string]any,
) (bool, error) {
	return s.repos.CleaningJob.UpdateWherePaymentStatus(
		ctx,
		s.db.SQLWithContext(ctx),
		jobID,
		allowed,
		fields,
	)
}

// transitionPayment moves the payment status to next from those of from the
// transition table allows, or from every allowed status when from is empty.
// A hold is never recorded on a cancelled job. false means the stored
// status no longer permits the move.
func (s *PaymentService) transitionPayment(
	ctx context.Context,
	jobID uuid.UUID,
	next PaymentStatus,
	fields map[string]any,
	from ...PaymentStatus,
) (bool, error) {
	allowed := PaymentStatusesInto(next, from...)
	if len(allowed) == 0 {
		current := "unknown"
		if len(from) > 0 {
			current = string(from[0])
		}
		return false, types.InvalidTransition(current, string(next))
	}

	patch := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		patch[key] = value
	}
	patch["payment_status"] = next

	tx := s.db.SQLWithContext(ctx)
	if next == PaymentStatusAuthorized {
		return s.repos.CleaningJob.UpdateWherePaymentAndJobStatus(
			ctx,
			tx,
			jobID,
			allowed,
			PayableJobStatuses(),
			patch,
		)
	}
	return s.repos.CleaningJob.UpdateWherePaymentStatus(ctx, tx, jobID, allowed, patch)
}

func (s *PaymentService) transitionPayout(
	ctx context.Context,
	jobID uuid.UUID,
	next PayoutStatus,
	fields map[string]any,
) (bool, error) {
	if !PayoutStatusPending.CanTransitionTo(next) {
		return false, types.InvalidTransition(string(PayoutStatusPending), string(next))
	}

	patch := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		patch[key] = value
	}
	patch["payout_status"] = next

	return s.repos.CleaningJob.UpdateWherePayoutStatus(
		ctx,
		s.db.SQLWithContext(ctx),
		jobID,
		[]PayoutStatus{PayoutStatusPending},
		patch,
	)
}

// EnsureCustomer returns the user's provider customer, creating it and the
// local record on first use.
func (s *PaymentService) EnsureCustomer(ctx context.Context, user *User) (*Customer, error) {
	log := s.log.TraceFromContext(ctx).Function("EnsureCustomer")

	customer, err := s.repos.Customer.GetByUserID(ctx, s.db.SQLWithContext(ctx), user.ID)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, types.NotFound("")) {
		return nil, err
	}

	params := CreateCustomerParams{
		Name:           user.FullName,
		Metadata:       map[string]string{"user_id": user.ID.String()},
		IdempotencyKey: "customer-" + user.ID.String(),
	}
	if user.Email != nil {
		params.Email = *user.Email
	}

	created, err := s.provider.CreateCustomer(ctx, params)
	ref := auditRef{userID: &user.ID, idempotencyKey: params.IdempotencyKey}
	if created != nil {
		ref.objectID = created.ID
	}
	s.audit(ctx, OpCreateCustomer, ref, params, created, err)
	if err != nil {
		return nil, types.ErrPaymentSetupFailed.WithReason(providerReason(err)).WithCause(err)
	}

	customer = &Customer{
		UserID:             user.ID,
		ProviderCustomerID: created.ID,
		Email:              user.Email,
	}
	if err := s.repos.Customer.Create(ctx, s.db.SQLWithContext(ctx), customer); err != nil {
		// do not leave an orphaned customer at the provider
		delErr := s.provider.DeleteCustomer(ctx, created.ID)
		s.audit(ctx, OpDeleteCustomer, auditRef{userID: &user.ID, objectID: created.ID}, created.ID, nil, delErr)
		return nil, log.Err("failed to store customer", err, "userID", user.ID)
	}

	log.Info("customer created", "userID", user.ID, "customerID", created.ID)
	return customer, nil
}

// Authorize places a manual-capture hold for the job total. With a saved
// payment method the intent is confirmed off-session right away.
func (s *PaymentService) Authorize(
	ctx context.Context,
	jobID uuid.UUID,
	user *User,
	paymentMethodID string,
) (*AuthorizationResult, error) {
	log := s.log.TraceFromContext(ctx).Function("Authorize")

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status.IsTerminal() {
		return nil, types.Validation("a closed job cannot be paid for")
	}

	switch job.PaymentStatus {
	case PaymentStatusPending:
	case PaymentStatusAuthorized, PaymentStatusPaid:
		if job.PaymentIntentID == nil {
			return nil, types.InvalidTransition(string(job.PaymentStatus), string(PaymentStatusAuthorized))
		}
		return &AuthorizationResult{
			PaymentIntentID: *job.PaymentIntentID,
			PaymentStatus:   job.PaymentStatus,
		}, nil
	default:
		return nil, types.InvalidTransition(string(job.PaymentStatus), string(PaymentStatusAuthorized))
	}

	// an intent already exists for this job, hand back its current state
	if job.PaymentIntentID != nil {
		return s.syncAuthorization(ctx, job)
	}

	customer, err := s.EnsureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	params := CreateIntentParams{
		Amount:          ToMinorUnits(job.TotalPrice),
		Currency:        s.currency,
		CustomerID:      customer.ProviderCustomerID,
		PaymentMethodID: paymentMethodID,
		Description:     fmt.Sprintf("%s %s", job.ServiceType, job.ScheduledDate.Format("2006-01-02")),
		Metadata: map[string]string{
			"job_id":  job.ID.String(),
			"user_id": user.ID.String(),
		},
		IdempotencyKey: authorizeKey(job.ID),
	}
	if params.Amount <= 0 {
		return nil, types.Validation("job has no price to charge")
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, params)
	ref := auditRef{jobID: &job.ID, userID: &user.ID, idempotencyKey: params.IdempotencyKey}
	if intent != nil {
		ref.objectID = intent.ID
	}
	s.audit(ctx, OpCreatePaymentIntent, ref, params, intent, err)
	if err != nil {
		reason := providerReason(err)
		if providerErr, ok := AsProviderError(err); ok && providerErr.IsCardError() {
			if _, patchErr := s.patchJob(ctx, job.ID, []PaymentStatus{PaymentStatusPending}, map[string]any{
				"payment_failure_reason": reason,
			}); patchErr != nil {
				log.Warn("failed to store card failure reason", "jobID", job.ID, "error", patchErr)
			}
		}
		return nil, types.ErrPaymentSetupFailed.WithReason(reason).WithCause(err)
	}

	fields := map[string]any{
		"payment_intent_id":      intent.ID,
		"provider_customer_id":   customer.ProviderCustomerID,
		"payment_failure_reason": nil,
	}
	if _, err := s.patchJob(ctx, job.ID, []PaymentStatus{PaymentStatusPending}, fields); err != nil {
		return nil, log.Err("failed to store payment intent on job", err, "jobID", job.ID, "intentID", intent.ID)
	}

	paymentStatus := PaymentStatusPending
	if intent.Status == IntentRequiresCapture {
		if paymentStatus, err = s.recordHold(ctx, job.ID); err != nil {
			return nil, err
		}
	}

	log.Info("payment authorization started", "jobID", job.ID, "intentStatus", intent.Status)
	return &AuthorizationResult{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		IntentStatus:    intent.Status,
		PaymentStatus:   paymentStatus,
	}, nil
}

// SyncAuthorization reads the intent after client-side confirmation and moves
// a pending job to authorized once funds are held.
func (s *PaymentService) SyncAuthorization(ctx context.Context, jobID uuid.UUID) (*AuthorizationResult, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.PaymentIntentID == nil {
		return nil, types.Validation("payment has not been started for this job")
	}
	return s.syncAuthorization(ctx, job)
}

func (s *PaymentService) syncAuthorization(ctx context.Context, job *CleaningJob) (*AuthorizationResult, error) {
	log := s.log.TraceFromContext(ctx).Function("syncAuthorization")

	intent, err := s.retrieveIntent(ctx, job)
	if err != nil {
		return nil, types.ErrProviderError.WithReason(providerReason(err)).WithCause(err)
	}

	paymentStatus := job.PaymentStatus
	if job.PaymentStatus == PaymentStatusPending {
		switch intent.Status {
		case IntentRequiresCapture:
			if paymentStatus, err = s.recordHold(ctx, job.ID); err != nil {
				return nil, err
			}
		case IntentCanceled:
			// a cancelled job voids its own intent, which is not a payment failure
			if job.Status == JobStatusCancelled {
				break
			}
			moved, err := s.transitionPayment(ctx, job.ID, PaymentStatusFailed, map[string]any{
				"payment_failure_reason": "payment intent was canceled before authorization",
			}, PaymentStatusPending)
			if err != nil {
				return nil, log.Err("failed to update payment status", err, "jobID", job.ID)
			}
			if moved {
				paymentStatus = PaymentStatusFailed
			}
		}
	}

	return &AuthorizationResult{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		IntentStatus:    intent.Status,
		PaymentStatus:   paymentStatus,
	}, nil
}

func (s *PaymentService) retrieveIntent(ctx context.Context, job *CleaningJob) (*PaymentIntent, error) {
	intent, err := s.provider.RetrievePaymentIntent(ctx, *job.PaymentIntentID)
	s.audit(
		ctx,
		OpRetrievePaymentIntent,
		auditRef{jobID: &job.ID, objectID: *job.PaymentIntentID},
		map[string]string{"intentId": *job.PaymentIntentID},
		intent,
		err,
	)
	return intent, err
}

// recordHold moves a pending job to authorized once the provider holds the
// funds. When the job was cancelled first, the hold is voided instead and the
// job stays pending.
func (s *PaymentService) recordHold(ctx context.Context, jobID uuid.UUID) (PaymentStatus, error) {
	log := s.log.TraceFromContext(ctx).Function("recordHold")

	moved, err := s.transitionPayment(ctx, jobID, PaymentStatusAuthorized, map[string]any{
		"payment_failure_reason": nil,
	}, PaymentStatusPending)
	if err != nil {
		return "", log.Err("failed to record payment hold", err, "jobID", jobID)
	}

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	if moved || job.Status != JobStatusCancelled || job.PaymentStatus != PaymentStatusPending {
		return job.PaymentStatus, nil
	}

	log.Warn("payment hold arrived for a cancelled job, voiding it", "jobID", jobID)
	if err := s.voidPending(ctx, job); err != nil {
		return job.PaymentStatus, err
	}
	return job.PaymentStatus, nil
}

// voidPending cancels the job's intent if the provider still allows it.
func (s *PaymentService) voidPending(ctx context.Context, job *CleaningJob) error {
	if job.PaymentIntentID == nil {
		return nil
	}

	intent, err := s.retrieveIntent(ctx, job)
	if err != nil {
		return types.ErrProviderError.WithReason(providerReason(err)).WithCause(err)
	}
	if !intent.Status.Voidable() {
		return nil
	}

	if _, err := s.cancelIntent(ctx, job); err != nil {
		return types.ErrProviderError.WithReason(providerReason(err)).WithCause(err)
	}
	return nil
}

// Capture charges the held amount. The remote intent is inspected first, so
// calling Capture again after a success, or after a crash between the
// provider call and the local write, never charges twice.
func (s *PaymentService) Capture(ctx context.Context, jobID uuid.UUID) (*CleaningJob, error) {
	log := s.log.TraceFromContext(ctx).Function("Capture")

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	switch job.PaymentStatus {
	case PaymentStatusPaid:
		return job, nil
	case PaymentStatusPending, PaymentStatusAuthorized:
	default:
		return job, types.ErrNotCapturable.WithReason("payment status is " + string(job.PaymentStatus))
	}

	if job.PaymentIntentID == nil {
		return s.failCapture(ctx, job, "no payment authorization exists for this job")
	}

	intent, err := s.retrieveIntent(ctx, job)
	if err != nil {
		return s.deferCapture(ctx, job, err)
	}

	switch intent.Status {
	case IntentSucceeded, IntentRequiresCapture:
	default:
		return s.failCapture(ctx, job, "payment intent status is "+string(intent.Status))
	}

	// the hold was confirmed client side without a sync, record it before
	// moving on to paid
	if job.PaymentStatus == PaymentStatusPending {
		status, err := s.recordHold(ctx, job.ID)
		if err != nil {
			return nil, err
		}
		if status != PaymentStatusAuthorized {
			return s.loadJob(ctx, job.ID)
		}
		job.PaymentStatus = status
	}

	if intent.Status == IntentSucceeded {
		log.Info("intent already captured", "jobID", job.ID, "intentID", intent.ID)
		return s.markPaid(ctx, job, intent)
	}

	params := CaptureParams{
		IntentID:       intent.ID,
		Amount:         ToMinorUnits(job.TotalPrice),
		IdempotencyKey: captureKey(job.ID),
	}
	if params.Amount > intent.Amount {
		params.Amount = intent.Amount
	}

	captured, err := s.provider.CapturePaymentIntent(ctx, params)
	s.audit(
		ctx,
		OpCapturePaymentIntent,
		auditRef{jobID: &job.ID, objectID: intent.ID, idempotencyKey: params.IdempotencyKey},
		params,
		captured,
		err,
	)
	if err != nil {
		if providerErr, ok := AsProviderError(err); ok && providerErr.IsStateError() {
			return s.failCapture(ctx, job, providerReason(err))
		}
		return s.deferCapture(ctx, job, err)
	}

	if captured.Status != IntentSucceeded {
		return s.failCapture(ctx, job, "capture left payment intent in status "+string(captured.Status))
	}

	return s.markPaid(ctx, job, captured)
}

func (s *PaymentService) markPaid(
	ctx context.Context,
	job *CleaningJob,
	intent *PaymentIntent,
) (*CleaningJob, error) {
	log := s.log.TraceFromContext(ctx).Function("markPaid")

	captured := FromMinorUnits(intent.AmountReceived)
	if intent.AmountReceived == 0 {
		captured = job.TotalPrice
	}

	fields := map[string]any{
		"captured_amount":        captured,
		"payment_failure_reason": nil,
	}
	if _, err := s.transitionPayment(ctx, job.ID, PaymentStatusPaid, fields); err != nil {
		return nil, log.Err("failed to mark job paid", err, "jobID", job.ID)
	}

	log.Info("payment captured", "jobID", job.ID, "amount", captured.String())
	return s.loadJob(ctx, job.ID)
}

// failCapture records a non-capturable intent as a failed payment.
func (s *PaymentService) failCapture(
	ctx context.Context,
	job *CleaningJob,
	reason string,
) (*CleaningJob, error) {
	log := s.log.TraceFromContext(ctx).Function("failCapture")

	if _, err := s.transitionPayment(
		ctx,
		job.ID,
		PaymentStatusFailed,
		map[string]any{"payment_failure_reason": reason},
		PaymentStatusPending,
		PaymentStatusAuthorized,
	); err != nil {
		return nil, log.Err("failed to mark payment failed", err, "jobID", job.ID)
	}

	log.Warn("payment not capturable", "jobID", job.ID, "reason", reason)
	updated, err := s.loadJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	return updated, types.ErrNotCapturable.WithReason(reason)
}

// deferCapture keeps the current payment status so the capture can be
// retried, and stores why it did not go through.
func (s *PaymentService) deferCapture(
	ctx context.Context,
	job *CleaningJob,
	cause error,
) (*CleaningJob, error) {
	reason := providerReason(cause)
	if _, err := s.patchJob(
		ctx,
		job.ID,
		[]PaymentStatus{PaymentStatusPending, PaymentStatusAuthorized},
		map[string]any{"payment_failure_reason": reason},
	); err != nil {
		s.log.TraceFromContext(ctx).Function("deferCapture").
			Warn("failed to store capture failure reason", "jobID", job.ID, "error", err)
	}

	updated, err := s.loadJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	return updated, types.ErrProviderError.WithReason(reason).WithCause(cause)
}

// Transfer pays the cleaner's share to their connect account. A blocked
// payout stays pending with a reason so it can be retried after onboarding.
func (s *PaymentService) Transfer(ctx context.Context, jobID uuid.UUID) (*CleaningJob, error) {
	log := s.log.TraceFromContext(ctx).Function("Transfer")

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.PayoutStatus == PayoutStatusPaid {
		return job, nil
	}
	if job.PayoutStatus != PayoutStatusPending {
		return job, types.InvalidTransition(string(job.PayoutStatus), string(PayoutStatusPaid))
	}
	if job.PaymentStatus != PaymentStatusPaid {
		return s.blockPayout(ctx, job, "payment has not been captured")
	}
	if job.AssignedCleanerID == nil {
		return s.blockPayout(ctx, job, "job has no assigned cleaner")
	}

	cleaner, err := s.repos.Cleaner.GetByID(ctx, s.db.SQLWithContext(ctx), *job.AssignedCleanerID)
	if err != nil {
		return job, err
	}
	if cleaner.ConnectAccountID == nil || *cleaner.ConnectAccountID == "" {
		return s.blockPayout(ctx, job, "cleaner has not set up a payout account")
	}

	account, err := s.retrieveAccount(ctx, cleaner, &job.ID)
	if err != nil {
		return s.deferPayout(ctx, job, err)
	}
	if err := s.applyConnectAccount(ctx, cleaner, account); err != nil {
		log.Warn("failed to refresh cleaner connect status", "cleanerID", cleaner.ID, "error", err)
	}
	if !account.ChargesEnabled {
		return s.blockPayout(ctx, job, "cleaner payout account cannot receive transfers yet")
	}

	group := transferGroup(job.ID)
	existing, err := s.provider.FindTransfer(ctx, group)
	s.audit(ctx, OpFindTransfer, auditRef{jobID: &job.ID}, map[string]string{"transferGroup": group}, existing, err)
	if err != nil {
		return s.deferPayout(ctx, job, err)
	}
	if existing != nil {
		log.Info("transfer already exists", "jobID", job.ID, "transferID", existing.ID)
		return s.markPaidOut(ctx, job, existing)
	}

	params := TransferParams{
		Amount:             ToMinorUnits(job.CleanerPayout),
		Currency:           s.currency,
		DestinationAccount: account.ID,
		TransferGroup:      group,
		Metadata: map[string]string{
			"job_id":     job.ID.String(),
			"cleaner_id": cleaner.ID.String(),
		},
		IdempotencyKey: transferKey(job.ID),
	}

	transfer, err := s.provider.CreateTransfer(ctx, params)
	ref := auditRef{jobID: &job.ID, userID: &cleaner.UserID, idempotencyKey: params.IdempotencyKey}
	if transfer != nil {
		ref.objectID = transfer.ID
	}
	s.audit(ctx, OpCreateTransfer, ref, params, transfer, err)
	if err != nil {
		return s.deferPayout(ctx, job, err)
	}

	return s.markPaidOut(ctx, job, transfer)
}

func (s *PaymentService) markPaidOut(
	ctx context.Context,
	job *CleaningJob,
	transfer *Transfer,
) (*CleaningJob, error) {
	log := s.log.TraceFromContext(ctx).Function("markPaidOut")

	if _, err := s.transitionPayout(ctx, job.ID, PayoutStatusPaid, map[string]any{
		"transfer_id":           transfer.ID,
		"payout_date":           time.Now(),
		"payout_pending_reason": nil,
	}); err != nil {
		return nil, log.Err("failed to mark job paid out", err, "jobID", job.ID)
	}

	log.Info("payout sent", "jobID", job.ID, "transferID", transfer.ID)
	return s.loadJob(ctx, job.ID)
}

func (s *PaymentService) setPayoutReason(ctx context.Context, jobID uuid.UUID, reason string) error {
	_, err := s.repos.CleaningJob.UpdateWherePayoutStatus(
		ctx,
		s.db.SQLWithContext(ctx),
		jobID,
		[]PayoutStatus{PayoutStatusPending},
		map[string]any{"payout_pending_reason": reason},
	)
	return err
}

func (s *PaymentService) blockPayout(
	ctx context.Context,
	job *CleaningJob,
	reason string,
) (*CleaningJob, error) {
	log := s.log.TraceFromContext(ctx).Function("blockPayout")

	if err := s.setPayoutReason(ctx, job.ID, reason); err != nil {
		return nil, log.Err("failed to store payout reason", err, "jobID", job.ID)
	}

	log.Info("payout blocked", "jobID", job.ID, "reason", reason)
	updated, err := s.loadJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	return updated, types.ErrPayoutBlocked.WithReason(reason)
}

func (s *PaymentService) deferPayout(
	ctx context.Context,
	job *CleaningJob,
	cause error,
) (*CleaningJob, error) {
	reason := providerReason(cause)
	if err := s.setPayoutReason(ctx, job.ID, reason); err != nil {
		s.log.TraceFromContext(ctx).Function("deferPayout").Warn("failed to store payout reason", "error", err)
	}

	updated, err := s.loadJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	return updated, types.ErrProviderError.WithReason(reason).WithCause(cause)
}

// RefundOrVoid releases a held payment or refunds a captured one.
func (s *PaymentService) RefundOrVoid(ctx context.Context, jobID uuid.UUID) (*CleaningJob, error) {
	log := s.log.TraceFromContext(ctx).Function("RefundOrVoid")

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	switch job.PaymentStatus {
	case PaymentStatusRefunded:
		return job, nil
	case PaymentStatusAuthorized, PaymentStatusPaid:
	default:
		return job, types.ErrNotRefundable.WithReason("payment status is " + string(job.PaymentStatus))
	}
	if job.PaymentIntentID == nil {
		return job, types.ErrNotRefundable.WithReason("job has no payment intent")
	}

	intent, err := s.retrieveIntent(ctx, job)
	if err != nil {
		return job, types.ErrProviderError.WithReason(providerReason(err)).WithCause(err)
	}

	switch {
	case intent.Status == IntentCanceled:
	case intent.Status.Voidable():
		if _, err := s.cancelIntent(ctx, job); err != nil {
			return job, types.ErrProviderError.WithReason(providerReason(err)).WithCause(err)
		}
	case intent.Status == IntentSucceeded:
		key := refundKey(job.ID)
		refund, err := s.provider.CreateRefund(ctx, intent.ID, key)
		ref := auditRef{jobID: &job.ID, idempotencyKey: key, objectID: intent.ID}
		s.audit(ctx, OpCreateRefund, ref, map[string]string{"paymentIntent": intent.ID}, refund, err)
		if err != nil {
			return job, types.ErrProviderError.WithReason(providerReason(err)).WithCause(err)
		}
	default:
		return job, types.ErrNotRefundable.WithReason("payment intent status is " + string(intent.Status))
	}

	if _, err := s.transitionPayment(ctx, job.ID, PaymentStatusRefunded, nil); err != nil {
		return nil, log.Err("failed to mark job refunded", err, "jobID", job.ID)
	}

	log.Info("payment refunded", "jobID", job.ID, "intentStatus", intent.Status)
	return s.loadJob(ctx, job.ID)
}

// ReleasePayment frees whatever the provider holds for a cancelled job,
// deciding from the payment status stored at call time. Held or captured
// funds are voided or refunded. An unconfirmed intent is canceled and the
// status stays pending.
func (s *PaymentService) ReleasePayment(ctx context.Context, jobID uuid.UUID) (*CleaningJob, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	switch job.PaymentStatus {
	case PaymentStatusAuthorized, PaymentStatusPaid, PaymentStatusRefunded:
		return s.RefundOrVoid(ctx, jobID)
	case PaymentStatusPending:
		if err := s.voidPending(ctx, job); err != nil {
			return job, err
		}
		return s.loadJob(ctx, jobID)
	}
	return job, nil
}

func (s *PaymentService) cancelIntent(ctx context.Context, job *CleaningJob) (*PaymentIntent, error) {
	intent, err := s.provider.CancelPaymentIntent(ctx, *job.PaymentIntentID)
	s.audit(
		ctx,
		OpCancelPaymentIntent,
		auditRef{jobID: &job.ID, objectID: *job.PaymentIntentID},
		map[string]string{"intentId": *job.PaymentIntentID},
		intent,
		err,
	)
	return intent, err
}

// SyncPaymentMethods mirrors the user's saved cards from the provider.
func (s *PaymentService) SyncPaymentMethods(ctx context.Context, user *User) ([]*PaymentMethod, error) {
	log := s.log.TraceFromContext(ctx).Function("SyncPaymentMethods")

	customer, err := s.repos.Customer.GetByUserID(ctx, s.db.SQLWithContext(ctx), user.ID)
	if err != nil {
		if errors.Is(err, types.NotFound("")) {
			return []*PaymentMethod{}, nil
		}
		return nil, err
	}

	saved, err := s.provider.ListPaymentMethods(ctx, customer.ProviderCustomerID)
	s.audit(
		ctx,
		OpListPaymentMethods,
		auditRef{userID: &user.ID, objectID: customer.ProviderCustomerID},
		map[string]string{"customer": customer.ProviderCustomerID},
		saved,
		err,
	)
	if err != nil {
		return nil, types.ErrProviderError.WithReason(providerReason(err)).WithCause(err)
	}

	methods := make([]*PaymentMethod, 0, len(saved))
	for i, pm := range saved {
		methods = append(methods, &PaymentMethod{
			UserID:                  user.ID,
			CustomerID:              customer.ID,
			ProviderPaymentMethodID: pm.ID,
			Brand:                   pm.Brand,
			Last4:                   pm.Last4,
			ExpMonth:                pm.ExpMonth,
			ExpYear:                 pm.ExpYear,
			IsDefault:               i == 0,
		})
	}

	tx := s.db.SQLWithContext(ctx)
	if err := tx.Transaction(func(tx *gorm.DB) error {
		return s.repos.PaymentMethod.ReplaceForUser(ctx, tx, user.ID, methods)
	}); err != nil {
		return nil, log.Err("failed to store payment methods", err, "userID", user.ID)
	}

	return methods, nil
}

// CreateConnectAccount opens a provider account for the cleaner. The caller
// stores the id.
func (s *PaymentService) CreateConnectAccount(
	ctx context.Context,
	cleaner *Cleaner,
	email string,
) (*ConnectAccount, error) {
	params := CreateAccountParams{
		Email:          email,
		Country:        s.country,
		Metadata:       map[string]string{"cleaner_id": cleaner.ID.String()},
		IdempotencyKey: "connect-" + cleaner.ID.String(),
	}

	account, err := s.provider.CreateConnectAccount(ctx, params)
	ref := auditRef{userID: &cleaner.UserID, idempotencyKey: params.IdempotencyKey}
	if account != nil {
		ref.objectID = account.ID
	}
	s.audit(ctx, OpCreateConnectAccount, ref, params, account, err)
	if err != nil {
		return nil, types.ErrProviderError.WithReason(providerReason(err)).WithCause(err)
	}
	return account, nil
}

func (s *PaymentService) CreateOnboardingLink(
	ctx context.Context,
	cleaner *Cleaner,
	refreshURL, returnURL string,
) (string, error) {
	if cleaner.ConnectAccountID == nil {
		return "", types.Validation("create a payout account before onboarding")
	}

	accountID := *cleaner.ConnectAccountID
	url, err := s.provider.CreateAccountOnboardingLink(ctx, accountID, refreshURL, returnURL)
	s.audit(
		ctx,
		OpCreateOnboardingLink,
		auditRef{userID: &cleaner.UserID, objectID: accountID},
		map[string]string{"account": accountID, "refreshUrl": refreshURL, "returnUrl": returnURL},
		map[string]string{"url": url},
		err,
	)
	if err != nil {
		return "", types.ErrProviderError.WithReason(providerReason(err)).WithCause(err)
	}
	return url, nil
}

// RefreshConnectStatus pulls the account from the provider and stores its
// status on the cleaner.
func (s *PaymentService) RefreshConnectStatus(ctx context.Context, cleaner *Cleaner) (*Cleaner, error) {
	if cleaner.ConnectAccountID == nil {
		return nil, types.Validation("cleaner has no payout account")
	}

	account, err := s.retrieveAccount(ctx, cleaner, nil)
	if err != nil {
		return nil, types.ErrProviderError.WithReason(providerReason(err)).WithCause(err)
	}
	if err := s.applyConnectAccount(ctx, cleaner, account); err != nil {
		return nil, err
	}
	return s.repos.Cleaner.GetByID(ctx, s.db.SQLWithContext(ctx), cleaner.ID)
}

func (s *PaymentService) retrieveAccount(
	ctx context.Context,
	cleaner *Cleaner,
	jobID *uuid.UUID,
) (*ConnectAccount, error) {
	accountID := *cleaner.ConnectAccountID
	account, err := s.provider.RetrieveConnectAccount(ctx, accountID)
	s.audit(
		ctx,
		OpRetrieveConnect,
		auditRef{jobID: jobID, userID: &cleaner.UserID, objectID: accountID},
		map[string]string{"account": accountID},
		account,
		err,
	)
	return account, err
}

// ConnectStatusFor maps provider account flags to the stored status.
func ConnectStatusFor(account *ConnectAccount) ConnectAccountStatus {
	switch {
	case account.ChargesEnabled:
		return ConnectStatusActive
	case account.DisabledReason != "":
		return ConnectStatusDisabled
	case account.DetailsSubmitted:
		return ConnectStatusRestricted
	default:
		return ConnectStatusPending
	}
}

func (s *PaymentService) applyConnectAccount(
	ctx context.Context,
	cleaner *Cleaner,
	account *ConnectAccount,
) error {
	fields := map[string]any{
		"connect_account_status": ConnectStatusFor(account),
		"charges_enabled":        account.ChargesEnabled,
		"payouts_enabled":        account.PayoutsEnabled,
	}
	if account.PayoutSchedule != "" {
		fields["payout_schedule"] = account.PayoutSchedule
	}
	if account.BankSummary != "" {
		fields["bank_summary"] = account.BankSummary
	}
	return s.repos.Cleaner.Update(ctx, s.db.SQLWithContext(ctx), cleaner.ID, fields)
}

// HandleWebhook applies a verified provider event. Unknown event types and
// objects we do not track are ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, event *WebhookEvent) error {
	log := s.log.TraceFromContext(ctx).Function("HandleWebhook")
	tx := s.db.SQLWithContext(ctx)

	switch {
	case event.PaymentIntent != nil:
		job, err := s.repos.CleaningJob.GetByPaymentIntentID(ctx, tx, event.PaymentIntent.ID)
		if err != nil {
			if errors.Is(err, types.NotFound("")) {
				log.Debug("webhook for unknown intent", "intentID", event.PaymentIntent.ID)
				return nil
			}
			return err
		}

		switch event.Type {
		case "payment_intent.amount_capturable_updated":
			// events can arrive late or out of order, so the live intent decides
			if job.PaymentStatus == PaymentStatusPending && job.PaymentIntentID != nil {
				_, err = s.syncAuthorization(ctx, job)
			}
		case "payment_intent.payment_failed":
			reason := event.PaymentIntent.LastError
			if reason == "" {
				reason = "payment failed"
			}
			if job.Status != JobStatusCancelled {
				_, err = s.transitionPayment(ctx, job.ID, PaymentStatusFailed, map[string]any{
					"payment_failure_reason": reason,
				}, PaymentStatusPending)
			}
		}
		if err != nil {
			return log.Err("failed to apply payment webhook", err, "eventID", event.ID, "jobID", job.ID)
		}

	case event.Account != nil && event.Type == "account.updated":
		cleaner, err := s.repos.Cleaner.GetByConnectAccountID(ctx, tx, event.Account.ID)
		if err != nil {
			if errors.Is(err, types.NotFound("")) {
				log.Debug("webhook for unknown account", "accountID", event.Account.ID)
				return nil
			}
			return err
		}
		if err := s.applyConnectAccount(ctx, cleaner, event.Account); err != nil {
			return log.Err("failed to apply account webhook", err, "eventID", event.ID, "cleanerID", cleaner.ID)
		}
	}

	return nil
}
