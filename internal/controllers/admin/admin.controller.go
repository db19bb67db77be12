package adminController

import (
	"context"
	"errors"
	"time"

	"cleanbook/internal/database"
	. "cleanbook/internal/models"
	"cleanbook/internal/repositories"
	"cleanbook/internal/services"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/gorm"
)

// PayoutRetrySummary reports one pass over the jobs awaiting payout.
type PayoutRetrySummary struct {
	Attempted int `json:"attempted"`
	PaidOut   int `json:"paidOut"`
	Blocked   int `json:"blocked"`
	Failed    int `json:"failed"`
}

type AdminControllerInterface interface {
	ListAwaitingPayout(ctx context.Context) ([]*CleaningJob, error)
	RetryPendingPayouts(ctx context.Context) (*PayoutRetrySummary, error)
	ReconcileRequests(ctx context.Context) (int, error)
}

type AdminController struct {
	jobRepo     repositories.CleaningJobRepository
	requestRepo repositories.CleanerRequestRepository
	payment     *services.PaymentService
	transaction *services.TransactionService
	db          database.DB
	log         logger.Logger
}

func New(
	repos repositories.Repository,
	services services.Service,
	db database.DB,
) AdminControllerInterface {
	return &AdminController{
		jobRepo:     repos.CleaningJob,
		requestRepo: repos.CleanerRequest,
		payment:     services.Payment,
		transaction: services.Transaction,
		db:          db,
		log:         logger.New("adminController"),
	}
}

func (c *AdminController) ListAwaitingPayout(ctx context.Context) ([]*CleaningJob, error) {
	return c.jobRepo.GetAwaitingPayout(ctx, c.db.SQLWithContext(ctx))
}

// RetryPendingPayouts re-runs Transfer for every completed, captured job whose
// cleaner has not been paid. A failing job never stops the pass.
func (c *AdminController) RetryPendingPayouts(ctx context.Context) (*PayoutRetrySummary, error) {
	log := c.log.TraceFromContext(ctx).Function("RetryPendingPayouts")

	jobs, err := c.ListAwaitingPayout(ctx)
	if err != nil {
		return nil, err
	}

	summary := &PayoutRetrySummary{}
	for _, job := range jobs {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		summary.Attempted++
		updated, err := c.payment.Transfer(ctx, job.ID)
		switch {
		case err == nil && updated.PayoutStatus == PayoutStatusPaid:
			summary.PaidOut++
		case errors.Is(err, types.ErrPayoutBlocked):
			summary.Blocked++
		case err != nil:
			summary.Failed++
			log.Warn("payout retry failed", "jobID", job.ID, "error", err)
		}
	}

	log.Info(
		"payout retry finished",
		"attempted", summary.Attempted,
		"paidOut", summary.PaidOut,
		"blocked", summary.Blocked,
		"failed", summary.Failed,
	)
	return summary, nil
}

// ReconcileRequests declines pending requests left behind on jobs that no
// longer accept them and returns how many were declined.
func (c *AdminController) ReconcileRequests(ctx context.Context) (int, error) {
	log := c.log.TraceFromContext(ctx).Function("ReconcileRequests")

	var declined int
	err := c.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		stale, err := c.requestRepo.GetStalePending(ctx, tx)
		if err != nil {
			return err
		}

		now := time.Now()
		for _, request := range stale {
			changed, err := c.requestRepo.UpdateWhereStatus(
				ctx,
				tx,
				request.ID,
				[]RequestStatus{RequestStatusPending},
				map[string]any{"status": RequestStatusDeclined, "responded_at": now},
			)
			if err != nil {
				return err
			}
			if changed {
				declined++
			}
		}
		return nil
	})
	if err != nil {
		return 0, log.Err("failed to reconcile requests", err)
	}

	if declined > 0 {
		log.Info("declined stale requests", "count", declined)
	}
	return declined, nil
}
