package jobs

import (
	"context"

	adminController "cleanbook/internal/controllers/admin"
	"cleanbook/internal/services"

	logger "github.com/Bparsons0904/goLogger"
)

type PayoutRetrier interface {
	RetryPendingPayouts(ctx context.Context) (*adminController.PayoutRetrySummary, error)
}

type PayoutRetryJob struct {
	retrier  PayoutRetrier
	log      logger.Logger
	schedule services.Schedule
}

func NewPayoutRetryJob(retrier PayoutRetrier, schedule services.Schedule) *PayoutRetryJob {
	log := logger.New("payoutRetryJob")
	log.Info("Creating new payout retry job", "schedule", schedule)

	return &PayoutRetryJob{
		retrier:  retrier,
		log:      log,
		schedule: schedule,
	}
}

func (j *PayoutRetryJob) Name() string {
	return "DailyPayoutRetry"
}

func (j *PayoutRetryJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	summary, err := j.retrier.RetryPendingPayouts(ctx)
	if err != nil {
		return log.Err("payout retry failed", err)
	}

	log.Info("Payout retry completed", "attempted", summary.Attempted, "paidOut", summary.PaidOut)
	return nil
}

func (j *PayoutRetryJob) Schedule() services.Schedule {
	return j.schedule
}
