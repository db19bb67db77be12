package jobs

import (
	"context"

	"cleanbook/internal/services"

	logger "github.com/Bparsons0904/goLogger"
)

type RequestReconciler interface {
	ReconcileRequests(ctx context.Context) (int, error)
}

// RequestReconciliationJob declines pending requests on jobs that were
// assigned or cancelled without the requests being closed.
type RequestReconciliationJob struct {
	reconciler RequestReconciler
	log        logger.Logger
	schedule   services.Schedule
}

func NewRequestReconciliationJob(
	reconciler RequestReconciler,
	schedule services.Schedule,
) *RequestReconciliationJob {
	log := logger.New("requestReconciliationJob")
	log.Info("Creating new request reconciliation job", "schedule", schedule)

	return &RequestReconciliationJob{
		reconciler: reconciler,
		log:        log,
		schedule:   schedule,
	}
}

func (j *RequestReconciliationJob) Name() string {
	return "HourlyRequestReconciliation"
}

func (j *RequestReconciliationJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	declined, err := j.reconciler.ReconcileRequests(ctx)
	if err != nil {
		return log.Err("request reconciliation failed", err)
	}

	if declined > 0 {
		log.Info("Request reconciliation completed", "declined", declined)
	}
	return nil
}

func (j *RequestReconciliationJob) Schedule() services.Schedule {
	return j.schedule
}
