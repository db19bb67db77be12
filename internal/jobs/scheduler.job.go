package jobs

import (
	"cleanbook/config"
	adminController "cleanbook/internal/controllers/admin"
	"cleanbook/internal/services"

	logger "github.com/Bparsons0904/goLogger"
)

const (
	Daily  = services.Daily
	Hourly = services.Hourly
)

func RegisterAllJobs(
	schedulerService *services.SchedulerService,
	config config.Config,
	admin adminController.AdminControllerInterface,
) error {
	log := logger.New("jobs").Function("RegisterAllJobs")

	if !config.SchedulerEnabled {
		log.Info("Scheduler disabled, skipping job registration")
		return nil
	}

	log.Info("Registering jobs")

	reconciliationJob := NewRequestReconciliationJob(admin, Hourly)
	if err := schedulerService.AddJob(reconciliationJob); err != nil {
		return log.Err("failed to register request reconciliation job", err)
	}
	log.Info("Registered request reconciliation job", "schedule", "hourly")

	payoutRetryJob := NewPayoutRetryJob(admin, Daily)
	if err := schedulerService.AddJob(payoutRetryJob); err != nil {
		return log.Err("failed to register payout retry job", err)
	}
	log.Info("Registered payout retry job", "schedule", "daily")

	return nil
}
