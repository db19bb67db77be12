package database

import (
	"cleanbook/internal/models"

	logger "github.com/Bparsons0904/goLogger"
)

func AllModels() []any {
	return []any{
		&models.User{},
		&models.Company{},
		&models.Property{},
		&models.Cleaner{},
		&models.Landlord{},
		&models.CleaningJob{},
		&models.CleanerRequest{},
		&models.ServicePricing{},
		&models.Customer{},
		&models.PaymentMethod{},
		&models.StripeLog{},
	}
}

// MigrateModels runs GORM AutoMigrate for all models
func (db *DB) MigrateModels() error {
	log := logger.New("database").Function("MigrateModels")
	log.Info("Starting database migration")

	for _, model := range AllModels() {
		if err := db.SQL.AutoMigrate(model); err != nil {
			return log.Err("Failed to migrate model", err, "model", model)
		}
	}

	log.Info("Database migration completed successfully")
	return nil
}

// constraintIndexes enforce the one-active-record rules. Both PostgreSQL and
// SQLite accept partial indexes in this form.
var constraintIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_cleaner_requests_accepted_per_job
		ON cleaner_requests(job_id) WHERE status = 'accepted' AND deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_cleaner_requests_active_per_cleaner
		ON cleaner_requests(job_id, cleaner_id) WHERE status <> 'withdrawn' AND deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_cleaners_active_user
		ON cleaners(user_id) WHERE is_active = true AND deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_landlords_active_user
		ON landlords(user_id) WHERE is_active = true AND deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_service_pricing_active
		ON service_pricing(service_type, size_range) WHERE is_active = true AND deleted_at IS NULL`,
}

var lookupIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_cleaning_jobs_status_scheduled ON cleaning_jobs(status, scheduled_date)",
	"CREATE INDEX IF NOT EXISTS idx_cleaning_jobs_payout ON cleaning_jobs(status, payment_status, payout_status)",
	"CREATE INDEX IF NOT EXISTS idx_cleaner_requests_job_status ON cleaner_requests(job_id, status)",
}

// CreateIndexes creates the indexes GORM cannot express with struct tags.
// Constraint indexes are required; lookup indexes only warn on failure.
func (db *DB) CreateIndexes() error {
	log := logger.New("database").Function("CreateIndexes")
	log.Info("Creating additional database indexes")

	for _, indexSQL := range constraintIndexes {
		if err := db.SQL.Exec(indexSQL).Error; err != nil {
			return log.Err("Failed to create constraint index", err, "sql", indexSQL)
		}
	}

	for _, indexSQL := range lookupIndexes {
		if err := db.SQL.Exec(indexSQL).Error; err != nil {
			log.Warn("Failed to create index", "sql", indexSQL, "error", err)
		}
	}

	log.Info("Additional database indexes created")
	return nil
}
