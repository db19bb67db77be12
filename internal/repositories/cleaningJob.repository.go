package repositories

import (
	"context"

	. "cleanbook/internal/models"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CleaningJobRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*CleaningJob, error)
	GetByPaymentIntentID(ctx context.Context, tx *gorm.DB, intentID string) (*CleaningJob, error)
	GetByLandlord(ctx context.Context, tx *gorm.DB, landlordID uuid.UUID) ([]*CleaningJob, error)
	GetByAssignedCleaner(ctx context.Context, tx *gorm.DB, cleanerID uuid.UUID) ([]*CleaningJob, error)
	GetByStatus(ctx context.Context, tx *gorm.DB, statuses ...JobStatus) ([]*CleaningJob, error)
	GetAwaitingPayout(ctx context.Context, tx *gorm.DB) ([]*CleaningJob, error)
	Create(ctx context.Context, tx *gorm.DB, job *CleaningJob) error
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error
	UpdateWhereStatus(
		ctx context.Context,
		tx *gorm.DB,
		id uuid.UUID,
		allowed []JobStatus,
		fields map[string]any,
	) (bool, error)
	UpdateWherePaymentStatus(
		ctx context.Context,
		tx *gorm.DB,
		id uuid.UUID,
		allowed []PaymentStatus,
		fields map[string]any,
	) (bool, error)
	UpdateWherePaymentAndJobStatus(
		ctx context.Context,
		tx *gorm.DB,
		id uuid.UUID,
		allowedPayment []PaymentStatus,
		allowedJob []JobStatus,
		fields map[string]any,
	) (bool, error)
	UpdateWherePayoutStatus(
		ctx context.Context,
		tx *gorm.DB,
		id uuid.UUID,
		allowed []PayoutStatus,
		fields map[string]any,
	) (bool, error)
}

type cleaningJobRepository struct {
	log logger.Logger
}

func NewCleaningJobRepository() CleaningJobRepository {
	return &cleaningJobRepository{log: logger.New("cleaningJobRepository")}
}

func (r *cleaningJobRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
) (*CleaningJob, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByID")

	var job CleaningJob
	if err := tx.WithContext(ctx).Preload("Property").First(&job, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFound("cleaning job not found")
		}
		return nil, log.Err("failed to get cleaning job", err, "id", id)
	}
	return &job, nil
}

func (r *cleaningJobRepository) GetByPaymentIntentID(
	ctx context.Context,
	tx *gorm.DB,
	intentID string,
) (*CleaningJob, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByPaymentIntentID")

	var job CleaningJob
	if err := tx.WithContext(ctx).First(&job, "payment_intent_id = ?", intentID).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFound("cleaning job not found")
		}
		return nil, log.Err("failed to get cleaning job by intent", err, "intentID", intentID)
	}
	return &job, nil
}

func (r *cleaningJobRepository) GetByLandlord(
	ctx context.Context,
	tx *gorm.DB,
	landlordID uuid.UUID,
) ([]*CleaningJob, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByLandlord")

	jobs, err := gorm.G[*CleaningJob](tx).
		Preload("Property", nil).
		Where("landlord_id = ?", landlordID).
		Order("scheduled_date DESC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to list landlord jobs", err, "landlordID", landlordID)
	}
	return jobs, nil
}

func (r *cleaningJobRepository) GetByAssignedCleaner(
	ctx context.Context,
	tx *gorm.DB,
	cleanerID uuid.UUID,
) ([]*CleaningJob, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByAssignedCleaner")

	jobs, err := gorm.G[*CleaningJob](tx).
		Preload("Property", nil).
		Where("assigned_cleaner_id = ?", cleanerID).
		Order("scheduled_date ASC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to list cleaner jobs", err, "cleanerID", cleanerID)
	}
	return jobs, nil
}

func (r *cleaningJobRepository) GetByStatus(
	ctx context.Context,
	tx *gorm.DB,
	statuses ...JobStatus,
) ([]*CleaningJob, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByStatus")

	var jobs []*CleaningJob
	if err := tx.WithContext(ctx).
		Preload("Property").
		Where("status IN ?", toStrings(statuses)).
		Order("scheduled_date ASC").
		Find(&jobs).Error; err != nil {
		return nil, log.Err("failed to list jobs by status", err, "statuses", statuses)
	}
	return jobs, nil
}

// GetAwaitingPayout returns completed jobs whose payment was captured but
// whose cleaner has not been paid yet.
func (r *cleaningJobRepository) GetAwaitingPayout(
	ctx context.Context,
	tx *gorm.DB,
) ([]*CleaningJob, error) {
	log := r.log.TraceFromContext(ctx).Function("GetAwaitingPayout")

	var jobs []*CleaningJob
	if err := tx.WithContext(ctx).
		Where(
			"status = ? AND payment_status = ? AND payout_status = ?",
			JobStatusCompleted,
			PaymentStatusPaid,
			PayoutStatusPending,
		).
		Order("completed_at ASC").
		Find(&jobs).Error; err != nil {
		return nil, log.Err("failed to list jobs awaiting payout", err)
	}
	return jobs, nil
}

func (r *cleaningJobRepository) Create(ctx context.Context, tx *gorm.DB, job *CleaningJob) error {
	log := r.log.TraceFromContext(ctx).Function("Create")

	if err := tx.WithContext(ctx).Omit("Property").Create(job).Error; err != nil {
		return log.Err("failed to create cleaning job", err, "propertyID", job.PropertyID)
	}
	return nil
}

func (r *cleaningJobRepository) Update(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	fields map[string]any,
) error {
	log := r.log.TraceFromContext(ctx).Function("Update")

	result := tx.WithContext(ctx).Model(&CleaningJob{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return log.Err("failed to update cleaning job", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return types.NotFound("cleaning job not found")
	}
	return nil
}

// UpdateWhereStatus is the compare-and-swap primitive for job state. The
// patch is applied in a single UPDATE guarded by the current status, so of
// two racing callers only one sees true.
func (r *cleaningJobRepository) UpdateWhereStatus(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	allowed []JobStatus,
	fields map[string]any,
) (bool, error) {
	log := r.log.TraceFromContext(ctx).Function("UpdateWhereStatus")

	result := tx.WithContext(ctx).
		Model(&CleaningJob{}).
		Where("id = ? AND status IN ?", id, toStrings(allowed)).
		Updates(fields)
	if result.Error != nil {
		return false, log.Err("failed to update cleaning job", result.Error, "id", id)
	}
	return result.RowsAffected > 0, nil
}

func (r *cleaningJobRepository) UpdateWherePaymentStatus(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	allowed []PaymentStatus,
	fields map[string]any,
) (bool, error) {
	log := r.log.TraceFromContext(ctx).Function("UpdateWherePaymentStatus")

	result := tx.WithContext(ctx).
		Model(&CleaningJob{}).
		Where("id = ? AND payment_status IN ?", id, toStrings(allowed)).
		Updates(fields)
	if result.Error != nil {
		return false, log.Err("failed to update job payment", result.Error, "id", id)
	}
	return result.RowsAffected > 0, nil
}

// UpdateWherePaymentAndJobStatus guards the payment patch on the job status
// as well, so a hold can not be recorded on a job cancelled in the meantime.
func (r *cleaningJobRepository) UpdateWherePaymentAndJobStatus(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	allowedPayment []PaymentStatus,
	allowedJob []JobStatus,
	fields map[string]any,
) (bool, error) {
	log := r.log.TraceFromContext(ctx).Function("UpdateWherePaymentAndJobStatus")

	result := tx.WithContext(ctx).
		Model(&CleaningJob{}).
		Where(
			"id = ? AND payment_status IN ? AND status IN ?",
			id,
			toStrings(allowedPayment),
			toStrings(allowedJob),
		).
		Updates(fields)
	if result.Error != nil {
		return false, log.Err("failed to update job payment", result.Error, "id", id)
	}
	return result.RowsAffected > 0, nil
}

func (r *cleaningJobRepository) UpdateWherePayoutStatus(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	allowed []PayoutStatus,
	fields map[string]any,
) (bool, error) {
	log := r.log.TraceFromContext(ctx).Function("UpdateWherePayoutStatus")

	result := tx.WithContext(ctx).
		Model(&CleaningJob{}).
		Where("id = ? AND payout_status IN ?", id, toStrings(allowed)).
		Updates(fields)
	if result.Error != nil {
		return false, log.Err("failed to update job payout", result.Error, "id", id)
	}
	return result.RowsAffected > 0, nil
}
