package repositories

import (
	"context"
	"time"

	. "cleanbook/internal/models"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CleanerRequestRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*CleanerRequest, error)
	GetByJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*CleanerRequest, error)
	GetByCleaner(ctx context.Context, tx *gorm.DB, cleanerID uuid.UUID) ([]*CleanerRequest, error)
	GetActiveForCleaner(
		ctx context.Context,
		tx *gorm.DB,
		jobID uuid.UUID,
		cleanerID uuid.UUID,
	) (*CleanerRequest, error)
	CountPending(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (int64, error)
	GetStalePending(ctx context.Context, tx *gorm.DB) ([]*CleanerRequest, error)
	Create(ctx context.Context, tx *gorm.DB, request *CleanerRequest) error
	UpdateWhereStatus(
		ctx context.Context,
		tx *gorm.DB,
		id uuid.UUID,
		allowed []RequestStatus,
		fields map[string]any,
	) (bool, error)
	DeclinePendingForJob(
		ctx context.Context,
		tx *gorm.DB,
		jobID uuid.UUID,
		except *uuid.UUID,
	) ([]uuid.UUID, error)
}

type cleanerRequestRepository struct {
	log logger.Logger
}

func NewCleanerRequestRepository() CleanerRequestRepository {
	return &cleanerRequestRepository{log: logger.New("cleanerRequestRepository")}
}

func (r *cleanerRequestRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
) (*CleanerRequest, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByID")

	var request CleanerRequest
	if err := tx.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFound("cleaner request not found")
		}
		return nil, log.Err("failed to get cleaner request", err, "id", id)
	}
	return &request, nil
}

func (r *cleanerRequestRepository) GetByJob(
	ctx context.Context,
	tx *gorm.DB,
	jobID uuid.UUID,
) ([]*CleanerRequest, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByJob")

	var requests []*CleanerRequest
	if err := tx.WithContext(ctx).
		Preload("Cleaner").
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, log.Err("failed to list job requests", err, "jobID", jobID)
	}
	return requests, nil
}

func (r *cleanerRequestRepository) GetByCleaner(
	ctx context.Context,
	tx *gorm.DB,
	cleanerID uuid.UUID,
) ([]*CleanerRequest, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByCleaner")

	requests, err := gorm.G[*CleanerRequest](tx).
		Where("cleaner_id = ?", cleanerID).
		Order("created_at DESC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to list cleaner requests", err, "cleanerID", cleanerID)
	}
	return requests, nil
}

// GetActiveForCleaner returns the cleaner's non-withdrawn request for the job.
func (r *cleanerRequestRepository) GetActiveForCleaner(
	ctx context.Context,
	tx *gorm.DB,
	jobID uuid.UUID,
	cleanerID uuid.UUID,
) (*CleanerRequest, error) {
	log := r.log.TraceFromContext(ctx).Function("GetActiveForCleaner")

	var request CleanerRequest
	if err := tx.WithContext(ctx).
		Where("job_id = ? AND cleaner_id = ? AND status <> ?", jobID, cleanerID, RequestStatusWithdrawn).
		First(&request).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFound("cleaner request not found")
		}
		return nil, log.Err("failed to get active request", err, "jobID", jobID, "cleanerID", cleanerID)
	}
	return &request, nil
}

func (r *cleanerRequestRepository) CountPending(
	ctx context.Context,
	tx *gorm.DB,
	jobID uuid.UUID,
) (int64, error) {
	log := r.log.TraceFromContext(ctx).Function("CountPending")

	var count int64
	if err := tx.WithContext(ctx).
		Model(&CleanerRequest{}).
		Where("job_id = ? AND status = ?", jobID, RequestStatusPending).
		Count(&count).Error; err != nil {
		return 0, log.Err("failed to count pending requests", err, "jobID", jobID)
	}
	return count, nil
}

// GetStalePending finds pending requests whose job no longer accepts requests.
func (r *cleanerRequestRepository) GetStalePending(
	ctx context.Context,
	tx *gorm.DB,
) ([]*CleanerRequest, error) {
	log := r.log.TraceFromContext(ctx).Function("GetStalePending")

	var requests []*CleanerRequest
	if err := tx.WithContext(ctx).
		Joins("JOIN cleaning_jobs ON cleaning_jobs.id = cleaner_requests.job_id").
		Where("cleaner_requests.status = ?", RequestStatusPending).
		Where("cleaning_jobs.status NOT IN ?", toStrings(OpenJobStatuses())).
		Find(&requests).Error; err != nil {
		return nil, log.Err("failed to list stale requests", err)
	}
	return requests, nil
}

func (r *cleanerRequestRepository) Create(
	ctx context.Context,
	tx *gorm.DB,
	request *CleanerRequest,
) error {
	log := r.log.TraceFromContext(ctx).Function("Create")

	if err := tx.WithContext(ctx).Omit("Cleaner").Create(request).Error; err != nil {
		return log.Err("failed to create cleaner request", err, "jobID", request.JobID)
	}
	return nil
}

func (r *cleanerRequestRepository) UpdateWhereStatus(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	allowed []RequestStatus,
	fields map[string]any,
) (bool, error) {
	log := r.log.TraceFromContext(ctx).Function("UpdateWhereStatus")

	result := tx.WithContext(ctx).
		Model(&CleanerRequest{}).
		Where("id = ? AND status IN ?", id, toStrings(allowed)).
		Updates(fields)
	if result.Error != nil {
		return false, log.Err("failed to update cleaner request", result.Error, "id", id)
	}
	return result.RowsAffected > 0, nil
}

// DeclinePendingForJob declines every pending request on the job except the
// given one and returns the cleaner ids that were declined.
func (r *cleanerRequestRepository) DeclinePendingForJob(
	ctx context.Context,
	tx *gorm.DB,
	jobID uuid.UUID,
	except *uuid.UUID,
) ([]uuid.UUID, error) {
	log := r.log.TraceFromContext(ctx).Function("DeclinePendingForJob")

	query := tx.WithContext(ctx).
		Model(&CleanerRequest{}).
		Where("job_id = ? AND status = ?", jobID, RequestStatusPending)
	if except != nil {
		query = query.Where("id <> ?", *except)
	}

	var pending []*CleanerRequest
	if err := query.Find(&pending).Error; err != nil {
		return nil, log.Err("failed to load pending requests", err, "jobID", jobID)
	}
	if len(pending) == 0 {
		return []uuid.UUID{}, nil
	}

	ids := make([]uuid.UUID, 0, len(pending))
	cleanerIDs := make([]uuid.UUID, 0, len(pending))
	for _, request := range pending {
		ids = append(ids, request.ID)
		cleanerIDs = append(cleanerIDs, request.CleanerID)
	}

	now := time.Now()
	if err := tx.WithContext(ctx).
		Model(&CleanerRequest{}).
		Where("id IN ? AND status = ?", ids, RequestStatusPending).
		Updates(map[string]any{
			"status":       RequestStatusDeclined,
			"responded_at": now,
		}).Error; err != nil {
		return nil, log.Err("failed to decline pending requests", err, "jobID", jobID)
	}

	return cleanerIDs, nil
}
