package repositories

import (
	"context"

	. "cleanbook/internal/models"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CleanerRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Cleaner, error)
	GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*Cleaner, error)
	GetByConnectAccountID(ctx context.Context, tx *gorm.DB, accountID string) (*Cleaner, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*Cleaner, error)
	Create(ctx context.Context, tx *gorm.DB, cleaner *Cleaner) error
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error
	UpdateWhereStatus(
		ctx context.Context,
		tx *gorm.DB,
		id uuid.UUID,
		allowed []CleanerStatus,
		fields map[string]any,
	) (bool, error)
}

type cleanerRepository struct {
	log logger.Logger
}

func NewCleanerRepository() CleanerRepository {
	return &cleanerRepository{log: logger.New("cleanerRepository")}
}

func (r *cleanerRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Cleaner, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByID")

	var cleaner Cleaner
	if err := tx.WithContext(ctx).First(&cleaner, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFound("cleaner not found")
		}
		return nil, log.Err("failed to get cleaner", err, "id", id)
	}
	return &cleaner, nil
}

func (r *cleanerRepository) GetActiveByUserID(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
) (*Cleaner, error) {
	log := r.log.TraceFromContext(ctx).Function("GetActiveByUserID")

	var cleaner Cleaner
	if err := tx.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&cleaner).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFound("cleaner not found")
		}
		return nil, log.Err("failed to get cleaner by user", err, "userID", userID)
	}
	return &cleaner, nil
}

func (r *cleanerRepository) GetByConnectAccountID(
	ctx context.Context,
	tx *gorm.DB,
	accountID string,
) (*Cleaner, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByConnectAccountID")

	var cleaner Cleaner
	if err := tx.WithContext(ctx).First(&cleaner, "connect_account_id = ?", accountID).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFound("cleaner not found")
		}
		return nil, log.Err("failed to get cleaner by connect account", err, "accountID", accountID)
	}
	return &cleaner, nil
}

func (r *cleanerRepository) GetByIDs(
	ctx context.Context,
	tx *gorm.DB,
	ids []uuid.UUID,
) ([]*Cleaner, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByIDs")

	if len(ids) == 0 {
		return []*Cleaner{}, nil
	}

	var cleaners []*Cleaner
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&cleaners).Error; err != nil {
		return nil, log.Err("failed to get cleaners", err, "count", len(ids))
	}
	return cleaners, nil
}

func (r *cleanerRepository) Create(ctx context.Context, tx *gorm.DB, cleaner *Cleaner) error {
	log := r.log.TraceFromContext(ctx).Function("Create")

	if err := tx.WithContext(ctx).Omit("User").Create(cleaner).Error; err != nil {
		return log.Err("failed to create cleaner", err, "userID", cleaner.UserID)
	}
	return nil
}

func (r *cleanerRepository) Update(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	fields map[string]any,
) error {
	log := r.log.TraceFromContext(ctx).Function("Update")

	if err := tx.WithContext(ctx).Model(&Cleaner{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return log.Err("failed to update cleaner", err, "id", id)
	}
	return nil
}

// UpdateWhereStatus patches the cleaner only while its status is one of allowed.
func (r *cleanerRepository) UpdateWhereStatus(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	allowed []CleanerStatus,
	fields map[string]any,
) (bool, error) {
	log := r.log.TraceFromContext(ctx).Function("UpdateWhereStatus")

	result := tx.WithContext(ctx).
		Model(&Cleaner{}).
		Where("id = ? AND status IN ?", id, toStrings(allowed)).
		Updates(fields)
	if result.Error != nil {
		return false, log.Err("failed to update cleaner status", result.Error, "id", id)
	}
	return result.RowsAffected > 0, nil
}
