package repositories

import (
	"context"

	. "cleanbook/internal/models"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LandlordRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Landlord, error)
	GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*Landlord, error)
	Create(ctx context.Context, tx *gorm.DB, landlord *Landlord) error
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error
}

type landlordRepository struct {
	log logger.Logger
}

func NewLandlordRepository() LandlordRepository {
	return &landlordRepository{log: logger.New("landlordRepository")}
}

func (r *landlordRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Landlord, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByID")

	var landlord Landlord
	if err := tx.WithContext(ctx).Preload("Company").First(&landlord, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFound("landlord not found")
		}
		return nil, log.Err("failed to get landlord", err, "id", id)
	}
	return &landlord, nil
}

func (r *landlordRepository) GetActiveByUserID(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
) (*Landlord, error) {
	log := r.log.TraceFromContext(ctx).Function("GetActiveByUserID")

	var landlord Landlord
	if err := tx.WithContext(ctx).
		Preload("Company").
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&landlord).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFound("landlord not found")
		}
		return nil, log.Err("failed to get landlord by user", err, "userID", userID)
	}
	return &landlord, nil
}

func (r *landlordRepository) Create(ctx context.Context, tx *gorm.DB, landlord *Landlord) error {
	log := r.log.TraceFromContext(ctx).Function("Create")

	if err := tx.WithContext(ctx).Omit("Company").Create(landlord).Error; err != nil {
		return log.Err("failed to create landlord", err, "userID", landlord.UserID)
	}
	return nil
}

func (r *landlordRepository) Update(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	fields map[string]any,
) error {
	log := r.log.TraceFromContext(ctx).Function("Update")

	if err := tx.WithContext(ctx).Model(&Landlord{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return log.Err("failed to update landlord", err, "id", id)
	}
	return nil
}
