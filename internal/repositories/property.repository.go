package repositories

import (
	"context"

	. "cleanbook/internal/models"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PropertyRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Property, error)
	GetActiveByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*Property, error)
	Create(ctx context.Context, tx *gorm.DB, property *Property) error
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error
}

type propertyRepository struct {
	log logger.Logger
}

func NewPropertyRepository() PropertyRepository {
	return &propertyRepository{log: logger.New("propertyRepository")}
}

func (r *propertyRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Property, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByID")

	var property Property
	if err := tx.WithContext(ctx).First(&property, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFound("property not found")
		}
		return nil, log.Err("failed to get property", err, "id", id)
	}
	return &property, nil
}

func (r *propertyRepository) GetActiveByOwner(
	ctx context.Context,
	tx *gorm.DB,
	ownerID uuid.UUID,
) ([]*Property, error) {
	log := r.log.TraceFromContext(ctx).Function("GetActiveByOwner")

	properties, err := gorm.G[*Property](tx).
		Where("owner_id = ? AND is_active = ?", ownerID, true).
		Order("created_at DESC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to list properties", err, "ownerID", ownerID)
	}
	return properties, nil
}

func (r *propertyRepository) Create(ctx context.Context, tx *gorm.DB, property *Property) error {
	log := r.log.TraceFromContext(ctx).Function("Create")

	if err := tx.WithContext(ctx).Create(property).Error; err != nil {
		return log.Err("failed to create property", err, "ownerID", property.OwnerID)
	}
	return nil
}

func (r *propertyRepository) Update(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	fields map[string]any,
) error {
	log := r.log.TraceFromContext(ctx).Function("Update")

	result := tx.WithContext(ctx).Model(&Property{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return log.Err("failed to update property", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return types.NotFound("property not found")
	}
	return nil
}
