package repositories

import (
	"context"
	"fmt"

	"cleanbook/internal/constants"
	"cleanbook/internal/database"
	. "cleanbook/internal/models"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServicePricingRepository interface {
	GetActive(
		ctx context.Context,
		tx *gorm.DB,
		serviceType ServiceType,
		sizeRange SizeRange,
	) (*ServicePricing, error)
	GetAllActive(ctx context.Context, tx *gorm.DB) ([]*ServicePricing, error)
	Upsert(ctx context.Context, tx *gorm.DB, pricing []*ServicePricing) error
	ClearCache(ctx context.Context)
}

type servicePricingRepository struct {
	cache database.CacheClient
	log   logger.Logger
}

func NewServicePricingRepository(cache database.CacheClient) ServicePricingRepository {
	return &servicePricingRepository{
		cache: cache,
		log:   logger.New("servicePricingRepository"),
	}
}

func pricingCacheKey(serviceType ServiceType, sizeRange SizeRange) string {
	return fmt.Sprintf("%s:%s", serviceType, sizeRange)
}

func (r *servicePricingRepository) GetActive(
	ctx context.Context,
	tx *gorm.DB,
	serviceType ServiceType,
	sizeRange SizeRange,
) (*ServicePricing, error) {
	log := r.log.TraceFromContext(ctx).Function("GetActive")
	key := pricingCacheKey(serviceType, sizeRange)

	var pricing ServicePricing
	if r.cache != nil {
		found, err := database.NewCacheBuilder(r.cache, key).
			WithContext(ctx).
			WithHash(constants.PricingCachePrefix).
			Get(&pricing)
		if err != nil {
			log.Warn("failed to get pricing from cache", "key", key, "error", err)
		}
		if found {
			return &pricing, nil
		}
	}

	if err := tx.WithContext(ctx).
		Where("service_type = ? AND size_range = ? AND is_active = ?", serviceType, sizeRange, true).
		First(&pricing).Error; err != nil {
		if isNotFound(err) {
			return nil, types.ErrPricingNotConfigured.WithReason(key)
		}
		return nil, log.Err("failed to get pricing", err, "key", key)
	}

	if r.cache != nil {
		if err := database.NewCacheBuilder(r.cache, key).
			WithContext(ctx).
			WithHash(constants.PricingCachePrefix).
			WithStruct(pricing).
			WithTTL(constants.PricingCacheExpiry).
			Set(); err != nil {
			log.Warn("failed to cache pricing", "key", key, "error", err)
		}
	}

	return &pricing, nil
}

func (r *servicePricingRepository) GetAllActive(
	ctx context.Context,
	tx *gorm.DB,
) ([]*ServicePricing, error) {
	log := r.log.TraceFromContext(ctx).Function("GetAllActive")

	var rows []*ServicePricing
	if err := tx.WithContext(ctx).
		Where("is_active = ?", true).
		Order("service_type ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, log.Err("failed to list pricing", err)
	}
	return rows, nil
}

// Upsert writes reference pricing keyed by (service type, size range) and
// drops every cached row afterwards.
func (r *servicePricingRepository) Upsert(
	ctx context.Context,
	tx *gorm.DB,
	pricing []*ServicePricing,
) error {
	log := r.log.TraceFromContext(ctx).Function("Upsert")

	for _, row := range pricing {
		var existing ServicePricing
		err := tx.WithContext(ctx).
			Where("service_type = ? AND size_range = ? AND is_active = ?", row.ServiceType, row.SizeRange, true).
			First(&existing).Error
		switch {
		case err == nil:
			if err := tx.WithContext(ctx).Model(&existing).Updates(map[string]any{
				"price":    row.Price,
				"currency": row.Currency,
			}).Error; err != nil {
				return log.Err("failed to update pricing", err, "serviceType", row.ServiceType)
			}
			row.ID = existing.ID
		case isNotFound(err):
			if err := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
				return log.Err("failed to create pricing", err, "serviceType", row.ServiceType)
			}
		default:
			return log.Err("failed to look up pricing", err, "serviceType", row.ServiceType)
		}
	}

	r.ClearCache(ctx)
	return nil
}

func (r *servicePricingRepository) ClearCache(ctx context.Context) {
	if r.cache == nil {
		return
	}

	for _, serviceType := range AllServiceTypes() {
		for _, sizeRange := range AllSizeRanges() {
			if err := database.NewCacheBuilder(r.cache, pricingCacheKey(serviceType, sizeRange)).
				WithContext(ctx).
				WithHash(constants.PricingCachePrefix).
				Delete(); err != nil {
				r.log.Function("ClearCache").Warn("failed to clear pricing cache", "error", err)
				return
			}
		}
	}
}
