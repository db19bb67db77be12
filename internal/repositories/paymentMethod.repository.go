package repositories

import (
	"context"

	. "cleanbook/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentMethodRepository interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*PaymentMethod, error)
	ReplaceForUser(
		ctx context.Context,
		tx *gorm.DB,
		userID uuid.UUID,
		methods []*PaymentMethod,
	) error
}

type paymentMethodRepository struct {
	log logger.Logger
}

func NewPaymentMethodRepository() PaymentMethodRepository {
	return &paymentMethodRepository{log: logger.New("paymentMethodRepository")}
}

func (r *paymentMethodRepository) GetByUserID(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
) ([]*PaymentMethod, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByUserID")

	methods, err := gorm.G[*PaymentMethod](tx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to list payment methods", err, "userID", userID)
	}
	return methods, nil
}

// ReplaceForUser mirrors the provider's saved cards. Cards missing from
// methods are removed. Run it inside a transaction.
func (r *paymentMethodRepository) ReplaceForUser(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
	methods []*PaymentMethod,
) error {
	log := r.log.TraceFromContext(ctx).Function("ReplaceForUser")

	if err := tx.WithContext(ctx).
		Unscoped().
		Where("user_id = ?", userID).
		Delete(&PaymentMethod{}).Error; err != nil {
		return log.Err("failed to clear payment methods", err, "userID", userID)
	}

	if len(methods) == 0 {
		return nil
	}

	for _, method := range methods {
		method.UserID = userID
	}

	if err := tx.WithContext(ctx).Create(&methods).Error; err != nil {
		return log.Err("failed to store payment methods", err, "userID", userID, "count", len(methods))
	}
	return nil
}
