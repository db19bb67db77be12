package repositories

import (
	"context"

	. "cleanbook/internal/models"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*Customer, error)
	Create(ctx context.Context, tx *gorm.DB, customer *Customer) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type customerRepository struct {
	log logger.Logger
}

func NewCustomerRepository() CustomerRepository {
	return &customerRepository{log: logger.New("customerRepository")}
}

func (r *customerRepository) GetByUserID(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
) (*Customer, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByUserID")

	var customer Customer
	if err := tx.WithContext(ctx).First(&customer, "user_id = ?", userID).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFound("customer not found")
		}
		return nil, log.Err("failed to get customer", err, "userID", userID)
	}
	return &customer, nil
}

func (r *customerRepository) Create(ctx context.Context, tx *gorm.DB, customer *Customer) error {
	log := r.log.TraceFromContext(ctx).Function("Create")

	if err := tx.WithContext(ctx).Create(customer).Error; err != nil {
		return log.Err("failed to create customer", err, "userID", customer.UserID)
	}
	return nil
}

func (r *customerRepository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	log := r.log.TraceFromContext(ctx).Function("Delete")

	if err := tx.WithContext(ctx).Unscoped().Delete(&Customer{}, "id = ?", id).Error; err != nil {
		return log.Err("failed to delete customer", err, "id", id)
	}
	return nil
}
