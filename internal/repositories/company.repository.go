package repositories

import (
	"context"

	. "cleanbook/internal/models"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompanyRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Company, error)
	GetByOrganizationNumber(ctx context.Context, tx *gorm.DB, orgNumber string) (*Company, error)
	Upsert(ctx context.Context, tx *gorm.DB, company *Company) error
}

type companyRepository struct {
	log logger.Logger
}

func NewCompanyRepository() CompanyRepository {
	return &companyRepository{log: logger.New("companyRepository")}
}

func (r *companyRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Company, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByID")

	var company Company
	if err := tx.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFound("company not found")
		}
		return nil, log.Err("failed to get company", err, "id", id)
	}
	return &company, nil
}

func (r *companyRepository) GetByOrganizationNumber(
	ctx context.Context,
	tx *gorm.DB,
	orgNumber string,
) (*Company, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByOrganizationNumber")

	var company Company
	if err := tx.WithContext(ctx).
		First(&company, "organization_number = ?", orgNumber).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFound("company not found")
		}
		return nil, log.Err("failed to get company", err, "organizationNumber", orgNumber)
	}
	return &company, nil
}

// Upsert inserts the company or refreshes name and address for an existing
// organization number. company.ID is set to the stored row's id.
func (r *companyRepository) Upsert(ctx context.Context, tx *gorm.DB, company *Company) error {
	log := r.log.TraceFromContext(ctx).Function("Upsert")

	if company.OrganizationNumber == "" {
		return types.Validation("organization number is required")
	}

	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "address", "postal_code", "city", "updated_at"}),
	}).Create(company).Error
	if err != nil {
		return log.Err("failed to upsert company", err, "organizationNumber", company.OrganizationNumber)
	}

	stored, err := r.GetByOrganizationNumber(ctx, tx, company.OrganizationNumber)
	if err != nil {
		return err
	}
	*company = *stored
	return nil
}
