package userController

import (
	"context"
	"errors"
	"strings"

	"cleanbook/internal/database"
	. "cleanbook/internal/models"
	"cleanbook/internal/repositories"
	"cleanbook/internal/services"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/gorm"
)

type MeResponse struct {
	User     UserProfile `json:"user"`
	Landlord *Landlord   `json:"landlord,omitempty"`
	Cleaner  *Cleaner    `json:"cleaner,omitempty"`
}

type CompanyInput struct {
	OrganizationNumber string  `json:"organizationNumber"`
	Name               string  `json:"name"`
	Address            *string `json:"address,omitempty"`
	PostalCode         *string `json:"postalCode,omitempty"`
	City               *string `json:"city,omitempty"`
}

type OnboardLandlordRequest struct {
	LandlordType LandlordType  `json:"landlordType"`
	Company      *CompanyInput `json:"company,omitempty"`
}

type UserController struct {
	userRepo        repositories.UserRepository
	landlordRepo    repositories.LandlordRepository
	cleanerRepo     repositories.CleanerRepository
	companyRepo     repositories.CompanyRepository
	transaction     *services.TransactionService
	companyRegistry *services.CompanyRegistryService
	db              database.DB
	log             logger.Logger
}

type UserControllerInterface interface {
	GetMe(ctx context.Context, user *User) (*MeResponse, error)
	SetUserType(ctx context.Context, user *User, userType UserType) (*MeResponse, error)
	OnboardLandlord(ctx context.Context, user *User, req OnboardLandlordRequest) (*Landlord, error)
}

func New(
	repos repositories.Repository,
	services services.Service,
	db database.DB,
) UserControllerInterface {
	return &UserController{
		userRepo:        repos.User,
		landlordRepo:    repos.Landlord,
		cleanerRepo:     repos.Cleaner,
		companyRepo:     repos.Company,
		transaction:     services.Transaction,
		companyRegistry: services.CompanyRegistry,
		db:              db,
		log:             logger.New("userController"),
	}
}

func (uc *UserController) GetMe(ctx context.Context, user *User) (*MeResponse, error) {
	tx := uc.db.SQLWithContext(ctx)
	response := &MeResponse{User: user.ToProfile()}

	landlord, err := uc.landlordRepo.GetActiveByUserID(ctx, tx, user.ID)
	switch {
	case err == nil:
		if landlord.CompanyID != nil {
			company, err := uc.companyRepo.GetByID(ctx, tx, *landlord.CompanyID)
			if err != nil {
				return nil, err
			}
			landlord.Company = company
		}
		response.Landlord = landlord
	case !errors.Is(err, types.NotFound("")):
		return nil, err
	}

	cleaner, err := uc.cleanerRepo.GetActiveByUserID(ctx, tx, user.ID)
	switch {
	case err == nil:
		response.Cleaner = cleaner
	case !errors.Is(err, types.NotFound("")):
		return nil, err
	}

	return response, nil
}

// SetUserType records the role the user signed up for and creates the
// matching landlord or cleaner profile when it does not exist yet.
func (uc *UserController) SetUserType(
	ctx context.Context,
	user *User,
	userType UserType,
) (*MeResponse, error) {
	log := uc.log.TraceFromContext(ctx).Function("SetUserType")

	if !userType.IsValid() {
		return nil, types.Validation("userType must be landlord or cleaner")
	}

	err := uc.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if err := uc.userRepo.Update(ctx, tx, user, map[string]any{"user_type": userType}); err != nil {
			return err
		}

		switch userType {
		case UserTypeLandlord:
			_, err := uc.ensureLandlord(ctx, tx, user, LandlordTypePrivate)
			return err
		default:
			return uc.ensureCleaner(ctx, tx, user)
		}
	})
	if err != nil {
		return nil, err
	}

	log.Info("user type set", "userID", user.ID, "userType", userType)
	return uc.GetMe(ctx, user)
}

// OnboardLandlord stores the landlord's type and, for companies, the company
// upserted by organization number. A company without a name is completed
// from the business register.
func (uc *UserController) OnboardLandlord(
	ctx context.Context,
	user *User,
	req OnboardLandlordRequest,
) (*Landlord, error) {
	log := uc.log.TraceFromContext(ctx).Function("OnboardLandlord")

	if !req.LandlordType.IsValid() {
		return nil, types.Validation("landlordType must be private or company")
	}
	if req.LandlordType == LandlordTypeCompany && req.Company == nil {
		return nil, types.Validation("company details are required for company landlords")
	}

	var company *Company
	if req.LandlordType == LandlordTypeCompany {
		var err error
		company, err = uc.companyFrom(ctx, req.Company)
		if err != nil {
			return nil, err
		}
	}

	var landlord *Landlord
	err := uc.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if company != nil {
			if err := uc.companyRepo.Upsert(ctx, tx, company); err != nil {
				return err
			}
		}

		if !user.IsLandlord() {
			if err := uc.userRepo.Update(ctx, tx, user, map[string]any{"user_type": UserTypeLandlord}); err != nil {
				return err
			}
		}

		var err error
		landlord, err = uc.ensureLandlord(ctx, tx, user, req.LandlordType)
		if err != nil {
			return err
		}

		fields := map[string]any{"landlord_type": req.LandlordType, "company_id": nil}
		if company != nil {
			fields["company_id"] = company.ID
		}
		if err := uc.landlordRepo.Update(ctx, tx, landlord.ID, fields); err != nil {
			return err
		}

		landlord, err = uc.landlordRepo.GetByID(ctx, tx, landlord.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	landlord.Company = company
	log.Info("landlord onboarded", "userID", user.ID, "landlordType", landlord.LandlordType)
	return landlord, nil
}

func (uc *UserController) companyFrom(ctx context.Context, input *CompanyInput) (*Company, error) {
	orgNumber := strings.ReplaceAll(strings.TrimSpace(input.OrganizationNumber), " ", "")
	if orgNumber == "" {
		return nil, types.Validation("organization number is required")
	}

	company := &Company{
		OrganizationNumber: orgNumber,
		Name:               strings.TrimSpace(input.Name),
		Address:            input.Address,
		PostalCode:         input.PostalCode,
		City:               input.City,
	}
	if company.Name != "" || uc.companyRegistry == nil {
		if company.Name == "" {
			return nil, types.Validation("company name is required")
		}
		return company, nil
	}

	registered, err := uc.companyRegistry.GetByOrganizationNumber(ctx, orgNumber)
	if err != nil {
		return nil, err
	}
	company.Name = registered.Name
	if company.Address == nil && registered.Address != "" {
		company.Address = &registered.Address
	}
	if company.PostalCode == nil && registered.PostalCode != "" {
		company.PostalCode = &registered.PostalCode
	}
	if company.City == nil && registered.City != "" {
		company.City = &registered.City
	}
	return company, nil
}

func (uc *UserController) ensureLandlord(
	ctx context.Context,
	tx *gorm.DB,
	user *User,
	landlordType LandlordType,
) (*Landlord, error) {
	landlord, err := uc.landlordRepo.GetActiveByUserID(ctx, tx, user.ID)
	if err == nil {
		return landlord, nil
	}
	if !errors.Is(err, types.NotFound("")) {
		return nil, err
	}

	landlord = &Landlord{UserID: user.ID, LandlordType: landlordType, IsActive: true}
	if err := uc.landlordRepo.Create(ctx, tx, landlord); err != nil {
		return nil, err
	}
	return landlord, nil
}

func (uc *UserController) ensureCleaner(ctx context.Context, tx *gorm.DB, user *User) error {
	_, err := uc.cleanerRepo.GetActiveByUserID(ctx, tx, user.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, types.NotFound("")) {
		return err
	}

	return uc.cleanerRepo.Create(ctx, tx, &Cleaner{
		UserID:   user.ID,
		Status:   CleanerStatusApproved,
		IsActive: true,
	})
}
