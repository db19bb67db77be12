package repositories

import (
	"errors"

	"cleanbook/internal/database"

	"gorm.io/gorm"
)

type Repository struct {
	User           UserRepository
	Company        CompanyRepository
	Property       PropertyRepository
	Cleaner        CleanerRepository
	Landlord       LandlordRepository
	CleaningJob    CleaningJobRepository
	CleanerRequest CleanerRequestRepository
	ServicePricing ServicePricingRepository
	Customer       CustomerRepository
	PaymentMethod  PaymentMethodRepository
	StripeLog      AuditSink
}

func New(db database.DB) Repository {
	return Repository{
		User:           NewUserRepository(db.Cache.User),
		Company:        NewCompanyRepository(),
		Property:       NewPropertyRepository(),
		Cleaner:        NewCleanerRepository(),
		Landlord:       NewLandlordRepository(),
		CleaningJob:    NewCleaningJobRepository(),
		CleanerRequest: NewCleanerRequestRepository(),
		ServicePricing: NewServicePricingRepository(db.Cache.Pricing),
		Customer:       NewCustomerRepository(),
		PaymentMethod:  NewPaymentMethodRepository(),
		StripeLog:      NewStripeLogRepository(db),
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
