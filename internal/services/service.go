package services

import (
	"cleanbook/config"
	"cleanbook/internal/database"
	"cleanbook/internal/repositories"
)

type Service struct {
	Transaction     *TransactionService
	Scheduler       *SchedulerService
	Clerk           TokenVerifier
	Stripe          WebhookParser
	Pricing         *PricingService
	Payment         *PaymentService
	CompanyRegistry *CompanyRegistryService
	AddressLookup   *AddressLookupService
}

func New(db database.DB, config config.Config, repos repositories.Repository) (Service, error) {
	clerkService, err := NewClerkService(config)
	if err != nil {
		return Service{}, err
	}

	stripeService, err := NewStripeService(config)
	if err != nil {
		return Service{}, err
	}

	return Service{
		Transaction:     NewTransactionService(db),
		Scheduler:       NewSchedulerService(),
		Clerk:           clerkService,
		Stripe:          stripeService,
		Pricing:         NewPricingService(db, repos.ServicePricing, config.PlatformFeePercent),
		Payment:         NewPaymentService(db, repos, stripeService, config),
		CompanyRegistry: NewCompanyRegistryService(config.BrregBaseURL, db.Cache.Lookup),
		AddressLookup:   NewAddressLookupService(config.GooglePlacesBaseURL, config.GooglePlacesAPIKey),
	}, nil
}
