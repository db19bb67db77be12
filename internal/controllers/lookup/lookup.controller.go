package lookupController

import (
	"context"
	"strings"

	"cleanbook/internal/services"
	"cleanbook/internal/types"
)

const minCompanyQueryLength = 2

type LookupController struct {
	companyRegistry *services.CompanyRegistryService
	addressLookup   *services.AddressLookupService
}

type LookupControllerInterface interface {
	SearchCompanies(ctx context.Context, query string) ([]services.RegistryCompany, error)
	SearchAddresses(ctx context.Context, input, sessionToken string) ([]services.AddressSuggestion, error)
	GetAddress(ctx context.Context, placeID, sessionToken string) (*services.AddressDetails, error)
}

func New(services services.Service) LookupControllerInterface {
	return &LookupController{
		companyRegistry: services.CompanyRegistry,
		addressLookup:   services.AddressLookup,
	}
}

func (c *LookupController) SearchCompanies(
	ctx context.Context,
	query string,
) ([]services.RegistryCompany, error) {
	if len(strings.TrimSpace(query)) < minCompanyQueryLength {
		return nil, types.Validation("query must be at least 2 characters")
	}
	return c.companyRegistry.Search(ctx, query)
}

func (c *LookupController) SearchAddresses(
	ctx context.Context,
	input, sessionToken string,
) ([]services.AddressSuggestion, error) {
	return c.addressLookup.Autocomplete(ctx, input, sessionToken)
}

func (c *LookupController) GetAddress(
	ctx context.Context,
	placeID, sessionToken string,
) (*services.AddressDetails, error) {
	return c.addressLookup.Details(ctx, placeID, sessionToken)
}
