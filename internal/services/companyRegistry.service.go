package services

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"cleanbook/internal/constants"
	"cleanbook/internal/database"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/go-resty/resty/v2"
)

const (
	registryTimeout     = 10 * time.Second
	registrySearchLimit = 10
)

var orgNumberPattern = regexp.MustCompile(`^\d{9}$`)

type RegistryAddress struct {
	Lines       []string `json:"adresse"`
	PostalCode  string   `json:"postnummer"`
	City        string   `json:"poststed"`
	Municipal   string   `json:"kommune"`
	CountryCode string   `json:"landkode"`
}

type registryEntity struct {
	OrganizationNumber string `json:"organisasjonsnummer"`
	Name               string `json:"navn"`
	Form               struct {
		Code        string `json:"kode"`
		Description string `json:"beskrivelse"`
	} `json:"organisasjonsform"`
	BusinessAddress *RegistryAddress `json:"forretningsadresse"`
	PostalAddress   *RegistryAddress `json:"postadresse"`
	Bankrupt        bool             `json:"konkurs"`
	Liquidating     bool             `json:"underAvvikling"`
	ForcedClosure   bool             `json:"underTvangsavviklingEllerTvangsopplosning"`
	DeletedDate     string           `json:"slettedato"`
}

type registrySearchResponse struct {
	Embedded struct {
		Entities []registryEntity `json:"enheter"`
	} `json:"_embedded"`
}

// RegistryCompany is a company as returned to clients, already filtered to
// entities that can trade.
type RegistryCompany struct {
	OrganizationNumber string `json:"organizationNumber"`
	Name               string `json:"name"`
	OrganizationForm   string `json:"organizationForm"`
	Address            string `json:"address"`
	PostalCode         string `json:"postalCode"`
	City               string `json:"city"`
}

func (e registryEntity) active() bool {
	return !e.Bankrupt && !e.Liquidating && !e.ForcedClosure && e.DeletedDate == ""
}

func (e registryEntity) toCompany() RegistryCompany {
	company := RegistryCompany{
		OrganizationNumber: e.OrganizationNumber,
		Name:               e.Name,
		OrganizationForm:   e.Form.Code,
	}

	address := e.BusinessAddress
	if address == nil {
		address = e.PostalAddress
	}
	if address != nil {
		company.Address = strings.Join(address.Lines, ", ")
		company.PostalCode = address.PostalCode
		company.City = address.City
	}
	return company
}

// CompanyRegistryService searches the Norwegian business register.
type CompanyRegistryService struct {
	client *resty.Client
	cache  database.CacheClient
	log    logger.Logger
}

// NewCompanyRegistryService builds the client. cache may be nil.
func NewCompanyRegistryService(baseURL string, cache database.CacheClient) *CompanyRegistryService {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(registryTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json")

	return &CompanyRegistryService{
		client: client,
		cache:  cache,
		log:    logger.New("CompanyRegistryService"),
	}
}

// Search looks a company up by organization number when the query is nine
// digits, otherwise by name.
func (s *CompanyRegistryService) Search(ctx context.Context, query string) ([]RegistryCompany, error) {
	query = strings.TrimSpace(query)
	compact := strings.ReplaceAll(query, " ", "")

	if orgNumberPattern.MatchString(compact) {
		company, err := s.GetByOrganizationNumber(ctx, compact)
		if err != nil {
			if appErr, ok := types.AsAppError(err); ok && appErr.Code == types.CodeNotFound {
				return []RegistryCompany{}, nil
			}
			return nil, err
		}
		return []RegistryCompany{*company}, nil
	}

	if len(query) < 2 {
		return nil, types.Validation("search needs at least 2 characters")
	}

	return s.searchByName(ctx, query)
}

func (s *CompanyRegistryService) searchByName(ctx context.Context, name string) ([]RegistryCompany, error) {
	log := s.log.TraceFromContext(ctx).Function("searchByName")

	var result registrySearchResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("navn", name).
		SetQueryParam("size", "20").
		SetResult(&result).
		Get("/enheter")
	if err != nil {
		log.Er("registry search failed", err, "query", name)
		return nil, types.ErrLookupFailed.WithCause(err)
	}
	if resp.IsError() {
		log.Warn("registry search rejected", "status", resp.StatusCode(), "query", name)
		return nil, types.ErrLookupFailed.WithReason(resp.Status())
	}

	companies := make([]RegistryCompany, 0, registrySearchLimit)
	for _, entity := range result.Embedded.Entities {
		if !entity.active() {
			continue
		}
		companies = append(companies, entity.toCompany())
		if len(companies) == registrySearchLimit {
			break
		}
	}
	return companies, nil
}

func (s *CompanyRegistryService) GetByOrganizationNumber(
	ctx context.Context,
	orgNumber string,
) (*RegistryCompany, error) {
	log := s.log.TraceFromContext(ctx).Function("GetByOrganizationNumber")

	if !orgNumberPattern.MatchString(orgNumber) {
		return nil, types.Validation("organization number must be 9 digits")
	}

	var cached RegistryCompany
	if s.cache != nil {
		found, err := database.NewCacheBuilder(s.cache, orgNumber).
			WithContext(ctx).
			WithHash(constants.RegistryCachePrefix).
			Get(&cached)
		if err != nil {
			log.Warn("failed to read registry cache", "orgNumber", orgNumber, "error", err)
		}
		if found {
			return &cached, nil
		}
	}

	var entity registryEntity
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("orgNumber", orgNumber).
		SetResult(&entity).
		Get("/enheter/{orgNumber}")
	if err != nil {
		log.Er("registry lookup failed", err, "orgNumber", orgNumber)
		return nil, types.ErrLookupFailed.WithCause(err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, types.NotFound("company not found")
	default:
		log.Warn("registry lookup rejected", "status", resp.StatusCode(), "orgNumber", orgNumber)
		return nil, types.ErrLookupFailed.WithReason(resp.Status())
	}

	if !entity.active() {
		return nil, types.NotFound("company is not active")
	}

	company := entity.toCompany()
	if s.cache != nil {
		if err := database.NewCacheBuilder(s.cache, orgNumber).
			WithContext(ctx).
			WithHash(constants.RegistryCachePrefix).
			WithStruct(company).
			WithTTL(constants.RegistryCacheExpiry).
			Set(); err != nil {
			log.Warn("failed to cache registry entry", "orgNumber", orgNumber, "error", err)
		}
	}
	return &company, nil
}
