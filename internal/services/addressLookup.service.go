package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/go-resty/resty/v2"
)

const (
	placesTimeout   = 5 * time.Second
	placesCountry   = "NO"
	placesLanguage  = "no"
	placesStatusOK  = "OK"
	placesNoResults = "ZERO_RESULTS"
	placesNotFound  = "NOT_FOUND"
)

type AddressSuggestion struct {
	PlaceID       string `json:"placeId"`
	Description   string `json:"description"`
	MainText      string `json:"mainText"`
	SecondaryText string `json:"secondaryText"`
}

// AddressDetails is a resolved Norwegian address ready to fill a property.
type AddressDetails struct {
	PlaceID          string   `json:"placeId"`
	FormattedAddress string   `json:"formattedAddress"`
	Street           string   `json:"street"`
	PostalCode       string   `json:"postalCode"`
	City             string   `json:"city"`
	Country          string   `json:"country"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
}

type placesAutocompleteResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Predictions  []struct {
		PlaceID     string `json:"place_id"`
		Description string `json:"description"`
		Structured  struct {
			MainText      string `json:"main_text"`
			SecondaryText string `json:"secondary_text"`
		} `json:"structured_formatting"`
	} `json:"predictions"`
}

type placesAddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type placesDetailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		PlaceID           string                   `json:"place_id"`
		FormattedAddress  string                   `json:"formatted_address"`
		AddressComponents []placesAddressComponent `json:"address_components"`
		Geometry          struct {
			Location *struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"result"`
}

// AddressLookupService wraps Places autocomplete and details, restricted to
// Norway.
type AddressLookupService struct {
	client *resty.Client
	apiKey string
	log    logger.Logger
}

func NewAddressLookupService(baseURL, apiKey string) *AddressLookupService {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(placesTimeout).
		SetRetryCount(1).
		SetHeader("Accept", "application/json")

	return &AddressLookupService{
		client: client,
		apiKey: apiKey,
		log:    logger.New("AddressLookupService"),
	}
}

func (s *AddressLookupService) Enabled() bool {
	return s.apiKey != ""
}

func (s *AddressLookupService) Autocomplete(
	ctx context.Context,
	input, sessionToken string,
) ([]AddressSuggestion, error) {
	log := s.log.TraceFromContext(ctx).Function("Autocomplete")

	input = strings.TrimSpace(input)
	if len(input) < 3 {
		return []AddressSuggestion{}, nil
	}
	if !s.Enabled() {
		return nil, types.ErrLookupFailed.WithReason("address lookup is not configured")
	}

	request := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"input":      input,
			"components": "country:" + strings.ToLower(placesCountry),
			"types":      "address",
			"language":   placesLanguage,
			"key":        s.apiKey,
		})
	if sessionToken != "" {
		request.SetQueryParam("sessiontoken", sessionToken)
	}

	var result placesAutocompleteResponse
	resp, err := request.SetResult(&result).Get("/autocomplete/json")
	if err != nil {
		log.Er("places autocomplete failed", err)
		return nil, types.ErrLookupFailed.WithCause(err)
	}
	if resp.IsError() {
		return nil, types.ErrLookupFailed.WithReason(resp.Status())
	}

	switch result.Status {
	case placesStatusOK:
	case placesNoResults:
		return []AddressSuggestion{}, nil
	default:
		log.Warn("places autocomplete rejected", "status", result.Status, "message", result.ErrorMessage)
		return nil, types.ErrLookupFailed.WithReason(result.Status)
	}

	suggestions := make([]AddressSuggestion, 0, len(result.Predictions))
	for _, prediction := range result.Predictions {
		suggestions = append(suggestions, AddressSuggestion{
			PlaceID:       prediction.PlaceID,
			Description:   prediction.Description,
			MainText:      prediction.Structured.MainText,
			SecondaryText: prediction.Structured.SecondaryText,
		})
	}
	return suggestions, nil
}

// Details resolves a place id. Places outside Norway are rejected even when
// autocomplete returned them.
func (s *AddressLookupService) Details(
	ctx context.Context,
	placeID, sessionToken string,
) (*AddressDetails, error) {
	log := s.log.TraceFromContext(ctx).Function("Details")

	if strings.TrimSpace(placeID) == "" {
		return nil, types.Validation("place id is required")
	}
	if !s.Enabled() {
		return nil, types.ErrLookupFailed.WithReason("address lookup is not configured")
	}

	request := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"place_id": placeID,
			"fields":   "place_id,formatted_address,address_component,geometry",
			"language": placesLanguage,
			"key":      s.apiKey,
		})
	if sessionToken != "" {
		request.SetQueryParam("sessiontoken", sessionToken)
	}

	var result placesDetailsResponse
	resp, err := request.SetResult(&result).Get("/details/json")
	if err != nil {
		log.Er("places details failed", err, "placeID", placeID)
		return nil, types.ErrLookupFailed.WithCause(err)
	}
	if resp.IsError() {
		return nil, types.ErrLookupFailed.WithReason(resp.Status())
	}

	switch result.Status {
	case placesStatusOK:
	case placesNotFound, placesNoResults:
		return nil, types.NotFound("address not found")
	default:
		log.Warn("places details rejected", "status", result.Status, "message", result.ErrorMessage)
		return nil, types.ErrLookupFailed.WithReason(result.Status)
	}

	details := &AddressDetails{
		PlaceID:          placeID,
		FormattedAddress: result.Result.FormattedAddress,
	}

	var route, streetNumber string
	for _, component := range result.Result.AddressComponents {
		switch {
		case slices.Contains(component.Types, "route"):
			route = component.LongName
		case slices.Contains(component.Types, "street_number"):
			streetNumber = component.LongName
		case slices.Contains(component.Types, "postal_code"):
			details.PostalCode = component.LongName
		case slices.Contains(component.Types, "postal_town"):
			details.City = component.LongName
		case slices.Contains(component.Types, "locality"):
			if details.City == "" {
				details.City = component.LongName
			}
		case slices.Contains(component.Types, "country"):
			details.Country = component.ShortName
		}
	}
	details.Street = strings.TrimSpace(route + " " + streetNumber)

	if details.Country != placesCountry {
		return nil, types.Validation("only Norwegian addresses are supported")
	}

	if location := result.Result.Geometry.Location; location != nil {
		details.Latitude = &location.Lat
		details.Longitude = &location.Lng
	}
	return details, nil
}
