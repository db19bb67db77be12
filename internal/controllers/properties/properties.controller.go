package propertiesController

import (
	"context"
	"strings"

	"cleanbook/internal/database"
	. "cleanbook/internal/models"
	"cleanbook/internal/repositories"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
)

const maxSizeSqm = 300

type CreatePropertyRequest struct {
	Name        string       `json:"name"`
	Type        PropertyType `json:"type"`
	Address     string       `json:"address"`
	PostalCode  string       `json:"postalCode"`
	City        string       `json:"city"`
	SizeSqm     int          `json:"sizeSqm"`
	Bedrooms    *int         `json:"bedrooms,omitempty"`
	Bathrooms   *int         `json:"bathrooms,omitempty"`
	UnitDetails *string      `json:"unitDetails,omitempty"`
	PlaceID     *string      `json:"placeId,omitempty"`
}

// UpdatePropertyRequest is a partial update; nil fields are left alone.
type UpdatePropertyRequest struct {
	Name        *string       `json:"name,omitempty"`
	Type        *PropertyType `json:"type,omitempty"`
	Address     *string       `json:"address,omitempty"`
	PostalCode  *string       `json:"postalCode,omitempty"`
	City        *string       `json:"city,omitempty"`
	SizeSqm     *int          `json:"sizeSqm,omitempty"`
	Bedrooms    *int          `json:"bedrooms,omitempty"`
	Bathrooms   *int          `json:"bathrooms,omitempty"`
	UnitDetails *string       `json:"unitDetails,omitempty"`
	PlaceID     *string       `json:"placeId,omitempty"`
}

type PropertiesController struct {
	propertyRepo repositories.PropertyRepository
	db           database.DB
	log          logger.Logger
}

type PropertiesControllerInterface interface {
	Create(ctx context.Context, user *User, req CreatePropertyRequest) (*Property, error)
	List(ctx context.Context, user *User) ([]*Property, error)
	Get(ctx context.Context, user *User, id uuid.UUID) (*Property, error)
	Update(ctx context.Context, user *User, id uuid.UUID, req UpdatePropertyRequest) (*Property, error)
	Delete(ctx context.Context, user *User, id uuid.UUID) error
}

func New(repos repositories.Repository, db database.DB) PropertiesControllerInterface {
	return &PropertiesController{
		propertyRepo: repos.Property,
		db:           db,
		log:          logger.New("propertiesController"),
	}
}

func (c *PropertiesController) Create(
	ctx context.Context,
	user *User,
	req CreatePropertyRequest,
) (*Property, error) {
	log := c.log.TraceFromContext(ctx).Function("Create")

	if !user.IsLandlord() {
		return nil, types.Forbidden("only landlords can register properties")
	}

	property := &Property{
		OwnerID:     user.ID,
		Name:        strings.TrimSpace(req.Name),
		Type:        req.Type,
		Address:     strings.TrimSpace(req.Address),
		PostalCode:  strings.TrimSpace(req.PostalCode),
		City:        strings.TrimSpace(req.City),
		SizeSqm:     req.SizeSqm,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		UnitDetails: req.UnitDetails,
		PlaceID:     req.PlaceID,
		IsActive:    true,
	}
	if err := validate(property); err != nil {
		return nil, err
	}

	if err := c.propertyRepo.Create(ctx, c.db.SQLWithContext(ctx), property); err != nil {
		return nil, log.Err("failed to create property", err, "ownerID", user.ID)
	}

	log.Info("property created", "propertyID", property.ID, "ownerID", user.ID)
	return property, nil
}

func (c *PropertiesController) List(ctx context.Context, user *User) ([]*Property, error) {
	return c.propertyRepo.GetActiveByOwner(ctx, c.db.SQLWithContext(ctx), user.ID)
}

// Get hides properties of other owners and soft-deleted ones behind NOT_FOUND.
func (c *PropertiesController) Get(ctx context.Context, user *User, id uuid.UUID) (*Property, error) {
	property, err := c.propertyRepo.GetByID(ctx, c.db.SQLWithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if !property.IsOwnedBy(user.ID) || !property.IsActive {
		return nil, types.NotFound("property not found")
	}
	return property, nil
}

func (c *PropertiesController) Update(
	ctx context.Context,
	user *User,
	id uuid.UUID,
	req UpdatePropertyRequest,
) (*Property, error) {
	log := c.log.TraceFromContext(ctx).Function("Update")

	property, err := c.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		property.Name = strings.TrimSpace(*req.Name)
		fields["name"] = property.Name
	}
	if req.Type != nil {
		property.Type = *req.Type
		fields["type"] = property.Type
	}
	if req.Address != nil {
		property.Address = strings.TrimSpace(*req.Address)
		fields["address"] = property.Address
	}
	if req.PostalCode != nil {
		property.PostalCode = strings.TrimSpace(*req.PostalCode)
		fields["postal_code"] = property.PostalCode
	}
	if req.City != nil {
		property.City = strings.TrimSpace(*req.City)
		fields["city"] = property.City
	}
	if req.SizeSqm != nil {
		property.SizeSqm = *req.SizeSqm
		fields["size_sqm"] = property.SizeSqm
	}
	if req.Bedrooms != nil {
		property.Bedrooms = req.Bedrooms
		fields["bedrooms"] = *req.Bedrooms
	}
	if req.Bathrooms != nil {
		property.Bathrooms = req.Bathrooms
		fields["bathrooms"] = *req.Bathrooms
	}
	if req.UnitDetails != nil {
		property.UnitDetails = req.UnitDetails
		fields["unit_details"] = *req.UnitDetails
	}
	if req.PlaceID != nil {
		property.PlaceID = req.PlaceID
		fields["place_id"] = *req.PlaceID
	}
	if len(fields) == 0 {
		return property, nil
	}

	if err := validate(property); err != nil {
		return nil, err
	}
	if err := c.propertyRepo.Update(ctx, c.db.SQLWithContext(ctx), id, fields); err != nil {
		return nil, err
	}

	log.Info("property updated", "propertyID", id, "fields", len(fields))
	return c.propertyRepo.GetByID(ctx, c.db.SQLWithContext(ctx), id)
}

// Delete deactivates the property. Existing jobs keep their reference.
func (c *PropertiesController) Delete(ctx context.Context, user *User, id uuid.UUID) error {
	log := c.log.TraceFromContext(ctx).Function("Delete")

	if _, err := c.Get(ctx, user, id); err != nil {
		return err
	}
	if err := c.propertyRepo.Update(
		ctx,
		c.db.SQLWithContext(ctx),
		id,
		map[string]any{"is_active": false},
	); err != nil {
		return err
	}

	log.Info("property deactivated", "propertyID", id)
	return nil
}

func validate(property *Property) error {
	switch {
	case property.Name == "":
		return types.Validation("name is required")
	case property.Address == "":
		return types.Validation("address is required")
	case !property.Type.IsValid():
		return types.Validation("unknown property type")
	case property.SizeSqm <= 0 || property.SizeSqm > maxSizeSqm:
		return types.Validation("sizeSqm must be between 1 and 300")
	case property.Bedrooms != nil && *property.Bedrooms < 0:
		return types.Validation("bedrooms cannot be negative")
	case property.Bathrooms != nil && *property.Bathrooms < 0:
		return types.Validation("bathrooms cannot be negative")
	}
	return nil
}
