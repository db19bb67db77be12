package models

import (
	"github.com/google/uuid"
)

type PropertyType string

const (
	PropertyTypeApartment  PropertyType = "apartment"
	PropertyTypeHytte      PropertyType = "hytte"
	PropertyTypeOffice     PropertyType = "office"
	PropertyTypeHouse      PropertyType = "house"
	PropertyTypeCommercial PropertyType = "commercial"
	PropertyTypeOther      PropertyType = "other"
)

func (t PropertyType) IsValid() bool {
	switch t {
	case PropertyTypeApartment,
		PropertyTypeHytte,
		PropertyTypeOffice,
		PropertyTypeHouse,
		PropertyTypeCommercial,
		PropertyTypeOther:
		return true
	}
	return false
}

type Property struct {
	BaseUUIDModel
	OwnerID     uuid.UUID    `gorm:"type:uuid;not null;index:idx_properties_owner" json:"ownerId"`
	Name        string       `gorm:"type:text;not null"                            json:"name"`
	Type        PropertyType `gorm:"type:text;not null"                            json:"type"`
	Address     string       `gorm:"type:text;not null"                            json:"address"`
	PostalCode  string       `gorm:"type:text"                                     json:"postalCode"`
	City        string       `gorm:"type:text"                                     json:"city"`
	SizeSqm     int          `gorm:"type:int;not null"                             json:"sizeSqm"`
	Bedrooms    *int         `gorm:"type:int"                                      json:"bedrooms,omitempty"`
	Bathrooms   *int         `gorm:"type:int"                                      json:"bathrooms,omitempty"`
	UnitDetails *string      `gorm:"type:text"                                     json:"unitDetails,omitempty"`
	PlaceID     *string      `gorm:"type:text"                                     json:"placeId,omitempty"`
	IsActive    bool         `gorm:"type:bool;default:true;not null"               json:"isActive"`
}

func (p *Property) IsOwnedBy(userID uuid.UUID) bool {
	return p.OwnerID == userID
}
