package models

type Company struct {
	BaseUUIDModel
	OrganizationNumber string  `gorm:"type:text;not null;uniqueIndex" json:"organizationNumber"`
	Name               string  `gorm:"type:text;not null"             json:"name"`
	Address            *string `gorm:"type:text"                      json:"address,omitempty"`
	PostalCode         *string `gorm:"type:text"                      json:"postalCode,omitempty"`
	City               *string `gorm:"type:text"                      json:"city,omitempty"`
}
