package models

import (
	"github.com/google/uuid"
)

type Customer struct {
	BaseUUIDModel
	UserID             uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"userId"`
	ProviderCustomerID string    `gorm:"type:text;not null;uniqueIndex" json:"providerCustomerId"`
	Email              *string   `gorm:"type:text"                      json:"email,omitempty"`
}
