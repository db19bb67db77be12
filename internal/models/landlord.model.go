package models

import (
	"github.com/google/uuid"
)

type LandlordType string

const (
	LandlordTypePrivate LandlordType = "private"
	LandlordTypeCompany LandlordType = "company"
)

func (t LandlordType) IsValid() bool {
	return t == LandlordTypePrivate || t == LandlordTypeCompany
}

type Landlord struct {
	BaseUUIDModel
	UserID       uuid.UUID    `gorm:"type:uuid;not null;index:idx_landlords_user" json:"userId"`
	LandlordType LandlordType `gorm:"type:text;not null"                          json:"landlordType"`
	CompanyID    *uuid.UUID   `gorm:"type:uuid"                                   json:"companyId,omitempty"`
	IsActive     bool         `gorm:"type:bool;default:true;not null"             json:"isActive"`

	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}
