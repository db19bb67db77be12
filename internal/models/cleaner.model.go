package models

import (
	"github.com/google/uuid"
)

type CleanerStatus string

const (
	CleanerStatusPending   CleanerStatus = "pending"
	CleanerStatusApproved  CleanerStatus = "approved"
	CleanerStatusPaused    CleanerStatus = "paused"
	CleanerStatusSuspended CleanerStatus = "suspended"
	CleanerStatusRejected  CleanerStatus = "rejected"
)

// cleanerTransitions is the closed edge table for Cleaner.Status. Rejected is terminal.
var cleanerTransitions = map[CleanerStatus][]CleanerStatus{
	CleanerStatusPending:   {CleanerStatusApproved, CleanerStatusRejected},
	CleanerStatusApproved:  {CleanerStatusPaused, CleanerStatusSuspended},
	CleanerStatusPaused:    {CleanerStatusApproved, CleanerStatusSuspended},
	CleanerStatusSuspended: {CleanerStatusApproved},
}

func (s CleanerStatus) CanTransitionTo(next CleanerStatus) bool {
	for _, allowed := range cleanerTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ConnectAccountStatus string

const (
	ConnectStatusPending    ConnectAccountStatus = "pending"
	ConnectStatusActive     ConnectAccountStatus = "active"
	ConnectStatusRestricted ConnectAccountStatus = "restricted"
	ConnectStatusDisabled   ConnectAccountStatus = "disabled"
)

type Cleaner struct {
	BaseUUIDModel
	UserID           uuid.UUID     `gorm:"type:uuid;not null;index:idx_cleaners_user" json:"userId"`
	Status           CleanerStatus `gorm:"type:text;not null"                         json:"status"`
	StatusReason     *string       `gorm:"type:text"                                  json:"statusReason,omitempty"`
	HMSCardStorageID *string       `gorm:"column:hms_card_storage_id;type:text"       json:"hmsCardStorageId,omitempty"`
	CompanyID        *uuid.UUID    `gorm:"type:uuid"                                  json:"companyId,omitempty"`
	IsActive         bool          `gorm:"type:bool;default:true;not null"            json:"isActive"`

	ConnectAccountID     *string               `gorm:"type:text;index"         json:"connectAccountId,omitempty"`
	ConnectAccountStatus *ConnectAccountStatus `gorm:"type:text"               json:"connectAccountStatus,omitempty"`
	ChargesEnabled       bool                  `gorm:"type:bool;default:false" json:"chargesEnabled"`
	PayoutsEnabled       bool                  `gorm:"type:bool;default:false" json:"payoutsEnabled"`
	PayoutSchedule       *string               `gorm:"type:text"               json:"payoutSchedule,omitempty"`
	BankSummary          *string               `gorm:"type:text"               json:"bankSummary,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// CanReceivePayouts reports whether transfers to the connect account will be accepted.
func (c *Cleaner) CanReceivePayouts() bool {
	return c.ConnectAccountID != nil && *c.ConnectAccountID != "" && c.ChargesEnabled
}

// CanRequestJobs is true for active cleaners that are approved.
func (c *Cleaner) CanRequestJobs() bool {
	return c.IsActive && c.Status == CleanerStatusApproved
}
