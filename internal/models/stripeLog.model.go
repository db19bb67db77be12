package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type StripeLogStatus string

const (
	StripeLogStatusSuccess StripeLogStatus = "success"
	StripeLogStatusFailed  StripeLogStatus = "failed"
)

// StripeLog is append-only. Rows are written once per provider call and never updated.
type StripeLog struct {
	BaseUUIDModel
	Operation        string          `gorm:"type:text;not null;index"                   json:"operation"`
	Status           StripeLogStatus `gorm:"type:text;not null"                         json:"status"`
	JobID            *uuid.UUID      `gorm:"type:uuid;index:idx_stripe_logs_job"        json:"jobId,omitempty"`
	UserID           *uuid.UUID      `gorm:"type:uuid"                                  json:"userId,omitempty"`
	ProviderObjectID *string         `gorm:"type:text"                                  json:"providerObjectId,omitempty"`
	IdempotencyKey   *string         `gorm:"type:text"                                  json:"idempotencyKey,omitempty"`
	ErrorCode        *string         `gorm:"type:text"                                  json:"errorCode,omitempty"`
	ErrorMessage     *string         `gorm:"type:text"                                  json:"errorMessage,omitempty"`
	Request          datatypes.JSON  `gorm:"type:jsonb"                                 json:"request,omitempty"`
	Response         datatypes.JSON  `gorm:"type:jsonb"                                 json:"response,omitempty"`
}
