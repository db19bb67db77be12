package models

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusAccepted  RequestStatus = "accepted"
	RequestStatusDeclined  RequestStatus = "declined"
	RequestStatusWithdrawn RequestStatus = "withdrawn"
)

func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	if s != RequestStatusPending {
		return false
	}
	switch next {
	case RequestStatusAccepted, RequestStatusDeclined, RequestStatusWithdrawn:
		return true
	}
	return false
}

type CleanerRequest struct {
	BaseUUIDModel
	JobID       uuid.UUID     `gorm:"type:uuid;not null;index:idx_cleaner_requests_job"     json:"jobId"`
	CleanerID   uuid.UUID     `gorm:"type:uuid;not null;index:idx_cleaner_requests_cleaner" json:"cleanerId"`
	Status      RequestStatus `gorm:"type:text;not null"                                    json:"status"`
	Message     *string       `gorm:"type:text"                                             json:"message,omitempty"`
	RespondedAt *time.Time    `gorm:"type:timestamp"                                        json:"respondedAt,omitempty"`

	Cleaner *Cleaner `gorm:"foreignKey:CleanerID" json:"cleaner,omitempty"`
}
