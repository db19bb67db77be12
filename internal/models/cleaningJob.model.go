package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ServiceType string

const (
	ServiceTypeBnbCleaning     ServiceType = "bnb-cleaning"
	ServiceTypeDeepCleaning    ServiceType = "deep-cleaning"
	ServiceTypeMoveOutCleaning ServiceType = "move-out-cleaning"
)

func AllServiceTypes() []ServiceType {
	return []ServiceType{
		ServiceTypeBnbCleaning,
		ServiceTypeDeepCleaning,
		ServiceTypeMoveOutCleaning,
	}
}

func (t ServiceType) IsValid() bool {
	for _, st := range AllServiceTypes() {
		if st == t {
			return true
		}
	}
	return false
}

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusRequested  JobStatus = "requested"
	JobStatusConfirmed  JobStatus = "confirmed"
	JobStatusInProgress JobStatus = "in-progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// jobTransitions only moves forward. requested may fall back to pending when
// every request on the job has been withdrawn; both count as open.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusRequested, JobStatusConfirmed, JobStatusCancelled},
	JobStatusRequested:  {JobStatusPending, JobStatusConfirmed, JobStatusCancelled},
	JobStatusConfirmed:  {JobStatusInProgress, JobStatusCancelled},
	JobStatusInProgress: {JobStatusCompleted, JobStatusCancelled},
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsOpen is true while the job still accepts cleaner requests.
func (s JobStatus) IsOpen() bool {
	return s == JobStatusPending || s == JobStatusRequested
}

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// OpenJobStatuses lists the statuses a job may be claimed from.
func OpenJobStatuses() []JobStatus {
	return []JobStatus{JobStatusPending, JobStatusRequested}
}

// CancellableJobStatuses lists every status cancel may start from.
func CancellableJobStatuses() []JobStatus {
	return []JobStatus{
		JobStatusPending,
		JobStatusRequested,
		JobStatusConfirmed,
		JobStatusInProgress,
	}
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusFailed     PaymentStatus = "failed"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusAuthorized, PaymentStatusFailed},
	PaymentStatusAuthorized: {PaymentStatusPaid, PaymentStatusRefunded, PaymentStatusFailed},
	PaymentStatusPaid:       {PaymentStatusRefunded},
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusPaid    PayoutStatus = "paid"
	PayoutStatusFailed  PayoutStatus = "failed"
)

// PaymentStatusesInto filters from down to the statuses allowed to move to
// next. A nil from means every status.
func PaymentStatusesInto(next PaymentStatus, from ...PaymentStatus) []PaymentStatus {
	if from == nil {
		from = []PaymentStatus{
			PaymentStatusPending,
			PaymentStatusAuthorized,
			PaymentStatusPaid,
			PaymentStatusRefunded,
			PaymentStatusFailed,
		}
	}

	allowed := make([]PaymentStatus, 0, len(from))
	for _, status := range from {
		if status.CanTransitionTo(next) {
			allowed = append(allowed, status)
		}
	}
	return allowed
}

func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	return s == PayoutStatusPending && (next == PayoutStatusPaid || next == PayoutStatusFailed)
}

// PayableJobStatuses lists the job statuses a payment hold may be recorded
// against. A cancelled job never gains one.
func PayableJobStatuses() []JobStatus {
	return []JobStatus{
		JobStatusPending,
		JobStatusRequested,
		JobStatusConfirmed,
		JobStatusInProgress,
		JobStatusCompleted,
	}
}

type CleaningJob struct {
	BaseUUIDModel
	LandlordID          uuid.UUID   `gorm:"type:uuid;not null;index:idx_cleaning_jobs_landlord" json:"landlordId"`
	PropertyID          uuid.UUID   `gorm:"type:uuid;not null;index:idx_cleaning_jobs_property" json:"propertyId"`
	ServiceType         ServiceType `gorm:"type:text;not null"                                  json:"serviceType"`
	ScheduledDate       time.Time   `gorm:"type:timestamp;not null"                             json:"scheduledDate"`
	ScheduledTime       *string     `gorm:"type:text"                                           json:"scheduledTime,omitempty"`
	SpecialInstructions *string     `gorm:"type:text"                                           json:"specialInstructions,omitempty"`
	Status              JobStatus   `gorm:"type:text;not null;index:idx_cleaning_jobs_status"   json:"status"`
	AssignedCleanerID   *uuid.UUID  `gorm:"type:uuid;index:idx_cleaning_jobs_cleaner"           json:"assignedCleanerId,omitempty"`
	StartedAt           *time.Time  `gorm:"type:timestamp"                                      json:"startedAt,omitempty"`
	CompletedAt         *time.Time  `gorm:"type:timestamp"                                      json:"completedAt,omitempty"`
	CancelledAt         *time.Time  `gorm:"type:timestamp"                                      json:"cancelledAt,omitempty"`

	// Amounts are stored in NOK; minor units exist only at the provider boundary
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	PricePerDate  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"pricePerDate"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"totalPrice"`
	PlatformFee   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"platformFee"`
	CleanerPayout decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"cleanerPayout"`

	PaymentStatus        PaymentStatus    `gorm:"type:text;not null"      json:"paymentStatus"`
	PaymentIntentID      *string          `gorm:"type:text;index"         json:"paymentIntentId,omitempty"`
	ProviderCustomerID   *string          `gorm:"type:text"               json:"-"`
	CapturedAmount       *decimal.Decimal `gorm:"type:decimal(10,2)"      json:"capturedAmount,omitempty"`
	PaymentFailureReason *string          `gorm:"type:text"               json:"paymentFailureReason,omitempty"`
	PayoutStatus         PayoutStatus     `gorm:"type:text;not null"      json:"payoutStatus"`
	TransferID           *string          `gorm:"type:text"               json:"transferId,omitempty"`
	PayoutDate           *time.Time       `gorm:"type:timestamp"          json:"payoutDate,omitempty"`
	PayoutPendingReason  *string          `gorm:"type:text"               json:"payoutPendingReason,omitempty"`

	CleanerRating *int    `gorm:"type:int" json:"cleanerRating,omitempty"`
	Feedback      *string `gorm:"type:text" json:"feedback,omitempty"`

	Property *Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}

func (j *CleaningJob) IsAssignedTo(cleanerID uuid.UUID) bool {
	return j.AssignedCleanerID != nil && *j.AssignedCleanerID == cleanerID
}
