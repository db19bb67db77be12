package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     JobStatus
		to       JobStatus
		expected bool
	}{
		{JobStatusPending, JobStatusRequested, true},
		{JobStatusPending, JobStatusConfirmed, true},
		{JobStatusRequested, JobStatusPending, true},
		{JobStatusRequested, JobStatusConfirmed, true},
		{JobStatusConfirmed, JobStatusInProgress, true},
		{JobStatusInProgress, JobStatusCompleted, true},
		{JobStatusInProgress, JobStatusCancelled, true},
		{JobStatusPending, JobStatusInProgress, false},
		{JobStatusRequested, JobStatusCompleted, false},
		{JobStatusConfirmed, JobStatusCompleted, false},
		{JobStatusConfirmed, JobStatusPending, false},
		{JobStatusCompleted, JobStatusCancelled, false},
		{JobStatusCompleted, JobStatusInProgress, false},
		{JobStatusCancelled, JobStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestJobStatus_Helpers(t *testing.T) {
	assert.True(t, JobStatusPending.IsOpen())
	assert.True(t, JobStatusRequested.IsOpen())
	assert.False(t, JobStatusConfirmed.IsOpen())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusCancelled.IsTerminal())
	assert.False(t, JobStatusInProgress.IsTerminal())

	for _, status := range CancellableJobStatuses() {
		assert.True(t, status.CanTransitionTo(JobStatusCancelled), string(status))
	}
}

func TestPaymentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     PaymentStatus
		to       PaymentStatus
		expected bool
	}{
		{PaymentStatusPending, PaymentStatusAuthorized, true},
		{PaymentStatusPending, PaymentStatusFailed, true},
		{PaymentStatusAuthorized, PaymentStatusPaid, true},
		{PaymentStatusAuthorized, PaymentStatusRefunded, true},
		{PaymentStatusPaid, PaymentStatusRefunded, true},
		{PaymentStatusPending, PaymentStatusPaid, false},
		{PaymentStatusPaid, PaymentStatusAuthorized, false},
		{PaymentStatusRefunded, PaymentStatusPaid, false},
		{PaymentStatusFailed, PaymentStatusAuthorized, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, PayoutStatusPending.CanTransitionTo(PayoutStatusPaid))
	assert.False(t, PayoutStatusPaid.CanTransitionTo(PayoutStatusPending))
}

func TestPaymentStatusesInto(t *testing.T) {
	assert.Equal(t, []PaymentStatus{PaymentStatusPending}, PaymentStatusesInto(PaymentStatusAuthorized))
	assert.Equal(t, []PaymentStatus{PaymentStatusAuthorized}, PaymentStatusesInto(PaymentStatusPaid))
	assert.Equal(
		t,
		[]PaymentStatus{PaymentStatusAuthorized, PaymentStatusPaid},
		PaymentStatusesInto(PaymentStatusRefunded),
	)
	assert.Equal(
		t,
		[]PaymentStatus{PaymentStatusPending},
		PaymentStatusesInto(PaymentStatusFailed, PaymentStatusPending, PaymentStatusPaid),
	)
	assert.Empty(t, PaymentStatusesInto(PaymentStatusPaid, PaymentStatusPending))
	assert.NotContains(t, PayableJobStatuses(), JobStatusCancelled)
}

func TestCleanerStatus_CanTransitionTo(t *testing.T) {
	all := []CleanerStatus{
		CleanerStatusPending,
		CleanerStatusApproved,
		CleanerStatusPaused,
		CleanerStatusSuspended,
		CleanerStatusRejected,
	}
	allowed := map[CleanerStatus]map[CleanerStatus]bool{
		CleanerStatusPending:   {CleanerStatusApproved: true, CleanerStatusRejected: true},
		CleanerStatusApproved:  {CleanerStatusPaused: true, CleanerStatusSuspended: true},
		CleanerStatusPaused:    {CleanerStatusApproved: true, CleanerStatusSuspended: true},
		CleanerStatusSuspended: {CleanerStatusApproved: true},
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(
				t,
				allowed[from][to],
				from.CanTransitionTo(to),
				"%s -> %s", from, to,
			)
		}
	}
}

func TestRequestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, RequestStatusPending.CanTransitionTo(RequestStatusAccepted))
	assert.True(t, RequestStatusPending.CanTransitionTo(RequestStatusWithdrawn))
	assert.False(t, RequestStatusAccepted.CanTransitionTo(RequestStatusDeclined))
	assert.False(t, RequestStatusDeclined.CanTransitionTo(RequestStatusAccepted))
}

func TestCleaner_CanReceivePayouts(t *testing.T) {
	account := "acct_123"

	assert.False(t, (&Cleaner{}).CanReceivePayouts())
	assert.False(t, (&Cleaner{ConnectAccountID: &account}).CanReceivePayouts())
	assert.True(t, (&Cleaner{ConnectAccountID: &account, ChargesEnabled: true}).CanReceivePayouts())
}
