// Package testutil holds an in-memory payment provider and database
// fixtures shared by service, controller and handler tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"cleanbook/internal/database"
	. "cleanbook/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// NewDB opens a migrated in-memory SQLite store and closes it with the test.
func NewDB(t testing.TB) database.DB {
	t.Helper()

	db, err := database.NewSQLiteForTests()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// SeedPricing stores a price for every size band of a service type. Each band
// costs base + 100 per band index, so 0-10 is base and 41-50 is base+400.
func SeedPricing(t testing.TB, db database.DB, serviceType ServiceType, base int64) {
	t.Helper()

	for i, sizeRange := range AllSizeRanges() {
		row := &ServicePricing{
			ServiceType: serviceType,
			SizeRange:   sizeRange,
			Price:       decimal.NewFromInt(base + int64(i)*100),
			Currency:    "nok",
			IsActive:    true,
		}
		require.NoError(t, db.SQL.Create(row).Error)
	}
}

func CreateUser(t testing.TB, db database.DB, userType UserType) *User {
	t.Helper()

	subject := "user_" + uuid.NewString()
	email := subject + "@example.no"
	user := &User{
		AuthSubject: subject,
		FirstName:   "Test",
		LastName:    string(userType),
		Email:       &email,
		UserType:    &userType,
		IsActive:    true,
	}
	require.NoError(t, db.SQL.Create(user).Error)
	return user
}

func CreateLandlord(t testing.TB, db database.DB) (*User, *Landlord) {
	t.Helper()

	user := CreateUser(t, db, UserTypeLandlord)
	landlord := &Landlord{UserID: user.ID, LandlordType: LandlordTypePrivate, IsActive: true}
	require.NoError(t, db.SQL.Create(landlord).Error)
	return user, landlord
}

func CreateProperty(t testing.TB, db database.DB, owner *User, sizeSqm int) *Property {
	t.Helper()

	property := &Property{
		OwnerID:    owner.ID,
		Name:       fmt.Sprintf("Leilighet %d m²", sizeSqm),
		Type:       PropertyTypeApartment,
		Address:    "Karl Johans gate 1",
		PostalCode: "0154",
		City:       "Oslo",
		SizeSqm:    sizeSqm,
		IsActive:   true,
	}
	require.NoError(t, db.SQL.Create(property).Error)
	return property
}

// CreateCleaner creates a cleaner user. A non-empty accountID attaches a
// connect account with the given charges flag.
func CreateCleaner(
	t testing.TB,
	db database.DB,
	status CleanerStatus,
	accountID string,
	chargesEnabled bool,
) (*User, *Cleaner) {
	t.Helper()

	user := CreateUser(t, db, UserTypeCleaner)
	cleaner := &Cleaner{
		UserID:         user.ID,
		Status:         status,
		IsActive:       true,
		ChargesEnabled: chargesEnabled,
	}
	if accountID != "" {
		connectStatus := ConnectStatusPending
		if chargesEnabled {
			connectStatus = ConnectStatusActive
		}
		cleaner.ConnectAccountID = &accountID
		cleaner.ConnectAccountStatus = &connectStatus
	}
	require.NoError(t, db.SQL.Omit("User").Create(cleaner).Error)
	return user, cleaner
}

// CreateJob inserts a job directly in the given state, bypassing lifecycle
// guards, priced at total NOK with a 15% platform fee.
func CreateJob(
	t testing.TB,
	db database.DB,
	landlord *Landlord,
	property *Property,
	status JobStatus,
	total int64,
) *CleaningJob {
	t.Helper()

	price := decimal.NewFromInt(total)
	fee := price.Mul(decimal.NewFromInt(15)).Div(decimal.NewFromInt(100)).Round(2)
	job := &CleaningJob{
		LandlordID:    landlord.ID,
		PropertyID:    property.ID,
		ServiceType:   ServiceTypeBnbCleaning,
		ScheduledDate: time.Now().Add(48 * time.Hour).UTC().Truncate(24 * time.Hour),
		Status:        status,
		Price:         price,
		PricePerDate:  price,
		TotalPrice:    price,
		PlatformFee:   fee,
		CleanerPayout: price.Sub(fee),
		PaymentStatus: PaymentStatusPending,
		PayoutStatus:  PayoutStatusPending,
	}
	require.NoError(t, db.SQL.Omit("Property").Create(job).Error)
	return job
}

// ReloadJob reads the job back from the store.
func ReloadJob(t testing.TB, db database.DB, id uuid.UUID) *CleaningJob {
	t.Helper()

	var job CleaningJob
	require.NoError(t, db.SQL.First(&job, "id = ?", id).Error)
	return &job
}

func ReloadCleaner(t testing.TB, db database.DB, id uuid.UUID) *Cleaner {
	t.Helper()

	var cleaner Cleaner
	require.NoError(t, db.SQL.First(&cleaner, "id = ?", id).Error)
	return &cleaner
}

// AuditLogs returns every audit row, oldest first.
func AuditLogs(t testing.TB, db database.DB) []StripeLog {
	t.Helper()

	var logs []StripeLog
	require.NoError(t, db.SQL.Order("created_at ASC, id ASC").Find(&logs).Error)
	return logs
}
