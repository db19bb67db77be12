package seed

import (
	. "cleanbook/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/gorm"
)

func stringPtr(s string) *string {
	return &s
}

func userTypePtr(t UserType) *UserType {
	return &t
}

// Seed creates local development accounts. The auth subjects match the
// users created in the development auth instance.
func Seed(db *gorm.DB, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data")

	return db.Transaction(func(tx *gorm.DB) error {
		admin := &User{
			AuthSubject: "user_dev_admin",
			FirstName:   "Admin",
			LastName:    "User",
			Email:       stringPtr("admin@cleanbook.local"),
			IsAdmin:     true,
			IsActive:    true,
		}
		if err := tx.Create(admin).Error; err != nil {
			return log.Err("failed to create admin user", err)
		}

		landlordUser := &User{
			AuthSubject: "user_dev_landlord",
			FirstName:   "Kari",
			LastName:    "Nordmann",
			Email:       stringPtr("landlord@cleanbook.local"),
			UserType:    userTypePtr(UserTypeLandlord),
			IsActive:    true,
		}
		if err := tx.Create(landlordUser).Error; err != nil {
			return log.Err("failed to create landlord user", err)
		}

		landlord := &Landlord{
			UserID:       landlordUser.ID,
			LandlordType: LandlordTypePrivate,
			IsActive:     true,
		}
		if err := tx.Create(landlord).Error; err != nil {
			return log.Err("failed to create landlord", err)
		}

		bedrooms := 2
		property := &Property{
			OwnerID:    landlordUser.ID,
			Name:       "Leilighet Grünerløkka",
			Type:       PropertyTypeApartment,
			Address:    "Thorvald Meyers gate 10",
			PostalCode: "0555",
			City:       "Oslo",
			SizeSqm:    54,
			Bedrooms:   &bedrooms,
			IsActive:   true,
		}
		if err := tx.Create(property).Error; err != nil {
			return log.Err("failed to create property", err)
		}

		cleanerUser := &User{
			AuthSubject: "user_dev_cleaner",
			FirstName:   "Ola",
			LastName:    "Vask",
			Email:       stringPtr("cleaner@cleanbook.local"),
			UserType:    userTypePtr(UserTypeCleaner),
			IsActive:    true,
		}
		if err := tx.Create(cleanerUser).Error; err != nil {
			return log.Err("failed to create cleaner user", err)
		}

		cleaner := &Cleaner{
			UserID:   cleanerUser.ID,
			Status:   CleanerStatusApproved,
			IsActive: true,
		}
		if err := tx.Omit("User").Create(cleaner).Error; err != nil {
			return log.Err("failed to create cleaner", err)
		}

		log.Info(
			"Development data seeded",
			"adminID", admin.ID,
			"landlordID", landlordUser.ID,
			"propertyID", property.ID,
			"cleanerID", cleaner.ID,
		)
		return nil
	})
}
