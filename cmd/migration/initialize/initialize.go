package initialize

import (
	. "cleanbook/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Starting price in NOK for the smallest band of each service type, and the
// increment added for every further 10 m² band.
var basePrices = map[ServiceType]struct {
	base      int64
	increment int64
}{
	ServiceTypeBnbCleaning:     {base: 650, increment: 90},
	ServiceTypeDeepCleaning:    {base: 1200, increment: 160},
	ServiceTypeMoveOutCleaning: {base: 1500, increment: 200},
}

func InitializeTables(db *gorm.DB, log logger.Logger) error {
	log = log.Function("InitializeTables")
	log.Info("Initializing essential production data")

	if err := initializePricing(db, log); err != nil {
		return log.Err("failed to initialize pricing", err)
	}

	log.Info("Table initialization complete")
	return nil
}

// initializePricing fills in missing active rows for every service type and
// size band. Existing rows are never touched so adjusted prices survive.
func initializePricing(db *gorm.DB, log logger.Logger) error {
	log = log.Function("initializePricing")
	log.Info("Initializing service pricing")

	created := 0
	for _, row := range PricingRows() {
		var count int64
		if err := db.Model(&ServicePricing{}).
			Where("service_type = ? AND size_range = ? AND is_active = ?", row.ServiceType, row.SizeRange, true).
			Count(&count).Error; err != nil {
			return log.Err("failed to check pricing", err, "serviceType", row.ServiceType, "sizeRange", row.SizeRange)
		}
		if count > 0 {
			continue
		}

		if err := db.Create(&row).Error; err != nil {
			return log.Err(
				"failed to create pricing",
				err,
				"serviceType",
				row.ServiceType,
				"sizeRange",
				row.SizeRange,
			)
		}
		created++
	}

	log.Info("Service pricing initialized", "created", created)
	return nil
}

// PricingRows returns the default price for every service type and size band.
func PricingRows() []ServicePricing {
	sizeRanges := AllSizeRanges()
	rows := make([]ServicePricing, 0, len(AllServiceTypes())*len(sizeRanges))

	for _, serviceType := range AllServiceTypes() {
		price := basePrices[serviceType]
		for i, sizeRange := range sizeRanges {
			rows = append(rows, ServicePricing{
				ServiceType: serviceType,
				SizeRange:   sizeRange,
				Price:       decimal.NewFromInt(price.base + int64(i)*price.increment),
				Currency:    "nok",
				IsActive:    true,
			})
		}
	}
	return rows
}
