package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	SizeBucketWidth  = 10
	MaxPricedSizeSqm = 300
)

var ErrSizeOutOfRange = errors.New("property size is outside the priced range")

// SizeRange is a 10 m² band label such as "0-10" or "41-50".
type SizeRange string

// SizeRangeFor maps a size to exactly one band. The first band is 0-10 and
// every later band starts one past the previous upper bound, so 30 lands in
// 21-30 and 31 in 31-40.
func SizeRangeFor(sizeSqm int) (SizeRange, error) {
	if sizeSqm < 0 || sizeSqm > MaxPricedSizeSqm {
		return "", fmt.Errorf("%w: %d", ErrSizeOutOfRange, sizeSqm)
	}
	if sizeSqm <= SizeBucketWidth {
		return SizeRange(fmt.Sprintf("0-%d", SizeBucketWidth)), nil
	}

	lower := (sizeSqm-1)/SizeBucketWidth*SizeBucketWidth + 1
	return SizeRange(fmt.Sprintf("%d-%d", lower, lower+SizeBucketWidth-1)), nil
}

// AllSizeRanges returns the 30 bands in ascending order.
func AllSizeRanges() []SizeRange {
	ranges := make([]SizeRange, 0, MaxPricedSizeSqm/SizeBucketWidth)
	for upper := SizeBucketWidth; upper <= MaxPricedSizeSqm; upper += SizeBucketWidth {
		rng, _ := SizeRangeFor(upper)
		ranges = append(ranges, rng)
	}
	return ranges
}

type ServicePricing struct {
	BaseUUIDModel
	ServiceType ServiceType     `gorm:"type:text;not null;index:idx_service_pricing_lookup" json:"serviceType"`
	SizeRange   SizeRange       `gorm:"type:text;not null;index:idx_service_pricing_lookup" json:"sizeRange"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"                         json:"price"`
	Currency    string          `gorm:"type:text;not null;default:'nok'"                    json:"currency"`
	IsActive    bool            `gorm:"type:bool;default:true;not null"                     json:"isActive"`
}

func (ServicePricing) TableName() string {
	return "service_pricing"
}
