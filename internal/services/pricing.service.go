package services

import (
	"context"
	"errors"
	"fmt"

	"cleanbook/internal/database"
	. "cleanbook/internal/models"
	"cleanbook/internal/repositories"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/shopspring/decimal"
)

// JobQuote is the full set of pricing fields stored on a cleaning job.
type JobQuote struct {
	ServiceType   ServiceType     `json:"serviceType"`
	SizeRange     SizeRange       `json:"sizeRange"`
	Price         decimal.Decimal `json:"price"`
	PricePerDate  decimal.Decimal `json:"pricePerDate"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	PlatformFee   decimal.Decimal `json:"platformFee"`
	CleanerPayout decimal.Decimal `json:"cleanerPayout"`
}

type PricingService struct {
	db         database.DB
	repo       repositories.ServicePricingRepository
	feePercent decimal.Decimal
	log        logger.Logger
}

func NewPricingService(
	db database.DB,
	repo repositories.ServicePricingRepository,
	platformFeePercent int,
) *PricingService {
	return &PricingService{
		db:         db,
		repo:       repo,
		feePercent: decimal.NewFromInt(int64(platformFeePercent)),
		log:        logger.New("PricingService"),
	}
}

// ResolvePrice returns the active flat price for the bucket containing
// sizeSqm. A missing row is a configuration error, never a zero price.
func (s *PricingService) ResolvePrice(
	ctx context.Context,
	serviceType ServiceType,
	sizeSqm int,
) (decimal.Decimal, error) {
	log := s.log.TraceFromContext(ctx).Function("ResolvePrice")

	if !serviceType.IsValid() {
		return decimal.Zero, types.Validation(fmt.Sprintf("unknown service type %q", serviceType))
	}

	sizeRange, err := SizeRangeFor(sizeSqm)
	if err != nil {
		if errors.Is(err, ErrSizeOutOfRange) {
			return decimal.Zero, types.Validation(
				fmt.Sprintf("property size must be between 0 and %d m²", MaxPricedSizeSqm),
			).WithCause(err)
		}
		return decimal.Zero, err
	}

	pricing, err := s.repo.GetActive(ctx, s.db.SQLWithContext(ctx), serviceType, sizeRange)
	if err != nil {
		if errors.Is(err, types.ErrPricingNotConfigured) {
			log.Warn("no active price", "serviceType", serviceType, "sizeRange", sizeRange)
		}
		return decimal.Zero, err
	}

	return pricing.Price, nil
}

// Quote resolves the price for a single-date job and splits it into the
// platform fee and the cleaner payout.
func (s *PricingService) Quote(
	ctx context.Context,
	serviceType ServiceType,
	sizeSqm int,
) (*JobQuote, error) {
	price, err := s.ResolvePrice(ctx, serviceType, sizeSqm)
	if err != nil {
		return nil, err
	}

	sizeRange, _ := SizeRangeFor(sizeSqm)
	fee, payout := SplitPayout(price, s.feePercent)

	return &JobQuote{
		ServiceType:   serviceType,
		SizeRange:     sizeRange,
		Price:         price,
		PricePerDate:  price,
		TotalPrice:    price,
		PlatformFee:   fee,
		CleanerPayout: payout,
	}, nil
}

// SplitPayout rounds the fee to øre; the payout is whatever remains so the
// two always sum to total.
func SplitPayout(total, feePercent decimal.Decimal) (fee, payout decimal.Decimal) {
	fee = total.Mul(feePercent).Div(decimal.NewFromInt(100)).Round(2)
	payout = total.Sub(fee)
	return fee, payout
}

// ToMinorUnits converts a NOK amount to øre for the payment provider.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
