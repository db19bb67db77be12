package constants

import "time"

const (
	UserCachePrefix     = "user_subject"     // Users by auth subject (CacheBuilder adds colon)
	UserCacheExpiry     = 7 * 24 * time.Hour // 7 days
	PricingCachePrefix  = "pricing"          // Active price by service type and size band
	PricingCacheExpiry  = 1 * time.Hour
	RegistryCachePrefix = "registry" // Company register entries by organization number
	RegistryCacheExpiry = 24 * time.Hour
)
