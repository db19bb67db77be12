package config

import (
	logger "github.com/Bparsons0904/goLogger"
	"github.com/spf13/viper"
)

type Config struct {
	GeneralVersion       string `mapstructure:"GENERAL_VERSION"`
	Environment          string `mapstructure:"ENVIRONMENT"`
	ServerPort           int    `mapstructure:"SERVER_PORT"`
	DatabaseDriver       string `mapstructure:"DB_DRIVER"`
	DatabaseSQLitePath   string `mapstructure:"DB_SQLITE_PATH"`
	DatabaseHost         string `mapstructure:"DB_HOST"`
	DatabasePort         int    `mapstructure:"DB_PORT"`
	DatabaseName         string `mapstructure:"DB_NAME"`
	DatabaseUser         string `mapstructure:"DB_USER"`
	DatabasePassword     string `mapstructure:"DB_PASSWORD"`
	DatabaseCacheAddress string `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort    int    `mapstructure:"DB_CACHE_PORT"`
	DatabaseCacheReset   int    `mapstructure:"DB_CACHE_RESET"`
	CorsAllowOrigins     string `mapstructure:"CORS_ALLOW_ORIGINS"`
	FrontendURL          string `mapstructure:"FRONTEND_URL"`
	SchedulerEnabled     bool   `mapstructure:"SCHEDULER_ENABLED"`

	ClerkIssuer  string `mapstructure:"CLERK_ISSUER"`
	ClerkJWKSURL string `mapstructure:"CLERK_JWKS_URL"`

	StripeSecretKey      string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret  string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripeCurrency       string `mapstructure:"STRIPE_CURRENCY"`
	StripeConnectCountry string `mapstructure:"STRIPE_CONNECT_COUNTRY"`
	PlatformFeePercent   int    `mapstructure:"PLATFORM_FEE_PERCENT"`

	GooglePlacesAPIKey  string `mapstructure:"GOOGLE_PLACES_API_KEY"`
	GooglePlacesBaseURL string `mapstructure:"GOOGLE_PLACES_BASE_URL"`
	BrregBaseURL        string `mapstructure:"BRREG_BASE_URL"`
}

const (
	DriverPostgres             = "postgres"
	DriverSQLite               = "sqlite"
	DefaultSQLitePath          = "data/cleanbook.db"
	DefaultCurrency            = "nok"
	DefaultConnectCountry      = "NO"
	DefaultPlatformFeePercent  = 15
	DefaultGooglePlacesBaseURL = "https://maps.googleapis.com/maps/api/place"
	DefaultBrregBaseURL        = "https://data.brreg.no/enhetsregisteret/api"
)

var ConfigInstance Config

func New() (Config, error) {
	log := logger.New("config").Function("New")
	log.Info("Initializing config")

	viper.AutomaticEnv()

	envVars := []string{
		"GENERAL_VERSION", "ENVIRONMENT", "SERVER_PORT", "DB_DRIVER", "DB_SQLITE_PATH", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
		"DB_CACHE_ADDRESS", "DB_CACHE_PORT", "DB_CACHE_RESET",
		"CORS_ALLOW_ORIGINS", "FRONTEND_URL", "SCHEDULER_ENABLED",
		"CLERK_ISSUER", "CLERK_JWKS_URL",
		"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "STRIPE_CURRENCY", "STRIPE_CONNECT_COUNTRY", "PLATFORM_FEE_PERCENT",
		"GOOGLE_PLACES_API_KEY", "GOOGLE_PLACES_BASE_URL", "BRREG_BASE_URL",
	}

	for _, env := range envVars {
		if err := viper.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	viper.SetDefault("STRIPE_CURRENCY", DefaultCurrency)
	viper.SetDefault("STRIPE_CONNECT_COUNTRY", DefaultConnectCountry)
	viper.SetDefault("PLATFORM_FEE_PERCENT", DefaultPlatformFeePercent)
	viper.SetDefault("GOOGLE_PLACES_BASE_URL", DefaultGooglePlacesBaseURL)
	viper.SetDefault("BRREG_BASE_URL", DefaultBrregBaseURL)
	viper.SetDefault("DB_CACHE_RESET", -1)
	viper.SetDefault("DB_DRIVER", DriverPostgres)
	viper.SetDefault("DB_SQLITE_PATH", DefaultSQLitePath)

	envVarsSet := viper.IsSet("SERVER_PORT") && viper.IsSet("STRIPE_SECRET_KEY")

	if envVarsSet {
		log.Info("Environment variables detected, skipping file loading")
	} else {
		log.Info("Environment variables not found, attempting to load from files")

		viper.SetConfigFile(".env")
		viper.SetConfigType("env")

		if err := viper.ReadInConfig(); err != nil {
			log.Warn("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		viper.SetConfigFile(".env.local")
		if err := viper.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, log.Err("Fatal error: could not unmarshal config", err)
	}

	log.Info(
		"Successfully loaded config",
		"environment", config.Environment,
		"port", config.ServerPort,
		"currency", config.StripeCurrency,
	)

	if err := validateConfig(config, log); err != nil {
		return Config{}, err
	}

	return ConfigInstance, nil
}

func GetConfig() Config {
	return ConfigInstance
}

func validateConfig(config Config, log logger.Logger) error {
	if config.ServerPort <= 0 {
		return log.Error(
			"Fatal error: invalid server port",
			"port", config.ServerPort,
		)
	}

	if config.DatabaseDriver != DriverPostgres && config.DatabaseDriver != DriverSQLite {
		return log.Error("Fatal error: unsupported DB_DRIVER", "driver", config.DatabaseDriver)
	}

	if config.StripeSecretKey == "" {
		return log.ErrMsg("Fatal error: STRIPE_SECRET_KEY is required")
	}

	if config.PlatformFeePercent < 0 || config.PlatformFeePercent > 100 {
		return log.Error(
			"Fatal error: PLATFORM_FEE_PERCENT must be between 0 and 100",
			"platformFeePercent", config.PlatformFeePercent,
		)
	}

	if config.ClerkIssuer == "" {
		return log.ErrMsg("Fatal error: CLERK_ISSUER is required")
	}

	ConfigInstance = config
	return nil
}
