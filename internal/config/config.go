package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/drivekit/billing/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	MySQL      MySQLConfig      `validate:"required"`
	Redis      RedisConfig
	Cache      CacheConfig
	Stripe     StripeConfig  `validate:"required"`
	Gateways   GatewayConfig `validate:"required"`
	Tiers      TierConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
	// InternalToken authenticates the support-tool endpoints
	InternalToken string
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type CacheConfig struct {
	Enabled bool
	Backend types.CacheBackend
	// SubscriptionTTL bounds how long a cached subscription view may lag
	// behind the processor; kept short on purpose.
	SubscriptionTTL time.Duration
	UsedCouponsTTL  time.Duration
}

type StripeConfig struct {
	SecretKey     string `validate:"required"`
	WebhookSecret string `validate:"required"`
}

type GatewayConfig struct {
	// Secret signs the short-lived bearer tokens sent to the gateways
	Secret        string `validate:"required"`
	DriveURL      string `validate:"required"`
	VPNURL        string
	ObjectStorage ObjectStorageGatewayConfig
}

type ObjectStorageGatewayConfig struct {
	URL string
}

type TierConfig struct {
	// FreeTierProductID overrides the reserved free-tier product id
	FreeTierProductID string
	// DefaultFreeBytes is the free-plan storage size applied on downgrades
	// and when a lifetime stack resolves to zero admitted invoices.
	DefaultFreeBytes int64
}

func NewConfig() (*Configuration, error) {
	// Local runs keep secrets in a .env file; absence is fine everywhere else.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/drivekit")

	v.SetEnvPrefix("DRIVEKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeLocal))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", string(types.CacheBackendInMemory))
	v.SetDefault("cache.subscriptionttl", 5*time.Minute)
	v.SetDefault("cache.usedcouponsttl", 12*time.Hour)
	v.SetDefault("tiers.freetierproductid", types.FreeTierProductID)
	v.SetDefault("tiers.defaultfreebytes", int64(2_000_000_000))
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and tests.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Cache: CacheConfig{
			Enabled:         true,
			Backend:         types.CacheBackendInMemory,
			SubscriptionTTL: 5 * time.Minute,
			UsedCouponsTTL:  12 * time.Hour,
		},
		Tiers: TierConfig{
			FreeTierProductID: types.FreeTierProductID,
			DefaultFreeBytes:  2_000_000_000,
		},
	}
}

func (c MySQLConfig) GetDSN() string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
	)
}
