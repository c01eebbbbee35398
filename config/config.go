package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	shoperrors "sjsage522/shopcollagebot/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Delivery configuration
	BotToken         string `envconfig:"BOT_TOKEN" validate:"required"`
	DiscordToken     string `envconfig:"DISCORD_TOKEN"`
	ChannelID        string `envconfig:"CHANNEL_ID" validate:"required"`
	DeliveryPlatform string `envconfig:"DELIVERY_PLATFORM" default:"discord" validate:"oneof=discord telegram"`
	CommandPrefix    string `envconfig:"COMMAND_PREFIX" default:"!"`
	CommandName      string `envconfig:"COMMAND_NAME" default:"shop" validate:"required,alphanum"`

	// Storefront configuration
	ShopURL           string        `envconfig:"SHOP_URL" default:"https://fnitemshop.com/" validate:"required,url"`
	ShopImagePrefix   string        `envconfig:"SHOP_IMAGE_PREFIX" default:"https://fnitemshop.com/wp-content/uploads"`
	ShopUseBrowser    bool          `envconfig:"SHOP_USE_BROWSER" default:"false"`
	BrowserTimeout    time.Duration `envconfig:"BROWSER_TIMEOUT" default:"30s" validate:"gt=0"`
	ImageFetchTimeout time.Duration `envconfig:"IMAGE_FETCH_TIMEOUT" default:"30s" validate:"gt=0"`

	// Price list override
	PriceCatalogFile string `envconfig:"PRICE_CATALOG_FILE"`

	// Schedule configuration
	ScheduleCron     string `envconfig:"SCHEDULE_CRON" default:"10 2 * * *" validate:"required"`
	ScheduleTimezone string `envconfig:"SCHEDULE_TIMEZONE" default:"Europe/Berlin" validate:"required"`

	// Keep-alive endpoint
	KeepAliveAddr    string `envconfig:"KEEPALIVE_ADDR" default:":8080" validate:"required"`
	KeepAliveMessage string `envconfig:"KEEPALIVE_MESSAGE" default:"Bot läuft!"`

	// Pass lock configuration
	LockBackend string        `envconfig:"LOCK_BACKEND" default:"local" validate:"oneof=local redis memcache"`
	LockTTL     time.Duration `envconfig:"LOCK_TTL" default:"30m" validate:"gt=0,lte=720h"`

	// Redis configuration
	RedisAddr            string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB              int    `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
	RedisMirrorStream    string `envconfig:"REDIS_MIRROR_STREAM"`
	RedisStreamMaxLength int    `envconfig:"REDIS_STREAM_MAX_LENGTH" default:"100" validate:"gt=0"`

	// Memcache configuration
	MemcacheAddr string `envconfig:"MEMCACHE_ADDR" default:"localhost:11211"`

	// Environment
	Environment string `envconfig:"SHOPBOT_ENVIRONMENT" default:"development"`
}

var validate = validator.New()

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, shoperrors.NewConfiguration("cannot read environment", err)
	}

	// older Discord deployments name the token DISCORD_TOKEN
	if cfg.BotToken == "" && cfg.DeliveryPlatform == "discord" {
		cfg.BotToken = cfg.DiscordToken
	}
	return &cfg, nil
}

// Validate checks the full configuration needed to deliver to a channel
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return shoperrors.NewConfiguration("invalid configuration", err)
	}
	return c.validateLocation()
}

// ValidateOffline checks the configuration for commands that never touch the
// messaging platform, so the delivery credentials may be absent.
func (c *Config) ValidateOffline() error {
	if err := validate.StructExcept(c, "BotToken", "ChannelID"); err != nil {
		return shoperrors.NewConfiguration("invalid configuration", err)
	}
	return c.validateLocation()
}

// Location returns the time zone the schedule is evaluated in
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.ScheduleTimezone)
}

func (c *Config) validateLocation() error {
	if _, err := c.Location(); err != nil {
		return shoperrors.NewConfiguration(fmt.Sprintf("unknown time zone %q", c.ScheduleTimezone), err)
	}
	return nil
}
