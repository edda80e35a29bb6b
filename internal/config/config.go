package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerEnv = string

var (
	DevEnv     ServerEnv = "dev"
	StagingEnv ServerEnv = "staging"
	ProdEnv    ServerEnv = "prod"
)

const (
	GENERAL_CONFIG_KEY     = "general-config"
	CHAINS_CONFIG_KEY      = "chains-config"
	QUOTE_CACHE_CONFIG_KEY = "quote-cache-config"
	POOL_STORE_CONFIG_KEY  = "pool-store-config"
	EVENTS_CONFIG_KEY      = "events-config"
	TELEMETRY_CONFIG_KEY   = "telemetry-config"
	WALLET_CONFIG_KEY      = "wallet-config"
)

// Config is implemented by every configuration section.
type Config interface {
	Key() string
	Load() error
	Validate() error
}

// LoadAll loads every section in order and stops at the first failure.
func LoadAll(cfgs ...Config) error {
	for _, c := range cfgs {
		if err := c.Load(); err != nil {
			return errors.Join(errors.New(c.Key()), err)
		}
	}
	return nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

type GeneralConfig struct {
	HTTPPort       string
	HTTPHost       string
	Env            string
	LogLevel       string
	RateLimitRPS   float64
	RateLimitBurst int
	// AdminAPIKey guards the admin routes. It may only be empty in dev,
	// where the check is disabled.
	AdminAPIKey string
}

func (gc *GeneralConfig) Key() string {
	return GENERAL_CONFIG_KEY
}

func (gc *GeneralConfig) Load() error {
	v := newEnv()
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("HTTP_HOST", "localhost")
	v.SetDefault("ENV", DevEnv)
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)

	gc.HTTPPort = v.GetString("HTTP_PORT")
	gc.HTTPHost = v.GetString("HTTP_HOST")
	gc.Env = v.GetString("ENV")
	gc.LogLevel = v.GetString("LOG_LEVEL")
	gc.RateLimitRPS = v.GetFloat64("RATE_LIMIT_RPS")
	gc.RateLimitBurst = v.GetInt("RATE_LIMIT_BURST")
	gc.AdminAPIKey = v.GetString("ADMIN_API_KEY")
	return gc.Validate()
}

func (gc *GeneralConfig) Validate() error {
	if gc.HTTPPort == "" || gc.HTTPHost == "" || gc.Env == "" {
		return errors.New("invalid server config")
	}
	if gc.RateLimitRPS < 0 || gc.RateLimitBurst < 0 {
		return errors.New("rate limit must not be negative")
	}
	if gc.AdminAPIKey == "" && (gc.Env == StagingEnv || gc.Env == ProdEnv) {
		return fmt.Errorf("ADMIN_API_KEY is required in %s", gc.Env)
	}
	return nil
}
