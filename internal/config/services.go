package config

import (
	"errors"
	"time"
)

type QuoteCacheConfig struct {
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

func (c *QuoteCacheConfig) Key() string {
	return QUOTE_CACHE_CONFIG_KEY
}

func (c *QuoteCacheConfig) Load() error {
	v := newEnv()
	v.SetDefault("QUOTE_TTL", "5m")
	v.SetDefault("QUOTE_CACHE_SIZE", 10000)
	v.SetDefault("QUOTE_CLEANUP_INTERVAL", "30s")

	c.TTL = v.GetDuration("QUOTE_TTL")
	c.MaxEntries = v.GetInt("QUOTE_CACHE_SIZE")
	c.CleanupInterval = v.GetDuration("QUOTE_CLEANUP_INTERVAL")
	return c.Validate()
}

func (c *QuoteCacheConfig) Validate() error {
	if c.TTL <= 0 || c.MaxEntries <= 0 {
		return errors.New("quote cache ttl and size must be positive")
	}
	return nil
}

type PoolStoreConfig struct {
	// DBPath is the bbolt file holding the pool registry.
	DBPath string
	// SeedFile is an optional JSON or YAML list of pools imported at startup.
	SeedFile string
}

func (c *PoolStoreConfig) Key() string {
	return POOL_STORE_CONFIG_KEY
}

func (c *PoolStoreConfig) Load() error {
	v := newEnv()
	v.SetDefault("POOL_DB_PATH", "./data/pools.db")
	c.DBPath = v.GetString("POOL_DB_PATH")
	c.SeedFile = v.GetString("POOL_SEED_FILE")
	return c.Validate()
}

func (c *PoolStoreConfig) Validate() error {
	if c.DBPath == "" {
		return errors.New("pool db path is required")
	}
	return nil
}

type EventsConfig struct {
	NatsURL       string
	Stream        string
	SubjectPrefix string
}

func (c *EventsConfig) Key() string {
	return EVENTS_CONFIG_KEY
}

func (c *EventsConfig) Load() error {
	v := newEnv()
	v.SetDefault("NATS_STREAM", "SWAPS")
	v.SetDefault("NATS_SUBJECT_PREFIX", "swaps")
	c.NatsURL = v.GetString("NATS_URL")
	c.Stream = v.GetString("NATS_STREAM")
	c.SubjectPrefix = v.GetString("NATS_SUBJECT_PREFIX")
	return c.Validate()
}

// Enabled reports whether outcome events should be published.
func (c *EventsConfig) Enabled() bool {
	return c.NatsURL != ""
}

func (c *EventsConfig) Validate() error {
	if c.Enabled() && (c.Stream == "" || c.SubjectPrefix == "") {
		return errors.New("nats stream and subject prefix are required")
	}
	return nil
}

type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
	SampleRatio  float64
}

func (c *TelemetryConfig) Key() string {
	return TELEMETRY_CONFIG_KEY
}

func (c *TelemetryConfig) Load() error {
	v := newEnv()
	v.SetDefault("OTEL_SERVICE_NAME", "chain-gateway")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)
	c.OTLPEndpoint = v.GetString("OTEL_ENDPOINT")
	c.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	c.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")
	return c.Validate()
}

func (c *TelemetryConfig) Validate() error {
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return errors.New("sample ratio must be within [0, 1]")
	}
	return nil
}

type WalletConfig struct {
	// KeysFile is a JSON object mapping wallet address to private key.
	KeysFile string
}

func (c *WalletConfig) Key() string {
	return WALLET_CONFIG_KEY
}

func (c *WalletConfig) Load() error {
	v := newEnv()
	v.SetDefault("WALLET_KEYS_FILE", "./conf/wallets.json")
	c.KeysFile = v.GetString("WALLET_KEYS_FILE")
	return nil
}

func (c *WalletConfig) Validate() error {
	return nil
}
