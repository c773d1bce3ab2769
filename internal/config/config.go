package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // embedded zone database for asset time zones

	"github.com/kenlai212/booking-api-sub001/internal/pricing"
	"github.com/kenlai212/booking-api-sub001/internal/slots"
	"gopkg.in/yaml.v3"
)

const (
	StorageSQLite = "sqlite"
	StorageMongo  = "mongo"
)

type Config struct {
	Server struct {
		Address   string `yaml:"address"`
		APIKey    string `yaml:"api_key"`
		RateLimit struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`

	Storage struct {
		Driver string `yaml:"driver"` // sqlite | mongo
	} `yaml:"storage"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Mongo struct {
		URI            string `yaml:"uri"`
		Database       string `yaml:"database"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"mongo"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Remote struct {
		BaseURL          string `yaml:"base_url"`
		APIKey           string `yaml:"api_key"`
		OccupancyEnabled bool   `yaml:"occupancy_enabled"`
		PricingEnabled   bool   `yaml:"pricing_enabled"`
		CacheTTLSeconds  int    `yaml:"cache_ttl_seconds"`
	} `yaml:"remote"`

	Slots struct {
		DayStart           string `yaml:"day_start"`
		DayEnd             string `yaml:"day_end"`
		Timezone           string `yaml:"timezone"`
		GranularityMinutes int    `yaml:"granularity_minutes"`
		GapSeconds         int    `yaml:"gap_seconds"`
	} `yaml:"slots"`

	Pricing struct {
		UnitPrice          float64 `yaml:"unit_price"`
		Currency           string  `yaml:"currency"`
		UnitMinutes        int     `yaml:"unit_minutes"`
		MinDurationMinutes int     `yaml:"min_duration_minutes"`
		MaxDurationMinutes int     `yaml:"max_duration_minutes"`
	} `yaml:"pricing"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	AssetsConfigPath        string `yaml:"assets_config_path"`
	AssetsWatchIntervalSecs int    `yaml:"assets_watch_interval_seconds"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	switch cfg.Storage.Driver {
	case StorageSQLite:
		if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, err
		}
	case StorageMongo:
		if cfg.Mongo.URI == "" {
			return nil, fmt.Errorf("mongo.uri is required when storage.driver is %q", StorageMongo)
		}
	default:
		return nil, fmt.Errorf("unknown storage.driver %q", cfg.Storage.Driver)
	}

	if (cfg.Remote.OccupancyEnabled || cfg.Remote.PricingEnabled) && cfg.Remote.BaseURL == "" {
		return nil, fmt.Errorf("remote.base_url is required when a remote collaborator is enabled")
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageSQLite
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/availability.db"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "availability"
	}
	if c.Slots.DayStart == "" {
		c.Slots.DayStart = slots.DefaultDayStart
	}
	if c.Slots.DayEnd == "" {
		c.Slots.DayEnd = slots.DefaultDayEnd
	}
	if c.Slots.Timezone == "" {
		c.Slots.Timezone = "UTC"
	}
	if c.Pricing.Currency == "" {
		c.Pricing.Currency = "HKD"
	}
	if c.AssetsConfigPath == "" {
		c.AssetsConfigPath = "configs/assets.yaml"
	}
}

// SlotsConfig returns the slot generator configuration for assetID using the
// global schedule.
func (c *Config) SlotsConfig(assetID string) (slots.Config, error) {
	loc, err := time.LoadLocation(c.Slots.Timezone)
	if err != nil {
		return slots.Config{}, fmt.Errorf("slots.timezone: %w", err)
	}

	cfg := slots.DefaultConfig(assetID)
	cfg.DayStart = c.Slots.DayStart
	cfg.DayEnd = c.Slots.DayEnd
	cfg.Location = loc
	if c.Slots.GranularityMinutes > 0 {
		cfg.Granularity = time.Duration(c.Slots.GranularityMinutes) * time.Minute
	}
	if c.Slots.GapSeconds > 0 {
		cfg.Gap = time.Duration(c.Slots.GapSeconds) * time.Second
	}
	return cfg, nil
}

// PricingCalculator returns the calculator for the global unit price.
func (c *Config) PricingCalculator() *pricing.Calculator {
	calc := pricing.NewCalculator(c.Pricing.UnitPrice, c.Pricing.Currency)
	if c.Pricing.UnitMinutes > 0 {
		calc.Unit = time.Duration(c.Pricing.UnitMinutes) * time.Minute
	}
	calc.MinDuration = time.Duration(c.Pricing.MinDurationMinutes) * time.Minute
	calc.MaxDuration = time.Duration(c.Pricing.MaxDurationMinutes) * time.Minute
	if c.Slots.GapSeconds > 0 {
		calc.Gap = time.Duration(c.Slots.GapSeconds) * time.Second
	}
	return calc
}

func (c *Config) CacheTTL() time.Duration {
	if c.Remote.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Remote.CacheTTLSeconds) * time.Second
}

func (c *Config) MongoTimeout() time.Duration {
	if c.Mongo.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Mongo.TimeoutSeconds) * time.Second
}

func (c *Config) AssetsWatchInterval() time.Duration {
	if c.AssetsWatchIntervalSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.AssetsWatchIntervalSecs) * time.Second
}

// LoadAssets loads the assets file referenced by the config.
func (c *Config) LoadAssets() (*AssetsConfig, error) {
	return LoadAssetsConfig(c.AssetsConfigPath)
}
