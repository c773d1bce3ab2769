package config

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/kenlai212/booking-api-sub001/internal/pricing"
	"github.com/kenlai212/booking-api-sub001/internal/slots"
	"gopkg.in/yaml.v3"
)

// AssetConfig represents a single bookable boat.
type AssetConfig struct {
	ID        string          `yaml:"id"`
	Name      string          `yaml:"name"`
	IsActive  bool            `yaml:"is_active"`
	Schedule  *ScheduleConfig `yaml:"schedule,omitempty"`
	UnitPrice float64         `yaml:"unit_price,omitempty"`
}

// ScheduleConfig represents the operating window of an asset.
type ScheduleConfig struct {
	DayStart string `yaml:"day_start"` // "05:00:00"
	DayEnd   string `yaml:"day_end"`   // "19:59:59"
	Timezone string `yaml:"timezone"`  // "Asia/Hong_Kong"
}

// AssetDefaultsConfig represents global default settings.
type AssetDefaultsConfig struct {
	Schedule  *ScheduleConfig `yaml:"schedule"`
	UnitPrice float64         `yaml:"unit_price"`
}

// AssetsConfig is the root configuration for assets.yaml.
type AssetsConfig struct {
	Assets   []AssetConfig       `yaml:"assets"`
	Defaults AssetDefaultsConfig `yaml:"defaults"`
}

// LoadAssetsConfig loads and validates assets configuration from YAML file.
func LoadAssetsConfig(path string) (*AssetsConfig, error) {
	if path == "" {
		path = "configs/assets.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assets config: %w", err)
	}

	var cfg AssetsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse assets config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate assets config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *AssetsConfig) Validate() error {
	if len(c.Assets) == 0 {
		return fmt.Errorf("no assets defined")
	}

	ids := make(map[string]bool)
	for i, a := range c.Assets {
		if a.ID == "" {
			return fmt.Errorf("asset[%d]: id is required", i)
		}
		if ids[a.ID] {
			return fmt.Errorf("asset[%d]: duplicate id '%s'", i, a.ID)
		}
		ids[a.ID] = true

		if a.Name == "" {
			return fmt.Errorf("asset[%d]: name is required", i)
		}
		if a.UnitPrice < 0 {
			return fmt.Errorf("asset[%d]: unit_price cannot be negative", i)
		}
		if a.Schedule != nil {
			if err := validateSchedule(a.Schedule, fmt.Sprintf("asset[%d].schedule", i)); err != nil {
				return err
			}
		}
	}

	if c.Defaults.Schedule != nil {
		if err := validateSchedule(c.Defaults.Schedule, "defaults.schedule"); err != nil {
			return err
		}
	}
	if c.Defaults.UnitPrice < 0 {
		return fmt.Errorf("defaults.unit_price cannot be negative")
	}

	return nil
}

func validateSchedule(s *ScheduleConfig, prefix string) error {
	if s.DayStart == "" {
		return fmt.Errorf("%s.day_start is required", prefix)
	}
	if s.DayEnd == "" {
		return fmt.Errorf("%s.day_end is required", prefix)
	}

	start, err := time.Parse("15:04:05", s.DayStart)
	if err != nil {
		return fmt.Errorf("%s.day_start: invalid format '%s', expected HH:MM:SS", prefix, s.DayStart)
	}
	end, err := time.Parse("15:04:05", s.DayEnd)
	if err != nil {
		return fmt.Errorf("%s.day_end: invalid format '%s', expected HH:MM:SS", prefix, s.DayEnd)
	}
	if !end.After(start) {
		return fmt.Errorf("%s: day_end must be after day_start", prefix)
	}

	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("%s.timezone: %w", prefix, err)
		}
	}
	return nil
}

func (c *AssetsConfig) applyDefaults() {
	for i := range c.Assets {
		if c.Assets[i].Schedule == nil && c.Defaults.Schedule != nil {
			s := *c.Defaults.Schedule
			c.Assets[i].Schedule = &s
		}
		if c.Assets[i].UnitPrice == 0 {
			c.Assets[i].UnitPrice = c.Defaults.UnitPrice
		}
	}
}

// GetAssetByID returns the asset with the given id.
func (c *AssetsConfig) GetAssetByID(id string) (*AssetConfig, bool) {
	for i := range c.Assets {
		if c.Assets[i].ID == id {
			return &c.Assets[i], true
		}
	}
	return nil, false
}

// ActiveAssets returns the assets open for booking.
func (c *AssetsConfig) ActiveAssets() []AssetConfig {
	var active []AssetConfig
	for _, a := range c.Assets {
		if a.IsActive {
			active = append(active, a)
		}
	}
	return active
}

// String returns a summary for logging.
func (c *AssetsConfig) String() string {
	return fmt.Sprintf("AssetsConfig{assets: %d, active: %d}", len(c.Assets), len(c.ActiveAssets()))
}

// SlotsConfigFor layers the asset's schedule over the global slot settings.
func (c *Config) SlotsConfigFor(asset *AssetConfig) (slots.Config, error) {
	cfg, err := c.SlotsConfig(asset.ID)
	if err != nil {
		return slots.Config{}, err
	}
	if asset.Schedule == nil {
		return cfg, nil
	}

	cfg.DayStart = asset.Schedule.DayStart
	cfg.DayEnd = asset.Schedule.DayEnd
	if asset.Schedule.Timezone != "" {
		loc, err := time.LoadLocation(asset.Schedule.Timezone)
		if err != nil {
			return slots.Config{}, fmt.Errorf("asset %s timezone: %w", asset.ID, err)
		}
		cfg.Location = loc
	}
	return cfg, nil
}

// PricingCalculatorFor returns the calculator with the asset's unit price when set.
func (c *Config) PricingCalculatorFor(asset *AssetConfig) *pricing.Calculator {
	calc := c.PricingCalculator()
	if asset.UnitPrice > 0 {
		calc.UnitPrice = asset.UnitPrice
	}
	return calc
}

// AssetRegistry holds the latest loaded assets configuration.
type AssetRegistry struct {
	current atomic.Pointer[AssetsConfig]
}

func NewAssetRegistry(cfg *AssetsConfig) *AssetRegistry {
	r := &AssetRegistry{}
	r.Set(cfg)
	return r
}

func (r *AssetRegistry) Set(cfg *AssetsConfig) {
	if cfg != nil {
		r.current.Store(cfg)
	}
}

// Lookup returns an active asset by id.
func (r *AssetRegistry) Lookup(id string) (*AssetConfig, bool) {
	cfg := r.current.Load()
	if cfg == nil {
		return nil, false
	}
	asset, ok := cfg.GetAssetByID(id)
	if !ok || !asset.IsActive {
		return nil, false
	}
	return asset, true
}
