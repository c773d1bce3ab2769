package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AVAILABILITY_TEST_API_KEY", "secret-key")

	path := writeFile(t, dir, "config.yaml", `
server:
  api_key: ${AVAILABILITY_TEST_API_KEY}
database:
  path: `+filepath.Join(dir, "data", "test.db")+`
pricing:
  unit_price: 1200
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret-key", cfg.Server.APIKey)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, StorageSQLite, cfg.Storage.Driver)
	assert.Equal(t, "05:00:00", cfg.Slots.DayStart)
	assert.Equal(t, "19:59:59", cfg.Slots.DayEnd)
	assert.Equal(t, "HKD", cfg.Pricing.Currency)
	assert.Equal(t, 30*time.Second, cfg.AssetsWatchInterval())
	assert.Equal(t, time.Duration(0), cfg.CacheTTL())
	assert.DirExists(t, filepath.Join(dir, "data"))
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	path := writeFile(t, dir, "mongo.yaml", "storage:\n  driver: mongo\n")
	_, err = Load(path)
	assert.ErrorContains(t, err, "mongo.uri")

	path = writeFile(t, dir, "driver.yaml", "storage:\n  driver: postgres\n")
	_, err = Load(path)
	assert.ErrorContains(t, err, "storage.driver")

	path = writeFile(t, dir, "remote.yaml", "database:\n  path: "+filepath.Join(dir, "x.db")+"\nremote:\n  pricing_enabled: true\n")
	_, err = Load(path)
	assert.ErrorContains(t, err, "remote.base_url")
}

func TestConfig_SlotsConfigAndPricing(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()
	cfg.Slots.Timezone = "Asia/Hong_Kong"
	cfg.Pricing.UnitPrice = 1200
	cfg.Pricing.MaxDurationMinutes = 480

	sc, err := cfg.SlotsConfig("boat-1")
	require.NoError(t, err)
	assert.Equal(t, "boat-1", sc.AssetID)
	assert.Equal(t, "Asia/Hong_Kong", sc.Location.String())
	assert.Equal(t, time.Hour, sc.Granularity)
	assert.Equal(t, time.Second, sc.Gap)

	calc := cfg.PricingCalculator()
	assert.Equal(t, 1200.0, calc.UnitPrice)
	assert.Equal(t, 8*time.Hour, calc.MaxDuration)
	assert.Equal(t, time.Duration(0), calc.MinDuration)

	cfg.Slots.Timezone = "Mars/Olympus"
	_, err = cfg.SlotsConfig("boat-1")
	assert.Error(t, err)
}

const assetsYAML = `
defaults:
  unit_price: 1000
  schedule:
    day_start: "06:00:00"
    day_end: "18:59:59"
    timezone: Asia/Hong_Kong
assets:
  - id: boat-1
    name: Sea Breeze
    is_active: true
  - id: boat-2
    name: Island Hopper
    is_active: true
    unit_price: 1500
    schedule:
      day_start: "08:00:00"
      day_end: "16:59:59"
  - id: boat-3
    name: Dry Dock
    is_active: false
`

func TestLoadAssetsConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "assets.yaml", assetsYAML)

	assets, err := LoadAssetsConfig(path)
	require.NoError(t, err)

	require.Len(t, assets.Assets, 3)
	assert.Len(t, assets.ActiveAssets(), 2)

	boat1, ok := assets.GetAssetByID("boat-1")
	require.True(t, ok)
	require.NotNil(t, boat1.Schedule)
	assert.Equal(t, "06:00:00", boat1.Schedule.DayStart)
	assert.Equal(t, 1000.0, boat1.UnitPrice)

	boat2, ok := assets.GetAssetByID("boat-2")
	require.True(t, ok)
	assert.Equal(t, "08:00:00", boat2.Schedule.DayStart)
	assert.Equal(t, 1500.0, boat2.UnitPrice)

	_, ok = assets.GetAssetByID("boat-9")
	assert.False(t, ok)
	assert.Contains(t, assets.String(), "assets: 3")
}

func TestAssetsConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AssetsConfig
		wantErr string
	}{
		{"empty", AssetsConfig{}, "no assets defined"},
		{"missing id", AssetsConfig{Assets: []AssetConfig{{Name: "a"}}}, "id is required"},
		{"duplicate id", AssetsConfig{Assets: []AssetConfig{{ID: "a", Name: "a"}, {ID: "a", Name: "b"}}}, "duplicate id"},
		{"missing name", AssetsConfig{Assets: []AssetConfig{{ID: "a"}}}, "name is required"},
		{"negative price", AssetsConfig{Assets: []AssetConfig{{ID: "a", Name: "a", UnitPrice: -1}}}, "unit_price"},
		{
			name: "bad schedule format",
			cfg: AssetsConfig{Assets: []AssetConfig{{ID: "a", Name: "a", Schedule: &ScheduleConfig{
				DayStart: "5am", DayEnd: "19:59:59",
			}}}},
			wantErr: "day_start",
		},
		{
			name: "end before start",
			cfg: AssetsConfig{Assets: []AssetConfig{{ID: "a", Name: "a", Schedule: &ScheduleConfig{
				DayStart: "19:00:00", DayEnd: "05:00:00",
			}}}},
			wantErr: "day_end must be after day_start",
		},
		{
			name: "unknown timezone",
			cfg: AssetsConfig{Assets: []AssetConfig{{ID: "a", Name: "a", Schedule: &ScheduleConfig{
				DayStart: "05:00:00", DayEnd: "19:59:59", Timezone: "Nowhere/Land",
			}}}},
			wantErr: "timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_SlotsConfigFor(t *testing.T) {
	path := writeFile(t, t.TempDir(), "assets.yaml", assetsYAML)
	assets, err := LoadAssetsConfig(path)
	require.NoError(t, err)

	var cfg Config
	cfg.applyDefaults()
	cfg.Pricing.UnitPrice = 800

	boat2, _ := assets.GetAssetByID("boat-2")
	sc, err := cfg.SlotsConfigFor(boat2)
	require.NoError(t, err)
	assert.Equal(t, "08:00:00", sc.DayStart)
	assert.Equal(t, "16:59:59", sc.DayEnd)
	assert.Equal(t, "UTC", sc.Location.String())

	boat1, _ := assets.GetAssetByID("boat-1")
	sc, err = cfg.SlotsConfigFor(boat1)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Hong_Kong", sc.Location.String())

	assert.Equal(t, 1500.0, cfg.PricingCalculatorFor(boat2).UnitPrice)
	assert.Equal(t, 800.0, cfg.PricingCalculatorFor(&AssetConfig{ID: "x"}).UnitPrice)
}

func TestAssetRegistry(t *testing.T) {
	path := writeFile(t, t.TempDir(), "assets.yaml", assetsYAML)
	assets, err := LoadAssetsConfig(path)
	require.NoError(t, err)

	empty := &AssetRegistry{}
	_, ok := empty.Lookup("boat-1")
	assert.False(t, ok)

	r := NewAssetRegistry(assets)
	_, ok = r.Lookup("boat-1")
	assert.True(t, ok)
	_, ok = r.Lookup("boat-3")
	assert.False(t, ok, "inactive assets are not bookable")

	r.Set(nil)
	_, ok = r.Lookup("boat-1")
	assert.True(t, ok, "nil update keeps the previous config")
}

func TestWatchAssets(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "assets.yaml", assetsYAML)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var updates []*AssetsConfig
	err := WatchAssets(ctx, path, 10*time.Millisecond, nil, func(cfg *AssetsConfig) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, cfg)
	})
	require.NoError(t, err)

	mu.Lock()
	require.Len(t, updates, 1, "initial load is delivered synchronously")
	mu.Unlock()

	updated := assetsYAML + `
  - id: boat-4
    name: Night Owl
    is_active: true
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		if len(updates) < 2 {
			return false
		}
		_, ok := updates[len(updates)-1].GetAssetByID("boat-4")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchAssets_RetriesRejectedEdit(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "assets.yaml", assetsYAML)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var updates []*AssetsConfig
	err := WatchAssets(ctx, path, 10*time.Millisecond, nil, func(cfg *AssetsConfig) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, cfg)
	})
	require.NoError(t, err)

	edited := time.Now().Add(time.Minute)
	require.NoError(t, os.WriteFile(path, []byte("assets: [\n"), 0o600))
	require.NoError(t, os.Chtimes(path, edited, edited))

	// Several ticks reject the broken file.
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Len(t, updates, 1)
	mu.Unlock()

	// The fix lands with the same mtime, so only a retry can pick it up.
	fixed := assetsYAML + `
  - id: boat-4
    name: Night Owl
    is_active: true
`
	require.NoError(t, os.WriteFile(path, []byte(fixed), 0o600))
	require.NoError(t, os.Chtimes(path, edited, edited))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		if len(updates) < 2 {
			return false
		}
		_, ok := updates[len(updates)-1].GetAssetByID("boat-4")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchAssets_InvalidInitialConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "assets.yaml", "assets: []\n")
	err := WatchAssets(context.Background(), path, time.Second, nil, nil)
	assert.Error(t, err)
}
