// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	"github.com/robfig/cron/v3"
)

// Config holds runtime settings for the KitKeeper server.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the public gRPC endpoint.
//   - MetricsAddr: bind address for /metrics; empty disables it.
//   - DatabaseDriver / DatabaseDSN: "sqlite" (modernc) or "pgx" (PostgreSQL).
//   - KitsFile: path of the YAML kit catalog.
//   - SecretKey: HMAC secret for signing player tokens (HS256).
//   - SaveDebounce / SweepSchedule: entitlement persistence tuning.
//   - DenyIfFull, DropOnGround, AutoEquipArmor, ClearBeforeGive: delivery policy.
//   - EconomyEnabled / StartingBalance: kit costs are only charged when enabled.
//   - Broadcast / BroadcastMinCost: announce claims of kits costing at least
//     BroadcastMinCost, whether or not the economy charged for them.
type Config struct {
	EndpointAddrGRPC string
	MetricsAddr      string
	DatabaseDriver   string
	DatabaseDSN      string
	KitsFile         string
	SecretKey        string
	TokenValidity    time.Duration
	SaveDebounce     time.Duration
	SweepSchedule    string
	DenyIfFull       bool
	DropOnGround     bool
	AutoEquipArmor   bool
	ClearBeforeGive  bool
	EconomyEnabled   bool
	StartingBalance  float64
	LogClaims        bool
	Broadcast        bool
	BroadcastMinCost float64
	PermissionPrefix string
	WatchKitsFile    bool
	ConsoleEnabled   bool
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden outside of local testing.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.MetricsAddr = ":9102"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "kitkeeper.db"
	c.KitsFile = "kits.yml"
	c.SecretKey = "secretKey"
	c.TokenValidity = 24 * time.Hour
	c.SaveDebounce = 3 * time.Second
	c.SweepSchedule = "@every 10m"
	c.DenyIfFull = true
	c.DropOnGround = true
	c.AutoEquipArmor = true
	c.ClearBeforeGive = false
	c.EconomyEnabled = false
	c.StartingBalance = 0
	c.LogClaims = true
	c.Broadcast = true
	c.BroadcastMinCost = 1000
	c.PermissionPrefix = "kits.kit."
	c.WatchKitsFile = true
	c.ConsoleEnabled = true
}

// Validate reports the first setting the server cannot start with.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("%w: database driver %q", common.ErrConfigInvalid, c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("%w: empty database DSN", common.ErrConfigInvalid)
	}
	if c.KitsFile == "" {
		return fmt.Errorf("%w: empty kits file", common.ErrConfigInvalid)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("%w: empty secret key", common.ErrConfigInvalid)
	}
	if c.TokenValidity <= 0 {
		return fmt.Errorf("%w: token validity must be positive", common.ErrConfigInvalid)
	}
	if c.SaveDebounce <= 0 {
		return fmt.Errorf("%w: save debounce must be positive", common.ErrConfigInvalid)
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return fmt.Errorf("%w: sweep schedule %q: %w", common.ErrConfigInvalid, c.SweepSchedule, err)
	}
	if !nonNegative(c.StartingBalance) {
		return fmt.Errorf("%w: starting balance", common.ErrConfigInvalid)
	}
	if !nonNegative(c.BroadcastMinCost) {
		return fmt.Errorf("%w: broadcast min cost", common.ErrConfigInvalid)
	}
	return nil
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	return LoadConfigFrom(os.Args[1:])
}

// LoadConfigFrom is LoadConfig over an explicit argument list.
func LoadConfigFrom(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}
