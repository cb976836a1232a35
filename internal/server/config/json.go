package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/kitkeeper/internal/flagx"
	"github.com/dmitrijs2005/kitkeeper/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// Durations use timex.Duration, so both "3s" and integer nanoseconds parse.
// Every field is optional: absent keys keep the value already in Config,
// which is why scalars are pointers.
type JsonConfig struct {
	EndpointAddrGRPC *string         `json:"endpoint_addr_grpc"`
	MetricsAddr      *string         `json:"metrics_addr"`
	DatabaseDriver   *string         `json:"database_driver"`
	DatabaseDSN      *string         `json:"database_dsn"`
	KitsFile         *string         `json:"kits_file"`
	SecretKey        *string         `json:"secret_key"`
	TokenValidity    *timex.Duration `json:"token_validity"`
	SaveDebounce     *timex.Duration `json:"save_debounce"`
	SweepSchedule    *string         `json:"sweep_schedule"`
	DenyIfFull       *bool           `json:"deny_if_full"`
	DropOnGround     *bool           `json:"drop_on_ground"`
	AutoEquipArmor   *bool           `json:"auto_equip_armor"`
	ClearBeforeGive  *bool           `json:"clear_before_give"`
	EconomyEnabled   *bool           `json:"economy_enabled"`
	StartingBalance  *float64        `json:"starting_balance"`
	LogClaims        *bool           `json:"log_claims"`
	Broadcast        *bool           `json:"broadcast"`
	BroadcastMinCost *float64        `json:"broadcast_min_cost"`
	PermissionPrefix *string         `json:"permission_prefix"`
	WatchKitsFile    *bool           `json:"watch_kits_file"`
	ConsoleEnabled   *bool           `json:"console_enabled"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags. If neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config, args []string) {

	// try flags
	jsonConfigFile := flagx.ConfigFile(args)

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.KitsFile, c.KitsFile)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.SweepSchedule, c.SweepSchedule)
	setString(&config.PermissionPrefix, c.PermissionPrefix)

	if c.TokenValidity != nil {
		config.TokenValidity = c.TokenValidity.Duration
	}
	if c.SaveDebounce != nil {
		config.SaveDebounce = c.SaveDebounce.Duration
	}

	setBool(&config.DenyIfFull, c.DenyIfFull)
	setBool(&config.DropOnGround, c.DropOnGround)
	setBool(&config.AutoEquipArmor, c.AutoEquipArmor)
	setBool(&config.ClearBeforeGive, c.ClearBeforeGive)
	setBool(&config.EconomyEnabled, c.EconomyEnabled)
	setBool(&config.LogClaims, c.LogClaims)
	setBool(&config.Broadcast, c.Broadcast)
	setBool(&config.WatchKitsFile, c.WatchKitsFile)
	setBool(&config.ConsoleEnabled, c.ConsoleEnabled)

	if c.StartingBalance != nil {
		config.StartingBalance = *c.StartingBalance
	}
	if c.BroadcastMinCost != nil {
		config.BroadcastMinCost = *c.BroadcastMinCost
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
