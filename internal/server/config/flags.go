package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     gRPC bind address (e.g., ":50051")
//	-m string     metrics bind address, empty to disable
//	-driver       "sqlite" or "pgx"
//	-d string     database DSN
//	-k string     kits.yml path
//	-s string     JWT HMAC secret key
//	-t int        token validity, minutes
//	-debounce     save debounce (e.g., "3s")
//	-sweep        sweep cron schedule (e.g., "@every 10m")
//
// The remaining flags mirror the boolean and numeric settings of Config.
// Boolean flags should be given as -flag=false to switch a default off.
//
// Only the flags defined here are taken from args (see flagx.Parse), so -c
// and anything owned by other components do not collide.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port to serve metrics")
	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver (sqlite|pgx)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.KitsFile, "k", config.KitsFile, "kits file")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenValidity := fs.Int("t", int(config.TokenValidity.Minutes()), "token validity (in minutes)")

	fs.DurationVar(&config.SaveDebounce, "debounce", config.SaveDebounce, "entitlement save debounce")
	fs.StringVar(&config.SweepSchedule, "sweep", config.SweepSchedule, "expired cooldown sweep schedule")

	fs.BoolVar(&config.DenyIfFull, "deny-if-full", config.DenyIfFull, "deny claims that do not fit the inventory")
	fs.BoolVar(&config.DropOnGround, "drop-on-ground", config.DropOnGround, "drop overflow items instead of discarding them")
	fs.BoolVar(&config.AutoEquipArmor, "auto-equip-armor", config.AutoEquipArmor, "equip kit armor into empty slots")
	fs.BoolVar(&config.ClearBeforeGive, "clear-before-give", config.ClearBeforeGive, "clear the inventory before giving a kit")
	fs.BoolVar(&config.EconomyEnabled, "economy", config.EconomyEnabled, "charge kit costs")
	fs.Float64Var(&config.StartingBalance, "balance", config.StartingBalance, "starting balance of new players")
	fs.BoolVar(&config.LogClaims, "log-claims", config.LogClaims, "log every claim")
	fs.BoolVar(&config.Broadcast, "broadcast", config.Broadcast, "announce claims of expensive kits")
	fs.Float64Var(&config.BroadcastMinCost, "broadcast-min-cost", config.BroadcastMinCost, "broadcast claims costing at least this much")
	fs.StringVar(&config.PermissionPrefix, "perm-prefix", config.PermissionPrefix, "permission prefix for new kits")
	fs.BoolVar(&config.WatchKitsFile, "watch-kits", config.WatchKitsFile, "reload kits file on change")
	fs.BoolVar(&config.ConsoleEnabled, "console", config.ConsoleEnabled, "read admin commands from stdin")

	if err := flagx.Parse(fs, args); err != nil {
		panic(err)
	}

	config.TokenValidity = time.Duration(*tokenValidity) * time.Minute
}
