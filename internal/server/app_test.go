package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/logging"
	"github.com/dmitrijs2005/kitkeeper/internal/server/admin"
	"github.com/dmitrijs2005/kitkeeper/internal/server/claims"
	"github.com/dmitrijs2005/kitkeeper/internal/server/config"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/dmitrijs2005/kitkeeper/internal/server/storage"
	"github.com/dmitrijs2005/kitkeeper/internal/timex"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKits = `kits:
  starter:
    display-name: Starter
    permission: ""
    cooldown: 1h
    items:
      - material: BREAD
        amount: 16
  vip:
    cooldown: 1d
    cost: 500
    one-time: true
`

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func testApp(t *testing.T, mutate func(c *config.Config)) (*App, *timex.ManualClock) {
	t.Helper()
	dir := t.TempDir()
	kits := filepath.Join(dir, "kits.yml")
	require.NoError(t, os.WriteFile(kits, []byte(testKits), 0o600))

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.EndpointAddrGRPC = "127.0.0.1:0"
	cfg.MetricsAddr = ""
	cfg.DatabaseDSN = filepath.Join(dir, "kitkeeper.db")
	cfg.KitsFile = kits
	cfg.SaveDebounce = time.Hour
	cfg.WatchKitsFile = false
	cfg.ConsoleEnabled = false
	if mutate != nil {
		mutate(cfg)
	}

	app, err := NewApp(cfg)
	require.NoError(t, err)
	clock := timex.NewManualClock(t0)
	app.clock = clock
	app.logger = logging.Nop{}
	return app, clock
}

func TestNewApp_RejectsInvalidConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDriver = "oracle"

	_, err := NewApp(cfg)
	assert.Error(t, err)
}

// A claim made before shutdown is on disk after it, even though the
// debounce never fired.
func TestApp_ClaimSurvivesShutdown(t *testing.T) {
	app, _ := testApp(t, nil)
	ctx := context.Background()

	c, err := app.build(ctx)
	require.NoError(t, err)

	player := models.Player{ID: uuid.New(), Name: "Alex"}
	res, err := c.coordinator.Claim(ctx, player, "starter")
	require.NoError(t, err)
	require.True(t, res.Allowed())

	res, err = c.coordinator.Claim(ctx, player, "starter")
	require.NoError(t, err)
	assert.Equal(t, claims.OnCooldown, res.Reason)

	app.close(ctx, c)

	_, err = c.coordinator.Claim(ctx, player, "starter")
	assert.Error(t, err)

	backend, err := storage.Open(ctx, app.config.DatabaseDriver, app.config.DatabaseDSN)
	require.NoError(t, err)
	defer backend.Close()

	snap, err := backend.Load(ctx, t0)
	require.NoError(t, err)
	require.Len(t, snap.Cooldowns, 1)
	assert.Equal(t, player.ID, snap.Cooldowns[0].Player)
	assert.Equal(t, "starter", snap.Cooldowns[0].Kit)
	assert.True(t, snap.Cooldowns[0].EndsAt.Equal(t0.Add(time.Hour)))
}

func TestApp_EconomyDisabledIgnoresCost(t *testing.T) {
	app, _ := testApp(t, nil)
	ctx := context.Background()

	c, err := app.build(ctx)
	require.NoError(t, err)
	defer app.close(ctx, c)

	res, err := c.coordinator.Claim(ctx, models.Player{ID: uuid.New(), Name: "Op", Op: true}, "vip")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.Zero(t, res.Charged)
}

func TestApp_EconomyEnabledCharges(t *testing.T) {
	app, _ := testApp(t, func(c *config.Config) {
		c.EconomyEnabled = true
		c.StartingBalance = 100
	})
	ctx := context.Background()

	c, err := app.build(ctx)
	require.NoError(t, err)
	defer app.close(ctx, c)

	res, err := c.coordinator.Claim(ctx, models.Player{ID: uuid.New(), Name: "Op", Op: true}, "vip")
	require.NoError(t, err)
	assert.Equal(t, claims.InsufficientFunds, res.Reason)
}

func TestApp_AdminDeleteClearsEntitlements(t *testing.T) {
	app, clock := testApp(t, nil)
	ctx := context.Background()

	c, err := app.build(ctx)
	require.NoError(t, err)
	defer app.close(ctx, c)

	player := models.Player{ID: uuid.New(), Name: "Alex"}
	_, err = c.coordinator.Claim(ctx, player, "starter")
	require.NoError(t, err)
	assert.Equal(t, 1, c.store.Len())

	out, err := c.admin.Execute(ctx, admin.Console, []string{"delete", "starter"})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Zero(t, c.store.Len())

	clock.Advance(time.Minute)
	res, err := c.coordinator.Claim(ctx, player, "starter")
	require.NoError(t, err)
	assert.Equal(t, claims.KitNotFound, res.Reason)

	kitsFile, err := os.ReadFile(app.config.KitsFile)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(kitsFile), "starter:"))
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, _ := testApp(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}

func TestApp_BadKitsFileFailsBuild(t *testing.T) {
	app, _ := testApp(t, nil)
	require.NoError(t, os.WriteFile(app.config.KitsFile, []byte("kits: [\n"), 0o600))

	_, err := app.build(context.Background())
	assert.Error(t, err)
}
