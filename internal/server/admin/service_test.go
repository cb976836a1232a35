package admin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	"github.com/dmitrijs2005/kitkeeper/internal/server/auth"
	"github.com/dmitrijs2005/kitkeeper/internal/server/catalog"
	"github.com/dmitrijs2005/kitkeeper/internal/server/claims"
	"github.com/dmitrijs2005/kitkeeper/internal/server/economy"
	"github.com/dmitrijs2005/kitkeeper/internal/server/entitlements"
	"github.com/dmitrijs2005/kitkeeper/internal/server/inventory"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/dmitrijs2005/kitkeeper/internal/server/players"
	"github.com/dmitrijs2005/kitkeeper/internal/timex"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBackend struct{ deleted []string }

func (b *memBackend) Load(context.Context, time.Time) (models.Snapshot, error) {
	return models.Snapshot{}, nil
}
func (b *memBackend) Replace(context.Context, models.Snapshot) error { return nil }
func (b *memBackend) DeleteKit(_ context.Context, kit string) error {
	b.deleted = append(b.deleted, kit)
	return nil
}

const kitsYAML = `kits:
  starter:
    permission: ""
    cooldown: 1h
    items:
      - material: BREAD
        amount: 8
  vip:
    cost: 100
    one-time: true
`

type env struct {
	svc     *Service
	catalog *catalog.Catalog
	store   *entitlements.Store
	backend *memBackend
	inv     *inventory.Memory
	ledger  *economy.Ledger
	reg     *players.Registry
	clock   *timex.ManualClock
	steve   models.Player
	path    string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kits.yml")
	require.NoError(t, os.WriteFile(path, []byte(kitsYAML), 0o600))

	cat := catalog.New(catalog.NewYAMLSource(path, catalog.DefaultPermissionPrefix), catalog.DefaultPermissionPrefix, nil)
	require.NoError(t, cat.Reload(ctx))

	clock := timex.NewManualClock(time.UnixMilli(0))
	backend := &memBackend{}
	store, err := entitlements.Open(ctx, backend, entitlements.Options{Clock: clock, Debounce: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })

	inv := inventory.NewMemory()
	reg := players.NewRegistry()
	steve := models.Player{ID: uuid.New(), Name: "Steve"}
	reg.Remember(steve)

	ledger := economy.NewLedger(10)
	coord := claims.NewCoordinator(claims.Deps{Kits: cat, Entitlements: store, Inventory: inv, Clock: clock}, claims.Options{})

	svc := NewService(Deps{
		Catalog:     cat,
		Store:       store,
		Claims:      coord,
		Economy:     ledger,
		Players:     reg,
		Inventories: inv,
		Tokens:      auth.NewIssuer([]byte("k"), time.Hour),
	})
	return &env{svc: svc, catalog: cat, store: store, backend: backend, inv: inv, ledger: ledger, reg: reg, clock: clock, steve: steve, path: path}
}

func run(t *testing.T, e *env, line string) (string, error) {
	t.Helper()
	return e.svc.Execute(context.Background(), Console, strings.Fields(line))
}

func TestExecute_PermissionPerVerb(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Execute(ctx, Sender{Player: e.steve}, []string{"list"})
	require.ErrorIs(t, err, common.ErrPermissionDenied)

	helper := Sender{Player: models.Player{ID: uuid.New(), Permissions: []string{"kits.admin.list"}}}
	out, err := e.svc.Execute(ctx, helper, []string{"LIST"})
	require.NoError(t, err)
	assert.Contains(t, out, "2 kits")

	_, err = e.svc.Execute(ctx, helper, []string{"delete", "starter"})
	require.ErrorIs(t, err, common.ErrPermissionDenied)
}

func TestExecute_UnknownAndEmpty(t *testing.T) {
	e := newEnv(t)
	_, err := run(t, e, "")
	require.ErrorIs(t, err, common.ErrConfigInvalid)
	_, err = run(t, e, "rename a b")
	require.ErrorIs(t, err, common.ErrConfigInvalid)
}

func TestCreate_FromPlayerInventory(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, _ = e.inv.Grant(ctx, e.steve.ID, []models.ItemStack{{Material: "IRON_SWORD"}, {Material: "APPLE", Amount: 5}})
	_, _ = e.inv.Equip(ctx, e.steve.ID, models.SlotBoots, models.ItemStack{Material: "IRON_BOOTS"})

	out, err := run(t, e, "create &6Iron Age --from steve")
	require.NoError(t, err)
	assert.Contains(t, out, "iron_age")

	k, ok := e.catalog.Get("iron_age")
	require.True(t, ok)
	assert.Equal(t, "&6Iron Age", k.DisplayName)
	assert.Equal(t, "kits.kit.iron_age", k.Permission)
	assert.Len(t, k.Items, 2)
	assert.Equal(t, "IRON_BOOTS", k.Armor[models.SlotBoots].Material)

	_, err = run(t, e, "create iron age")
	require.ErrorIs(t, err, common.ErrKitExists)

	_, err = run(t, e, "create x --from")
	require.ErrorIs(t, err, common.ErrConfigInvalid)
}

func TestCreate_ByPlayerUsesOwnInventory(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, _ = e.inv.Grant(ctx, e.steve.ID, []models.ItemStack{{Material: "TORCH"}})
	builder := e.steve
	builder.Permissions = []string{"kits.admin.create"}

	_, err := e.svc.Execute(ctx, Sender{Player: builder}, []string{"create", "Torches"})
	require.NoError(t, err)
	k, _ := e.catalog.Get("torches")
	assert.Len(t, k.Items, 1)
}

func TestDelete_ClearsEntitlements(t *testing.T) {
	e := newEnv(t)
	e.store.SetCooldown(e.steve.ID, "starter", e.clock.Now().Add(time.Hour))
	e.store.SetOneTimeUsed(e.steve.ID, "vip")

	_, err := run(t, e, "delete starter")
	require.NoError(t, err)
	assert.False(t, e.catalog.Exists("starter"))
	assert.Zero(t, e.store.Remaining(e.steve.ID, "starter"))
	assert.True(t, e.store.HasUsedOneTime(e.steve.ID, "vip"))
	assert.Equal(t, []string{"starter"}, e.backend.deleted)

	_, err = run(t, e, "delete starter")
	require.ErrorIs(t, err, common.ErrKitNotFound)
}

func TestSetters(t *testing.T) {
	e := newEnv(t)

	_, err := run(t, e, "setcooldown starter 1d 2h")
	require.ErrorIs(t, err, common.ErrConfigInvalid, "time must be one token")
	_, err = run(t, e, "setcooldown starter 1d2h")
	require.NoError(t, err)
	_, err = run(t, e, "setcost starter 12.5")
	require.NoError(t, err)
	_, err = run(t, e, "setpermission starter kits.kit.special")
	require.NoError(t, err)
	_, err = run(t, e, "setonetime starter yes")
	require.ErrorIs(t, err, common.ErrConfigInvalid)
	_, err = run(t, e, "setonetime starter true")
	require.NoError(t, err)

	k, _ := e.catalog.Get("starter")
	assert.Equal(t, 26*time.Hour, k.Cooldown)
	assert.Equal(t, 12.5, k.Cost)
	assert.Equal(t, "kits.kit.special", k.Permission)
	assert.True(t, k.OneTime)

	_, err = run(t, e, "setpermission starter none")
	require.NoError(t, err)
	k, _ = e.catalog.Get("starter")
	assert.True(t, k.IsPublic())
}

func TestSetters_RejectMalformedWithoutApplying(t *testing.T) {
	e := newEnv(t)
	for _, line := range []string{
		"setcooldown starter soon",
		"setcost starter -5",
		"setcost starter NaN",
		"setcost starter lots",
		"setcost starter",
	} {
		_, err := run(t, e, line)
		require.ErrorIs(t, err, common.ErrConfigInvalid, line)
	}
	k, _ := e.catalog.Get("starter")
	assert.Equal(t, time.Hour, k.Cooldown)
	assert.Zero(t, k.Cost)

	_, err := run(t, e, "setcost nope 1")
	require.ErrorIs(t, err, common.ErrKitNotFound)
}

func TestSetDisplayNameAndCommands(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	out, err := run(t, e, "setdisplayname starter &aStarter Pack")
	require.NoError(t, err)
	assert.Equal(t, "Display name of starter set to &aStarter Pack", out)

	out, err = run(t, e, "setcommands starter give {player} bread 1; say hi {player}")
	require.NoError(t, err)
	assert.Equal(t, "Kit starter now runs 2 commands", out)

	reloaded := catalog.New(catalog.NewYAMLSource(e.path, catalog.DefaultPermissionPrefix), catalog.DefaultPermissionPrefix, nil)
	require.NoError(t, reloaded.Reload(ctx))
	k, ok := reloaded.Get("starter")
	require.True(t, ok)
	assert.Equal(t, "&aStarter Pack", k.DisplayName)
	assert.Equal(t, []string{"give {player} bread 1", "say hi {player}"}, k.Commands)

	_, err = run(t, e, "setcommands starter none")
	require.NoError(t, err)
	k, _ = e.catalog.Get("starter")
	assert.Empty(t, k.Commands)

	for _, line := range []string{"setcommands starter ;", "setcommands starter", "setdisplayname starter"} {
		_, err = run(t, e, line)
		require.ErrorIs(t, err, common.ErrConfigInvalid, line)
	}
	_, err = run(t, e, "setdisplayname nope Nope")
	require.ErrorIs(t, err, common.ErrKitNotFound)
}

func TestCheck_ReportsDecisionWithoutClaiming(t *testing.T) {
	e := newEnv(t)

	out, err := run(t, e, "check steve starter")
	require.NoError(t, err)
	assert.Equal(t, "Steve can claim starter", out)

	out, err = run(t, e, "check steve vip")
	require.NoError(t, err)
	assert.Equal(t, "Steve cannot claim vip: permission denied", out)

	e.store.SetCooldown(e.steve.ID, "starter", e.clock.Now().Add(2*time.Hour+30*time.Minute))
	out, err = run(t, e, "check steve starter")
	require.NoError(t, err)
	assert.Equal(t, "Steve cannot claim starter: on cooldown (2h)", out)

	items, _ := e.inv.Contents(e.steve.ID)
	assert.Empty(t, items)

	_, err = run(t, e, "check steve nope")
	require.ErrorIs(t, err, common.ErrKitNotFound)
}

func TestBalanceAndDeposit(t *testing.T) {
	e := newEnv(t)

	out, err := run(t, e, "balance steve")
	require.NoError(t, err)
	assert.Equal(t, "Steve has 10.00", out)

	out, err = run(t, e, "deposit steve 5.5")
	require.NoError(t, err)
	assert.Equal(t, "Deposited 5.50 to Steve, balance 15.50", out)

	for _, line := range []string{"deposit steve -1", "deposit steve 0", "deposit steve lots", "deposit steve"} {
		_, err = run(t, e, line)
		require.ErrorIs(t, err, common.ErrConfigInvalid, line)
	}
	bal, _ := e.ledger.GetBalance(context.Background(), e.steve.ID)
	assert.Equal(t, 15.5, bal)
}

func TestBalance_EconomyDisabled(t *testing.T) {
	e := newEnv(t)
	svc := NewService(Deps{Catalog: e.catalog, Store: e.store, Players: e.reg})

	_, err := svc.Execute(context.Background(), Console, []string{"balance", "steve"})
	require.ErrorIs(t, err, common.ErrEconomyDisabled)
	_, err = svc.Execute(context.Background(), Console, []string{"deposit", "steve", "5"})
	require.ErrorIs(t, err, common.ErrEconomyDisabled)
}

func TestGive(t *testing.T) {
	e := newEnv(t)

	out, err := run(t, e, "give steve starter")
	require.NoError(t, err)
	assert.Equal(t, "Gave kit starter to Steve", out)
	items, _ := e.inv.Contents(e.steve.ID)
	assert.Len(t, items, 1)
	assert.Zero(t, e.store.Remaining(e.steve.ID, "starter"))

	_, err = run(t, e, "give steve nope")
	require.ErrorIs(t, err, common.ErrKitNotFound)
	_, err = run(t, e, "give alex starter")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestResetCooldown_ClearsBothFacts(t *testing.T) {
	e := newEnv(t)
	e.store.SetCooldown(e.steve.ID, "vip", e.clock.Now().Add(time.Hour))
	e.store.SetOneTimeUsed(e.steve.ID, "vip")

	_, err := run(t, e, "resetcooldown Steve vip")
	require.NoError(t, err)
	assert.Zero(t, e.store.Remaining(e.steve.ID, "vip"))
	assert.False(t, e.store.HasUsedOneTime(e.steve.ID, "vip"))
}

func TestInfoListReload(t *testing.T) {
	e := newEnv(t)

	out, err := run(t, e, "info vip")
	require.NoError(t, err)
	assert.Contains(t, out, "vip [kits.kit.vip] cooldown=0s cost=100.00 one-time")

	require.NoError(t, os.WriteFile(e.path, []byte("kits:\n  only: {}\n"), 0o600))
	out, err = run(t, e, "reload")
	require.NoError(t, err)
	assert.Equal(t, "Reloaded 1 kits", out)

	out, err = run(t, e, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "only [kits.kit.only]")
}

func TestToken_IssuesVerifiableToken(t *testing.T) {
	e := newEnv(t)

	tok, err := run(t, e, "token Steve --op kits.kit.vip")
	require.NoError(t, err)

	p, err := auth.PlayerFromToken(tok, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, e.steve.ID, p.ID)
	assert.True(t, p.Op)
	assert.Equal(t, []string{"kits.kit.vip"}, p.Permissions)

	tok, err = run(t, e, "token newbie")
	require.NoError(t, err)
	p, err = auth.PlayerFromToken(tok, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "newbie", p.Name)
	assert.NotEqual(t, uuid.Nil, p.ID)
}

func TestVerbs(t *testing.T) {
	e := newEnv(t)
	verbs := e.svc.Verbs()
	assert.Len(t, verbs, 17)
	assert.True(t, errors.Is(usageError("x"), common.ErrConfigInvalid))
}
