package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleKits = `kits:
  starter:
    display-name: "&aStarter"
    permission: ""
    cooldown: 1h
    items:
      - material: STONE_SWORD
        amount: 1
      - material: BREAD
        amount: 16
  VIP:
    cooldown: 1d 12h
    cost: 500
    one-time: true
    commands:
      - "give {player} diamond 1"
    armor:
      helmet:
        material: DIAMOND_HELMET
        enchantments:
          protection: 2
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kits.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestYAMLSource_Load(t *testing.T) {
	src := NewYAMLSource(writeFile(t, sampleKits), DefaultPermissionPrefix)

	kits, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, kits, 2)

	starter, vip := kits[0], kits[1]
	assert.Equal(t, "starter", starter.ID)
	assert.Equal(t, "&aStarter", starter.DisplayName)
	assert.True(t, starter.IsPublic())
	assert.Equal(t, time.Hour, starter.Cooldown)
	assert.Equal(t, 2, starter.TotalSlots())

	assert.Equal(t, "vip", vip.ID)
	assert.Equal(t, "vip", vip.DisplayName)
	assert.Equal(t, "kits.kit.vip", vip.Permission)
	assert.Equal(t, 36*time.Hour, vip.Cooldown)
	assert.Equal(t, 500.0, vip.Cost)
	assert.True(t, vip.OneTime)
	assert.Equal(t, []string{"give {player} diamond 1"}, vip.Commands)
	assert.Equal(t, 2, vip.Armor[models.SlotHelmet].Enchantments["protection"])
}

func TestYAMLSource_MissingFileIsEmpty(t *testing.T) {
	src := NewYAMLSource(filepath.Join(t.TempDir(), "nope.yml"), DefaultPermissionPrefix)
	kits, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, kits)
}

func TestYAMLSource_InvalidContent(t *testing.T) {
	cases := map[string]string{
		"cooldown":          "kits:\n  a:\n    cooldown: soon\n",
		"cooldown overflow": "kits:\n  a:\n    cooldown: 106752d\n",
		"negative cooldown": "kits:\n  a:\n    cooldown: -1h\n",
		"cost":              "kits:\n  a:\n    cost: -5\n",
		"armor":             "kits:\n  a:\n    armor:\n      gloves:\n        material: X\n",
		"syntax":            "kits: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewYAMLSource(writeFile(t, body), "").Load(context.Background())
			require.ErrorIs(t, err, common.ErrConfigInvalid)
		})
	}
}

func TestYAMLSource_SaveAndDeleteRoundTrip(t *testing.T) {
	path := writeFile(t, sampleKits)
	src := NewYAMLSource(path, DefaultPermissionPrefix)
	ctx := context.Background()

	kit := &models.Kit{
		ID:          "daily",
		DisplayName: "&eDaily",
		Permission:  "",
		Cooldown:    26*time.Hour + 30*time.Minute,
		Cost:        2.5,
		Items:       []models.ItemStack{{Material: "APPLE", Amount: 3, Lore: []string{"fresh"}}},
		Armor:       map[string]models.ItemStack{},
		Commands:    []string{"say {player} is daily"},
	}
	require.NoError(t, src.Save(ctx, kit))
	require.NoError(t, src.Delete(ctx, "starter"))

	kits, err := src.Load(ctx)
	require.NoError(t, err)
	require.Len(t, kits, 2)
	assert.Equal(t, kit, kits[0])
	assert.Equal(t, "vip", kits[1].ID)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestCatalog_OverYAMLSource(t *testing.T) {
	path := writeFile(t, sampleKits)
	c := New(NewYAMLSource(path, DefaultPermissionPrefix), DefaultPermissionPrefix, nil)
	ctx := context.Background()
	require.NoError(t, c.Reload(ctx))

	require.NoError(t, c.SetCost(ctx, "starter", 7))

	fresh := New(NewYAMLSource(path, DefaultPermissionPrefix), DefaultPermissionPrefix, nil)
	require.NoError(t, fresh.Reload(ctx))
	k, ok := fresh.Get("starter")
	require.True(t, ok)
	assert.Equal(t, 7.0, k.Cost)
	assert.True(t, k.IsPublic())
}
