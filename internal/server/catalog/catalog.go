// Package catalog is the read-mostly registry of kit definitions. Reads are
// served from immutable snapshots; edits are written through to the Source
// before they become visible.
package catalog

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	"github.com/dmitrijs2005/kitkeeper/internal/logging"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
)

// DefaultPermissionPrefix is prepended to the kit id for new kits.
const DefaultPermissionPrefix = "kits.kit."

// Source persists kit definitions.
type Source interface {
	Load(ctx context.Context) ([]*models.Kit, error)
	Save(ctx context.Context, kit *models.Kit) error
	Delete(ctx context.Context, id string) error
}

type Catalog struct {
	mu   sync.RWMutex
	kits map[string]*models.Kit

	// editMu serializes write-through edits and reloads.
	editMu sync.Mutex

	source     Source
	permPrefix string
	logger     logging.Logger
}

func New(source Source, permPrefix string, logger logging.Logger) *Catalog {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Catalog{
		kits:       map[string]*models.Kit{},
		source:     source,
		permPrefix: permPrefix,
		logger:     logger.With("module", "catalog"),
	}
}

var colorCode = regexp.MustCompile(`(?i)[&§][0-9a-fk-or]`)

// KitID derives the kit key from a display name: colour codes removed,
// lowercased, spaces replaced by underscores.
func KitID(displayName string) string {
	id := colorCode.ReplaceAllString(displayName, "")
	id = strings.ToLower(strings.TrimSpace(id))
	return strings.Join(strings.Fields(id), "_")
}

// Reload replaces the whole catalog with the source's content.
func (c *Catalog) Reload(ctx context.Context) error {
	c.editMu.Lock()
	defer c.editMu.Unlock()

	loaded, err := c.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load kits: %w", err)
	}
	next := make(map[string]*models.Kit, len(loaded))
	for _, k := range loaded {
		next[strings.ToLower(k.ID)] = k
	}

	c.mu.Lock()
	c.kits = next
	c.mu.Unlock()

	c.logger.Info(ctx, "kits loaded", "count", len(next))
	return nil
}

// Get returns a copy of the kit, or false when there is none.
func (c *Catalog) Get(id string) (*models.Kit, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.kits[strings.ToLower(id)]
	if !ok {
		return nil, false
	}
	return k.Clone(), true
}

func (c *Catalog) Exists(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.kits[strings.ToLower(id)]
	return ok
}

// All returns copies of every kit, sorted by id.
func (c *Catalog) All() []*models.Kit {
	return c.filter(func(*models.Kit) bool { return true })
}

// ListAvailable returns the kits player may see: public kits and those whose
// permission the player holds.
func (c *Catalog) ListAvailable(player models.Player) []*models.Kit {
	return c.filter(func(k *models.Kit) bool {
		return k.IsPublic() || player.HasPermission(k.Permission)
	})
}

func (c *Catalog) filter(keep func(*models.Kit) bool) []*models.Kit {
	c.mu.RLock()
	out := make([]*models.Kit, 0, len(c.kits))
	for _, k := range c.kits {
		if keep(k) {
			out = append(out, k.Clone())
		}
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Create adds a kit built from displayName and the given contents.
func (c *Catalog) Create(ctx context.Context, displayName string, items []models.ItemStack, armor map[string]models.ItemStack) (*models.Kit, error) {
	id := KitID(displayName)
	if id == "" {
		return nil, fmt.Errorf("%w: empty kit name", common.ErrConfigInvalid)
	}

	c.editMu.Lock()
	defer c.editMu.Unlock()

	if c.Exists(id) {
		return nil, fmt.Errorf("%w: %s", common.ErrKitExists, id)
	}

	kit := &models.Kit{
		ID:          id,
		DisplayName: displayName,
		Permission:  c.permPrefix + id,
		Armor:       map[string]models.ItemStack{},
	}
	for _, it := range items {
		kit.Items = append(kit.Items, it.Clone())
	}
	for slot, it := range armor {
		kit.Armor[slot] = it.Clone()
	}

	if err := c.source.Save(ctx, kit); err != nil {
		return nil, fmt.Errorf("failed to save kit[%s]: %w", id, err)
	}
	c.put(kit)
	c.logger.Info(ctx, "kit created", "kit", id)
	return kit.Clone(), nil
}

// Delete removes the kit from the source and the catalog.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	id = strings.ToLower(id)

	c.editMu.Lock()
	defer c.editMu.Unlock()

	if !c.Exists(id) {
		return fmt.Errorf("%w: %s", common.ErrKitNotFound, id)
	}
	if err := c.source.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete kit[%s]: %w", id, err)
	}

	c.mu.Lock()
	delete(c.kits, id)
	c.mu.Unlock()

	c.logger.Info(ctx, "kit deleted", "kit", id)
	return nil
}

// edit applies fn to a copy of the kit, saves the copy and swaps it in.
func (c *Catalog) edit(ctx context.Context, id string, fn func(*models.Kit)) error {
	c.editMu.Lock()
	defer c.editMu.Unlock()

	kit, ok := c.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrKitNotFound, strings.ToLower(id))
	}
	fn(kit)
	if err := c.source.Save(ctx, kit); err != nil {
		return fmt.Errorf("failed to save kit[%s]: %w", kit.ID, err)
	}
	c.put(kit)
	return nil
}

func (c *Catalog) put(kit *models.Kit) {
	c.mu.Lock()
	c.kits[kit.ID] = kit
	c.mu.Unlock()
}

func (c *Catalog) SetCooldown(ctx context.Context, id string, d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: negative cooldown", common.ErrConfigInvalid)
	}
	return c.edit(ctx, id, func(k *models.Kit) { k.Cooldown = d })
}

func (c *Catalog) SetCost(ctx context.Context, id string, cost float64) error {
	if cost < 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
		return fmt.Errorf("%w: cost must be a non-negative number", common.ErrConfigInvalid)
	}
	return c.edit(ctx, id, func(k *models.Kit) { k.Cost = cost })
}

// SetPermission sets the claim permission; empty makes the kit public.
func (c *Catalog) SetPermission(ctx context.Context, id, perm string) error {
	return c.edit(ctx, id, func(k *models.Kit) { k.Permission = perm })
}

func (c *Catalog) SetOneTime(ctx context.Context, id string, oneTime bool) error {
	return c.edit(ctx, id, func(k *models.Kit) { k.OneTime = oneTime })
}

func (c *Catalog) SetDisplayName(ctx context.Context, id, name string) error {
	return c.edit(ctx, id, func(k *models.Kit) { k.DisplayName = name })
}

func (c *Catalog) SetCommands(ctx context.Context, id string, commands []string) error {
	return c.edit(ctx, id, func(k *models.Kit) { k.Commands = append([]string(nil), commands...) })
}
