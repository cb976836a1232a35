package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	"github.com/dmitrijs2005/kitkeeper/internal/filex"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/dmitrijs2005/kitkeeper/internal/timex"
	"gopkg.in/yaml.v3"
)

// kitsFile is the on-disk layout of kits.yml.
type kitsFile struct {
	Kits map[string]kitEntry `yaml:"kits"`
}

type kitEntry struct {
	DisplayName string `yaml:"display-name,omitempty"`
	// nil means "use the default permission"; "" means public.
	Permission *string                     `yaml:"permission,omitempty"`
	Cooldown   string                      `yaml:"cooldown,omitempty"`
	Cost       float64                     `yaml:"cost,omitempty"`
	OneTime    bool                        `yaml:"one-time,omitempty"`
	Commands   []string                    `yaml:"commands,omitempty"`
	Items      []models.ItemStack          `yaml:"items,omitempty"`
	Armor      map[string]models.ItemStack `yaml:"armor,omitempty"`
}

// YAMLSource keeps kits in a single YAML file that operators may also edit
// by hand.
type YAMLSource struct {
	path       string
	permPrefix string
	mu         sync.Mutex
}

func NewYAMLSource(path, permPrefix string) *YAMLSource {
	return &YAMLSource{path: path, permPrefix: permPrefix}
}

// Path returns the file the source reads and writes.
func (s *YAMLSource) Path() string { return s.path }

func (s *YAMLSource) read() (kitsFile, error) {
	var f kitsFile
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return kitsFile{Kits: map[string]kitEntry{}}, nil
	}
	if err != nil {
		return f, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("%w: %s: %w", common.ErrConfigInvalid, s.path, err)
	}
	if f.Kits == nil {
		f.Kits = map[string]kitEntry{}
	}
	return f, nil
}

// write replaces the file atomically.
func (s *YAMLSource) write(f kitsFile) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode kits: %w", err)
	}
	return filex.WriteAtomic(s.path, data)
}

func (s *YAMLSource) Load(_ context.Context) ([]*models.Kit, error) {
	s.mu.Lock()
	f, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	entries := make(map[string]kitEntry, len(f.Kits))
	ids := make([]string, 0, len(f.Kits))
	for id, e := range f.Kits {
		id = strings.ToLower(id)
		entries[id] = e
		ids = append(ids, id)
	}
	sort.Strings(ids)

	kits := make([]*models.Kit, 0, len(ids))
	for _, id := range ids {
		k, err := s.toKit(id, entries[id])
		if err != nil {
			return nil, err
		}
		kits = append(kits, k)
	}
	return kits, nil
}

func (s *YAMLSource) toKit(id string, e kitEntry) (*models.Kit, error) {
	cooldown, err := timex.ParseCooldown(orDefault(e.Cooldown, "0"))
	if err != nil {
		return nil, fmt.Errorf("kit[%s]: %w", id, err)
	}
	if cooldown < 0 {
		return nil, fmt.Errorf("%w: kit[%s]: negative cooldown", common.ErrConfigInvalid, id)
	}
	if e.Cost < 0 {
		return nil, fmt.Errorf("%w: kit[%s]: negative cost", common.ErrConfigInvalid, id)
	}

	k := &models.Kit{
		ID:          id,
		DisplayName: orDefault(e.DisplayName, id),
		Permission:  s.permPrefix + id,
		Cooldown:    cooldown,
		Cost:        e.Cost,
		OneTime:     e.OneTime,
		Commands:    e.Commands,
		Items:       e.Items,
		Armor:       map[string]models.ItemStack{},
	}
	if e.Permission != nil {
		k.Permission = *e.Permission
	}
	for slot, it := range e.Armor {
		slot = strings.ToLower(slot)
		if !isArmorSlot(slot) {
			return nil, fmt.Errorf("%w: kit[%s]: unknown armor slot %q", common.ErrConfigInvalid, id, slot)
		}
		k.Armor[slot] = it
	}
	return k, nil
}

func (s *YAMLSource) Save(_ context.Context, kit *models.Kit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	dropKey(f.Kits, kit.ID)
	perm := kit.Permission
	f.Kits[kit.ID] = kitEntry{
		DisplayName: kit.DisplayName,
		Permission:  &perm,
		Cooldown:    timex.FormatCooldown(kit.Cooldown),
		Cost:        kit.Cost,
		OneTime:     kit.OneTime,
		Commands:    kit.Commands,
		Items:       kit.Items,
		Armor:       kit.Armor,
	}
	return s.write(f)
}

func (s *YAMLSource) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	dropKey(f.Kits, id)
	return s.write(f)
}

// dropKey removes id from m regardless of how its key was cased on disk.
func dropKey(m map[string]kitEntry, id string) {
	for k := range m {
		if strings.EqualFold(k, id) {
			delete(m, k)
		}
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func isArmorSlot(slot string) bool {
	for _, s := range models.ArmorSlots {
		if s == slot {
			return true
		}
	}
	return false
}
