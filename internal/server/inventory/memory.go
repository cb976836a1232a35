// Package inventory provides an in-memory player inventory: a fixed number of
// storage slots plus the four armor slots.
package inventory

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/google/uuid"
)

// StorageSlots is the number of general slots per player.
const StorageSlots = 36

type contents struct {
	slots []models.ItemStack
	armor map[string]models.ItemStack
}

// Memory is safe for concurrent use. Each stack takes one slot.
type Memory struct {
	mu      sync.Mutex
	players map[uuid.UUID]*contents
	dropped map[uuid.UUID][]models.ItemStack
}

func NewMemory() *Memory {
	return &Memory{
		players: map[uuid.UUID]*contents{},
		dropped: map[uuid.UUID][]models.ItemStack{},
	}
}

func (m *Memory) get(player uuid.UUID) *contents {
	c, ok := m.players[player]
	if !ok {
		c = &contents{armor: map[string]models.ItemStack{}}
		m.players[player] = c
	}
	return c
}

func (m *Memory) FreeCapacity(_ context.Context, player uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.players[player]
	if !ok {
		return StorageSlots, nil
	}
	return StorageSlots - len(c.slots), nil
}

func (m *Memory) Grant(_ context.Context, player uuid.UUID, items []models.ItemStack) ([]models.ItemStack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.get(player)
	var leftover []models.ItemStack
	for _, it := range items {
		if len(c.slots) >= StorageSlots {
			leftover = append(leftover, it.Clone())
			continue
		}
		c.slots = append(c.slots, it.Clone())
	}
	return leftover, nil
}

func (m *Memory) Equip(_ context.Context, player uuid.UUID, slot string, item models.ItemStack) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.get(player)
	if _, taken := c.armor[slot]; taken {
		return false, nil
	}
	c.armor[slot] = item.Clone()
	return true, nil
}

// Drop records items as dropped at the player's feet.
func (m *Memory) Drop(_ context.Context, player uuid.UUID, items []models.ItemStack) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.dropped[player] = append(m.dropped[player], it.Clone())
	}
	return nil
}

func (m *Memory) Clear(_ context.Context, player uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players, player)
	return nil
}

// Contents returns copies of the player's storage and armor.
func (m *Memory) Contents(player uuid.UUID) ([]models.ItemStack, map[string]models.ItemStack) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := []models.ItemStack{}
	armor := map[string]models.ItemStack{}
	c, ok := m.players[player]
	if !ok {
		return items, armor
	}
	for _, it := range c.slots {
		items = append(items, it.Clone())
	}
	for slot, it := range c.armor {
		armor[slot] = it.Clone()
	}
	return items, armor
}

// Dropped returns what has been dropped for the player so far.
func (m *Memory) Dropped(player uuid.UUID) []models.ItemStack {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ItemStack(nil), m.dropped[player]...)
}
