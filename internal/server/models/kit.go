// Package models defines the server-side domain types: kit definitions,
// players and per-player entitlement records.
package models

import "time"

// Armor slot names, in equip order.
const (
	SlotHelmet     = "helmet"
	SlotChestplate = "chestplate"
	SlotLeggings   = "leggings"
	SlotBoots      = "boots"
)

// ArmorSlots lists the armor slots in the order they are granted.
var ArmorSlots = []string{SlotHelmet, SlotChestplate, SlotLeggings, SlotBoots}

// ItemStack is an opaque item payload. The core never interprets it beyond
// counting slots.
type ItemStack struct {
	Material     string         `yaml:"material"`
	Amount       int            `yaml:"amount,omitempty"`
	Name         string         `yaml:"name,omitempty"`
	Lore         []string       `yaml:"lore,omitempty"`
	Enchantments map[string]int `yaml:"enchantments,omitempty"`
}

// Clone returns a deep copy of the stack.
func (i ItemStack) Clone() ItemStack {
	c := i
	if i.Lore != nil {
		c.Lore = append([]string(nil), i.Lore...)
	}
	if i.Enchantments != nil {
		c.Enchantments = make(map[string]int, len(i.Enchantments))
		for k, v := range i.Enchantments {
			c.Enchantments[k] = v
		}
	}
	return c
}

// Kit is an immutable kit definition snapshot. The catalog hands out clones;
// mutating a returned Kit never affects the catalog.
type Kit struct {
	// ID is the lowercase unique key. It never changes for the life of the kit.
	ID string

	// DisplayName is decorative and opaque to the core.
	DisplayName string

	// Permission is the capability required to claim; empty means public.
	Permission string

	// Cooldown is the minimum time between claims; 0 means none.
	Cooldown time.Duration

	// Cost is withdrawn from the claimant when an economy is configured.
	Cost float64

	// OneTime kits may be claimed once per player until an admin reset.
	OneTime bool

	Items    []ItemStack
	Armor    map[string]ItemStack
	Commands []string
}

// Clone returns a deep copy of k.
func (k *Kit) Clone() *Kit {
	if k == nil {
		return nil
	}
	c := *k
	c.Items = make([]ItemStack, len(k.Items))
	for i, it := range k.Items {
		c.Items[i] = it.Clone()
	}
	c.Armor = make(map[string]ItemStack, len(k.Armor))
	for slot, it := range k.Armor {
		c.Armor[slot] = it.Clone()
	}
	c.Commands = append([]string(nil), k.Commands...)
	return &c
}

// TotalSlots is the number of storage slots the kit needs. Armor is not
// counted because it is equipped when the armor slot is free.
func (k *Kit) TotalSlots() int {
	return len(k.Items)
}

// IsPublic reports whether the kit needs no permission.
func (k *Kit) IsPublic() bool {
	return k.Permission == ""
}
