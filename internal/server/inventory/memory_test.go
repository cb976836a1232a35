package inventory

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stacks(n int) []models.ItemStack {
	out := make([]models.ItemStack, n)
	for i := range out {
		out[i] = models.ItemStack{Material: "DIRT", Amount: 64}
	}
	return out
}

func TestMemory_GrantReturnsLeftover(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	p := uuid.New()

	free, _ := m.FreeCapacity(ctx, p)
	assert.Equal(t, StorageSlots, free)

	left, err := m.Grant(ctx, p, stacks(StorageSlots-2))
	require.NoError(t, err)
	assert.Empty(t, left)

	left, err = m.Grant(ctx, p, stacks(5))
	require.NoError(t, err)
	assert.Len(t, left, 3)

	free, _ = m.FreeCapacity(ctx, p)
	assert.Zero(t, free)
}

func TestMemory_EquipOnlyFreeSlots(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	p := uuid.New()

	ok, err := m.Equip(ctx, p, models.SlotHelmet, models.ItemStack{Material: "IRON_HELMET"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = m.Equip(ctx, p, models.SlotHelmet, models.ItemStack{Material: "DIAMOND_HELMET"})
	assert.False(t, ok)

	_, armor := m.Contents(p)
	assert.Equal(t, "IRON_HELMET", armor[models.SlotHelmet].Material)
}

func TestMemory_ClearAndDrop(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	p := uuid.New()

	_, _ = m.Grant(ctx, p, stacks(3))
	require.NoError(t, m.Drop(ctx, p, stacks(2)))
	require.NoError(t, m.Clear(ctx, p))

	items, armor := m.Contents(p)
	assert.Empty(t, items)
	assert.Empty(t, armor)
	assert.Len(t, m.Dropped(p), 2)
}
