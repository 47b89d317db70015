package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok := m.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", "v"))
	value, ok := m.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", value)
}

func TestMemory_Remove(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", "v"))
	require.NoError(t, m.Remove(ctx, "k"))

	_, ok := m.Get(ctx, "k")
	assert.False(t, ok)

	// Removing an absent key is not an error.
	assert.NoError(t, m.Remove(ctx, "k"))
}

func TestMemory_SetTimed_Expires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SetTimed(ctx, "k", "v", 10*time.Millisecond))

	value, ok := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", value)

	time.Sleep(20 * time.Millisecond)
	_, ok = m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemory_IncrDecr(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Incr(ctx, "count"))
	require.NoError(t, m.Incr(ctx, "count"))
	value, ok := m.Get(ctx, "count")
	require.True(t, ok)
	assert.Equal(t, "2", value)

	require.NoError(t, m.Decr(ctx, "count"))
	value, _ = m.Get(ctx, "count")
	assert.Equal(t, "1", value)

	// Decr below zero is allowed; a recount repairs drift.
	require.NoError(t, m.Decr(ctx, "other"))
	value, _ = m.Get(ctx, "other")
	assert.Equal(t, "-1", value)
}
