package allowlist

import (
	"context"
	"testing"

	"invoicedrop/pkg/faults"

	"github.com/stretchr/testify/require"
)

func TestMemorySeed(t *testing.T) {
	m := NewMemory([]string{"alice", "bob"})
	ctx := context.Background()

	ok, err := m.IsAllowed(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.IsAllowed(ctx, "mallory")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryAddAndRemove(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	require.NoError(t, m.Add(ctx, "alice"))
	require.ErrorIs(t, m.Add(ctx, "alice"), faults.ErrAlreadyExists)

	ok, err := m.IsAllowed(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, m.Remove(ctx, "alice"))
	require.ErrorIs(t, m.Remove(ctx, "alice"), faults.ErrNotFound)

	ok, err = m.IsAllowed(ctx, "alice")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryListIsSorted(t *testing.T) {
	m := NewMemory([]string{"charlie", "alice", "bob"})

	users, err := m.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob", "charlie"}, users)
}
