package ecs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorageInsertGetRemove(t *testing.T) {
	s := NewStorage[Position]()
	s.Insert(EntityId(1), Position{X: 1})
	s.Insert(EntityId(2), Position{X: 2})

	v, ok := s.Get(EntityId(1))
	require.True(t, ok)
	require.Equal(t, Position{X: 1}, v)

	require.True(t, s.Remove(EntityId(1)))
	_, ok = s.Get(EntityId(1))
	require.False(t, ok)

	v, ok = s.Get(EntityId(2))
	require.True(t, ok)
	require.Equal(t, Position{X: 2}, v)
}

func TestStorageSortKeepsEntityValuePairsAligned(t *testing.T) {
	s := NewStorage[Position]()
	s.Insert(EntityId(1), Position{X: 30})
	s.Insert(EntityId(2), Position{X: 10})
	s.Insert(EntityId(3), Position{X: 20})

	s.Sort(func(ea EntityId, a *Position, eb EntityId, b *Position) bool {
		return a.X < b.X
	})

	ids := s.Entities().Data()
	require.Equal(t, []EntityId{2, 3, 1}, ids)

	for i, id := range ids {
		v, ok := s.Get(id)
		require.True(t, ok)
		require.Equal(t, s.Data()[i], v)
	}

	v2, _ := s.Get(EntityId(2))
	require.Equal(t, float64(10), v2.X)
	v1, _ := s.Get(EntityId(1))
	require.Equal(t, float64(30), v1.X)
}

func TestComponentStateStageAddNetZeroCancelsRemove(t *testing.T) {
	cs := newComponentState[Position](ComponentDescriptor{Name: "Position"})
	e := EntityId(1)
	cs.values.Insert(e, Position{X: 1})

	require.NoError(t, cs.stageRemove(e))
	require.True(t, cs.removed.Contains(e))

	require.NoError(t, cs.stageAdd(e, Position{X: 2}))
	require.False(t, cs.removed.Contains(e), "add-after-remove in the same tick must cancel Removed")
	require.False(t, cs.pendingRem.Contains(e))

	added, removed := cs.flushPending()
	require.Equal(t, []EntityId{e}, added)
	require.Empty(t, removed)
}

func TestComponentStateApplyUpdateSnapshotsOnce(t *testing.T) {
	cs := newComponentState[Position](ComponentDescriptor{Name: "Position"})
	e := EntityId(1)
	cs.values.Insert(e, Position{X: 1})

	require.NoError(t, cs.applyUpdate(e, Position{X: 2}))
	require.NoError(t, cs.applyUpdate(e, Position{X: 3}))

	before, ok := cs.beforeChange.Get(e)
	require.True(t, ok)
	require.Equal(t, Position{X: 1}, before, "only the first write this tick snapshots BeforeChange")

	current, ok := cs.values.Get(e)
	require.True(t, ok)
	require.Equal(t, Position{X: 3}, current)
}

func TestComponentStateApplyUpdateAfterAddDoesNotMarkChanged(t *testing.T) {
	cs := newComponentState[Position](ComponentDescriptor{Name: "Position"})
	e := EntityId(1)

	require.NoError(t, cs.stageAdd(e, Position{X: 1}))
	cs.values.Insert(e, Position{X: 1})

	require.NoError(t, cs.applyUpdate(e, Position{X: 2}))
	require.False(t, cs.changed.Contains(e), "updating a component added this tick must not mark Changed")
}
