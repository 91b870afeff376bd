package ecs

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type Tag struct{}

func TestExecuteSystemsUserSystemUpdatesComponent(t *testing.T) {
	r := NewRegistry()
	posId := RegisterComponent[Position](r)
	e := r.CreateEntity()
	require.NoError(t, AddComponent(r, e, Position{X: 1}))

	r.DeclareSystem("move", SystemUser, map[ComponentId]Capability{
		posId: Readwrite,
	}, func(ctx *ExecutionContext) error {
		p, err := Get[Position](ctx)
		if err != nil {
			return err
		}
		p.X++
		return Update(ctx, p)
	})

	require.NoError(t, r.ExecuteSystems(ExecutionOptions{}))

	got, ok := GetComponent[Position](r, e)
	require.True(t, ok)
	require.Equal(t, float64(2), got.X)
}

func TestExecuteSystemsTrivialAddRemoveFlushesAfterTick(t *testing.T) {
	r := NewRegistry()
	tagId := RegisterComponent[Tag](r)
	posId := RegisterComponent[Position](r)
	e := r.CreateEntity()
	require.NoError(t, AddComponent(r, e, Position{}))

	r.DeclareSystem("tag-everything", SystemTrivial, map[ComponentId]Capability{
		posId: Include,
		tagId: Adds,
	}, nil)

	require.False(t, HasComponent[Tag](r, e), "staged add must not be visible before flush")
	require.NoError(t, r.ExecuteSystems(ExecutionOptions{}))
	require.True(t, HasComponent[Tag](r, e))
}

func TestExecuteSystemsBlanketClearRemovesEveryEntity(t *testing.T) {
	r := NewRegistry()
	tagId := RegisterComponent[Tag](r)
	e1 := r.CreateEntity()
	e2 := r.CreateEntity()
	require.NoError(t, AddComponent(r, e1, Tag{}))
	require.NoError(t, AddComponent(r, e2, Tag{}))

	r.DeclareSystem("clear-tags", SystemTrivial, map[ComponentId]Capability{
		tagId: Removes,
	}, nil)

	require.NoError(t, r.ExecuteSystems(ExecutionOptions{}))
	require.False(t, HasComponent[Tag](r, e1))
	require.False(t, HasComponent[Tag](r, e2))
	require.Equal(t, 0, CountComponents[Tag](r))
}

func TestExecuteSystemsChildDoesNotSeeParentsUnflushedAdd(t *testing.T) {
	r := NewRegistry()
	posId := RegisterComponent[Position](r)
	velId := RegisterComponent[Velocity](r)
	e := r.CreateEntity()
	require.NoError(t, AddComponent(r, e, Position{}))

	var sawVelocityDuringTick bool
	parent := r.DeclareSystem("spawn-velocity", SystemUser, map[ComponentId]Capability{
		posId: Readonly,
		velId: Adds,
	}, func(ctx *ExecutionContext) error {
		return Add(ctx, Velocity{DX: 1})
	})
	child := r.DeclareSystem("observe-velocity", SystemUser, map[ComponentId]Capability{
		posId: Readonly,
	}, func(ctx *ExecutionContext) error {
		sawVelocityDuringTick = Has[Velocity](ctx)
		return nil
	})
	r.AddChildSystem(parent.Id, child.Id)

	require.False(t, HasComponent[Velocity](r, e))
	require.NoError(t, r.ExecuteSystems(ExecutionOptions{}))

	require.False(t, sawVelocityDuringTick,
		"a child must not observe its parent's still-pending add before the parent's own flush step")
	require.True(t, HasComponent[Velocity](r, e), "the add becomes visible once the tick's flush step runs")
}

// TestStageRemoveCancelsSameTickPendingAdd covers S4: a child removing a
// component its parent only just staged (not yet flushed) must cancel the
// add outright rather than erroring, producing no init and no remove event.
func TestStageRemoveCancelsSameTickPendingAdd(t *testing.T) {
	cs := newComponentState[Tag](ComponentDescriptor{Name: "Tag"})
	e := EntityId(1)

	require.NoError(t, cs.stageAdd(e, Tag{}))
	require.True(t, cs.added.Contains(e))

	require.NoError(t, cs.stageRemove(e))
	require.False(t, cs.added.Contains(e))
	require.False(t, cs.removed.Contains(e))
	require.False(t, cs.pendingAdd.Contains(e))

	added, removed := cs.flushPending()
	require.Empty(t, added)
	require.Empty(t, removed)

	var inits, removes int
	cs.emitEvents(&EventsCollector{
		Init:   func(EntityId, ComponentId, any) { inits++ },
		Remove: func(EntityId, ComponentId, any) { removes++ },
	})
	require.Zero(t, inits)
	require.Zero(t, removes)
}

func TestExecuteSystemsActionDispatchRunsOncePerRecord(t *testing.T) {
	r := NewRegistry()
	var calls int
	var payloads []any

	action := r.DeclareSystem("apply-damage", SystemUser, map[ComponentId]Capability{}, func(ctx *ExecutionContext) error {
		calls++
		p, _ := ctx.Action()
		payloads = append(payloads, p)
		require.Equal(t, InvalidEntityId, ctx.Entity())
		return nil
	})
	action.IsAction = true

	opts := ExecutionOptions{Actions: []ActionInvocation{
		{System: action.Id, Payload: 10},
		{System: action.Id, Payload: 20},
	}}
	require.NoError(t, r.ExecuteSystems(opts))

	require.Equal(t, 2, calls)
	require.Equal(t, []any{10, 20}, payloads)
}

func TestExecuteSystemsEmitsAddedEventInFlushedTick(t *testing.T) {
	r := NewRegistry()
	tagId := RegisterComponent[Tag](r)
	posId := RegisterComponent[Position](r)
	e := r.CreateEntity()
	require.NoError(t, AddComponent(r, e, Tag{}))

	r.DeclareSystem("spawn-position", SystemUser, map[ComponentId]Capability{
		tagId: Include,
		posId: Adds,
	}, func(ctx *ExecutionContext) error {
		return Add(ctx, Position{X: 3})
	})

	var inits []EntityId
	opts := ExecutionOptions{Events: &EventsCollector{
		Init: func(ent EntityId, _ ComponentId, _ any) { inits = append(inits, ent) },
	}}
	require.NoError(t, r.ExecuteSystems(opts))
	require.Equal(t, []EntityId{e}, inits)
}

func TestExecuteSystemsParallelLevelRunsBothSystems(t *testing.T) {
	r := NewRegistry()
	posId := RegisterComponent[Position](r)
	velId := RegisterComponent[Velocity](r)
	e1 := r.CreateEntity()
	e2 := r.CreateEntity()
	require.NoError(t, AddComponent(r, e1, Position{X: 1}))
	require.NoError(t, AddComponent(r, e2, Velocity{DX: 1}))

	var seenA, seenB atomic.Int32
	sysA := r.DeclareSystem("readonly-a", SystemUser, map[ComponentId]Capability{
		posId: Readonly,
	}, func(ctx *ExecutionContext) error { seenA.Add(1); return nil })
	sysB := r.DeclareSystem("readonly-b", SystemUser, map[ComponentId]Capability{
		velId: Readonly,
	}, func(ctx *ExecutionContext) error { seenB.Add(1); return nil })
	r.DeclareParallelLevel(sysA, sysB)

	require.NoError(t, r.ExecuteSystems(ExecutionOptions{Parallel: true}))
	require.EqualValues(t, 1, seenA.Load())
	require.EqualValues(t, 1, seenB.Load())
}
