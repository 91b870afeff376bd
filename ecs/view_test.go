package ecs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func declareViewSystem(r *Registry, caps map[ComponentId]Capability) *SystemDescriptor {
	return r.DeclareSystem("view-probe", SystemUser, caps, func(ctx *ExecutionContext) error { return nil })
}

func TestBuildViewIncludesOnlyEntitiesWithAllRequiredComponents(t *testing.T) {
	r := NewRegistry()
	posId := RegisterComponent[Position](r)
	velId := RegisterComponent[Velocity](r)

	both := r.CreateEntity()
	posOnly := r.CreateEntity()
	require.NoError(t, AddComponent(r, both, Position{}))
	require.NoError(t, AddComponent(r, both, Velocity{}))
	require.NoError(t, AddComponent(r, posOnly, Position{}))

	sys := declareViewSystem(r, map[ComponentId]Capability{
		posId: Readonly,
		velId: Readonly,
	})

	got := buildView(r, sys)
	require.ElementsMatch(t, []EntityId{both}, got)
}

func TestBuildViewExcludesEntitiesHoldingExcludedComponent(t *testing.T) {
	r := NewRegistry()
	posId := RegisterComponent[Position](r)
	velId := RegisterComponent[Velocity](r)

	candidate := r.CreateEntity()
	excluded := r.CreateEntity()
	require.NoError(t, AddComponent(r, candidate, Position{}))
	require.NoError(t, AddComponent(r, excluded, Position{}))
	require.NoError(t, AddComponent(r, excluded, Velocity{}))

	sys := declareViewSystem(r, map[ComponentId]Capability{
		posId: Readonly,
		velId: Exclude,
	})

	got := buildView(r, sys)
	require.ElementsMatch(t, []EntityId{candidate}, got)
}

func TestBuildViewOptionalCapabilityDoesNotGateMembership(t *testing.T) {
	r := NewRegistry()
	posId := RegisterComponent[Position](r)
	velId := RegisterComponent[Velocity](r)

	withVelocity := r.CreateEntity()
	withoutVelocity := r.CreateEntity()
	require.NoError(t, AddComponent(r, withVelocity, Position{}))
	require.NoError(t, AddComponent(r, withVelocity, Velocity{}))
	require.NoError(t, AddComponent(r, withoutVelocity, Position{}))

	sys := declareViewSystem(r, map[ComponentId]Capability{
		posId: Readonly,
		velId: Optional | Readonly,
	})

	got := buildView(r, sys)
	require.ElementsMatch(t, []EntityId{withVelocity, withoutVelocity}, got)
}

func TestBuildViewWithNoIncludeCriteriaMatchesNothing(t *testing.T) {
	r := NewRegistry()
	velId := RegisterComponent[Velocity](r)
	e := r.CreateEntity()
	require.NoError(t, AddComponent(r, e, Velocity{}))

	sys := declareViewSystem(r, map[ComponentId]Capability{
		velId: Optional | Readonly,
	})

	require.Empty(t, buildView(r, sys))
}

func TestBuildViewUsesSmallestIncludeSetAsCandidateSource(t *testing.T) {
	r := NewRegistry()
	posId := RegisterComponent[Position](r)
	velId := RegisterComponent[Velocity](r)

	for i := 0; i < 50; i++ {
		e := r.CreateEntity()
		require.NoError(t, AddComponent(r, e, Position{}))
	}
	rare := r.CreateEntity()
	require.NoError(t, AddComponent(r, rare, Position{}))
	require.NoError(t, AddComponent(r, rare, Velocity{}))

	sys := declareViewSystem(r, map[ComponentId]Capability{
		posId: Readonly,
		velId: Readonly,
	})

	got := buildView(r, sys)
	require.Equal(t, []EntityId{rare}, got)
}
