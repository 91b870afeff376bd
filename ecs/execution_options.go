package ecs

// ExecutionOptions configures a single ExecuteSystems tick (§4.5, §6).
type ExecutionOptions struct {
	// PreAdds and PreUpdates stage component values to apply before any
	// system runs this tick (§2's data flow: "registry applies
	// pre-execution add/update/remove"), and PreRemoves stages components
	// to drop. These are the caller's own mutations for the tick, distinct
	// from a system body's own ctx.Add/ctx.Update/ctx.remove calls, and are
	// committed (and their markers set) before the execution order is
	// walked, so the very first system this tick already observes them.
	PreAdds    []ComponentMutation
	PreUpdates []ComponentMutation
	PreRemoves []ComponentRemoval

	// Events, if non-nil, receives this tick's Init/Update/Remove
	// notifications (§4.6).
	Events *EventsCollector

	// Actions lists the action-system ids that should run this tick, each
	// paired with the action record passed to its invocation. A system
	// declared with IsAction only runs when it (or its id) appears here.
	Actions []ActionInvocation

	// Parallel enables multi-goroutine fan-out across an execution level
	// whose systems are all individually parallel-eligible (§4.5 step 5,
	// §5). Left false, every level runs sequentially regardless of
	// eligibility.
	Parallel bool
}

// ComponentMutation stages a pre-tick add or update of one entity's
// component, keyed by ComponentId since the caller assembling a tick's
// ExecutionOptions has no static Go type to hand a generic helper (§6).
// Value must be the registered Go type for Component.
type ComponentMutation struct {
	Entity    EntityId
	Component ComponentId
	Value     any
}

// ComponentRemoval stages a pre-tick remove of one entity's component; no
// payload is needed.
type ComponentRemoval struct {
	Entity    EntityId
	Component ComponentId
}

// ActionInvocation pairs an action system with the payload its single
// invocation this tick should observe via ctx.Action().
type ActionInvocation struct {
	System  SystemId
	Payload any
}
