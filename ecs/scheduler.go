package ecs

import (
	"time"

	"golang.org/x/sync/errgroup"
)

// runTick realizes §4.5 end to end: an optional determinism sort pass,
// the level-by-level system walk with per-system flush, action dispatch,
// transient clearing, event emission, and marker clearing.
func runTick(r *Registry, opts ExecutionOptions) error {
	start := tickClock()

	if err := applyPreTick(r, opts); err != nil {
		return err
	}

	if needsDeterminismSort(r) {
		for _, slot := range r.components.slots {
			slot.sortByComparator()
		}
	}

	for _, level := range r.systems.order {
		if err := runLevel(r, level, opts); err != nil {
			return err
		}
	}

	for _, inv := range opts.Actions {
		if err := runActionSystem(r, inv, opts); err != nil {
			return err
		}
	}

	for _, slot := range r.components.slots {
		slot.clearTransientIfNeeded()
	}

	emitAllEvents(r, opts.Events)

	for _, slot := range r.components.slots {
		slot.clearMarkers()
	}

	r.metrics.TickDuration(tickClock().Sub(start))
	return nil
}

// applyPreTick realizes §2's "registry applies pre-execution
// add/update/remove" step: the caller's own staged mutations for this
// tick, committed and flushed before the execution order is walked so
// every system (including the first one) already sees the result.
func applyPreTick(r *Registry, opts ExecutionOptions) error {
	for _, m := range opts.PreAdds {
		slot, ok := r.components.slotById(m.Component)
		if !ok {
			return registryErr("ExecuteSystems", m.Entity, m.Component, ErrUnknownComponent)
		}
		if err := slot.stageAdd(m.Entity, m.Value); err != nil {
			return err
		}
		added, removed := slot.flushPending()
		if len(added) > 0 || len(removed) > 0 {
			r.metrics.StagedMutations(slot.descriptor().Name, len(added), len(removed))
		}
	}

	for _, m := range opts.PreUpdates {
		slot, ok := r.components.slotById(m.Component)
		if !ok {
			return registryErr("ExecuteSystems", m.Entity, m.Component, ErrUnknownComponent)
		}
		if err := slot.applyUpdate(m.Entity, m.Value); err != nil {
			return err
		}
	}

	for _, m := range opts.PreRemoves {
		slot, ok := r.components.slotById(m.Component)
		if !ok {
			return registryErr("ExecuteSystems", m.Entity, m.Component, ErrUnknownComponent)
		}
		if err := slot.stageRemove(m.Entity); err != nil {
			return err
		}
		added, removed := slot.flushPending()
		if len(added) > 0 || len(removed) > 0 {
			r.metrics.StagedMutations(slot.descriptor().Name, len(added), len(removed))
		}
	}
	return nil
}

// tickClock exists only so the one Date/time touch-point in the scheduler
// is a single named call (time.Now is otherwise allowed, unlike the
// Math.random()-style nondeterminism this module must avoid elsewhere).
func tickClock() time.Time { return time.Now() }

// needsDeterminismSort realizes the §9 resolution of the sort-ordering
// Open Question: sort every storage at tick start whenever any top-level
// system has at least one child system, so cascaded parent/child
// iteration observes a stable order run to run.
func needsDeterminismSort(r *Registry) bool {
	for _, d := range r.systems.byId {
		if d.ParentId == InvalidSystemId && d.hierarchyDepth(r.systems) > 0 {
			return true
		}
	}
	return false
}

func runLevel(r *Registry, level executionLevel, opts ExecutionOptions) error {
	runnable := make([]*SystemDescriptor, 0, len(level.systems))
	for _, sid := range level.systems {
		d, ok := r.systems.Get(sid)
		if !ok || d.IsAction {
			continue
		}
		runnable = append(runnable, d)
	}

	if opts.Parallel && len(runnable) > 1 && allParallelEligible(runnable) {
		g := new(errgroup.Group)
		for _, d := range runnable {
			d := d
			g.Go(func() error { return runSystem(r, d, nil, opts, true) })
		}
		return g.Wait()
	}

	for _, d := range runnable {
		if err := runSystem(r, d, nil, opts, false); err != nil {
			return err
		}
	}
	return nil
}

// isParallelEligible realizes §4.5/§5: a system may run its per-entity
// invocations concurrently with its level siblings only if it never
// mutates view membership or spawns entities and has no nested children
// to recurse into.
func isParallelEligible(d *SystemDescriptor) bool {
	if len(d.Children) > 0 || len(d.Generates) > 0 {
		return false
	}
	for _, capa := range d.Capabilities {
		n := capa.normalized()
		if n.Has(Adds) || n.Has(Removes) {
			return false
		}
	}
	return true
}

func allParallelEligible(systems []*SystemDescriptor) bool {
	for _, d := range systems {
		if !isParallelEligible(d) {
			return false
		}
	}
	return true
}

// runSystem performs §4.5 steps 1-4 for one system: build its view,
// either blanket-clear or iterate its matching entities (applying
// declared removes/adds for a trivial system, invoking the body for a
// user system, then recursing into children), and finally flush the
// pending stores for the components this system declared Adds/Removes
// for.
func runSystem(r *Registry, sys *SystemDescriptor, parent *ExecutionContext, opts ExecutionOptions, readOnly bool) error {
	start := tickClock()
	defer func() { r.metrics.SystemDuration(sys.Name, tickClock().Sub(start)) }()

	if cid, ok := sys.isTrivialBlanketClear(); ok {
		if slot, ok := r.components.slotById(cid); ok {
			slot.blanketClear()
		}
		return nil
	}

	view := buildView(r, sys)
	for _, e := range view {
		ctx := newExecutionContext(r, sys, e, parent, readOnly)

		if sys.Kind == SystemTrivial {
			for cid, capa := range sys.Capabilities {
				if capa.Has(Removes) {
					if slot, ok := r.components.slotById(cid); ok {
						_ = slot.stageRemove(e)
					}
				}
			}
			for cid, capa := range sys.Capabilities {
				if capa.Has(Adds) {
					if slot, ok := r.components.slotById(cid); ok {
						_ = slot.stageAddZero(e)
					}
				}
			}
		} else if sys.Body != nil {
			if err := sys.Body(ctx); err != nil {
				return err
			}
		}

		for _, childId := range sys.Children {
			child, ok := r.systems.Get(childId)
			if !ok {
				continue
			}
			if err := runSystem(r, child, ctx, opts, readOnly); err != nil {
				return err
			}
		}
	}

	flushSystemPending(r, sys)
	return nil
}

// runActionSystem realizes §4.5's action dispatch: the system body (or
// declared trivial removes/adds) runs exactly once for this invocation,
// bound to no particular entity, observing the action payload via
// ctx.Action().
func runActionSystem(r *Registry, inv ActionInvocation, opts ExecutionOptions) error {
	sys, ok := r.systems.Get(inv.System)
	if !ok || !sys.IsAction {
		return newProgrammerError(inv.System, InvalidComponentId, InvalidEntityId, "action: system not declared as an action")
	}

	ctx := newExecutionContext(r, sys, InvalidEntityId, nil, false)
	ctx.action = inv.Payload

	if sys.Kind == SystemTrivial {
		// A trivial action has no entity to scope removes/adds to; it
		// exists only to run its children against the payload.
	} else if sys.Body != nil {
		if err := sys.Body(ctx); err != nil {
			return err
		}
	}

	for _, childId := range sys.Children {
		child, ok := r.systems.Get(childId)
		if !ok {
			continue
		}
		if err := runSystem(r, child, ctx, opts, false); err != nil {
			return err
		}
	}

	flushSystemPending(r, sys)
	return nil
}

// flushSystemPending applies step 4 of §4.5, scoped to the components
// this system declared Adds or Removes for.
func flushSystemPending(r *Registry, sys *SystemDescriptor) {
	for cid, capa := range sys.Capabilities {
		n := capa.normalized()
		if !n.Has(Adds) && !n.Has(Removes) {
			continue
		}
		slot, ok := r.components.slotById(cid)
		if !ok {
			continue
		}
		added, removed := slot.flushPending()
		if len(added) > 0 || len(removed) > 0 {
			r.metrics.StagedMutations(slot.descriptor().Name, len(added), len(removed))
		}
	}
}

func emitAllEvents(r *Registry, collector *EventsCollector) {
	if collector == nil {
		return
	}
	if collector.Init != nil {
		for _, slot := range r.components.slots {
			emitInit(slot, collector)
		}
	}
	if collector.Update != nil {
		for _, slot := range r.components.slots {
			emitUpdate(slot, collector)
		}
	}
	if collector.Remove != nil {
		for _, slot := range r.components.slots {
			emitRemove(slot, collector)
		}
	}
}

// emitInit/emitUpdate/emitRemove split componentSlot.emitEvents' single
// pass into three so the scheduler can honor §4.6's global ordering
// (every Init callback across every component type, then every Update,
// then every Remove) instead of emitting a whole component's three
// phases back to back.
func emitInit(slot componentSlot, collector *EventsCollector) {
	slot.emitEvents(&EventsCollector{Init: collector.Init})
}

func emitUpdate(slot componentSlot, collector *EventsCollector) {
	slot.emitEvents(&EventsCollector{Update: collector.Update})
}

func emitRemove(slot componentSlot, collector *EventsCollector) {
	slot.emitEvents(&EventsCollector{Remove: collector.Remove})
}
