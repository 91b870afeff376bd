package ecs

// ExecutionContext is the per-invocation handle a system body receives
// (§4.4): the single entity (or action record) it was invoked for, plus
// the capability-checked accessors into that entity's components. Adds
// and removes are staged and only become visible once the scheduler's
// flush step runs (§4.5 step 4); updates are written immediately.
type ExecutionContext struct {
	reg    *Registry
	sys    *SystemDescriptor
	entity EntityId
	parent *ExecutionContext
	action any

	// readOnly forbids add/remove/update while the owning system is
	// running inside a parallel fan-out (§5): concurrent mutation of
	// shared storages is a data race the scheduler must prevent rather
	// than merely discourage.
	readOnly bool

	// addedThisCall/removedThisCall diagnose the programmer errors §4.4
	// calls out explicitly: adding (or removing) the same component twice
	// for the same entity within one invocation.
	addedThisCall   map[ComponentId]bool
	removedThisCall map[ComponentId]bool
}

func newExecutionContext(reg *Registry, sys *SystemDescriptor, entity EntityId, parent *ExecutionContext, readOnly bool) *ExecutionContext {
	return &ExecutionContext{
		reg:             reg,
		sys:             sys,
		entity:          entity,
		parent:          parent,
		readOnly:        readOnly,
		addedThisCall:   make(map[ComponentId]bool),
		removedThisCall: make(map[ComponentId]bool),
	}
}

// Entity returns the entity this invocation is scoped to.
func (ctx *ExecutionContext) Entity() EntityId { return ctx.entity }

// System returns the id of the system body currently executing.
func (ctx *ExecutionContext) System() SystemId { return ctx.sys.Id }

// Parent returns the enclosing context for a nested (child) system
// invocation, or nil at the top level.
func (ctx *ExecutionContext) Parent() *ExecutionContext { return ctx.parent }

// Action returns the action payload this invocation was triggered with,
// and whether this context belongs to an action system at all.
func (ctx *ExecutionContext) Action() (any, bool) {
	if !ctx.sys.IsAction {
		return nil, false
	}
	return ctx.action, true
}

func (ctx *ExecutionContext) capabilityFor(cid ComponentId) (Capability, bool) {
	capa, ok := ctx.sys.Capabilities[cid]
	return capa, ok
}

func (ctx *ExecutionContext) fail(cid ComponentId, msg string) error {
	return newProgrammerError(ctx.sys.Id, cid, ctx.entity, msg)
}

// Get reads C off ctx.Entity(). The invoking system must have declared
// Readonly, Readwrite, or an Optional combination of either for C;
// otherwise this is a programmer error (§4.4, §7).
func Get[C any](ctx *ExecutionContext) (C, error) {
	var zero C
	cid, ok := componentIdFor[C](ctx.reg.components)
	if !ok {
		return zero, ctx.fail(InvalidComponentId, "get: component type never registered")
	}
	capa, declared := ctx.capabilityFor(cid)
	if !declared || !capa.Readable() {
		return zero, ctx.fail(cid, "get: capability not declared")
	}
	slot, ok := slotFor[C](ctx.reg.components)
	if !ok {
		return zero, ctx.fail(cid, "get: component type never registered")
	}
	v, ok := slot.values.Get(ctx.entity)
	if !ok {
		if capa.IsOptional() {
			return zero, ErrUnknownComponent
		}
		return zero, ctx.fail(cid, "get: entity does not hold component")
	}
	return v, nil
}

// Has reports whether ctx.Entity() currently holds C. Always legal to
// call, including for Optional capabilities, per §4.4.
func Has[C any](ctx *ExecutionContext) bool {
	slot, ok := slotFor[C](ctx.reg.components)
	if !ok {
		return false
	}
	return slot.values.Contains(ctx.entity)
}

// Update writes a new value for C on ctx.Entity() immediately, recording
// the pre-tick value on the first write this tick for update events. The
// invoking system must have declared Writeonly or Readwrite for C.
func Update[C any](ctx *ExecutionContext, value C) error {
	if ctx.readOnly {
		return ErrParallelMutation
	}
	cid, ok := componentIdFor[C](ctx.reg.components)
	if !ok {
		return ctx.fail(InvalidComponentId, "update: component type never registered")
	}
	capa, declared := ctx.capabilityFor(cid)
	if !declared || !capa.Writable() {
		return ctx.fail(cid, "update: capability not declared")
	}
	slot, _ := slotFor[C](ctx.reg.components)
	if err := slot.applyUpdate(ctx.entity, value); err != nil {
		if capa.IsOptional() {
			return ErrUnknownComponent
		}
		return ctx.fail(cid, err.Error())
	}
	return nil
}

// Add stages C for ctx.Entity(), visible to later systems (and to this
// entity's own view membership) only after this tick's flush step. The
// invoking system must have declared Adds for C. Calling Add twice for
// the same component within one invocation is a programmer error.
func Add[C any](ctx *ExecutionContext, value C) error {
	if ctx.readOnly {
		return ErrParallelMutation
	}
	cid, ok := componentIdFor[C](ctx.reg.components)
	if !ok {
		cid = registerComponent[C](ctx.reg.components)
	}
	capa, declared := ctx.capabilityFor(cid)
	if !declared || !capa.Has(Adds) {
		return ctx.fail(cid, "add: capability not declared")
	}
	if ctx.addedThisCall[cid] {
		return ctx.fail(cid, "add: component already added this invocation")
	}
	slot, _ := slotFor[C](ctx.reg.components)
	if err := slot.stageAdd(ctx.entity, value); err != nil {
		return ctx.fail(cid, err.Error())
	}
	ctx.addedThisCall[cid] = true
	return nil
}

// Remove stages C for removal from ctx.Entity(), visible to later
// systems only after this tick's flush step. The invoking system must
// have declared Removes for C. Calling Remove twice for the same
// component within one invocation is a programmer error.
func Remove[C any](ctx *ExecutionContext) error {
	if ctx.readOnly {
		return ErrParallelMutation
	}
	cid, ok := componentIdFor[C](ctx.reg.components)
	if !ok {
		return ctx.fail(InvalidComponentId, "remove: component type never registered")
	}
	capa, declared := ctx.capabilityFor(cid)
	if !declared || !capa.Has(Removes) {
		return ctx.fail(cid, "remove: capability not declared")
	}
	if ctx.removedThisCall[cid] {
		return ctx.fail(cid, "remove: component already removed this invocation")
	}
	slot, _ := slotFor[C](ctx.reg.components)
	if err := slot.stageRemove(ctx.entity); err != nil {
		if capa.IsOptional() {
			return ErrUnknownComponent
		}
		return ctx.fail(cid, err.Error())
	}
	ctx.removedThisCall[cid] = true
	return nil
}

// Generate creates a new entity and stages the given component values on
// it in one call, as a trivial system's generator step or a user
// system's explicit spawn. The invoking system must have declared a
// Generates set exactly matching the component ids being supplied.
func Generate(ctx *ExecutionContext, values ...any) (EntityId, error) {
	if ctx.readOnly {
		return InvalidEntityId, ErrParallelMutation
	}
	ids := make([]ComponentId, 0, len(values))
	for _, v := range values {
		cid, ok := ctx.reg.components.typeIdForValue(v)
		if !ok {
			return InvalidEntityId, ctx.fail(InvalidComponentId, "generate: component type never registered")
		}
		ids = append(ids, cid)
	}
	if !ctx.sys.canGenerate(ids) {
		return InvalidEntityId, ctx.fail(InvalidComponentId, "generate: component set not declared in Generates")
	}

	e := ctx.reg.entities.create()
	for i, v := range values {
		slot, ok := ctx.reg.components.slotById(ids[i])
		if !ok {
			continue
		}
		if err := slot.stageAdd(e, v); err != nil {
			return InvalidEntityId, ctx.fail(ids[i], err.Error())
		}
	}
	return e, nil
}

// GetByID is the type-erased form of Get, used by the WASM import shims
// and any other caller that only has a runtime ComponentId.
func (ctx *ExecutionContext) GetByID(cid ComponentId) (any, error) {
	capa, declared := ctx.capabilityFor(cid)
	if !declared || !capa.Readable() {
		return nil, ctx.fail(cid, "get: capability not declared")
	}
	slot, ok := ctx.reg.components.slotById(cid)
	if !ok {
		return nil, ctx.fail(cid, "get: component type never registered")
	}
	v, ok := slot.getAny(ctx.entity)
	if !ok {
		if capa.IsOptional() {
			return nil, ErrUnknownComponent
		}
		return nil, ctx.fail(cid, "get: entity does not hold component")
	}
	return v, nil
}

// HasByID is the type-erased form of Has.
func (ctx *ExecutionContext) HasByID(cid ComponentId) bool {
	slot, ok := ctx.reg.components.slotById(cid)
	if !ok {
		return false
	}
	return slot.containsEntity(ctx.entity)
}

// UpdateByID is the type-erased form of Update.
func (ctx *ExecutionContext) UpdateByID(cid ComponentId, value any) error {
	if ctx.readOnly {
		return ErrParallelMutation
	}
	capa, declared := ctx.capabilityFor(cid)
	if !declared || !capa.Writable() {
		return ctx.fail(cid, "update: capability not declared")
	}
	slot, ok := ctx.reg.components.slotById(cid)
	if !ok {
		return ctx.fail(cid, "update: component type never registered")
	}
	if err := slot.applyUpdate(ctx.entity, value); err != nil {
		if capa.IsOptional() {
			return ErrUnknownComponent
		}
		return ctx.fail(cid, err.Error())
	}
	return nil
}

// AddByID is the type-erased form of Add.
func (ctx *ExecutionContext) AddByID(cid ComponentId, value any) error {
	if ctx.readOnly {
		return ErrParallelMutation
	}
	capa, declared := ctx.capabilityFor(cid)
	if !declared || !capa.Has(Adds) {
		return ctx.fail(cid, "add: capability not declared")
	}
	if ctx.addedThisCall[cid] {
		return ctx.fail(cid, "add: component already added this invocation")
	}
	slot, ok := ctx.reg.components.slotById(cid)
	if !ok {
		return ctx.fail(cid, "add: component type never registered")
	}
	if err := slot.stageAdd(ctx.entity, value); err != nil {
		return ctx.fail(cid, err.Error())
	}
	ctx.addedThisCall[cid] = true
	return nil
}

// RemoveByID is the type-erased form of Remove.
func (ctx *ExecutionContext) RemoveByID(cid ComponentId) error {
	if ctx.readOnly {
		return ErrParallelMutation
	}
	capa, declared := ctx.capabilityFor(cid)
	if !declared || !capa.Has(Removes) {
		return ctx.fail(cid, "remove: capability not declared")
	}
	if ctx.removedThisCall[cid] {
		return ctx.fail(cid, "remove: component already removed this invocation")
	}
	slot, ok := ctx.reg.components.slotById(cid)
	if !ok {
		return ctx.fail(cid, "remove: component type never registered")
	}
	if err := slot.stageRemove(ctx.entity); err != nil {
		if capa.IsOptional() {
			return ErrUnknownComponent
		}
		return ctx.fail(cid, err.Error())
	}
	ctx.removedThisCall[cid] = true
	return nil
}

// GenerateByID is the type-erased form of Generate, keyed by parallel
// slices of component ids and boxed values rather than typed arguments.
func (ctx *ExecutionContext) GenerateByID(ids []ComponentId, values []any) (EntityId, error) {
	if ctx.readOnly {
		return InvalidEntityId, ErrParallelMutation
	}
	if len(ids) != len(values) {
		return InvalidEntityId, ctx.fail(InvalidComponentId, "generate: mismatched id/value counts")
	}
	if !ctx.sys.canGenerate(ids) {
		return InvalidEntityId, ctx.fail(InvalidComponentId, "generate: component set not declared in Generates")
	}
	e := ctx.reg.entities.create()
	for i, cid := range ids {
		slot, ok := ctx.reg.components.slotById(cid)
		if !ok {
			continue
		}
		if err := slot.stageAdd(e, values[i]); err != nil {
			return InvalidEntityId, ctx.fail(cid, err.Error())
		}
	}
	return e, nil
}
