package ecs

import "reflect"

// ComponentOption customizes a component type's descriptor at first
// registration. Later RegisterComponent calls for an already-known type
// reuse the cached descriptor and ignore further options, matching the
// teacher pattern's Register[T] idempotency.
type ComponentOption func(*ComponentDescriptor)

// WithName overrides the inferred type name.
func WithName(name string) ComponentOption {
	return func(d *ComponentDescriptor) { d.Name = name }
}

// WithTransient marks the component transient: cleared at the end of
// every tick and excluded from event tracking (§3, §4.6).
func WithTransient() ComponentOption {
	return func(d *ComponentDescriptor) { d.Transient = true }
}

// WithCompare attaches a comparator used by the scheduler's
// cascade-determinism sort pass (§4.5, §9).
func WithCompare(cmp CompareFunc) ComponentOption {
	return func(d *ComponentDescriptor) { d.Compare = cmp }
}

// componentRegistry is the runtime, reflect.Type-keyed type registry for
// component types (§9's chosen polymorphism strategy): assigning a
// ComponentId to each distinct Go type on first use and owning that type's
// componentSlot for the lifetime of the Registry.
type componentRegistry struct {
	nextId   ComponentId
	typeToId map[reflect.Type]ComponentId
	slots    map[ComponentId]componentSlot
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{
		typeToId: make(map[reflect.Type]ComponentId),
		slots:    make(map[ComponentId]componentSlot),
	}
}

// registerComponent returns the ComponentId for T, registering it with a
// fresh componentState[T] slot on first use.
func registerComponent[T any](cr *componentRegistry, opts ...ComponentOption) ComponentId {
	var zero T
	t := reflect.TypeOf(zero)

	if id, ok := cr.typeToId[t]; ok {
		return id
	}

	id := cr.nextId
	cr.nextId++

	desc := ComponentDescriptor{Id: id, Size: t.Size()}
	if t != nil {
		desc.Name = t.String()
	}
	for _, opt := range opts {
		opt(&desc)
	}

	cr.typeToId[t] = id
	cr.slots[id] = newComponentState[T](desc)
	return id
}

func componentIdFor[T any](cr *componentRegistry) (ComponentId, bool) {
	var zero T
	id, ok := cr.typeToId[reflect.TypeOf(zero)]
	return id, ok
}

// typeIdForValue resolves a boxed value's dynamic type to its
// ComponentId, for the untyped Generate(ctx, values...) call.
func (cr *componentRegistry) typeIdForValue(v any) (ComponentId, bool) {
	id, ok := cr.typeToId[reflect.TypeOf(v)]
	return id, ok
}

func slotFor[T any](cr *componentRegistry) (*componentState[T], bool) {
	id, ok := componentIdFor[T](cr)
	if !ok {
		return nil, false
	}
	slot, ok := cr.slots[id].(*componentState[T])
	return slot, ok
}

func (cr *componentRegistry) slotById(id ComponentId) (componentSlot, bool) {
	s, ok := cr.slots[id]
	return s, ok
}

func (cr *componentRegistry) removeAllComponents(e EntityId) {
	for _, slot := range cr.slots {
		slot.removeEntity(e)
	}
}

func (cr *componentRegistry) descriptors() map[ComponentId]ComponentDescriptor {
	out := make(map[ComponentId]ComponentDescriptor, len(cr.slots))
	for id, slot := range cr.slots {
		out[id] = slot.descriptor()
	}
	return out
}
