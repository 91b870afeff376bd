package ecs

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Storage is the dense, typed sparse-set storage for one component type:
// S<C> from §3. It layers a packed value array on top of a SparseSet of
// owning entities, so iteration order is the set's insertion order unless
// an explicit Sort pass was applied.
type Storage[T any] struct {
	entities *SparseSet
	values   []T
}

// NewStorage creates an empty typed storage.
func NewStorage[T any]() *Storage[T] {
	return &Storage[T]{
		entities: NewSparseSet(),
		values:   make([]T, 0),
	}
}

// Insert adds or overwrites the value for entity.
func (s *Storage[T]) Insert(entity EntityId, value T) {
	if s.entities.Contains(entity) {
		s.values[s.entities.IndexOf(entity)] = value
		return
	}
	if s.entities.Insert(entity) {
		idx := s.entities.Size() - 1
		if len(s.values) <= idx {
			s.values = append(s.values, value)
		} else {
			s.values[idx] = value
		}
	}
}

// Remove drops entity's value via swap-and-pop, mirroring the sparse set's
// own swap-and-pop so the dense arrays stay aligned.
func (s *Storage[T]) Remove(entity EntityId) bool {
	if !s.entities.Contains(entity) {
		return false
	}
	idx := s.entities.IndexOf(entity)
	last := s.entities.Size() - 1
	if idx != last {
		s.values[idx] = s.values[last]
	}
	return s.entities.Remove(entity)
}

// Contains reports whether entity currently has a value.
func (s *Storage[T]) Contains(entity EntityId) bool { return s.entities.Contains(entity) }

// Get returns entity's value and whether it was present.
func (s *Storage[T]) Get(entity EntityId) (T, bool) {
	var zero T
	if !s.entities.Contains(entity) {
		return zero, false
	}
	return s.values[s.entities.IndexOf(entity)], true
}

// GetPtr returns a pointer to entity's value, or nil if absent. The
// pointer is valid until the next mutation of this storage.
func (s *Storage[T]) GetPtr(entity EntityId) *T {
	if !s.entities.Contains(entity) {
		return nil
	}
	return &s.values[s.entities.IndexOf(entity)]
}

// Size returns the number of entities with a value.
func (s *Storage[T]) Size() int { return s.entities.Size() }

// Empty reports whether the storage holds no values.
func (s *Storage[T]) Empty() bool { return s.entities.Empty() }

// Clear drops every value.
func (s *Storage[T]) Clear() {
	s.entities.Clear()
	s.values = s.values[:0]
}

// Entities returns the backing sparse set of owning entities.
func (s *Storage[T]) Entities() *SparseSet { return s.entities }

// Data returns the packed value array aligned with Entities().Data().
func (s *Storage[T]) Data() []T { return s.values[:s.entities.Size()] }

// Each visits every (entity, value pointer) pair in iteration order.
func (s *Storage[T]) Each(fn func(EntityId, *T)) {
	ids := s.entities.Data()
	for i, e := range ids {
		fn(e, &s.values[i])
	}
}

// Sort reorders the packed arrays by the given comparator, keeping the
// sparse set's indices consistent with the reordered values.
func (s *Storage[T]) Sort(less func(ea EntityId, a *T, eb EntityId, b *T) bool) {
	type pair struct {
		e EntityId
		v T
	}
	ids := s.entities.Data()
	pairs := make([]pair, len(ids))
	for i, e := range ids {
		pairs[i] = pair{e: e, v: s.values[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return less(pairs[i].e, &pairs[i].v, pairs[j].e, &pairs[j].v)
	})

	s.entities.Clear()
	s.values = s.values[:0]
	for _, p := range pairs {
		s.Insert(p.e, p.v)
	}
}

// CompareFunc orders two component values belonging to the given entities.
// Used by the scheduler's cascade-determinism sort pass.
type CompareFunc func(ea EntityId, a any, eb EntityId, b any) bool

// ComponentDescriptor is the static, per-type description the spec's type
// registry (§3) requires: identity, optional human name, byte size,
// optional comparator, and whether the component is transient.
type ComponentDescriptor struct {
	Id        ComponentId
	Name      string
	Size      uintptr
	Transient bool
	Compare   CompareFunc
}

// ZeroSized reports whether the component carries no data ("tag").
func (d ComponentDescriptor) ZeroSized() bool { return d.Size == 0 }

// componentSlot is the type-erased interface the registry uses to manage a
// component type's full per-tick lifecycle without knowing its static Go
// type: main storage, markers, pending stores, and event emission. Each
// concrete componentState[T] implements it.
type componentSlot interface {
	descriptor() ComponentDescriptor

	containsEntity(e EntityId) bool
	removeEntity(e EntityId) bool
	sizeEntities() int
	clearAll()

	flushPending() (added, removed []EntityId)
	clearMarkers()
	clearTransientIfNeeded()

	entitiesSet() *SparseSet
	addedSet() *SparseSet
	changedSet() *SparseSet
	removedSet() *SparseSet
	pendingRemoveSet() *SparseSet

	emitEvents(collector *EventsCollector)

	sortByComparator()

	// Type-erased context operations, used by the ById accessor family and
	// by the WASM import shims, which only ever see a ComponentId plus a
	// boxed value crossing the guest/host boundary. Each mirrors the
	// corresponding §4.4 semantics; per-invocation double-add/double-remove
	// diagnostics are the caller's (ExecutionContext's) responsibility.
	getAny(e EntityId) (any, bool)
	stageAdd(e EntityId, v any) error
	stageAddZero(e EntityId) error
	stageRemove(e EntityId) error
	applyUpdate(e EntityId, v any) error
	blanketClear()
}

// componentState owns every piece of per-tick scratch for one component
// type, as enumerated in §3 ("Marker storages"): the live values, Added,
// Changed, Removed, BeforeChange, TempStorage, PendingAdd and
// PendingRemove. BeforeChange<C> and PendingAdd<C> reuse Storage[T]'s own
// sparse-set membership as the "has a snapshot / has a staged value"
// boolean, so no separate bool flag is needed.
type componentState[T any] struct {
	desc ComponentDescriptor

	// mu guards the staging/marker mutation paths so a parallel-eligible
	// level (§4.5, §5) can run Update calls for distinct entities of the
	// same component type from separate goroutines without racing on the
	// shared marker sparse-sets or the underlying value slice.
	mu sync.Mutex

	values       *Storage[T]
	added        *SparseSet
	changed      *SparseSet
	removed      *SparseSet
	beforeChange *Storage[T]
	tempStorage  *Storage[T]
	pendingAdd   *Storage[T]
	pendingRem   *SparseSet
}

func newComponentState[T any](desc ComponentDescriptor) *componentState[T] {
	return &componentState[T]{
		desc:         desc,
		values:       NewStorage[T](),
		added:        NewSparseSet(),
		changed:      NewSparseSet(),
		removed:      NewSparseSet(),
		beforeChange: NewStorage[T](),
		tempStorage:  NewStorage[T](),
		pendingAdd:   NewStorage[T](),
		pendingRem:   NewSparseSet(),
	}
}

func (c *componentState[T]) descriptor() ComponentDescriptor { return c.desc }

func (c *componentState[T]) containsEntity(e EntityId) bool { return c.values.Contains(e) }

func (c *componentState[T]) removeEntity(e EntityId) bool {
	c.added.Remove(e)
	c.changed.Remove(e)
	c.removed.Remove(e)
	c.beforeChange.Remove(e)
	c.tempStorage.Remove(e)
	c.pendingAdd.Remove(e)
	c.pendingRem.Remove(e)
	return c.values.Remove(e)
}

func (c *componentState[T]) sizeEntities() int { return c.values.Size() }

func (c *componentState[T]) clearAll() {
	c.values.Clear()
	c.clearMarkers()
	c.pendingAdd.Clear()
	c.pendingRem.Clear()
}

// flushPending applies staged adds and removes from this tick's context
// calls into the real storage, per step 4 of §4.5. It returns the entity
// ids that actually transitioned, for metrics/logging.
func (c *componentState[T]) flushPending() (added, removed []EntityId) {
	c.pendingAdd.Each(func(e EntityId, v *T) {
		c.values.Insert(e, *v)
		added = append(added, e)
	})
	c.pendingAdd.Clear()

	c.pendingRem.ForEach(func(e EntityId) {
		c.values.Remove(e)
		removed = append(removed, e)
	})
	c.pendingRem.Clear()
	return added, removed
}

func (c *componentState[T]) clearMarkers() {
	c.added.Clear()
	c.changed.Clear()
	c.removed.Clear()
	c.beforeChange.Clear()
	c.tempStorage.Clear()
}

func (c *componentState[T]) clearTransientIfNeeded() {
	if c.desc.Transient {
		c.values.Clear()
	}
}

func (c *componentState[T]) entitiesSet() *SparseSet      { return c.values.Entities() }
func (c *componentState[T]) addedSet() *SparseSet         { return c.added }
func (c *componentState[T]) changedSet() *SparseSet       { return c.changed }
func (c *componentState[T]) removedSet() *SparseSet       { return c.removed }
func (c *componentState[T]) pendingRemoveSet() *SparseSet { return c.pendingRem }

// emitEvents realizes §4.6: all init callbacks, then all update callbacks,
// then all remove callbacks, for this one component type.
func (c *componentState[T]) emitEvents(collector *EventsCollector) {
	if c.desc.Transient || collector == nil {
		return
	}

	if collector.Init != nil {
		c.added.ForEach(func(e EntityId) {
			if v, ok := c.values.Get(e); ok {
				collector.Init(e, c.desc.Id, v)
			}
		})
	}

	if collector.Update != nil && !c.desc.ZeroSized() {
		c.changed.ForEach(func(e EntityId) {
			before, hasBefore := c.beforeChange.Get(e)
			current, hasCurrent := c.values.Get(e)
			if !hasBefore || !hasCurrent {
				return
			}
			if reflect.DeepEqual(before, current) {
				return
			}
			collector.Update(e, c.desc.Id, current)
		})
	}

	if collector.Remove != nil {
		c.removed.ForEach(func(e EntityId) {
			if v, ok := c.tempStorage.Get(e); ok {
				collector.Remove(e, c.desc.Id, v)
			}
		})
	}
}

func (c *componentState[T]) sortByComparator() {
	if c.desc.Compare == nil {
		return
	}
	c.values.Sort(func(ea EntityId, a *T, eb EntityId, b *T) bool {
		return c.desc.Compare(ea, *a, eb, *b)
	})
}

func (c *componentState[T]) getAny(e EntityId) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values.Get(e)
	if !ok {
		return nil, false
	}
	return v, true
}

// stageAdd realizes ctx.add<C>(v) (§4.4): always stage PendingAdd<C>; if
// Removed<C> was already set this tick, clear it and suppress Added<C>
// (net-zero add-after-remove); otherwise set Added<C>.
func (c *componentState[T]) stageAdd(e EntityId, v any) error {
	typed, ok := v.(T)
	if !ok {
		return fmt.Errorf("value has wrong type for component %s", c.desc.Name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingAdd.Insert(e, typed)
	if c.removed.Remove(e) {
		c.pendingRem.Remove(e)
	} else {
		c.added.Insert(e)
	}
	return nil
}

// stageAddZero stages the zero value of T, for a trivial system's
// declared-adds step (§4.5 step 3b), where no explicit value is ever
// supplied by a body.
func (c *componentState[T]) stageAddZero(e EntityId) error {
	var zero T
	return c.stageAdd(e, zero)
}

// stageRemove realizes ctx.remove<C>() (§4.4): clears Added<C> if present,
// captures the current value into TempStorage<C>, stages PendingRemove<C>,
// and sets Removed<C> unless Added<C> was set, so a component added and
// removed within one tick emits no event. A remove of a component whose add is still only
// staged this same tick (not yet flushed into values) cancels the add
// outright instead, so a cascade like "A adds Tag, child B removes Tag"
// nets to no mutation and no events at all.
func (c *componentState[T]) stageRemove(e EntityId) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingAdd.Contains(e) && !c.values.Contains(e) {
		c.pendingAdd.Remove(e)
		c.added.Remove(e)
		return nil
	}
	if !c.values.Contains(e) {
		return fmt.Errorf("entity does not hold component %s", c.desc.Name)
	}
	wasAdded := c.added.Remove(e)
	if v, ok := c.values.Get(e); ok {
		c.tempStorage.Insert(e, v)
	}
	c.pendingRem.Insert(e)
	if !wasAdded {
		c.removed.Insert(e)
	}
	return nil
}

// applyUpdate realizes ctx.update<C>(v) (§4.4): on the first write this
// tick, snapshots the previous value into BeforeChange<C> and marks
// Changed<C> unless Added<C> is already set; always writes the new value.
func (c *componentState[T]) applyUpdate(e EntityId, v any) error {
	typed, ok := v.(T)
	if !ok {
		return fmt.Errorf("value has wrong type for component %s", c.desc.Name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ptr := c.values.GetPtr(e)
	if ptr == nil {
		return fmt.Errorf("entity does not hold component %s", c.desc.Name)
	}
	if !c.beforeChange.Contains(e) {
		c.beforeChange.Insert(e, *ptr)
		if !c.added.Contains(e) {
			c.changed.Insert(e)
		}
	}
	*ptr = typed
	return nil
}

// blanketClear realizes the §4.5 step-2 optimization: every entity
// currently holding the component is treated as removed (captured into
// TempStorage for the remove event) without staging through
// PendingRemove, then the live storage is cleared in one pass. An entity
// whose component was added this same tick gets no Removed marker, so it
// emits neither an init nor a remove event.
func (c *componentState[T]) blanketClear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values.Each(func(e EntityId, v *T) {
		c.tempStorage.Insert(e, *v)
		if !c.added.Remove(e) {
			c.removed.Insert(e)
		}
	})
	c.values.Clear()
}
