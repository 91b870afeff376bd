package ecs

import "sync"

var (
	registryIdsMu  sync.Mutex
	nextRegistryId RegistryId
)

func allocRegistryId() RegistryId {
	registryIdsMu.Lock()
	defer registryIdsMu.Unlock()
	id := nextRegistryId
	nextRegistryId++
	return id
}

// Registry is one independent ECS world (§3): its own entity table,
// component storages, and system/action descriptors. Registries never
// share state; running two registries concurrently on separate
// goroutines is safe, but a single registry's own mutating calls
// (AddComponent, ExecuteSystems, ...) are not reentrant or thread-safe
// among themselves, mirroring the teacher's World.
type Registry struct {
	id         RegistryId
	entities   *entityTable
	components *componentRegistry
	systems    *systemRegistry
	metrics    MetricsRecorder
}

// NewRegistry creates an empty registry, ready to register components
// and systems.
func NewRegistry() *Registry {
	return &Registry{
		id:         allocRegistryId(),
		entities:   newEntityTable(),
		components: newComponentRegistry(),
		systems:    newSystemRegistry(),
		metrics:    noopMetrics{},
	}
}

// ID returns the registry's own identity, distinct across every live
// Registry in the process.
func (r *Registry) ID() RegistryId { return r.id }

// WithMetrics attaches a MetricsRecorder (e.g. the prometheus-backed one
// from internal/metrics) that observes tick duration and staged
// add/remove counts. The zero value keeps the no-op recorder.
func (r *Registry) WithMetrics(m MetricsRecorder) *Registry {
	if m != nil {
		r.metrics = m
	}
	return r
}

// Close releases the registry's resources. The current implementation
// holds nothing external to the Go heap, so Close only exists to give
// callers a stable lifecycle hook symmetrical with wasmhost.Host.Close.
func (r *Registry) Close() error { return nil }

// Clear drops every entity, component value, and pending stage, but
// keeps registered component/system descriptors, matching §3's
// clear_registry semantics: it also resets entity id allocation to 0.
func (r *Registry) Clear() {
	r.entities.clear()
	for _, slot := range r.components.slots {
		slot.clearAll()
	}
}

// RegisterComponent assigns (or returns the existing) ComponentId for T,
// applying opts only on first registration.
func RegisterComponent[T any](r *Registry, opts ...ComponentOption) ComponentId {
	return registerComponent[T](r.components, opts...)
}

// CreateEntity allocates a fresh entity id holding no components.
func (r *Registry) CreateEntity() EntityId {
	return r.entities.create()
}

// EnsureEntity marks id as allocated without assigning a new one,
// growing the entity table as needed. Used to replay a previously
// recorded entity id, e.g. when restoring a snapshot.
func (r *Registry) EnsureEntity(id EntityId) {
	r.entities.ensure(id)
}

// EntityExists reports whether id currently names a live entity.
func (r *Registry) EntityExists(id EntityId) bool {
	return r.entities.exists(id)
}

// DestroyEntity removes every component the entity holds and retires its
// id. The id is never reallocated (§3 invariant: monotonic allocation).
func (r *Registry) DestroyEntity(id EntityId) bool {
	if !r.entities.exists(id) {
		return false
	}
	r.components.removeAllComponents(id)
	return r.entities.destroy(id)
}

// CountEntities returns the number of currently live entities.
func (r *Registry) CountEntities() int { return r.entities.count() }

// Entities appends every live entity id into buf (or a fresh slice if
// buf is nil) and returns it, for snapshotting or debugging.
func (r *Registry) Entities(buf []EntityId) []EntityId {
	return r.entities.list(buf)
}

// AddComponent immediately inserts value for entity, bypassing system
// staging; used by setup code and tests, not by system bodies (which
// must go through ecs.Add so the pending/event machinery applies). It is
// an error to add a component the entity already holds (§4.1): callers
// that want an overwrite should use UpdateComponent instead.
func AddComponent[T any](r *Registry, entity EntityId, value T) error {
	if !r.entities.exists(entity) {
		return registryErr("AddComponent", entity, InvalidComponentId, ErrUnknownEntity)
	}
	registerComponent[T](r.components)
	slot, _ := slotFor[T](r.components)
	if slot.values.Contains(entity) {
		return registryErr("AddComponent", entity, slot.desc.Id, ErrComponentAlreadyPresent)
	}
	slot.values.Insert(entity, value)
	return nil
}

// HasComponent reports whether entity currently holds T.
func HasComponent[T any](r *Registry, entity EntityId) bool {
	slot, ok := slotFor[T](r.components)
	if !ok {
		return false
	}
	return slot.values.Contains(entity)
}

// GetComponent reads entity's T value directly, bypassing capability
// checks; used by setup code, tests, and rendering/read-back code
// outside a system body.
func GetComponent[T any](r *Registry, entity EntityId) (T, bool) {
	var zero T
	slot, ok := slotFor[T](r.components)
	if !ok {
		return zero, false
	}
	return slot.values.Get(entity)
}

// UpdateComponent immediately overwrites entity's T value, bypassing
// staging and event tracking.
func UpdateComponent[T any](r *Registry, entity EntityId, value T) error {
	slot, ok := slotFor[T](r.components)
	if !ok {
		return registryErr("UpdateComponent", entity, InvalidComponentId, ErrUnknownComponent)
	}
	if !slot.values.Contains(entity) {
		return registryErr("UpdateComponent", entity, slot.desc.Id, ErrUnknownComponent)
	}
	slot.values.Insert(entity, value)
	return nil
}

// RemoveComponent immediately drops entity's T value, bypassing staging
// and event tracking.
func RemoveComponent[T any](r *Registry, entity EntityId) bool {
	slot, ok := slotFor[T](r.components)
	if !ok {
		return false
	}
	return slot.removeEntity(entity)
}

// CountComponents returns how many entities currently hold T.
func CountComponents[T any](r *Registry) int {
	slot, ok := slotFor[T](r.components)
	if !ok {
		return 0
	}
	return slot.values.Size()
}

// EachComponent visits every (entity, value) pair currently holding T,
// in storage order.
func EachComponent[T any](r *Registry, fn func(EntityId, T)) {
	slot, ok := slotFor[T](r.components)
	if !ok {
		return
	}
	slot.values.Each(func(e EntityId, v *T) { fn(e, *v) })
}

// DeclareSystem registers a new system body with its capability table
// (§3). kind distinguishes a trivial declarative system (no body is
// invoked; Generates/Capabilities alone determine its effect) from a
// user system whose body runs once per matching entity or action
// invocation.
func (r *Registry) DeclareSystem(name string, kind SystemKind, caps map[ComponentId]Capability, body SystemBody) *SystemDescriptor {
	return r.systems.Declare(name, kind, caps, body)
}

// DeclareParallelLevel groups systems into one execution level eligible
// for concurrent fan-out (§4.5 step 5) when ExecutionOptions.Parallel is
// set and every system in the group is individually parallel-eligible.
func (r *Registry) DeclareParallelLevel(systems ...*SystemDescriptor) {
	r.systems.DeclareLevel(systems...)
}

// AddChildSystem nests child under parent: child only runs as part of
// parent's own invocation (once per parent-matching entity), observing
// parent's pending mutations only after parent's own flush (§4.5 step 6).
func (r *Registry) AddChildSystem(parent, child SystemId) {
	r.systems.AddChild(parent, child)
}

// System looks up a previously declared system or action descriptor.
func (r *Registry) System(id SystemId) (*SystemDescriptor, bool) {
	return r.systems.Get(id)
}

// ExecuteSystems runs one tick: every declared system and action in
// execution-order, staging then flushing component mutations, and
// finally emitting this tick's lifecycle events (§4.5).
func (r *Registry) ExecuteSystems(opts ExecutionOptions) error {
	return runTick(r, opts)
}
