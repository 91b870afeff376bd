package ecs

// SystemKind classifies a system per §3: a trivial system's body is fully
// determined by its declared Adds/Removes (no user code runs); a user
// system invokes a provided body, native or WASM-hosted.
type SystemKind uint8

const (
	// SystemTrivial marks a system whose body is entirely its declared
	// adds/removes.
	SystemTrivial SystemKind = iota
	// SystemUser marks a system with a user-provided body.
	SystemUser
)

// SystemBody is a native system implementation: the function invoked once
// per matching entity (or once per action record, for action systems).
type SystemBody func(ctx *ExecutionContext) error

// SystemDescriptor is the static, per-system description from §3: identity,
// optional parent, ordered children, capability table, the sets of
// component ids it may use when generating new entities, and its
// classification.
type SystemDescriptor struct {
	Id       SystemId
	Name     string
	ParentId SystemId
	Children []SystemId

	Capabilities map[ComponentId]Capability
	Generates    [][]ComponentId

	Kind SystemKind
	Body SystemBody

	// IsAction marks a system that only runs when its id appears in a
	// tick's ExecutionOptions.Actions list, once per matching record,
	// rather than every tick.
	IsAction bool
}

func newSystemDescriptor(id SystemId, name string) *SystemDescriptor {
	return &SystemDescriptor{
		Id:           id,
		Name:         name,
		ParentId:     InvalidSystemId,
		Capabilities: make(map[ComponentId]Capability),
		Kind:         SystemUser,
	}
}

// canGenerate reports whether ids is one of the system's declared
// generator sets (order-insensitive, exact member match).
func (d *SystemDescriptor) canGenerate(ids []ComponentId) bool {
	for _, set := range d.Generates {
		if sameComponentSet(set, ids) {
			return true
		}
	}
	return false
}

func sameComponentSet(a, b []ComponentId) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[ComponentId]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		seen[id]--
	}
	for _, count := range seen {
		if count != 0 {
			return false
		}
	}
	return true
}

// isTrivialBlanketClear reports whether this system qualifies for the §4.5
// step-2 blanket-clear optimization: trivial, exactly one removes-target,
// and no other capability declared.
func (d *SystemDescriptor) isTrivialBlanketClear() (ComponentId, bool) {
	if d.Kind != SystemTrivial || len(d.Capabilities) != 1 {
		return InvalidComponentId, false
	}
	for id, capa := range d.Capabilities {
		if capa.normalized().Has(Removes) {
			return id, true
		}
	}
	return InvalidComponentId, false
}

// hierarchyDepth reports how many levels of children this system has below
// it (0 for a leaf). Used by the cascade-determinism sort pass.
func (d *SystemDescriptor) hierarchyDepth(reg *systemRegistry) int {
	if len(d.Children) == 0 {
		return 0
	}
	maxChild := 0
	for _, cid := range d.Children {
		child := reg.byId[cid]
		if child == nil {
			continue
		}
		if depth := child.hierarchyDepth(reg); depth+1 > maxChild {
			maxChild = depth + 1
		}
	}
	return maxChild
}

// systemRegistry owns every system/action descriptor and the execution
// order DAG the scheduler walks.
type systemRegistry struct {
	nextId SystemId
	byId   map[SystemId]*SystemDescriptor
	order  []executionLevel
}

// executionLevel is one level of the execution-order descriptor from §4.5:
// a list of (system, children-already-attached-to-the-descriptor) roots. A
// level with more than one system may be run in parallel if every system in
// it is individually parallel-eligible.
type executionLevel struct {
	systems []SystemId
}

func newSystemRegistry() *systemRegistry {
	return &systemRegistry{byId: make(map[SystemId]*SystemDescriptor)}
}

// Declare registers a new top-level system and appends it as its own
// execution level, preserving declaration order (the simplest faithful
// realization of "the execution order descriptor is honored level-by-level"
// for systems that don't share a level explicitly via DeclareParallelLevel).
func (sr *systemRegistry) Declare(name string, kind SystemKind, caps map[ComponentId]Capability, body SystemBody) *SystemDescriptor {
	id := sr.nextId
	sr.nextId++
	d := newSystemDescriptor(id, name)
	d.Kind = kind
	d.Body = body
	for cid, capa := range caps {
		d.Capabilities[cid] = capa.normalized()
	}
	sr.byId[id] = d
	sr.order = append(sr.order, executionLevel{systems: []SystemId{id}})
	return d
}

// DeclareLevel registers several systems that share one execution level
// (eligible for parallel fan-out among themselves if each individually
// qualifies per §4.5). Every grouped system was already appended as its
// own solo level when it was declared; those solo entries are dropped so
// each system's body, adds/removes, and events fire exactly once per tick
// instead of once standalone and again as part of this level.
func (sr *systemRegistry) DeclareLevel(systems ...*SystemDescriptor) {
	ids := make([]SystemId, len(systems))
	grouped := make(map[SystemId]bool, len(systems))
	for i, d := range systems {
		ids[i] = d.Id
		grouped[d.Id] = true
	}

	filteredOrder := sr.order[:0]
	for _, lvl := range sr.order {
		filtered := lvl.systems[:0]
		for _, id := range lvl.systems {
			if !grouped[id] {
				filtered = append(filtered, id)
			}
		}
		if len(filtered) > 0 {
			filteredOrder = append(filteredOrder, executionLevel{systems: filtered})
		}
	}
	sr.order = append(filteredOrder, executionLevel{systems: ids})
}

// AddChild attaches child as a nested system of parent.
func (sr *systemRegistry) AddChild(parent, child SystemId) {
	p := sr.byId[parent]
	c := sr.byId[child]
	if p == nil || c == nil {
		return
	}
	c.ParentId = parent
	p.Children = append(p.Children, child)

	// A child runs as part of its parent's walk, not as its own top-level
	// execution-order entry; drop any level entry that was created for it
	// when it was first declared standalone.
	for i, lvl := range sr.order {
		filtered := lvl.systems[:0]
		for _, id := range lvl.systems {
			if id != child {
				filtered = append(filtered, id)
			}
		}
		sr.order[i].systems = filtered
	}
}

func (sr *systemRegistry) Get(id SystemId) (*SystemDescriptor, bool) {
	d, ok := sr.byId[id]
	return d, ok
}
