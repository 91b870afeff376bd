package ecs

// SparseSet is the foundation of every per-component storage in the
// registry: a sparse array of slot indices paired with a densely packed
// array of the entities actually present, giving O(1) insert, remove, and
// membership with cache-friendly iteration order (insertion order, unless
// an explicit Sort pass reorders it).
type SparseSet struct {
	sparse []int32    // entity id -> dense slot, or -1 if absent
	dense  []EntityId // packed array of member entity ids
	size   int
}

// NewSparseSet creates an empty sparse set.
func NewSparseSet() *SparseSet {
	return &SparseSet{
		sparse: make([]int32, 0),
		dense:  make([]EntityId, 0),
	}
}

func (ss *SparseSet) ensureCapacity(entity EntityId) {
	needed := int(entity) + 1
	if len(ss.sparse) >= needed {
		return
	}
	oldLen := len(ss.sparse)
	grown := make([]int32, needed)
	copy(grown, ss.sparse)
	for i := oldLen; i < needed; i++ {
		grown[i] = -1
	}
	ss.sparse = grown
}

// Contains reports whether entity is a member of the set.
func (ss *SparseSet) Contains(entity EntityId) bool {
	if !entity.IsValid() || int(entity) >= len(ss.sparse) {
		return false
	}
	slot := ss.sparse[entity]
	return slot >= 0 && int(slot) < ss.size
}

// Insert adds entity to the set. It reports whether the entity was newly
// inserted (false if it was already a member).
func (ss *SparseSet) Insert(entity EntityId) bool {
	if !entity.IsValid() {
		return false
	}
	ss.ensureCapacity(entity)
	if ss.Contains(entity) {
		return false
	}

	ss.sparse[entity] = int32(ss.size)
	if len(ss.dense) <= ss.size {
		ss.dense = append(ss.dense, entity)
	} else {
		ss.dense[ss.size] = entity
	}
	ss.size++
	return true
}

// Remove drops entity from the set via swap-and-pop. It reports whether
// the entity had been a member.
func (ss *SparseSet) Remove(entity EntityId) bool {
	if !ss.Contains(entity) {
		return false
	}

	slot := ss.sparse[entity]
	last := int32(ss.size - 1)
	if slot != last {
		lastEntity := ss.dense[last]
		ss.dense[slot] = lastEntity
		ss.sparse[lastEntity] = slot
	}
	ss.sparse[entity] = -1
	ss.size--
	return true
}

// Size returns the number of members.
func (ss *SparseSet) Size() int { return ss.size }

// Empty reports whether the set has no members.
func (ss *SparseSet) Empty() bool { return ss.size == 0 }

// Clear removes every member without shrinking backing storage.
func (ss *SparseSet) Clear() {
	for i := range ss.sparse {
		ss.sparse[i] = -1
	}
	ss.size = 0
}

// Data returns the packed array of members in iteration order. Callers must
// not retain the slice across a mutation of the set.
func (ss *SparseSet) Data() []EntityId { return ss.dense[:ss.size] }

// At returns the entity at the given dense slot, or InvalidEntityId if out
// of range.
func (ss *SparseSet) At(index int) EntityId {
	if index < 0 || index >= ss.size {
		return InvalidEntityId
	}
	return ss.dense[index]
}

// IndexOf returns the dense slot of entity, or -1 if it is not a member.
func (ss *SparseSet) IndexOf(entity EntityId) int {
	if !ss.Contains(entity) {
		return -1
	}
	return int(ss.sparse[entity])
}

// ForEach visits every member in iteration order.
func (ss *SparseSet) ForEach(fn func(EntityId)) {
	for i := 0; i < ss.size; i++ {
		fn(ss.dense[i])
	}
}

// Swap exchanges the dense-array positions of two members, fixing up the
// sparse array to match. Out-of-range indices are ignored.
func (ss *SparseSet) Swap(i, j int) {
	if i < 0 || i >= ss.size || j < 0 || j >= ss.size {
		return
	}
	a, b := ss.dense[i], ss.dense[j]
	ss.dense[i], ss.dense[j] = b, a
	ss.sparse[a] = int32(j)
	ss.sparse[b] = int32(i)
}

// Sort reorders the packed array in place by the given less comparator.
// The scheduler's cascade-determinism pass does not call it; that pass
// sorts through Storage.Sort.
func (ss *SparseSet) Sort(less func(a, b EntityId) bool) {
	// Insertion sort, which keeps the swap/sparse bookkeeping in one place
	// via Swap.
	for i := 1; i < ss.size; i++ {
		for j := i; j > 0 && less(ss.dense[j], ss.dense[j-1]); j-- {
			ss.Swap(j, j-1)
		}
	}
}
