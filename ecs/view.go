package ecs

// buildView realizes §4.3: it produces the filtered entity list a system
// observes, honoring the include/exclude rules derived from the system's
// normalized capability table. Optional* capabilities never participate in
// the filter; Adds implies Exclude and Removes implies Include are already
// baked into each Capability by normalized().
func buildView(reg *Registry, sys *SystemDescriptor) []EntityId {
	var includeIds, excludeIds []ComponentId
	for cid, capa := range sys.Capabilities {
		if capa.participatesInInclude() {
			includeIds = append(includeIds, cid)
		}
		if capa.participatesInExclude() {
			excludeIds = append(excludeIds, cid)
		}
	}

	if len(includeIds) == 0 {
		// No inclusion criteria: the system runs over no entities, per the
		// teacher's Query.Build precedent for an empty include set.
		return nil
	}

	candidates := smallestCandidateSet(reg, includeIds)
	if candidates == nil {
		return nil
	}

	result := make([]EntityId, 0, len(candidates))
	for _, e := range candidates {
		if entityMatchesView(reg, e, includeIds, excludeIds) {
			result = append(result, e)
		}
	}
	return result
}

// smallestCandidateSet starts iteration from the include component with the
// fewest live entities, minimizing filter work (the view's iteration order
// is this storage's own insertion order, per §4.3's tie-break rule, unless
// a sort pass has reordered it).
func smallestCandidateSet(reg *Registry, includeIds []ComponentId) []EntityId {
	smallestSize := -1
	var smallest *SparseSet
	for _, id := range includeIds {
		slot, ok := reg.components.slotById(id)
		if !ok {
			return nil
		}
		set := slot.entitiesSet()
		if smallestSize < 0 || set.Size() < smallestSize {
			smallestSize = set.Size()
			smallest = set
		}
	}
	if smallest == nil {
		return nil
	}
	return smallest.Data()
}

func entityMatchesView(reg *Registry, e EntityId, includeIds, excludeIds []ComponentId) bool {
	for _, id := range includeIds {
		slot, ok := reg.components.slotById(id)
		if !ok || !slot.containsEntity(e) {
			return false
		}
	}
	for _, id := range excludeIds {
		if slot, ok := reg.components.slotById(id); ok && slot.containsEntity(e) {
			return false
		}
	}
	return true
}
