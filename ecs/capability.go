package ecs

// Capability is a system's declared permission with respect to one
// component type, as a bitmask so the filter-only and mutation flags can
// combine with the read/write ones (e.g. `Readonly|Optional`).
type Capability uint16

const (
	// Readonly grants get() but not update().
	Readonly Capability = 1 << iota
	// Writeonly grants update() but not get().
	Writeonly
	// Readwrite grants both get() and update().
	Readwrite
	// Optional relaxes Readonly/Writeonly/Readwrite so the component need
	// not be present; the view's include filter ignores it, and has()
	// must be checked before get()/update().
	Optional
	// Include requires the component's presence for view membership
	// without granting any accessor.
	Include
	// Exclude requires the component's absence for view membership.
	Exclude
	// Adds grants add(); implies Exclude (a system cannot add what the
	// view already guarantees is present).
	Adds
	// Removes grants remove(); implies Include (a system cannot remove
	// what the view does not guarantee is present).
	Removes
)

// Has reports whether the capability set includes flag.
func (c Capability) Has(flag Capability) bool { return c&flag != 0 }

// IsOptional reports whether the Optional modifier is set.
func (c Capability) IsOptional() bool { return c.Has(Optional) }

// Readable reports whether this capability grants get().
func (c Capability) Readable() bool { return c.Has(Readonly) || c.Has(Readwrite) }

// Writable reports whether this capability grants update().
func (c Capability) Writable() bool { return c.Has(Writeonly) || c.Has(Readwrite) }

// normalized applies the implied-capability rules from §3: Adds implies
// Exclude, Removes implies Include.
func (c Capability) normalized() Capability {
	if c.Has(Adds) {
		c |= Exclude
	}
	if c.Has(Removes) {
		c |= Include
	}
	return c
}

// participatesInInclude reports whether this capability requires the
// component's presence for the view's include filter. Optional*
// capabilities do not participate (§4.3).
func (c Capability) participatesInInclude() bool {
	n := c.normalized()
	if n.Has(Optional) {
		return false
	}
	return n.Readable() || n.Writable() || n.Has(Include)
}

// participatesInExclude reports whether this capability requires the
// component's absence for the view's include filter.
func (c Capability) participatesInExclude() bool {
	return c.normalized().Has(Exclude)
}
