package ecs

import "fmt"

// Debug toggles the fail-fast behavior §7 requires of programmer errors:
// when true, a programmer error (double-add, double-remove, update on a
// missing component, illegal capability use) panics immediately instead of
// only being returned to the caller. Builds that want the "ecsrt_debug"
// posture should set this during init.
var Debug = false

// ErrorKind classifies the error taxonomy from §7.
type ErrorKind int

const (
	// ErrKindProgrammer is a bug in a system body: double-add,
	// double-remove, update-missing, or illegal capability use.
	ErrKindProgrammer ErrorKind = iota
	// ErrKindRegistry is misuse of the registry API: unknown
	// registry/entity/component id.
	ErrKindRegistry
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindProgrammer:
		return "programmer"
	case ErrKindRegistry:
		return "registry"
	default:
		return "unknown"
	}
}

// ProgrammerError reports a system-body bug: double-add, double-remove,
// update on a missing component, or use of a capability the system didn't
// declare. §7 policy 1: diagnosed fail-fast (panic) when Debug is set;
// otherwise returned from the offending context call to the system body.
type ProgrammerError struct {
	System    SystemId
	Component ComponentId
	Entity    EntityId
	Message   string
}

func (e *ProgrammerError) Error() string {
	return fmt.Sprintf("programmer error: system=%s component=%s entity=%s: %s",
		e.System, e.Component, e.Entity, e.Message)
}

func newProgrammerError(sys SystemId, comp ComponentId, entity EntityId, msg string) error {
	err := &ProgrammerError{System: sys, Component: comp, Entity: entity, Message: msg}
	if Debug {
		panic(err)
	}
	return err
}

// RegistryError reports misuse of the registry API itself: an unknown
// registry, entity, or component id (§7 policy 2).
type RegistryError struct {
	Op      string
	Entity  EntityId
	Comp    ComponentId
	Wrapped error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry error: op=%s entity=%s component=%s: %v", e.Op, e.Entity, e.Comp, e.Wrapped)
}

func (e *RegistryError) Unwrap() error { return e.Wrapped }

var (
	// ErrUnknownEntity is returned when an operation targets an entity id
	// the registry has no record of.
	ErrUnknownEntity = fmt.Errorf("unknown entity")
	// ErrUnknownComponent is returned when an operation targets a
	// component type the registry has never registered, or an entity
	// that does not currently hold it.
	ErrUnknownComponent = fmt.Errorf("unknown or absent component")
	// ErrComponentAlreadyPresent is returned by AddComponent when the
	// entity already holds the component.
	ErrComponentAlreadyPresent = fmt.Errorf("component already present")
	// ErrParallelMutation is raised when a mutating context operation is
	// attempted from a parallel-eligible system's concurrent body (§5).
	ErrParallelMutation = fmt.Errorf("mutating operation not permitted during parallel execution")
	// ErrCapabilityNotDeclared names the undeclared-capability condition.
	// No ecs operation returns it: a context operation attempted without a
	// sufficient capability returns a *ProgrammerError instead.
	ErrCapabilityNotDeclared = fmt.Errorf("capability not declared for component")
)

func registryErr(op string, entity EntityId, comp ComponentId, wrapped error) error {
	return &RegistryError{Op: op, Entity: entity, Comp: comp, Wrapped: wrapped}
}
