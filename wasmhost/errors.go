package wasmhost

import (
	"errors"
	"fmt"
)

// ErrorCode is the typed load-result enum from spec.md §6, so a caller can
// branch on a stable value instead of string-matching an error message.
type ErrorCode int

const (
	OK ErrorCode = iota
	FileOpenFail
	FileReadFail
	CompileFail
	InstantiateFail
	ExportNotFound
	ExportInvalid
	GuestImportUnknown
	GuestImportInvalid
)

func (c ErrorCode) String() string {
	switch c {
	case OK:
		return "OK"
	case FileOpenFail:
		return "FILE_OPEN_FAIL"
	case FileReadFail:
		return "FILE_READ_FAIL"
	case CompileFail:
		return "COMPILE_FAIL"
	case InstantiateFail:
		return "INSTANTIATE_FAIL"
	case ExportNotFound:
		return "EXPORT_NOT_FOUND"
	case ExportInvalid:
		return "EXPORT_INVALID"
	case GuestImportUnknown:
		return "GUEST_IMPORT_UNKNOWN"
	case GuestImportInvalid:
		return "GUEST_IMPORT_INVALID"
	default:
		return "UNKNOWN"
	}
}

// LoadError reports a LoadFile/LoadBatch failure with its typed Code
// alongside the underlying cause, which Unwraps to the package's existing
// sentinel errors (ErrInvalidModule, ErrExportMissing, ...) so callers that
// already use errors.Is against those sentinels keep working unchanged.
type LoadError struct {
	Code ErrorCode
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("wasmhost: %s: %v", e.Code, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

var (
	// ErrInvalidModule means the guest bytecode failed to compile.
	ErrInvalidModule = errors.New("wasmhost: module failed to compile")
	// ErrImportWhitelist means the guest declares an import the host does
	// not expose, or with a signature the host does not recognize.
	ErrImportWhitelist = errors.New("wasmhost: import not in whitelist")
	// ErrInstantiate means the guest compiled but could not be
	// instantiated (e.g. a failing start function).
	ErrInstantiate = errors.New("wasmhost: module failed to instantiate")
	// ErrExportMissing means the requested entry-point export does not
	// exist or is not a function.
	ErrExportMissing = errors.New("wasmhost: required export missing or not a function")
	// ErrUnknownHandle means a guest passed an i32 handle the host has no
	// live binding for.
	ErrUnknownHandle = errors.New("wasmhost: handle not bound to a live object")
	// ErrUnknownComponent means a guest referenced a component id the
	// host has no registered wire codec for.
	ErrUnknownComponent = errors.New("wasmhost: component id has no registered wire codec")
	// ErrGuestMemory means a guest offset/length pair fell outside its
	// own linear memory.
	ErrGuestMemory = errors.New("wasmhost: guest memory access out of bounds")
)

// TrapError wraps the message captured from a guest trap, keyed by the
// system that was executing when it happened (§4.7).
type TrapError struct {
	System  string
	Message string
}

func (e *TrapError) Error() string {
	return "wasmhost: system " + e.System + " trapped: " + e.Message
}
