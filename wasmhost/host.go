package wasmhost

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/lzuwei/ecsrt/ecs"
)

// ModuleSource is one untrusted system body to load: its bytecode, the
// export the host should bind as that system's entry point, and the
// system id it will run under.
type ModuleSource struct {
	System     ecs.SystemId
	Name       string
	Code       []byte
	ExportName string
}

// TrapHandler observes a guest trap, keyed by the system that was
// running when it happened (§4.7).
type TrapHandler func(system ecs.SystemId, trapMessage string)

// Host loads and runs untrusted system bodies. Each loaded system gets
// its own wazero runtime and module instance, so guest code never shares
// linear memory with another system's guest code (§4.7).
type Host struct {
	ctx context.Context

	mu           sync.Mutex
	systems      map[ecs.SystemId]*loadedSystem
	codecs       map[ecs.ComponentId]Codec
	actionCodecs map[ecs.SystemId]Codec

	handles *handleTable
	onTrap  TrapHandler
}

type loadedSystem struct {
	runtime wazero.Runtime
	host    api.Module
	guest   api.Module
	entry   api.Function
}

// NewHost creates an empty host. ctx bounds every runtime and guest
// invocation's lifetime.
func NewHost(ctx context.Context) *Host {
	return &Host{
		ctx:          ctx,
		systems:      make(map[ecs.SystemId]*loadedSystem),
		codecs:       make(map[ecs.ComponentId]Codec),
		actionCodecs: make(map[ecs.SystemId]Codec),
		handles:      newHandleTable(),
	}
}

// OnTrap registers the handler invoked when a guest call traps.
func (h *Host) OnTrap(fn TrapHandler) { h.onTrap = fn }

// LoadBatch installs every source atomically (§4.7's load contract):
// either every (system, export) pair resolves and is installed, or the
// batch has no effect at all. Each source's import set is checked
// against the whitelist before the module is ever instantiated.
func (h *Host) LoadBatch(sources []ModuleSource) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	staged := make(map[ecs.SystemId]*loadedSystem, len(sources))
	for _, src := range sources {
		ls, err := h.instantiate(src)
		if err != nil {
			for _, s := range staged {
				_ = s.runtime.Close(h.ctx)
			}
			return fmt.Errorf("wasmhost: loading system %s export %q: %w", src.System, src.ExportName, err)
		}
		staged[src.System] = ls
	}

	for sid, ls := range staged {
		if existing, ok := h.systems[sid]; ok {
			_ = existing.runtime.Close(h.ctx)
		}
		h.systems[sid] = ls
	}
	return nil
}

func (h *Host) instantiate(src ModuleSource) (*loadedSystem, error) {
	runtime := wazero.NewRuntime(h.ctx)

	hostMod, err := instantiateHostModule(h.ctx, runtime, h)
	if err != nil {
		runtime.Close(h.ctx)
		return nil, &LoadError{Code: InstantiateFail, Err: fmt.Errorf("%w: %v", ErrImportWhitelist, err)}
	}

	compiled, err := runtime.CompileModule(h.ctx, src.Code)
	if err != nil {
		runtime.Close(h.ctx)
		return nil, &LoadError{Code: CompileFail, Err: fmt.Errorf("%w: %v", ErrInvalidModule, err)}
	}

	for _, imp := range compiled.ImportedFunctions() {
		moduleName, name, _ := imp.Import()
		if !isWhitelisted(moduleName, name) {
			compiled.Close(h.ctx)
			runtime.Close(h.ctx)
			return nil, &LoadError{Code: GuestImportUnknown, Err: fmt.Errorf("%w: import %s.%s", ErrImportWhitelist, moduleName, name)}
		}
		if !importArityMatches(name, imp) {
			compiled.Close(h.ctx)
			runtime.Close(h.ctx)
			return nil, &LoadError{Code: GuestImportInvalid, Err: fmt.Errorf("%w: import %s.%s has an unexpected signature", ErrImportWhitelist, moduleName, name)}
		}
	}

	guest, err := runtime.InstantiateModule(h.ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		runtime.Close(h.ctx)
		return nil, &LoadError{Code: InstantiateFail, Err: fmt.Errorf("%w: %v", ErrInstantiate, err)}
	}

	fn := guest.ExportedFunction(src.ExportName)
	if fn == nil {
		runtime.Close(h.ctx)
		return nil, &LoadError{Code: ExportNotFound, Err: fmt.Errorf("%w: export %q", ErrExportMissing, src.ExportName)}
	}

	return &loadedSystem{runtime: runtime, host: hostMod, guest: guest, entry: fn}, nil
}

// LoadFile reads bytecode from path and loads it as a single module
// source, mirroring spec.md §6's wasm_load_file(path, ...) alongside
// LoadBatch's in-memory wasm_load. A failure to open or read the file is
// reported as a LoadError with FileOpenFail or FileReadFail respectively,
// without ever touching the registered systems.
func (h *Host) LoadFile(path string, system ecs.SystemId, exportName string) error {
	f, err := os.Open(path)
	if err != nil {
		return &LoadError{Code: FileOpenFail, Err: fmt.Errorf("wasmhost: opening %s: %w", path, err)}
	}
	defer f.Close()

	code, err := io.ReadAll(f)
	if err != nil {
		return &LoadError{Code: FileReadFail, Err: fmt.Errorf("wasmhost: reading %s: %w", path, err)}
	}

	return h.LoadBatch([]ModuleSource{
		{System: system, Name: filepath.Base(path), Code: code, ExportName: exportName},
	})
}

// Body returns a native ecs.SystemBody bridging one scheduler invocation
// into the loaded guest's exported entry point. The host binds ctx to a
// fresh handle for the call's duration and releases it afterward (§4.7).
// A trap is delivered to the OnTrap handler and the body then returns nil,
// so the scheduler goes on with the next entity; with no handler
// registered the trap is returned as a *TrapError.
func (h *Host) Body(sid ecs.SystemId) ecs.SystemBody {
	return func(ctx *ecs.ExecutionContext) (err error) {
		h.mu.Lock()
		ls, ok := h.systems[sid]
		h.mu.Unlock()
		if !ok {
			return fmt.Errorf("wasmhost: no module loaded for system %s", sid)
		}

		handle := h.handles.bind(ctx)
		defer h.handles.release(handle)

		defer func() {
			if r := recover(); r != nil {
				msg := fmt.Sprintf("%v", r)
				if h.onTrap != nil {
					h.onTrap(sid, msg)
					err = nil
					return
				}
				err = &TrapError{System: sid.String(), Message: msg}
			}
		}()

		if _, callErr := ls.entry.Call(h.ctx, uint64(uint32(handle))); callErr != nil {
			if h.onTrap != nil {
				h.onTrap(sid, callErr.Error())
				return nil
			}
			return &TrapError{System: sid.String(), Message: callErr.Error()}
		}
		return nil
	}
}

// Close releases every loaded module's runtime.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var firstErr error
	for _, ls := range h.systems {
		if err := ls.runtime.Close(h.ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	h.systems = make(map[ecs.SystemId]*loadedSystem)
	return firstErr
}
