package wasmhost

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lzuwei/ecsrt/ecs"
)

// minimalRunModule is a hand-assembled WASM module equivalent to:
//
//	(module (func (export "run") (param i32)))
//
// It declares no imports, so it instantiates cleanly under the "ecsact"
// host module regardless of the whitelist, and its body is empty: a
// system bound to it is a guest-hosted no-op.
var minimalRunModule = []byte{
	0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, // magic, version
	0x01, 0x05, 0x01, 0x60, 0x01, 0x7F, 0x00, // type section: (i32)->()
	0x03, 0x02, 0x01, 0x00, // function section: fn 0 has type 0
	0x07, 0x07, 0x01, 0x03, 0x72, 0x75, 0x6E, 0x00, 0x00, // export "run" func 0
	0x0A, 0x04, 0x01, 0x02, 0x00, 0x0B, // code section: empty body
}

// noExportModule is the same module with the export section dropped, so
// ExportName "run" cannot be resolved.
var noExportModule = []byte{
	0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x05, 0x01, 0x60, 0x01, 0x7F, 0x00,
	0x03, 0x02, 0x01, 0x00,
	0x0A, 0x04, 0x01, 0x02, 0x00, 0x0B,
}

func TestLoadBatchInstallsAValidModule(t *testing.T) {
	h := NewHost(context.Background())
	defer h.Close()

	err := h.LoadBatch([]ModuleSource{
		{System: ecs.SystemId(1), Name: "noop", Code: minimalRunModule, ExportName: "run"},
	})
	require.NoError(t, err)

	_, ok := h.systems[ecs.SystemId(1)]
	require.True(t, ok)
}

func TestLoadBatchRejectsInvalidBytecode(t *testing.T) {
	h := NewHost(context.Background())
	defer h.Close()

	err := h.LoadBatch([]ModuleSource{
		{System: ecs.SystemId(1), Name: "garbage", Code: []byte{0xDE, 0xAD, 0xBE, 0xEF}, ExportName: "run"},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidModule))
}

func TestLoadBatchRejectsMissingExport(t *testing.T) {
	h := NewHost(context.Background())
	defer h.Close()

	err := h.LoadBatch([]ModuleSource{
		{System: ecs.SystemId(1), Name: "no-export", Code: noExportModule, ExportName: "run"},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrExportMissing))
}

func TestLoadBatchIsAtomicAcrossTheWholeBatch(t *testing.T) {
	h := NewHost(context.Background())
	defer h.Close()

	err := h.LoadBatch([]ModuleSource{
		{System: ecs.SystemId(1), Name: "good", Code: minimalRunModule, ExportName: "run"},
		{System: ecs.SystemId(2), Name: "bad", Code: noExportModule, ExportName: "run"},
	})
	require.Error(t, err)

	_, ok := h.systems[ecs.SystemId(1)]
	require.False(t, ok, "a failing source in the batch must roll back every source, including ones that compiled fine")
	_, ok = h.systems[ecs.SystemId(2)]
	require.False(t, ok)
}

func TestBodyInvokesGuestEntryPointAsSystemBody(t *testing.T) {
	h := NewHost(context.Background())
	defer h.Close()

	sid := ecs.SystemId(9)
	require.NoError(t, h.LoadBatch([]ModuleSource{
		{System: sid, Name: "noop", Code: minimalRunModule, ExportName: "run"},
	}))

	r := ecs.NewRegistry()
	tagId := ecs.RegisterComponent[probeTag](r)
	e := r.CreateEntity()
	require.NoError(t, ecs.AddComponent(r, e, probeTag{}))

	r.DeclareSystem("guest-noop", ecs.SystemUser, map[ecs.ComponentId]ecs.Capability{
		tagId: ecs.Readonly,
	}, h.Body(sid))

	require.NoError(t, r.ExecuteSystems(ecs.ExecutionOptions{}))
}

func TestBodyReturnsErrorForUnloadedSystem(t *testing.T) {
	h := NewHost(context.Background())
	defer h.Close()

	body := h.Body(ecs.SystemId(404))
	err := body(nil)
	require.Error(t, err)
}

func TestLoadFileInstallsAValidModule(t *testing.T) {
	h := NewHost(context.Background())
	defer h.Close()

	path := filepath.Join(t.TempDir(), "noop.wasm")
	require.NoError(t, os.WriteFile(path, minimalRunModule, 0o600))

	err := h.LoadFile(path, ecs.SystemId(1), "run")
	require.NoError(t, err)

	_, ok := h.systems[ecs.SystemId(1)]
	require.True(t, ok)
}

func TestLoadFileMissingPathReturnsFileOpenFail(t *testing.T) {
	h := NewHost(context.Background())
	defer h.Close()

	err := h.LoadFile(filepath.Join(t.TempDir(), "missing.wasm"), ecs.SystemId(1), "run")
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	require.Equal(t, FileOpenFail, loadErr.Code)
}
