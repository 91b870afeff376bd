package wasmhost

import (
	"context"
	"encoding/binary"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/lzuwei/ecsrt/ecs"
)

const hostModuleName = "ecsact"

// whitelist enumerates every import a guest module may declare, mirroring
// the §4.4 execution-context operations (§4.7's "guest imports are
// restricted to a whitelist"). Anything else fails LoadBatch.
var whitelist = map[string]bool{
	"get":      true,
	"has":      true,
	"update":   true,
	"add":      true,
	"remove":   true,
	"generate": true,
	"parent":   true,
	"same":     true,
	"action":   true,
}

func isWhitelisted(moduleName, funcName string) bool {
	return moduleName == hostModuleName && whitelist[funcName]
}

// expectedImportArity maps each whitelisted import to its (param count,
// result count) as the host function builder actually exposes it to the
// guest (the leading context.Context/api.Module parameters of the Go
// function are wazero's own injected parameters, not part of the wasm
// signature).
var expectedImportArity = map[string][2]int{
	"get":      {4, 1},
	"has":      {2, 1},
	"update":   {4, 1},
	"add":      {4, 1},
	"remove":   {2, 1},
	"generate": {3, 1},
	"parent":   {1, 1},
	"same":     {2, 1},
	"action":   {3, 1},
}

// importArityMatches reports whether a guest-declared import's parameter
// and result counts match the host function it would bind to. A
// whitelisted name imported with the wrong signature (§4.7: "or with a
// signature the host does not recognize") is rejected at load time instead
// of trapping on its first mismatched call.
func importArityMatches(name string, def api.FunctionDefinition) bool {
	want, ok := expectedImportArity[name]
	if !ok {
		return false
	}
	return len(def.ParamTypes()) == want[0] && len(def.ResultTypes()) == want[1]
}

// statusOK/statusErr/statusNotFound are the i32 result codes the get,
// update, add, remove and action shims return (has and same return 1/0,
// parent a handle, generate an entity id or statusErr), so guest code can branch without
// the host ever needing to trap a well-formed failure (e.g. "component
// not present" on an Optional capability).
const (
	statusOK       int32 = 0
	statusErr      int32 = -1
	statusNotFound int32 = -2
)

// instantiateHostModule registers the "ecsact" host module whose
// functions bridge guest calls into h's handle table and the bound
// ExecutionContext's capability-checked accessors.
func instantiateHostModule(ctx context.Context, runtime wazero.Runtime, h *Host) (api.Module, error) {
	builder := runtime.NewHostModuleBuilder(hostModuleName)

	builder.NewFunctionBuilder().
		WithFunc(h.guestGet).
		Export("get")
	builder.NewFunctionBuilder().
		WithFunc(h.guestHas).
		Export("has")
	builder.NewFunctionBuilder().
		WithFunc(h.guestUpdate).
		Export("update")
	builder.NewFunctionBuilder().
		WithFunc(h.guestAdd).
		Export("add")
	builder.NewFunctionBuilder().
		WithFunc(h.guestRemove).
		Export("remove")
	builder.NewFunctionBuilder().
		WithFunc(h.guestGenerate).
		Export("generate")
	builder.NewFunctionBuilder().
		WithFunc(h.guestParent).
		Export("parent")
	builder.NewFunctionBuilder().
		WithFunc(h.guestSame).
		Export("same")
	builder.NewFunctionBuilder().
		WithFunc(h.guestAction).
		Export("action")

	return builder.Instantiate(ctx)
}

func guestMemory(mod api.Module, ptr, length int32) ([]byte, bool) {
	if length == 0 {
		return nil, true
	}
	return mod.Memory().Read(uint32(ptr), uint32(length))
}

func (h *Host) guestGet(ctx context.Context, mod api.Module, handle, componentID, outPtr, outLen int32) int32 {
	execCtx, ok := h.handles.resolve(handle)
	if !ok {
		return statusErr
	}
	codec, ok := h.codecFor(ecs.ComponentId(componentID))
	if !ok {
		return statusErr
	}
	v, err := execCtx.GetByID(ecs.ComponentId(componentID))
	if err != nil {
		if err == ecs.ErrUnknownComponent {
			return statusNotFound
		}
		return statusErr
	}
	encoded := codec.Encode(v)
	if int32(len(encoded)) > outLen {
		return statusErr
	}
	if !mod.Memory().Write(uint32(outPtr), encoded) {
		return statusErr
	}
	return statusOK
}

func (h *Host) guestHas(ctx context.Context, mod api.Module, handle, componentID int32) int32 {
	execCtx, ok := h.handles.resolve(handle)
	if !ok {
		return statusErr
	}
	if execCtx.HasByID(ecs.ComponentId(componentID)) {
		return 1
	}
	return 0
}

func (h *Host) guestUpdate(ctx context.Context, mod api.Module, handle, componentID, inPtr, inLen int32) int32 {
	execCtx, ok := h.handles.resolve(handle)
	if !ok {
		return statusErr
	}
	codec, ok := h.codecFor(ecs.ComponentId(componentID))
	if !ok {
		return statusErr
	}
	raw, ok := guestMemory(mod, inPtr, inLen)
	if !ok {
		return statusErr
	}
	v, err := codec.Decode(raw)
	if err != nil {
		return statusErr
	}
	if err := execCtx.UpdateByID(ecs.ComponentId(componentID), v); err != nil {
		return statusErr
	}
	return statusOK
}

func (h *Host) guestAdd(ctx context.Context, mod api.Module, handle, componentID, inPtr, inLen int32) int32 {
	execCtx, ok := h.handles.resolve(handle)
	if !ok {
		return statusErr
	}
	codec, ok := h.codecFor(ecs.ComponentId(componentID))
	if !ok {
		return statusErr
	}
	raw, ok := guestMemory(mod, inPtr, inLen)
	if !ok {
		return statusErr
	}
	v, err := codec.Decode(raw)
	if err != nil {
		return statusErr
	}
	if err := execCtx.AddByID(ecs.ComponentId(componentID), v); err != nil {
		return statusErr
	}
	return statusOK
}

func (h *Host) guestRemove(ctx context.Context, mod api.Module, handle, componentID int32) int32 {
	execCtx, ok := h.handles.resolve(handle)
	if !ok {
		return statusErr
	}
	if err := execCtx.RemoveByID(ecs.ComponentId(componentID)); err != nil {
		return statusErr
	}
	return statusOK
}

// guestGenerate parses a guest buffer encoding a sequence of
// (componentId u32, dataLen u32, data bytes) records and stages a new
// entity carrying all of them, per §4.4's generate(ids, datas).
func (h *Host) guestGenerate(ctx context.Context, mod api.Module, handle, bufPtr, bufLen int32) int64 {
	execCtx, ok := h.handles.resolve(handle)
	if !ok {
		return int64(statusErr)
	}
	raw, ok := guestMemory(mod, bufPtr, bufLen)
	if !ok {
		return int64(statusErr)
	}

	var ids []ecs.ComponentId
	var values []any
	for len(raw) > 0 {
		if len(raw) < 8 {
			return int64(statusErr)
		}
		cid := ecs.ComponentId(binary.LittleEndian.Uint32(raw[0:4]))
		dataLen := binary.LittleEndian.Uint32(raw[4:8])
		raw = raw[8:]
		if uint32(len(raw)) < dataLen {
			return int64(statusErr)
		}
		codec, ok := h.codecFor(cid)
		if !ok {
			return int64(statusErr)
		}
		v, err := codec.Decode(raw[:dataLen])
		if err != nil {
			return int64(statusErr)
		}
		ids = append(ids, cid)
		values = append(values, v)
		raw = raw[dataLen:]
	}

	entity, err := execCtx.GenerateByID(ids, values)
	if err != nil {
		return int64(statusErr)
	}
	return int64(entity)
}

func (h *Host) guestParent(ctx context.Context, mod api.Module, handle int32) int32 {
	execCtx, ok := h.handles.resolve(handle)
	if !ok {
		return 0
	}
	parent := execCtx.Parent()
	if parent == nil {
		return 0
	}
	return h.handles.bind(parent)
}

func (h *Host) guestSame(ctx context.Context, mod api.Module, handleA, handleB int32) int32 {
	a, ok := h.handles.resolve(handleA)
	if !ok {
		return 0
	}
	b, ok := h.handles.resolve(handleB)
	if !ok {
		return 0
	}
	if a.System() == b.System() && a.Entity() == b.Entity() {
		return 1
	}
	return 0
}

func (h *Host) guestAction(ctx context.Context, mod api.Module, handle, outPtr, outLen int32) int32 {
	execCtx, ok := h.handles.resolve(handle)
	if !ok {
		return statusErr
	}
	payload, isAction := execCtx.Action()
	if !isAction {
		return statusNotFound
	}
	codec, ok := h.actionCodecFor(execCtx.System())
	if !ok {
		return statusErr
	}
	encoded := codec.Encode(payload)
	if int32(len(encoded)) > outLen {
		return statusErr
	}
	if !mod.Memory().Write(uint32(outPtr), encoded) {
		return statusErr
	}
	return statusOK
}
