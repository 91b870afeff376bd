package wasmhost

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lzuwei/ecsrt/ecs"
)

type probeTag struct{}

// captureContext runs one empty tick and hands back the *ecs.ExecutionContext
// a system body was invoked with, so handle-table tests exercise a real
// context rather than a hand-rolled stand-in.
func captureContext(t *testing.T) *ecs.ExecutionContext {
	t.Helper()
	r := ecs.NewRegistry()
	tagId := ecs.RegisterComponent[probeTag](r)
	e := r.CreateEntity()
	require.NoError(t, ecs.AddComponent(r, e, probeTag{}))

	var captured *ecs.ExecutionContext
	r.DeclareSystem("capture", ecs.SystemUser, map[ecs.ComponentId]ecs.Capability{
		tagId: ecs.Readonly,
	}, func(ctx *ecs.ExecutionContext) error {
		captured = ctx
		return nil
	})
	require.NoError(t, r.ExecuteSystems(ecs.ExecutionOptions{}))
	require.NotNil(t, captured)
	return captured
}

func TestHandleTableBindResolveRelease(t *testing.T) {
	ht := newHandleTable()
	ctx := captureContext(t)

	h := ht.bind(ctx)
	require.NotEqual(t, int32(0), h, "handle 0 is reserved for null")

	got, ok := ht.resolve(h)
	require.True(t, ok)
	require.Same(t, ctx, got)

	ht.release(h)
	_, ok = ht.resolve(h)
	require.False(t, ok)
}

func TestHandleTableNeverIssuesZero(t *testing.T) {
	ht := newHandleTable()
	ctx := captureContext(t)
	for i := 0; i < 5; i++ {
		h := ht.bind(ctx)
		require.NotEqual(t, int32(0), h)
	}
}

func TestHandleTableResolveZeroIsAlwaysNull(t *testing.T) {
	ht := newHandleTable()
	_, ok := ht.resolve(0)
	require.False(t, ok)
}

func TestHandleTableDistinctHandlesPerBind(t *testing.T) {
	ht := newHandleTable()
	ctx := captureContext(t)
	a := ht.bind(ctx)
	b := ht.bind(ctx)
	require.NotEqual(t, a, b, "each bind call issues a fresh handle even for the same context")
}
