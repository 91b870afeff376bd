package wasmhost

import (
	"sync"

	"github.com/lzuwei/ecsrt/ecs"
)

// handleTable maps i32 handles to host execution contexts, one direction
// only: handle 0 is reserved for null, and every bind issues a fresh
// monotonic id, even for a context that is already bound. release removes
// that one id; there is no context-to-handle lookup.
type handleTable struct {
	mu   sync.Mutex
	next int32
	byID map[int32]*ecs.ExecutionContext
}

func newHandleTable() *handleTable {
	return &handleTable{next: 1, byID: make(map[int32]*ecs.ExecutionContext)}
}

func (t *handleTable) bind(ctx *ecs.ExecutionContext) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	t.byID[id] = ctx
	return id
}

func (t *handleTable) resolve(id int32) (*ecs.ExecutionContext, bool) {
	if id == 0 {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ctx, ok := t.byID[id]
	return ctx, ok
}

func (t *handleTable) release(id int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, id)
}
