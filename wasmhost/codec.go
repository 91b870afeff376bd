package wasmhost

import "github.com/lzuwei/ecsrt/ecs"

// Codec converts one component type to and from the flat byte
// representation that crosses the guest/host boundary as an offset into
// guest linear memory (§4.7's "component_data in/out" pointer kind).
// Guest code has no notion of Go's type system, so every component a
// WASM system body touches needs one of these registered up front.
type Codec struct {
	Encode func(v any) []byte
	Decode func(b []byte) (any, error)
}

// RegisterCodec attaches the wire codec for a component type, keyed by
// its runtime ComponentId.
func (h *Host) RegisterCodec(cid ecs.ComponentId, codec Codec) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.codecs[cid] = codec
}

func (h *Host) codecFor(cid ecs.ComponentId) (Codec, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.codecs[cid]
	return c, ok
}

// RegisterActionCodec attaches the wire codec used to marshal an action
// system's payload out to a guest via action() (§4.4).
func (h *Host) RegisterActionCodec(sid ecs.SystemId, codec Codec) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actionCodecs[sid] = codec
}

func (h *Host) actionCodecFor(sid ecs.SystemId) (Codec, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.actionCodecs[sid]
	return c, ok
}
