package wasmhost

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lzuwei/ecsrt/ecs"
)

func uint64Codec() Codec {
	return Codec{
		Encode: func(v any) []byte {
			buf := make([]byte, 8)
			binary.LittleEndian.PutUint64(buf, uint64(v.(uint64)))
			return buf
		},
		Decode: func(b []byte) (any, error) {
			if len(b) != 8 {
				return nil, errors.New("short buffer")
			}
			return binary.LittleEndian.Uint64(b), nil
		},
	}
}

func TestCodecForRoundTripsRegisteredCodec(t *testing.T) {
	h := NewHost(context.Background())
	cid := ecs.ComponentId(7)
	codec := uint64Codec()
	h.RegisterCodec(cid, codec)

	got, ok := h.codecFor(cid)
	require.True(t, ok)
	encoded := got.Encode(uint64(42))
	decoded, err := got.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, uint64(42), decoded)
}

func TestCodecForUnregisteredComponentNotFound(t *testing.T) {
	h := NewHost(context.Background())
	_, ok := h.codecFor(ecs.ComponentId(999))
	require.False(t, ok)
}

func TestActionCodecForReturnsRegisteredCodec(t *testing.T) {
	h := NewHost(context.Background())
	sid := ecs.SystemId(3)
	h.RegisterActionCodec(sid, uint64Codec())

	got, ok := h.actionCodecFor(sid)
	require.True(t, ok)
	require.NotNil(t, got.Encode)
	require.NotNil(t, got.Decode)
}
