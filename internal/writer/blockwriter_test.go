package writer

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/mdf4/internal/core"
)

func newTempFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "blockwriter-*.mf4")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestReserveWritesHeaderAndAllocatesPadded(t *testing.T) {
	f := newTempFile(t)
	bw := NewBlockWriter(f, 64)

	offset, err := bw.Reserve(core.IDTX, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(64), offset)

	buf := make([]byte, core.HeaderSize)
	_, err = f.ReadAt(buf, int64(offset))
	require.NoError(t, err)
	assert.Equal(t, core.IDTX, string(buf[0:4]))

	// Next reserve should start after the padded block, not at the raw
	// unpadded total (24 header + 0 links + 5 payload = 29, padded 32).
	next, err := bw.Reserve(core.IDTX, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, offset+32, next)
}

func TestWritePayloadAndPatchLink(t *testing.T) {
	f := newTempFile(t)
	bw := NewBlockWriter(f, 0)

	offset, err := bw.Reserve(core.IDDG, 4, 1)
	require.NoError(t, err)

	require.NoError(t, bw.WritePayload(offset+core.HeaderSize+4*8, []byte{4}))
	require.NoError(t, bw.PatchLink(offset+core.HeaderSize, 9999))

	buf := make([]byte, 1)
	_, err = f.ReadAt(buf, int64(offset+core.HeaderSize+4*8))
	require.NoError(t, err)
	assert.Equal(t, byte(4), buf[0])

	dg, err := core.ParseDG(f, offset)
	require.NoError(t, err)
	assert.Equal(t, uint64(9999), dg.NextDGLink)
	assert.Equal(t, uint8(4), dg.RecordIDLen)
}

func TestDeferLinkResolvedByResolvePatches(t *testing.T) {
	f := newTempFile(t)
	bw := NewBlockWriter(f, 0)

	offset, err := bw.Reserve(core.IDDG, 4, 1)
	require.NoError(t, err)

	var target uint64
	bw.DeferLink(offset+core.HeaderSize, &target)

	target = 12345
	require.NoError(t, bw.ResolvePatches())

	dg, err := core.ParseDG(f, offset)
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), dg.NextDGLink)
}

func TestValidateLayoutAcceptsSequentialAllocations(t *testing.T) {
	f := newTempFile(t)
	bw := NewBlockWriter(f, 64)

	_, err := bw.Reserve(core.IDTX, 0, 5)
	require.NoError(t, err)
	_, err = bw.Reserve(core.IDDG, 4, 1)
	require.NoError(t, err)

	assert.NoError(t, bw.ValidateLayout())
}

func TestEndOfFileTracksTotalAllocatedSize(t *testing.T) {
	f := newTempFile(t)
	bw := NewBlockWriter(f, 64)
	assert.Equal(t, uint64(64), bw.EndOfFile())

	_, err := bw.Reserve(core.IDTX, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(64)+32, bw.EndOfFile())
}
