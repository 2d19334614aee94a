package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mocktesting "github.com/scigolib/mdf4/internal/testing"
	"github.com/scigolib/mdf4/internal/utils"
)

// buildBlock assembles a raw block: 24-byte header, link array, payload,
// padded to 8-byte alignment.
func buildBlock(id string, links []uint64, payload []byte) []byte {
	total := HeaderSize + 8*len(links) + len(payload)
	padded := PadLen(total)
	buf := make([]byte, padded)
	copy(buf[0:4], id)
	putUint64LE(buf[8:16], uint64(total))
	putUint64LE(buf[16:24], uint64(len(links)))
	for i, l := range links {
		putUint64LE(buf[24+i*8:24+i*8+8], l)
	}
	copy(buf[24+8*len(links):], payload)
	return buf
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func TestReadHeader(t *testing.T) {
	t.Run("valid header", func(t *testing.T) {
		data := buildBlock(IDTX, nil, []byte("hello\x00"))
		r := bytes.NewReader(data)

		h, err := ReadHeader(r, 0)
		require.NoError(t, err)
		assert.Equal(t, IDTX, h.ID)
		assert.Equal(t, uint64(0), h.LinkCount)
	})

	t.Run("unknown block id", func(t *testing.T) {
		data := buildBlock("####", nil, nil)
		r := bytes.NewReader(data)

		_, err := ReadHeader(r, 0)
		assert.ErrorIs(t, err, utils.ErrBlockID)
	})

	t.Run("truncated read", func(t *testing.T) {
		r := mocktesting.NewMockReaderAt([]byte{1, 2, 3})
		_, err := ReadHeader(r, 0)
		assert.Error(t, err)
	})
}

func TestReadLinksAndPayload(t *testing.T) {
	links := []uint64{100, 200, 0}
	payload := []byte("unit\x00")
	data := buildBlock(IDCN, links, payload)
	r := bytes.NewReader(data)

	h, err := ReadHeader(r, 0)
	require.NoError(t, err)

	gotLinks, err := ReadLinks(r, h)
	require.NoError(t, err)
	assert.Equal(t, links, gotLinks)

	gotPayload, err := ReadPayload(r, h)
	require.NoError(t, err)
	assert.Equal(t, payload, gotPayload[:len(payload)])
}

func TestExpectID(t *testing.T) {
	data := buildBlock(IDDG, []uint64{0, 0, 0, 0}, []byte{0})
	r := bytes.NewReader(data)

	t.Run("matches", func(t *testing.T) {
		_, _, _, err := ExpectID(r, 0, IDDG)
		require.NoError(t, err)
	})

	t.Run("mismatch", func(t *testing.T) {
		_, _, _, err := ExpectID(r, 0, IDCG)
		assert.Error(t, err)
	})
}

func TestPadLen(t *testing.T) {
	cases := map[int]int{0: 0, 1: 8, 7: 8, 8: 8, 9: 16, 24: 24, 25: 32}
	for in, want := range cases {
		assert.Equal(t, want, PadLen(in), "PadLen(%d)", in)
	}
}
