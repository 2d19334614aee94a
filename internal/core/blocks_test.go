package core

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putFloat64LE(b []byte, v float64) {
	putUint64LE(b, math.Float64bits(v))
}

func TestReadText(t *testing.T) {
	t.Run("null offset is empty string", func(t *testing.T) {
		s, err := ReadText(bytes.NewReader(nil), 0)
		require.NoError(t, err)
		assert.Equal(t, "", s)
	})

	t.Run("TX block", func(t *testing.T) {
		prefix := make([]byte, 8) // padding so the TX isn't at offset 0 (a null link)
		data := append(prefix, buildBlock(IDTX, nil, []byte("Engine Speed\x00"))...)
		s, err := ReadText(bytes.NewReader(data), uint64(len(prefix)))
		require.NoError(t, err)
		assert.Equal(t, "Engine Speed", s)
	})

	t.Run("wrong block type", func(t *testing.T) {
		prefix := make([]byte, 8) // padding so the DG isn't at offset 0 (a null link)
		data := append(prefix, buildBlock(IDDG, []uint64{0, 0, 0, 0}, []byte{0})...)
		_, err := ReadText(bytes.NewReader(data), uint64(len(prefix)))
		assert.Error(t, err)
	})
}

func TestParseSI(t *testing.T) {
	payload := []byte{byte(SourceTypeBus), byte(BusTypeCAN), 0}
	data := buildBlock(IDSI, []uint64{10, 20, 30}, payload)

	si, err := ParseSI(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, SourceTypeBus, si.SourceType)
	assert.Equal(t, BusTypeCAN, si.BusType)
	assert.Equal(t, uint64(10), si.NameLink)
}

func TestParseDGAndWalkDGs(t *testing.T) {
	prefix := make([]byte, 8) // padding so the first DG isn't at offset 0 (a null link)
	dg2 := buildBlock(IDDG, []uint64{0, 0, 0, 0}, []byte{0})
	dg1Offset := uint64(len(prefix))
	dg2Offset := dg1Offset + uint64(len(dg2)) // dg1 has the same size as dg2
	dg1 := buildBlock(IDDG, []uint64{dg2Offset, 100, 200, 0}, []byte{4})

	var buf bytes.Buffer
	buf.Write(prefix)
	buf.Write(dg1)
	buf.Write(dg2)

	r := bytes.NewReader(buf.Bytes())

	dg, err := ParseDG(r, dg1Offset)
	require.NoError(t, err)
	assert.Equal(t, dg2Offset, dg.NextDGLink)
	assert.Equal(t, uint64(100), dg.FirstCGLink)
	assert.Equal(t, uint8(4), dg.RecordIDLen)

	var seen []uint64
	err = WalkDGs(r, dg1Offset, func(offset uint64, dg *DG) error {
		seen = append(seen, offset)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{dg1Offset, dg2Offset}, seen)
}

func TestParseDGRejectsInvalidRecordIDLen(t *testing.T) {
	data := buildBlock(IDDG, []uint64{0, 0, 0, 0}, []byte{3})
	_, err := ParseDG(bytes.NewReader(data), 0)
	assert.Error(t, err)
}

func TestParseCGAndCN(t *testing.T) {
	cnPayload := make([]byte, 16)
	cnPayload[0] = byte(ChannelTypeFixedLength)
	cnPayload[1] = byte(SyncTypeNone)
	cnPayload[2] = byte(DataTypeUnsignedLE)
	putUint32LE := func(b []byte, v uint32) {
		for i := 0; i < 4; i++ {
			b[i] = byte(v >> (8 * i))
		}
	}
	putUint32LE(cnPayload[4:8], 0)
	putUint32LE(cnPayload[8:12], 16)

	cn := buildBlock(IDCN, make([]uint64, 8), cnPayload)

	cgPayload := make([]byte, 30)
	putUint64LE(cgPayload[0:8], 0)
	putUint64LE(cgPayload[8:16], 5)
	cgPayload[18] = 1
	putUint32LE(cgPayload[20:24], 2)

	cgOffset := uint64(len(cn))
	cgLinks := []uint64{0, 0 /* FirstCN, patched below */, 0, 0, 0, 0}
	cgLinks[1] = 0 // CN is placed before CG in this buffer, at offset 0

	cg := buildBlock(IDCG, cgLinks, cgPayload)

	var buf bytes.Buffer
	buf.Write(cn)
	buf.Write(cg)
	r := bytes.NewReader(buf.Bytes())

	gotCN, err := ParseCN(r, 0)
	require.NoError(t, err)
	assert.Equal(t, DataTypeUnsignedLE, gotCN.DataType)
	assert.Equal(t, uint32(16), gotCN.BitCount)

	gotCG, err := ParseCG(r, cgOffset)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), gotCG.RecordCount)
	assert.Equal(t, uint32(2), gotCG.RecordBytes)
}

func TestParseCCLinear(t *testing.T) {
	payload := make([]byte, 8+2*8)
	payload[0] = byte(ConversionLinear)
	payload[6] = 2 // val count low byte
	putFloat64LE(payload[8:16], 1.5)
	putFloat64LE(payload[16:24], 2.0)

	data := buildBlock(IDCC, []uint64{0, 0, 0, 0}, payload)
	cc, err := ParseCC(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, ConversionLinear, cc.Type)
	require.Len(t, cc.Values, 2)
	assert.Equal(t, 1.5, cc.Values[0])
	assert.Equal(t, 2.0, cc.Values[1])
}

func TestParseCCRefCountMismatch(t *testing.T) {
	payload := make([]byte, 8)
	payload[0] = byte(ConversionValueToText)
	payload[4] = 2 // ref_count claims 2 but only 0 links given

	data := buildBlock(IDCC, []uint64{0, 0, 0, 0}, payload)
	_, err := ParseCC(bytes.NewReader(data), 0)
	assert.Error(t, err)
}

func TestCollectExtentsNullDataLink(t *testing.T) {
	extents, err := CollectExtents(bytes.NewReader(nil), 0)
	require.NoError(t, err)
	assert.Empty(t, extents)
}

func TestCollectExtentsDTAtNonzeroOffset(t *testing.T) {
	payload := []byte("0123456789")
	prefix := make([]byte, 8) // padding so the DT isn't at offset 0
	dt := buildBlock(IDDT, nil, payload)

	var buf bytes.Buffer
	buf.Write(prefix)
	buf.Write(dt)

	extents, err := CollectExtents(bytes.NewReader(buf.Bytes()), uint64(len(prefix)))
	require.NoError(t, err)
	require.Len(t, extents, 1)
	assert.Equal(t, uint64(len(payload)), extents[0].Length)
}

func TestCollectExtentsDLChain(t *testing.T) {
	dt1Payload := bytes.Repeat([]byte{0xAA}, 16)
	dt2Payload := bytes.Repeat([]byte{0xBB}, 16)
	dt1 := buildBlock(IDDT, nil, dt1Payload)
	dt2 := buildBlock(IDDT, nil, dt2Payload)

	prefix := make([]byte, 8) // padding so dt1 isn't at offset 0 (a null link)
	dt1Offset := uint64(len(prefix))
	dt2Offset := dt1Offset + uint64(len(dt1))
	dlOffset := dt2Offset + uint64(len(dt2))

	dlPayload := make([]byte, 8)
	dl := buildBlock(IDDL, []uint64{0, dt1Offset, dt2Offset}, dlPayload)

	var buf bytes.Buffer
	buf.Write(prefix)
	buf.Write(dt1)
	buf.Write(dt2)
	buf.Write(dl)

	extents, err := CollectExtents(bytes.NewReader(buf.Bytes()), dlOffset)
	require.NoError(t, err)
	require.Len(t, extents, 2)
	assert.Equal(t, uint64(16), extents[0].Length)
	assert.Equal(t, uint64(16), extents[1].Length)
	assert.Equal(t, uint64(32), TotalLength(extents))
}
