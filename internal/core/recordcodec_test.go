package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFieldIntegerRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		dtype    DataType
		bitCount uint32
		bitOff   uint8
		raw      RawValue
	}{
		{"uint8", DataTypeUnsignedLE, 8, 0, RawValue{Kind: RawKindUint, Uint: 200}},
		{"int8", DataTypeSignedLE, 8, 0, RawValue{Kind: RawKindInt, Int: -42}},
		{"uint16 LE", DataTypeUnsignedLE, 16, 0, RawValue{Kind: RawKindUint, Uint: 60000}},
		{"int16 BE", DataTypeSignedBE, 16, 0, RawValue{Kind: RawKindInt, Int: -1000}},
		{"uint32", DataTypeUnsignedLE, 32, 0, RawValue{Kind: RawKindUint, Uint: 4000000000}},
		{"int64", DataTypeSignedLE, 64, 0, RawValue{Kind: RawKindInt, Int: -123456789012}},
		{"uint64", DataTypeUnsignedLE, 64, 0, RawValue{Kind: RawKindUint, Uint: 18000000000000000000}},
		{"sub-byte 4-bit signed", DataTypeSignedLE, 4, 2, RawValue{Kind: RawKindInt, Int: -3}},
		{"sub-byte 12-bit unsigned spanning bytes", DataTypeUnsignedLE, 12, 4, RawValue{Kind: RawKindUint, Uint: 2000}},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			field := FieldDescriptor{ByteOffset: 0, BitOffset: tt.bitOff, BitCount: tt.bitCount, Type: tt.dtype}
			record := make([]byte, 16)

			require.NoError(t, EncodeField(field, record, tt.raw))

			got, err := DecodeField(field, record)
			require.NoError(t, err)
			assert.Equal(t, tt.raw.Kind, got.Kind)
			if tt.raw.Kind == RawKindInt {
				assert.Equal(t, tt.raw.Int, got.Int)
			} else {
				assert.Equal(t, tt.raw.Uint, got.Uint)
			}
		})
	}
}

func TestEncodeDecodeFieldFloatRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		dtype DataType
		bits  uint32
		val   float64
	}{
		{"float32 LE", DataTypeFloatLE, 32, 3.5},
		{"float64 LE", DataTypeFloatLE, 64, -12345.6789},
		{"float32 BE", DataTypeFloatBE, 32, -1.25},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			field := FieldDescriptor{ByteOffset: 0, BitCount: tt.bits, Type: tt.dtype}
			record := make([]byte, 8)

			require.NoError(t, EncodeField(field, record, RawValue{Kind: RawKindFloat, Float: tt.val}))
			got, err := DecodeField(field, record)
			require.NoError(t, err)
			if tt.bits == 32 {
				assert.InDelta(t, tt.val, got.Float, 1e-5)
			} else {
				assert.Equal(t, tt.val, got.Float)
			}
		})
	}
}

func TestEncodeDecodeFieldBytes(t *testing.T) {
	field := FieldDescriptor{ByteOffset: 2, BitCount: 40, Type: DataTypeStringUTF8}
	record := make([]byte, 16)
	want := []byte("hi!\x00\x00")

	require.NoError(t, EncodeField(field, record, RawValue{Kind: RawKindBytes, Bytes: want}))
	got, err := DecodeField(field, record)
	require.NoError(t, err)
	assert.Equal(t, want, got.Bytes)
}

func TestDecodeFieldZeroBitCountIsNone(t *testing.T) {
	field := FieldDescriptor{BitCount: 0}
	got, err := DecodeField(field, make([]byte, 8))
	require.NoError(t, err)
	assert.True(t, got.IsNone)
	assert.Equal(t, RawKindNone, got.Kind)
}

func TestRecordStreamForEachRecord(t *testing.T) {
	// Two 4-byte uint32 LE records back to back, no record-id prefix.
	var buf bytes.Buffer
	buf.Write([]byte{10, 0, 0, 0})
	buf.Write([]byte{20, 0, 0, 0})

	stream := &RecordStream{
		Extents:     []Extent{{Offset: 0, Length: uint64(buf.Len())}},
		RecordBytes: 4,
	}

	var got []uint32
	err := stream.ForEachRecord(bytes.NewReader(buf.Bytes()), func(record []byte) error {
		field := FieldDescriptor{BitCount: 32, Type: DataTypeUnsignedLE}
		raw, err := DecodeField(field, record)
		if err != nil {
			return err
		}
		got = append(got, uint32(raw.Uint))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint32{10, 20}, got)
}

func TestRecordStreamSkipsOtherRecordIDs(t *testing.T) {
	// record-id prefix of 1 byte: id 1 then id 2, each with a 2-byte payload.
	data := []byte{1, 0xAA, 0xBB, 2, 0xCC, 0xDD}
	stream := &RecordStream{
		Extents:     []Extent{{Offset: 0, Length: uint64(len(data))}},
		RecordIDLen: 1,
		RecordID:    1,
		RecordBytes: 2,
	}

	var count int
	err := stream.ForEachRecord(bytes.NewReader(data), func(record []byte) error {
		count++
		assert.Equal(t, []byte{0xAA, 0xBB}, record)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
