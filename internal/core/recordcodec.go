package core

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/scigolib/mdf4/internal/utils"
)

// FieldDescriptor is the decoded layout of one channel's field within a
// CG's record: byte offset from record start, bit offset within the
// starting byte, bit width, and the data type governing sign extension,
// float width, and byte order.
type FieldDescriptor struct {
	ByteOffset uint32
	BitOffset  uint8
	BitCount   uint32
	Type       DataType
	VLSD       bool // true for variable-length channels; value is a record-relative SD link, not inline bits
}

// BuildFieldDescriptor derives a FieldDescriptor from a parsed CN.
func BuildFieldDescriptor(cn *CN) FieldDescriptor {
	return FieldDescriptor{
		ByteOffset: cn.ByteOffset,
		BitOffset:  cn.BitOffset,
		BitCount:   cn.BitCount,
		Type:       cn.DataType,
		VLSD:       cn.ChannelType == ChannelTypeVariableLength,
	}
}

// byteOrder returns the binary.ByteOrder for a field's data type.
func (f FieldDescriptor) byteOrder() binary.ByteOrder {
	if f.Type.IsBigEndian() {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// RawKind discriminates which field of a RawValue is meaningful.
type RawKind uint8

const (
	RawKindNone RawKind = iota
	RawKindInt
	RawKindUint
	RawKindFloat
	RawKindBytes
)

// RawValue is a decoded but unconverted sample: Kind selects which of Int,
// Uint, Float, or Bytes is meaningful.
type RawValue struct {
	Kind   RawKind
	Int    int64
	Uint   uint64
	Float  float64
	Bytes  []byte
	IsNone bool
}

// DecodeField extracts one channel's raw value from a single record's bytes.
func DecodeField(f FieldDescriptor, record []byte) (RawValue, error) {
	if f.BitCount == 0 {
		return RawValue{Kind: RawKindNone, IsNone: true}, nil
	}

	switch {
	case f.Type.IsFloat():
		return decodeFloatField(f, record)
	case f.Type.IsString():
		return decodeByteField(f, record)
	case f.Type == DataTypeByteArray:
		return decodeByteField(f, record)
	default:
		return decodeIntField(f, record)
	}
}

func decodeFloatField(f FieldDescriptor, record []byte) (RawValue, error) {
	if f.BitOffset != 0 || f.BitCount%8 != 0 {
		return RawValue{}, utils.WrapError("decoding float field", utils.ErrUnsupported)
	}
	n := int(f.BitCount / 8)
	start := int(f.ByteOffset)
	if start+n > len(record) {
		return RawValue{}, utils.WrapError("decoding float field", utils.ErrTruncatedBlock)
	}
	order := f.byteOrder()
	switch n {
	case 4:
		return RawValue{Kind: RawKindFloat, Float: float64(math.Float32frombits(order.Uint32(record[start : start+4])))}, nil
	case 8:
		return RawValue{Kind: RawKindFloat, Float: math.Float64frombits(order.Uint64(record[start : start+8]))}, nil
	default:
		return RawValue{}, utils.WrapError("decoding float field", utils.ErrUnsupported)
	}
}

func decodeByteField(f FieldDescriptor, record []byte) (RawValue, error) {
	if f.BitOffset != 0 || f.BitCount%8 != 0 {
		return RawValue{}, utils.WrapError("decoding byte field", utils.ErrUnsupported)
	}
	n := int(f.BitCount / 8)
	start := int(f.ByteOffset)
	if start+n > len(record) {
		return RawValue{}, utils.WrapError("decoding byte field", utils.ErrTruncatedBlock)
	}
	out := make([]byte, n)
	copy(out, record[start:start+n])
	return RawValue{Kind: RawKindBytes, Bytes: out}, nil
}

// decodeIntField handles sub-byte-aligned integers: it gathers the minimal
// covering byte span, assembles it into a little-endian 64-bit accumulator
// honoring the field's declared byte order, then masks and shifts out the
// requested bit window before sign-extending if needed.
func decodeIntField(f FieldDescriptor, record []byte) (RawValue, error) {
	if f.BitCount > 64 {
		return RawValue{}, utils.WrapError("decoding integer field", utils.ErrUnsupported)
	}
	spanBytes := int((uint32(f.BitOffset) + f.BitCount + 7) / 8)
	start := int(f.ByteOffset)
	if start+spanBytes > len(record) {
		return RawValue{}, utils.WrapError("decoding integer field", utils.ErrTruncatedBlock)
	}
	span := record[start : start+spanBytes]

	var acc uint64
	if f.Type.IsBigEndian() {
		for _, b := range span {
			acc = acc<<8 | uint64(b)
		}
	} else {
		for i := len(span) - 1; i >= 0; i-- {
			acc = acc<<8 | uint64(span[i])
		}
	}

	acc >>= uint(f.BitOffset)
	if f.BitCount < 64 {
		mask := uint64(1)<<f.BitCount - 1
		acc &= mask
	}

	if f.Type.IsSigned() && f.BitCount < 64 && acc&(uint64(1)<<(f.BitCount-1)) != 0 {
		acc |= ^uint64(0) << f.BitCount
	}

	if f.Type.IsSigned() {
		return RawValue{Kind: RawKindInt, Int: int64(acc)}, nil
	}
	return RawValue{Kind: RawKindUint, Uint: acc}, nil
}

// EncodeField writes v's raw bits into record at f's position, replacing
// only the bits of f's window and keeping the other bits of the bytes it
// touches, so multiple sub-byte fields sharing a byte can be encoded
// independently.
func EncodeField(f FieldDescriptor, record []byte, v RawValue) error {
	switch {
	case f.Type.IsFloat():
		return encodeFloatField(f, record, v.Float)
	case f.Type.IsString(), f.Type == DataTypeByteArray:
		return encodeByteField(f, record, v.Bytes)
	default:
		raw := v.Uint
		if f.Type.IsSigned() {
			raw = uint64(v.Int) & (uint64(1)<<f.BitCount - 1)
			if f.BitCount == 64 {
				raw = uint64(v.Int)
			}
		}
		return encodeIntField(f, record, raw)
	}
}

func encodeFloatField(f FieldDescriptor, record []byte, val float64) error {
	n := int(f.BitCount / 8)
	start := int(f.ByteOffset)
	if start+n > len(record) {
		return utils.WrapError("encoding float field", utils.ErrTruncatedBlock)
	}
	order := f.byteOrder()
	switch n {
	case 4:
		order.PutUint32(record[start:start+4], math.Float32bits(float32(val)))
	case 8:
		order.PutUint64(record[start:start+8], math.Float64bits(val))
	default:
		return utils.WrapError("encoding float field", utils.ErrUnsupported)
	}
	return nil
}

func encodeByteField(f FieldDescriptor, record []byte, data []byte) error {
	n := int(f.BitCount / 8)
	start := int(f.ByteOffset)
	if start+n > len(record) {
		return utils.WrapError("encoding byte field", utils.ErrTruncatedBlock)
	}
	copy(record[start:start+n], data)
	return nil
}

func encodeIntField(f FieldDescriptor, record []byte, raw uint64) error {
	spanBytes := int((uint32(f.BitOffset) + f.BitCount + 7) / 8)
	start := int(f.ByteOffset)
	if start+spanBytes > len(record) {
		return utils.WrapError("encoding integer field", utils.ErrTruncatedBlock)
	}
	span := record[start : start+spanBytes]

	shifted := raw << uint(f.BitOffset)
	var mask uint64
	if f.BitCount+uint32(f.BitOffset) >= 64 {
		mask = ^uint64(0) << f.BitOffset
	} else {
		mask = (uint64(1)<<f.BitCount - 1) << f.BitOffset
	}

	var cur uint64
	if f.Type.IsBigEndian() {
		for _, b := range span {
			cur = cur<<8 | uint64(b)
		}
	} else {
		for i := len(span) - 1; i >= 0; i-- {
			cur = cur<<8 | uint64(span[i])
		}
	}
	cur = (cur &^ mask) | (shifted & mask)

	if f.Type.IsBigEndian() {
		for i := len(span) - 1; i >= 0; i-- {
			span[i] = byte(cur)
			cur >>= 8
		}
	} else {
		for i := 0; i < len(span); i++ {
			span[i] = byte(cur)
			cur >>= 8
		}
	}
	return nil
}

// RecordStream reads a CG's records across its data extents, presenting
// them as if they were one contiguous buffer, and dispatching by record-id
// when the owning DG uses one.
type RecordStream struct {
	Extents     []Extent
	RecordIDLen uint8
	RecordID    uint64
	RecordBytes uint32
}

// ForEachRecord calls fn with each record's raw bytes (record-id prefix
// stripped) belonging to RecordID, in file order. Records belonging to a
// different id within an interleaved DG are skipped.
func (s *RecordStream) ForEachRecord(r utils.ReaderAt, fn func(record []byte) error) error {
	stride := uint64(s.RecordIDLen) + uint64(s.RecordBytes)
	if stride == 0 {
		return nil
	}

	buf := make([]byte, stride)
	var filled uint64 // bytes of the current record read so far; carried across extents
	for _, ext := range s.Extents {
		remaining := ext.Length
		pos := ext.Offset
		for remaining > 0 {
			n := stride - filled
			if n > remaining {
				n = remaining
			}
			//nolint:gosec // G115: MDF file offsets fit in int64 for io.ReaderAt
			if _, err := r.ReadAt(buf[filled:filled+n], int64(pos)); err != nil {
				return utils.WrapError(fmt.Sprintf("reading record at 0x%x", pos), fmt.Errorf("%w: %v", utils.ErrTruncatedBlock, err))
			}
			filled += n
			pos += n
			remaining -= n
			if filled < stride {
				continue
			}
			filled = 0

			match := s.RecordIDLen == 0
			if !match {
				id := recordIDOf(buf[:s.RecordIDLen])
				match = id == s.RecordID
			}
			if match {
				if err := fn(buf[s.RecordIDLen:]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func recordIDOf(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
