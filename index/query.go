package index

import (
	"fmt"
	"os"

	"github.com/scigolib/mdf4/internal/core"
	"github.com/scigolib/mdf4/internal/utils"
)

// GetChannelByteRanges returns the data extents of the channel group
// owning the channel at (groupIndex, channelIndex). Samples of a single
// channel are not contiguous; callers decode per record using the
// channel's bit layout after fetching these ranges.
func (idx *Index) GetChannelByteRanges(groupIndex, channelIndex int) ([]DataExtent, error) {
	g, err := idx.group(groupIndex)
	if err != nil {
		return nil, err
	}
	if channelIndex < 0 || channelIndex >= len(g.Channels) {
		return nil, ErrChannelNotFound
	}
	return g.DataBlocks, nil
}

// GetChannelByteRangesForRecords clips a channel group's extents to cover
// only records [start, start+count). A record straddling the boundary
// between two extents is covered by two spans, the tail of one extent and
// the head of the next, which together hold the whole record.
func (idx *Index) GetChannelByteRangesForRecords(groupIndex, channelIndex int, start, count uint64) ([]DataExtent, error) {
	g, err := idx.group(groupIndex)
	if err != nil {
		return nil, err
	}
	if channelIndex < 0 || channelIndex >= len(g.Channels) {
		return nil, ErrChannelNotFound
	}

	stride := uint64(g.RecordIDLen) + uint64(g.RecordSize)
	if stride == 0 || count == 0 {
		return nil, nil
	}

	wantStart := start * stride
	wantEnd := (start + count) * stride

	var out []DataExtent
	var pos uint64
	for _, ext := range g.DataBlocks {
		extStart, extEnd := pos, pos+ext.Size
		pos = extEnd

		spanStart := max64(wantStart, extStart)
		spanEnd := min64(wantEnd, extEnd)
		if spanStart >= spanEnd {
			continue
		}
		out = append(out, DataExtent{FileOffset: ext.FileOffset + (spanStart - extStart), Size: spanEnd - spanStart})
	}
	return out, nil
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// ReadChannelValues decodes every sample of the channel at (groupIndex,
// channelIndex), fetching bytes from source: either a file path (string)
// or a ByteRangeProvider. Invalid or unmatched samples are nil.
func (idx *Index) ReadChannelValues(groupIndex, channelIndex int, source interface{}) ([]interface{}, error) {
	g, err := idx.group(groupIndex)
	if err != nil {
		return nil, err
	}
	if channelIndex < 0 || channelIndex >= len(g.Channels) {
		return nil, ErrChannelNotFound
	}
	ch := g.Channels[channelIndex]

	provider, closeFn, err := resolveProvider(source)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	field := core.FieldDescriptor{
		ByteOffset: ch.ByteOffset,
		BitOffset:  ch.BitOffset,
		BitCount:   ch.BitCount,
		Type:       core.DataType(ch.DataType),
	}
	stride := uint64(g.RecordIDLen) + uint64(g.RecordSize)
	if stride == 0 {
		return nil, nil
	}

	var values []interface{}
	var carry []byte // tail of a record that continues in the next extent
	for _, ext := range g.DataBlocks {
		data, err := provider.ReadRange(ext.FileOffset, ext.Size)
		if err != nil {
			return nil, err
		}
		if len(carry) > 0 {
			data = append(carry, data...)
		}
		pos := uint64(0)
		for ; pos+stride <= uint64(len(data)); pos += stride {
			var id uint64
			for i := int(g.RecordIDLen) - 1; i >= 0; i-- {
				id = id<<8 | uint64(data[pos+uint64(i)])
			}
			if g.RecordIDLen > 0 && id != g.RecordID {
				continue
			}
			record := data[pos+uint64(g.RecordIDLen) : pos+stride]
			raw, err := core.DecodeField(field, record)
			if err != nil {
				return nil, err
			}
			v, err := applyConversion(ch.Conversion, raw)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		carry = append([]byte(nil), data[pos:]...)
	}
	return values, nil
}

func resolveProvider(source interface{}) (ByteRangeProvider, func(), error) {
	switch s := source.(type) {
	case ByteRangeProvider:
		return s, func() {}, nil
	case string:
		f, err := os.Open(s)
		if err != nil {
			return nil, func() {}, utils.WrapError(fmt.Sprintf("opening %s", s), fmt.Errorf("%w: %v", utils.ErrIO, err))
		}
		return NewFileRangeProvider(f), func() { f.Close() }, nil
	default:
		return nil, func() {}, utils.WrapError(fmt.Sprintf("resolving byte-range source %T", source), utils.ErrUnsupported)
	}
}
