package core

import (
	"fmt"

	"github.com/scigolib/mdf4/internal/utils"
)

// DLFlagEqualLength marks a DL block whose children all share one length,
// stored once in the payload instead of per child.
const DLFlagEqualLength = 1 << 0

// DL is a data list: a block of child data-block links used to split a
// large record stream, optionally chained via a next-DL link.
type DL struct {
	Header HeaderCommon

	NextDLLink uint64
	DataLinks  []uint64 // child ##DT (or ##DZ) offsets

	Flags       uint8
	EqualLength uint64 // valid only when Flags&DLFlagEqualLength != 0
}

// ParseDL parses the DL block at offset.
func ParseDL(r utils.ReaderAt, offset uint64) (*DL, error) {
	h, links, payload, err := ExpectID(r, offset, IDDL)
	if err != nil {
		return nil, err
	}
	if err := requireLinks(h, len(links), 1); err != nil {
		return nil, err
	}
	if err := requirePayload(h, len(payload), 8); err != nil {
		return nil, err
	}

	dl := &DL{
		Header:     HeaderCommon{Offset: offset},
		NextDLLink: links[0],
		DataLinks:  links[1:],
		Flags:      payload[0],
	}
	if dl.Flags&DLFlagEqualLength != 0 {
		if err := requirePayload(h, len(payload), 16); err != nil {
			return nil, err
		}
		dl.EqualLength = leUint64(payload[8:16])
	}
	return dl, nil
}

// Extent is a contiguous byte range of raw record data in the file.
type Extent struct {
	Offset uint64
	Length uint64
}

// CollectExtents resolves a DG's data root (0, a ##DT, or a ##DL chain)
// into the ordered list of byte ranges that concatenate to the logical
// record stream. An offset of 0 yields no extents (an empty data group).
func CollectExtents(r utils.ReaderAt, dataLink uint64) ([]Extent, error) {
	if dataLink == 0 {
		return nil, nil
	}

	h, err := ReadHeader(r, dataLink)
	if err != nil {
		return nil, err
	}

	switch h.ID {
	case IDDT:
		return []Extent{{Offset: h.PayloadOffset(), Length: h.PayloadLength()}}, nil
	case IDDL:
		var extents []Extent
		cur := dataLink
		for cur != 0 {
			dl, err := ParseDL(r, cur)
			if err != nil {
				return nil, err
			}
			for _, childOffset := range dl.DataLinks {
				if childOffset == 0 {
					continue
				}
				childHeader, err := ReadHeader(r, childOffset)
				if err != nil {
					return nil, err
				}
				if childHeader.ID != IDDT {
					return nil, utils.WrapError(fmt.Sprintf("resolving ##DL child at 0x%x", childOffset), utils.ErrUnsupported)
				}
				extents = append(extents, Extent{Offset: childHeader.PayloadOffset(), Length: childHeader.PayloadLength()})
			}
			cur = dl.NextDLLink
		}
		return extents, nil
	default:
		return nil, utils.WrapError(fmt.Sprintf("resolving data root at 0x%x", dataLink), utils.ErrUnexpectedBlock)
	}
}

// TotalLength sums the lengths of a list of extents.
func TotalLength(extents []Extent) uint64 {
	var total uint64
	for _, e := range extents {
		total += e.Length
	}
	return total
}
