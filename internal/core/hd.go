package core

import (
	"github.com/scigolib/mdf4/internal/utils"
)

// HD is the header block: the single root of a file's block graph,
// reached immediately after the 64-byte identification region.
type HD struct {
	Header HeaderCommon

	FirstDGLink   uint64
	FirstFHLink   uint64
	FirstCHLink   uint64
	CommentLink   uint64

	StartTimeNS uint64 // nanoseconds since the Unix epoch
	TZOffsetMin int16
	DSTOffsetMin int16
	TimeFlags   uint8
}

// HeaderCommon carries the fields every Catalog type stores about the block
// it was parsed from: useful for error messages and for the writer's patch
// bookkeeping.
type HeaderCommon struct {
	Offset uint64
}

// ParseHD parses the HD block at offset.
func ParseHD(r utils.ReaderAt, offset uint64) (*HD, error) {
	h, links, payload, err := ExpectID(r, offset, IDHD)
	if err != nil {
		return nil, err
	}
	if err := requireLinks(h, len(links), 4); err != nil {
		return nil, err
	}
	if err := requirePayload(h, len(payload), 24); err != nil {
		return nil, err
	}

	hd := &HD{
		Header:      HeaderCommon{Offset: offset},
		FirstDGLink: links[0],
		FirstFHLink: links[1],
		FirstCHLink: links[2],
		CommentLink: links[3],
		StartTimeNS: leUint64(payload[0:8]),
		TZOffsetMin: int16(leUint16(payload[8:10])),
		DSTOffsetMin: int16(leUint16(payload[10:12])),
		TimeFlags:   payload[12],
	}
	return hd, nil
}

func requireLinks(h *BlockHeader, got, want int) error {
	if got < want {
		return utils.WrapError("parsing "+h.ID, utils.ErrBlockSize)
	}
	return nil
}

func requirePayload(h *BlockHeader, got, want int) error {
	if got < want {
		return utils.WrapError("parsing "+h.ID, utils.ErrBlockSize)
	}
	return nil
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leUint16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
