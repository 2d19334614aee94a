package core

import "github.com/scigolib/mdf4/internal/utils"

// CG flags (the 16-bit field at payload bytes 16-17). ParseCG stores the
// whole field in CG.Flags; no reader in this module acts on any flag.
const (
	CGFlagVLSD = 1 << 0
)

// CG is a channel group: an ordered list of channels (a record layout)
// sharing one record-id value within its owning DG.
type CG struct {
	Header HeaderCommon

	NextCGLink   uint64
	FirstCNLink  uint64
	AcqNameLink  uint64 // TX, acquisition name
	AcqSourceLink uint64 // SI
	FirstSampleReductionLink uint64
	CommentLink  uint64

	RecordID     uint64
	ChannelCount uint32
	RecordBytes  uint32 // sum of channel extents, excl. record-id prefix
	RecordCount  uint64
	Flags        uint16
}

// ParseCG parses the CG block at offset.
func ParseCG(r utils.ReaderAt, offset uint64) (*CG, error) {
	h, links, payload, err := ExpectID(r, offset, IDCG)
	if err != nil {
		return nil, err
	}
	if err := requireLinks(h, len(links), 6); err != nil {
		return nil, err
	}
	if err := requirePayload(h, len(payload), 30); err != nil {
		return nil, err
	}

	return &CG{
		Header:                   HeaderCommon{Offset: offset},
		NextCGLink:               links[0],
		FirstCNLink:              links[1],
		AcqNameLink:              links[2],
		AcqSourceLink:            links[3],
		FirstSampleReductionLink: links[4],
		CommentLink:              links[5],
		RecordID:                 leUint64(payload[0:8]),
		RecordCount:              leUint64(payload[8:16]),
		Flags:                    leUint16(payload[16:18]),
		ChannelCount:             uint32(leUint16(payload[18:20])),
		RecordBytes:              leUint32(payload[20:24]),
	}, nil
}

// WalkCGs follows the next-CG chain starting at first.
func WalkCGs(r utils.ReaderAt, first uint64, visit func(offset uint64, cg *CG) error) error {
	offset := first
	for offset != 0 {
		cg, err := ParseCG(r, offset)
		if err != nil {
			return err
		}
		if err := visit(offset, cg); err != nil {
			return err
		}
		offset = cg.NextCGLink
	}
	return nil
}
