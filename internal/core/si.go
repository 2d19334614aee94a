package core

import "github.com/scigolib/mdf4/internal/utils"

// SourceType enumerates where a channel's samples originate.
type SourceType uint8

const (
	SourceTypeOther SourceType = 0
	SourceTypeECU   SourceType = 1
	SourceTypeBus   SourceType = 2
	SourceTypeIO    SourceType = 3
	SourceTypeTool  SourceType = 4
	SourceTypeUser  SourceType = 5
)

// BusType enumerates the physical bus a Bus-type source is attached to.
type BusType uint8

const (
	BusTypeNone  BusType = 0
	BusTypeOther BusType = 1
	BusTypeCAN   BusType = 2
	BusTypeLIN   BusType = 3
	BusTypeMOST  BusType = 4
	BusTypeFlexRay BusType = 5
	BusTypeKLine BusType = 6
	BusTypeEthernet BusType = 7
	BusTypeUSB BusType = 8
)

// SI is a source information block, describing the acquisition or bus
// origin of a channel group or channel.
type SI struct {
	Header HeaderCommon

	NameLink    uint64
	PathLink    uint64
	CommentLink uint64

	SourceType SourceType
	BusType    BusType
	Flags      uint8
}

// ParseSI parses the SI block at offset.
func ParseSI(r utils.ReaderAt, offset uint64) (*SI, error) {
	h, links, payload, err := ExpectID(r, offset, IDSI)
	if err != nil {
		return nil, err
	}
	if err := requireLinks(h, len(links), 3); err != nil {
		return nil, err
	}
	if err := requirePayload(h, len(payload), 3); err != nil {
		return nil, err
	}

	return &SI{
		Header:      HeaderCommon{Offset: offset},
		NameLink:    links[0],
		PathLink:    links[1],
		CommentLink: links[2],
		SourceType:  SourceType(payload[0]),
		BusType:     BusType(payload[1]),
		Flags:       payload[2],
	}, nil
}
