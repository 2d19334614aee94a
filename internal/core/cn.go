package core

import "github.com/scigolib/mdf4/internal/utils"

// ChannelType enumerates a channel's role within its group.
type ChannelType uint8

const (
	ChannelTypeFixedLength ChannelType = 0
	ChannelTypeVariableLength ChannelType = 1
	ChannelTypeMaster ChannelType = 2
	ChannelTypeVirtualMaster ChannelType = 3
	ChannelTypeSync ChannelType = 4
	ChannelTypeMaxLength ChannelType = 5
	ChannelTypeVirtualData ChannelType = 6
)

// SyncType enumerates what a master channel's samples measure.
type SyncType uint8

const (
	SyncTypeNone SyncType = 0
	SyncTypeTime SyncType = 1
	SyncTypeAngle SyncType = 2
	SyncTypeDistance SyncType = 3
	SyncTypeIndex SyncType = 4
)

// DataType enumerates a channel field's on-disk representation, mirroring
// the MDF 4.1x channel data type codes.
type DataType uint8

const (
	DataTypeUnsignedLE DataType = 0
	DataTypeUnsignedBE DataType = 1
	DataTypeSignedLE   DataType = 2
	DataTypeSignedBE   DataType = 3
	DataTypeFloatLE    DataType = 4
	DataTypeFloatBE    DataType = 5
	DataTypeStringLatin1 DataType = 6
	DataTypeStringUTF8 DataType = 7
	DataTypeStringUTF16LE DataType = 8
	DataTypeStringUTF16BE DataType = 9
	DataTypeByteArray DataType = 10
	DataTypeCANopenDate DataType = 11
	DataTypeCANopenTime DataType = 12
)

// IsBigEndian reports whether dt's multi-byte fields are stored big-endian.
func (dt DataType) IsBigEndian() bool {
	switch dt {
	case DataTypeUnsignedBE, DataTypeSignedBE, DataTypeFloatBE, DataTypeStringUTF16BE:
		return true
	default:
		return false
	}
}

// IsSigned reports whether dt is a two's-complement signed integer type.
func (dt DataType) IsSigned() bool {
	return dt == DataTypeSignedLE || dt == DataTypeSignedBE
}

// IsFloat reports whether dt is an IEEE-754 floating point type.
func (dt DataType) IsFloat() bool {
	return dt == DataTypeFloatLE || dt == DataTypeFloatBE
}

// IsString reports whether dt is one of the text encodings.
func (dt DataType) IsString() bool {
	switch dt {
	case DataTypeStringLatin1, DataTypeStringUTF8, DataTypeStringUTF16LE, DataTypeStringUTF16BE:
		return true
	default:
		return false
	}
}

// CN is a channel: one field descriptor plus metadata links, linked into
// its owning CG's channel list.
type CN struct {
	Header HeaderCommon

	NextCNLink      uint64
	ComponentLink   uint64 // structure/array component, unused by this implementation
	NameLink        uint64 // TX
	SourceLink      uint64 // SI
	ConversionLink  uint64 // CC
	DataLink        uint64 // SD, for variable-length channels
	UnitLink        uint64 // TX or MD
	CommentLink     uint64 // TX or MD

	ChannelType ChannelType
	SyncType    SyncType
	DataType    DataType
	BitOffset   uint8
	ByteOffset  uint32
	BitCount    uint32
	Flags       uint32
}

// ParseCN parses the CN block at offset.
func ParseCN(r utils.ReaderAt, offset uint64) (*CN, error) {
	h, links, payload, err := ExpectID(r, offset, IDCN)
	if err != nil {
		return nil, err
	}
	if err := requireLinks(h, len(links), 8); err != nil {
		return nil, err
	}
	if err := requirePayload(h, len(payload), 16); err != nil {
		return nil, err
	}

	cn := &CN{
		Header:         HeaderCommon{Offset: offset},
		NextCNLink:     links[0],
		ComponentLink:  links[1],
		NameLink:       links[2],
		SourceLink:     links[3],
		ConversionLink: links[4],
		DataLink:       links[5],
		UnitLink:       links[6],
		CommentLink:    links[7],
		ChannelType:    ChannelType(payload[0]),
		SyncType:       SyncType(payload[1]),
		DataType:       DataType(payload[2]),
		BitOffset:      payload[3],
		ByteOffset:     leUint32(payload[4:8]),
		BitCount:       leUint32(payload[8:12]),
		Flags:          leUint32(payload[12:16]),
	}
	return cn, nil
}

// WalkCNs follows the next-CN chain starting at first.
func WalkCNs(r utils.ReaderAt, first uint64, visit func(offset uint64, cn *CN) error) error {
	offset := first
	for offset != 0 {
		cn, err := ParseCN(r, offset)
		if err != nil {
			return err
		}
		if err := visit(offset, cn); err != nil {
			return err
		}
		offset = cn.NextCNLink
	}
	return nil
}
