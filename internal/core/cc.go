package core

import (
	"fmt"
	"math"

	"github.com/scigolib/mdf4/internal/utils"
)

// ConversionType enumerates the CC tagged-variant kinds.
type ConversionType uint8

const (
	ConversionIdentity        ConversionType = 0
	ConversionLinear          ConversionType = 1
	ConversionRational        ConversionType = 2
	ConversionAlgebraic       ConversionType = 3
	ConversionValueToValue    ConversionType = 4 // interpolated table; ResolveConversion reports ErrUnsupported
	ConversionValueRangeToValue ConversionType = 5
	ConversionValueToText     ConversionType = 7
	ConversionValueRangeToText ConversionType = 8
	ConversionTextToValue     ConversionType = 9
	ConversionTextRangeToText ConversionType = 10
	ConversionStatusStringTable ConversionType = 11
)

// CC is a channel conversion: a tagged variant with an ordered list of
// child links (other CCs, or TX text blocks) whose interpretation depends
// on Type.
type CC struct {
	Header HeaderCommon

	NameLink    uint64
	UnitLink    uint64
	CommentLink uint64
	InverseLink uint64
	RefLinks    []uint64 // child CC/TX links, count == RefCount

	Type      ConversionType
	Precision uint8
	Flags     uint16
	RefCount  uint16
	ValCount  uint16
	Values    []float64 // raw parameter doubles (linear: a,b; rational: p1..p6; value pairs: value,value,...)
}

// ParseCC parses the CC block at offset.
func ParseCC(r utils.ReaderAt, offset uint64) (*CC, error) {
	h, links, payload, err := ExpectID(r, offset, IDCC)
	if err != nil {
		return nil, err
	}
	if err := requireLinks(h, len(links), 4); err != nil {
		return nil, err
	}
	if err := requirePayload(h, len(payload), 8); err != nil {
		return nil, err
	}

	cc := &CC{
		Header:      HeaderCommon{Offset: offset},
		NameLink:    links[0],
		UnitLink:    links[1],
		CommentLink: links[2],
		InverseLink: links[3],
		RefLinks:    links[4:],
		Type:        ConversionType(payload[0]),
		Precision:   payload[1],
		Flags:       leUint16(payload[2:4]),
		RefCount:    leUint16(payload[4:6]),
		ValCount:    leUint16(payload[6:8]),
	}

	wantValBytes := 8 + int(cc.ValCount)*8
	if err := requirePayload(h, len(payload), wantValBytes); err != nil {
		return nil, err
	}
	cc.Values = make([]float64, cc.ValCount)
	for i := range cc.Values {
		off := 8 + i*8
		cc.Values[i] = math.Float64frombits(leUint64(payload[off : off+8]))
	}

	if int(cc.RefCount) != len(cc.RefLinks) {
		return nil, utils.WrapError(fmt.Sprintf("parsing ##CC at 0x%x", offset), fmt.Errorf("%w: ref_count %d does not match link array", utils.ErrBlockSize, cc.RefCount))
	}

	return cc, nil
}
