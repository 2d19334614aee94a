package index

import (
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/scigolib/mdf4/internal/core"
)

// fingerprint computes an xxhash64 of f's full contents without disturbing
// the file handle for the random-access reads the rest of FromFile performs.
func fingerprint(f *os.File) (uint64, error) {
	h := xxhash.New()
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// FromFile builds a resolved Index by parsing path's full block graph:
// header, data groups, channel groups, channels, and conversions,
// including every referenced text block inlined into the result.
func FromFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrIndex
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, ErrIndex
	}

	hd, err := core.ParseHD(f, core.IdentificationSize)
	if err != nil {
		return nil, err
	}

	checksum, err := fingerprint(f)
	if err != nil {
		return nil, ErrIndex
	}

	idx := &Index{FileSize: uint64(info.Size()), SourceChecksum: checksum}

	err = core.WalkDGs(f, hd.FirstDGLink, func(_ uint64, dg *core.DG) error {
		return core.WalkCGs(f, dg.FirstCGLink, func(_ uint64, cg *core.CG) error {
			group, err := buildGroup(f, dg, cg)
			if err != nil {
				return err
			}
			idx.ChannelGroups = append(idx.ChannelGroups, *group)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func buildGroup(f *os.File, dg *core.DG, cg *core.CG) (*Group, error) {
	name, err := core.ReadText(f, cg.AcqNameLink)
	if err != nil {
		return nil, err
	}

	extents, err := core.CollectExtents(f, dg.DataLink)
	if err != nil {
		return nil, err
	}
	blocks := make([]DataExtent, len(extents))
	for i, e := range extents {
		blocks[i] = DataExtent{FileOffset: e.Offset, Size: e.Length}
	}

	group := &Group{
		Name:        name,
		RecordCount: cg.RecordCount,
		RecordSize:  cg.RecordBytes,
		RecordID:    cg.RecordID,
		RecordIDLen: dg.RecordIDLen,
		DataBlocks:  blocks,
	}

	err = core.WalkCNs(f, cg.FirstCNLink, func(_ uint64, cn *core.CN) error {
		ch, err := buildChannel(f, cn)
		if err != nil {
			return err
		}
		group.Channels = append(group.Channels, *ch)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

func buildChannel(f *os.File, cn *core.CN) (*Channel, error) {
	name, err := core.ReadText(f, cn.NameLink)
	if err != nil {
		return nil, err
	}
	unit, err := core.ReadText(f, cn.UnitLink)
	if err != nil {
		return nil, err
	}
	comment, err := core.ReadText(f, cn.CommentLink)
	if err != nil {
		return nil, err
	}
	conv, err := core.ResolveConversion(f, cn.ConversionLink)
	if err != nil {
		return nil, err
	}

	return &Channel{
		Name:        name,
		DataType:    uint8(cn.DataType),
		BitOffset:   cn.BitOffset,
		BitCount:    cn.BitCount,
		ByteOffset:  cn.ByteOffset,
		Unit:        unit,
		Comment:     comment,
		ChannelType: uint8(cn.ChannelType),
		SyncType:    uint8(cn.SyncType),
		Conversion:  resolvedToIndex(conv),
	}, nil
}

func resolvedToIndex(rc *core.ResolvedConversion) *Conversion {
	if rc == nil {
		return nil
	}
	c := &Conversion{ConversionType: conversionTypeName(rc.Type)}

	switch rc.Type {
	case core.ConversionLinear:
		c.A, c.B = rc.A, rc.B
	case core.ConversionRational:
		c.Rational = append([]float64{}, rc.Rational[:]...)
	case core.ConversionAlgebraic:
		c.Expression = rc.Expression
	case core.ConversionValueToText, core.ConversionStatusStringTable:
		for _, p := range rc.Pairs {
			c.Pairs = append(c.Pairs, ValueTextPair{Value: p.Value, Text: p.Text})
			c.ResolvedTexts = append(c.ResolvedTexts, p.Text)
		}
		c.DefaultText = rc.DefaultText
	case core.ConversionValueRangeToText:
		for _, p := range rc.Ranges {
			c.Ranges = append(c.Ranges, ValueRangeTextPair{Lo: p.Lo, Hi: p.Hi, Text: p.Text})
			c.ResolvedTexts = append(c.ResolvedTexts, p.Text)
		}
		c.DefaultText = rc.DefaultText
	case core.ConversionTextToValue:
		for _, p := range rc.TextPairs {
			c.TextPairs = append(c.TextPairs, TextValuePair{Text: p.Text, Value: p.Value})
		}
		c.DefaultVal = rc.DefaultVal
	case core.ConversionTextRangeToText:
		for _, p := range rc.TextRanges {
			c.TextRanges = append(c.TextRanges, TextRangeTextPair{Lo: p.Lo, Hi: p.Hi, Text: p.Text})
			c.ResolvedTexts = append(c.ResolvedTexts, p.Text)
		}
		c.DefaultText = rc.DefaultText
	}
	return c
}

func conversionTypeName(t core.ConversionType) string {
	switch t {
	case core.ConversionIdentity:
		return "identity"
	case core.ConversionLinear:
		return "linear"
	case core.ConversionRational:
		return "rational"
	case core.ConversionAlgebraic:
		return "algebraic"
	case core.ConversionValueToText:
		return "value_to_text"
	case core.ConversionValueRangeToText:
		return "value_range_to_text"
	case core.ConversionTextToValue:
		return "text_to_value"
	case core.ConversionTextRangeToText:
		return "text_range_to_text"
	case core.ConversionStatusStringTable:
		return "status_string_table"
	default:
		return "unknown"
	}
}
