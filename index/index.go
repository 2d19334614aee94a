// Package index builds, serializes, loads, and queries a resolved index: a
// compact, self-contained summary of an MDF file that pre-captures channel
// locations, conversion rules, and the exact byte ranges needed to
// reconstruct any single channel's samples. An Index can answer channel
// queries and decode samples from a byte-range provider without ever
// re-parsing the source container, enabling remote (HTTP range) reads.
package index

// Index is a resolved, serializable summary of one MDF file.
type Index struct {
	FileSize uint64 `json:"file_size"`
	// SourceChecksum is an xxhash64 fingerprint of the source file's bytes.
	// Load does not check it; VerifyAgainstFile compares it with a file's
	// current bytes so a stale index against a rewritten file is caught as
	// ErrIndex rather than silently producing wrong byte ranges.
	SourceChecksum uint64  `json:"source_checksum,omitempty"`
	ChannelGroups  []Group `json:"channel_groups"`
}

// Group is one channel group's resolved layout and data extents.
type Group struct {
	Name        string       `json:"name"`
	RecordCount uint64       `json:"record_count"`
	RecordSize  uint32       `json:"record_size"`
	RecordID    uint64       `json:"record_id"`
	RecordIDLen uint8        `json:"record_id_len"`
	Channels    []Channel    `json:"channels"`
	DataBlocks  []DataExtent `json:"data_blocks"`
}

// DataExtent is a contiguous byte range of raw record data in the source file.
type DataExtent struct {
	FileOffset uint64 `json:"file_offset"`
	Size       uint64 `json:"size"`
}

// Channel is one resolved channel's bit layout and metadata.
type Channel struct {
	Name        string      `json:"name"`
	DataType    uint8       `json:"data_type"`
	BitOffset   uint8       `json:"bit_offset"`
	BitCount    uint32      `json:"bit_count"`
	ByteOffset  uint32      `json:"byte_offset"`
	Unit        string      `json:"unit"`
	Comment     string      `json:"comment"`
	ChannelType uint8       `json:"channel_type"`
	SyncType    uint8       `json:"sync_type"`
	Conversion  *Conversion `json:"conversion,omitempty"`
}

// Conversion is a fully resolved CC chain: every referenced text block and
// nested conversion has been inlined, so applying it requires no further
// file access.
type Conversion struct {
	ConversionType string  `json:"conversion_type"`
	A              float64 `json:"a,omitempty"`
	B              float64 `json:"b,omitempty"`
	Rational       []float64 `json:"rational,omitempty"`
	Expression     string  `json:"expression,omitempty"`

	Pairs       []ValueTextPair      `json:"value_pairs,omitempty"`
	Ranges      []ValueRangeTextPair `json:"value_ranges,omitempty"`
	TextPairs   []TextValuePair      `json:"text_pairs,omitempty"`
	TextRanges  []TextRangeTextPair  `json:"text_ranges,omitempty"`
	ResolvedTexts []string           `json:"resolved_texts,omitempty"`
	DefaultText *string             `json:"default_text,omitempty"`
	DefaultVal  *float64            `json:"default_value,omitempty"`
}

// ValueTextPair maps one raw integer value to display text.
type ValueTextPair struct {
	Value float64 `json:"value"`
	Text  string  `json:"text"`
}

// ValueRangeTextPair maps a closed raw-value range to display text.
type ValueRangeTextPair struct {
	Lo   float64 `json:"lo"`
	Hi   float64 `json:"hi"`
	Text string  `json:"text"`
}

// TextValuePair maps one exact input string to a physical value.
type TextValuePair struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// TextRangeTextPair maps a lexicographic text range to output text.
type TextRangeTextPair struct {
	Lo   string `json:"lo"`
	Hi   string `json:"hi"`
	Text string `json:"text"`
}

// ListChannelGroups summarizes every channel group, in index order.
func (idx *Index) ListChannelGroups() []GroupSummary {
	out := make([]GroupSummary, len(idx.ChannelGroups))
	for i, g := range idx.ChannelGroups {
		out[i] = GroupSummary{Index: i, Name: g.Name, ChannelCount: len(g.Channels)}
	}
	return out
}

// GroupSummary is a listing row for one channel group.
type GroupSummary struct {
	Index        int
	Name         string
	ChannelCount int
}

// ListChannels summarizes every channel within group groupIndex.
func (idx *Index) ListChannels(groupIndex int) ([]ChannelSummary, error) {
	g, err := idx.group(groupIndex)
	if err != nil {
		return nil, err
	}
	out := make([]ChannelSummary, len(g.Channels))
	for i, c := range g.Channels {
		out[i] = ChannelSummary{Index: i, Name: c.Name, DataType: c.DataType}
	}
	return out, nil
}

// ChannelSummary is a listing row for one channel.
type ChannelSummary struct {
	Index    int
	Name     string
	DataType uint8
}

// FindChannelByName returns the group and channel index of the first
// channel named name, searching groups in order.
func (idx *Index) FindChannelByName(name string) (groupIndex, channelIndex int, found bool) {
	for gi, g := range idx.ChannelGroups {
		for ci, c := range g.Channels {
			if c.Name == name {
				return gi, ci, true
			}
		}
	}
	return 0, 0, false
}

func (idx *Index) group(groupIndex int) (*Group, error) {
	if groupIndex < 0 || groupIndex >= len(idx.ChannelGroups) {
		return nil, ErrGroupNotFound
	}
	return &idx.ChannelGroups[groupIndex], nil
}
