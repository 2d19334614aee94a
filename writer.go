package mdf4

import (
	"fmt"
	"os"

	"github.com/scigolib/mdf4/internal/core"
	"github.com/scigolib/mdf4/internal/utils"
	iwriter "github.com/scigolib/mdf4/internal/writer"
)

// channelSpec is one channel queued for a group during the writer's build
// phase, before any block is emitted.
type channelSpec struct {
	name        string
	unit        string
	comment     string
	dataType    core.DataType
	channelType core.ChannelType
	syncType    core.SyncType
	byteOffset  uint32
	bitCount    uint32

	conversion *writerConversion
}

// writerConversion is the subset of conversion kinds the Writer can attach
// to an outgoing channel.
type writerConversion struct {
	kind        core.ConversionType
	a, b        float64
	pairs       []core.ValueTextPair
	defaultText *string
}

// groupSpec accumulates one channel group's layout and staged records.
type groupSpec struct {
	name        string
	channels    []channelSpec
	recordBytes uint32
	staging     *iwriter.Staging
	threshold   int

	// Block offsets for this group; Finalize keeps its offsets in local
	// variables and leaves these fields unset.
	dgOffset, cgOffset uint64
	cnOffsets          []uint64
}

// Writer builds an MDF file through an explicit state machine: add channel
// groups and channels, open and write each group's data block, then
// Finalize to patch every forward link and write the identification.
type Writer struct {
	path   string
	f      *os.File
	groups []*groupSpec
	bw     *iwriter.BlockWriter

	hdOff       uint64
	firstDGLink uint64
}

// NewWriter creates a Writer that will emit to path, truncating any
// existing file. The HD block is reserved immediately so it always lands
// at offset core.IdentificationSize, ahead of any ##DT/##TX/##CC/##CN/##CG/
// ##DG blocks the rest of the state machine allocates; its FirstDG link is
// deferred until Finalize knows the first data group's offset. Call
// Finalize then Close to produce a valid file.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, utils.WrapError(fmt.Sprintf("creating %s", path), fmt.Errorf("%w: %v", utils.ErrIO, err))
	}

	w := &Writer{path: path, f: f}
	w.bw = iwriter.NewBlockWriter(f, core.IdentificationSize)

	hdOff, err := w.bw.Reserve(core.IDHD, 4, 24)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := w.bw.WritePayload(hdOff+core.HeaderSize+4*8, make([]byte, 24)); err != nil {
		f.Close()
		return nil, err
	}
	w.hdOff = hdOff
	w.bw.DeferLink(hdOff+core.HeaderSize, &w.firstDGLink)

	return w, nil
}

// AddChannelGroup starts a new channel group named name and returns its id
// for use with the remaining state-machine calls.
func (w *Writer) AddChannelGroup(name string) (int, error) {
	w.groups = append(w.groups, &groupSpec{name: name, threshold: iwriter.DefaultSplitThreshold})
	return len(w.groups) - 1, nil
}

func (w *Writer) group(cgID int) (*groupSpec, error) {
	if cgID < 0 || cgID >= len(w.groups) {
		return nil, utils.WrapError(fmt.Sprintf("looking up channel group %d", cgID), utils.ErrGroupNotFound)
	}
	return w.groups[cgID], nil
}

// SetSplitThreshold overrides the default 4 MiB DT-to-DL escalation
// threshold for cgID's data group.
func (w *Writer) SetSplitThreshold(cgID int, bytes int) error {
	g, err := w.group(cgID)
	if err != nil {
		return err
	}
	g.threshold = bytes
	return nil
}

// defaultBitCount returns the conventional bit width for dtype when the
// caller does not specify one explicitly.
func defaultBitCount(dtype DataType) uint32 {
	switch dtype {
	case DataTypeFloatLE, DataTypeFloatBE:
		return 32
	default:
		return 32
	}
}

// AddChannel appends a fixed-length channel to cgID's layout. bitCount of
// 0 selects the type's conventional default (32 for float and int/uint).
func (w *Writer) AddChannel(cgID int, name string, dtype DataType, bitCount int) error {
	g, err := w.group(cgID)
	if err != nil {
		return err
	}
	if g.staging != nil {
		return utils.WrapError(fmt.Sprintf("adding channel %q", name), utils.ErrState)
	}

	bc := uint32(bitCount)
	if bc == 0 {
		bc = defaultBitCount(dtype)
	}

	g.channels = append(g.channels, channelSpec{
		name:        name,
		dataType:    core.DataType(dtype),
		channelType: core.ChannelTypeFixedLength,
		syncType:    core.SyncTypeNone,
		byteOffset:  g.recordBytes,
		bitCount:    bc,
	})
	g.recordBytes += (bc + 7) / 8
	return nil
}

// AddTimeChannel adds the group's master (time) channel: a 32-bit
// little-endian float, marked as the group's independent time axis. By
// convention this is added first so it becomes the group's master.
func (w *Writer) AddTimeChannel(cgID int, name string) error {
	g, err := w.group(cgID)
	if err != nil {
		return err
	}
	if g.staging != nil {
		return utils.WrapError(fmt.Sprintf("adding time channel %q", name), utils.ErrState)
	}

	g.channels = append(g.channels, channelSpec{
		name:        name,
		dataType:    core.DataTypeFloatLE,
		channelType: core.ChannelTypeMaster,
		syncType:    core.SyncTypeTime,
		byteOffset:  g.recordBytes,
		bitCount:    32,
	})
	g.recordBytes += 4
	return nil
}

// SetChannelUnit sets the engineering unit text for the channel named name
// within cgID.
func (w *Writer) SetChannelUnit(cgID int, name, unit string) error {
	g, err := w.group(cgID)
	if err != nil {
		return err
	}
	for i := range g.channels {
		if g.channels[i].name == name {
			g.channels[i].unit = unit
			return nil
		}
	}
	return utils.WrapError(fmt.Sprintf("setting unit on %q", name), utils.ErrChannelNotFound)
}

// AddLinearConversion attaches physical = a + b*raw to the channel named
// name within cgID.
func (w *Writer) AddLinearConversion(cgID int, name string, a, b float64) error {
	g, err := w.group(cgID)
	if err != nil {
		return err
	}
	for i := range g.channels {
		if g.channels[i].name == name {
			g.channels[i].conversion = &writerConversion{kind: core.ConversionLinear, a: a, b: b}
			return nil
		}
	}
	return utils.WrapError(fmt.Sprintf("adding conversion to %q", name), utils.ErrChannelNotFound)
}

// AddValueToTextConversion attaches a value-to-text lookup to the channel
// named name within cgID: a raw value equal to pairs[i].Value yields
// pairs[i].Text; a non-matching value yields defaultText if non-nil, else
// the numeric raw value.
func (w *Writer) AddValueToTextConversion(cgID int, name string, pairs []core.ValueTextPair, defaultText *string) error {
	g, err := w.group(cgID)
	if err != nil {
		return err
	}
	for i := range g.channels {
		if g.channels[i].name == name {
			g.channels[i].conversion = &writerConversion{kind: core.ConversionValueToText, pairs: pairs, defaultText: defaultText}
			return nil
		}
	}
	return utils.WrapError(fmt.Sprintf("adding conversion to %q", name), utils.ErrChannelNotFound)
}

// StartDataBlock transitions cgID from Idle to Open, allowing WriteRecord
// calls. Calling it while already open is a StateError.
func (w *Writer) StartDataBlock(cgID int) error {
	g, err := w.group(cgID)
	if err != nil {
		return err
	}
	if g.staging == nil {
		g.staging = iwriter.NewStaging(g.recordBytes, g.threshold)
	}
	if !g.staging.Open() {
		return utils.WrapError(fmt.Sprintf("starting data block for group %d", cgID), utils.ErrState)
	}
	return nil
}

// WriteRecord encodes values (one per channel, in AddChannel order) and
// appends the record to cgID's staging buffer. WriteRecord outside an open
// data block is a StateError.
func (w *Writer) WriteRecord(cgID int, values []Value) error {
	g, err := w.group(cgID)
	if err != nil {
		return err
	}
	if g.staging == nil || g.staging.State != iwriter.CGStateOpen {
		return utils.WrapError(fmt.Sprintf("writing record to group %d", cgID), utils.ErrState)
	}
	if len(values) != len(g.channels) {
		return utils.WrapError(fmt.Sprintf("writing record to group %d", cgID), fmt.Errorf("%w: got %d values, want %d", utils.ErrState, len(values), len(g.channels)))
	}

	record := make([]byte, g.recordBytes)
	for i, spec := range g.channels {
		field := core.FieldDescriptor{ByteOffset: spec.byteOffset, BitOffset: 0, BitCount: spec.bitCount, Type: spec.dataType}
		raw, err := valueToRaw(spec.dataType, values[i])
		if err != nil {
			return err
		}
		if err := core.EncodeField(field, record, raw); err != nil {
			return err
		}
	}

	return w.appendRecord(g, record)
}

func (w *Writer) appendRecord(g *groupSpec, record []byte) error {
	cross := g.staging.AppendRecord(record)
	if cross {
		return w.flushStaging(g)
	}
	return nil
}

// flushStaging writes the currently staged bytes as one ##DT block and
// records its offset against the group's DT chain.
func (w *Writer) flushStaging(g *groupSpec) error {
	data := g.staging.Drain()
	if len(data) == 0 {
		return nil
	}

	bw := w.blockWriter()
	offset, err := bw.Reserve(core.IDDT, 0, len(data))
	if err != nil {
		return err
	}
	if err := bw.WritePayload(offset+core.HeaderSize, data); err != nil {
		return err
	}
	g.staging.DTOffsets = append(g.staging.DTOffsets, offset)
	return nil
}

// FinishDataBlock flushes any remaining staged bytes and transitions cgID
// back to Idle.
func (w *Writer) FinishDataBlock(cgID int) error {
	g, err := w.group(cgID)
	if err != nil {
		return err
	}
	if g.staging == nil || g.staging.State != iwriter.CGStateOpen {
		return utils.WrapError(fmt.Sprintf("finishing data block for group %d", cgID), utils.ErrState)
	}
	if err := w.flushStaging(g); err != nil {
		return err
	}
	g.staging.Close()
	return nil
}

// Close releases the underlying file handle without finalizing. Callers
// should always call Finalize before Close to produce a valid file.
func (w *Writer) Close() error {
	return w.f.Close()
}

func valueToRaw(dtype core.DataType, v Value) (core.RawValue, error) {
	switch {
	case dtype.IsFloat():
		f, ok := toFloat64(v)
		if !ok {
			return core.RawValue{}, utils.WrapError("encoding value", utils.ErrUnsupported)
		}
		return core.RawValue{Kind: core.RawKindFloat, Float: f}, nil
	case dtype.IsString(), dtype == core.DataTypeByteArray:
		switch b := v.(type) {
		case string:
			return core.RawValue{Kind: core.RawKindBytes, Bytes: []byte(b)}, nil
		case []byte:
			return core.RawValue{Kind: core.RawKindBytes, Bytes: b}, nil
		default:
			return core.RawValue{}, utils.WrapError("encoding value", utils.ErrUnsupported)
		}
	case dtype.IsSigned():
		i, ok := toInt64(v)
		if !ok {
			return core.RawValue{}, utils.WrapError("encoding value", utils.ErrUnsupported)
		}
		return core.RawValue{Kind: core.RawKindInt, Int: i}, nil
	default:
		u, ok := toUint64(v)
		if !ok {
			return core.RawValue{}, utils.WrapError("encoding value", utils.ErrUnsupported)
		}
		return core.RawValue{Kind: core.RawKindUint, Uint: u}, nil
	}
}

func toFloat64(v Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toInt64(v Value) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	default:
		return 0, false
	}
}

func toUint64(v Value) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}

// blockWriter returns the shared BlockWriter, created in NewWriter along
// with the HD block it reserves first.
func (w *Writer) blockWriter() *iwriter.BlockWriter {
	return w.bw
}

// FileSize returns the current end-of-file offset, the total size the
// output file will have if finalized with no further allocations.
func (w *Writer) FileSize() uint64 {
	return w.bw.EndOfFile()
}
