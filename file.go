package mdf4

import (
	"fmt"
	"os"

	"github.com/scigolib/mdf4/internal/core"
	"github.com/scigolib/mdf4/internal/utils"
)

// File is an open MDF file ready for reading. A File owns its underlying
// file handle exclusively; open a separate File per concurrent reader.
type File struct {
	f    *os.File
	ident *core.Identification
	hd    *core.HD
	groups []*group
}

// group is one flattened (DG, CG) pair with its channel list resolved.
type group struct {
	dg       *core.DG
	dgOffset uint64
	cg       *core.CG
	cgOffset uint64
	channels []*channelEntry
}

type channelEntry struct {
	cn         *core.CN
	cnOffset   uint64
	name       string
	unit       string
	comment    string
	field      core.FieldDescriptor
	conversion *core.ResolvedConversion
}

// Open opens path and parses its identification, header, and full block
// graph (data groups, channel groups, channels, conversions). It does not
// read any record data.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.WrapError(fmt.Sprintf("opening %s", path), fmt.Errorf("%w: %v", utils.ErrIO, err))
	}

	ident, err := core.ReadIdentification(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	file := &File{f: f, ident: ident}

	hd, err := core.ParseHD(f, core.IdentificationSize)
	if err != nil {
		f.Close()
		return nil, err
	}
	file.hd = hd

	if err := file.loadGroups(); err != nil {
		f.Close()
		return nil, err
	}

	return file, nil
}

func (file *File) loadGroups() error {
	return core.WalkDGs(file.f, file.hd.FirstDGLink, func(dgOffset uint64, dg *core.DG) error {
		return core.WalkCGs(file.f, dg.FirstCGLink, func(cgOffset uint64, cg *core.CG) error {
			g := &group{dg: dg, dgOffset: dgOffset, cg: cg, cgOffset: cgOffset}
			if err := file.loadChannels(g); err != nil {
				return err
			}
			file.groups = append(file.groups, g)
			return nil
		})
	})
}

func (file *File) loadChannels(g *group) error {
	return core.WalkCNs(file.f, g.cg.FirstCNLink, func(cnOffset uint64, cn *core.CN) error {
		name, err := core.ReadText(file.f, cn.NameLink)
		if err != nil {
			return err
		}
		unit, err := core.ReadText(file.f, cn.UnitLink)
		if err != nil {
			return err
		}
		comment, err := core.ReadText(file.f, cn.CommentLink)
		if err != nil {
			return err
		}
		conv, err := core.ResolveConversion(file.f, cn.ConversionLink)
		if err != nil {
			return err
		}

		g.channels = append(g.channels, &channelEntry{
			cn:         cn,
			cnOffset:   cnOffset,
			name:       name,
			unit:       unit,
			comment:    comment,
			field:      core.BuildFieldDescriptor(cn),
			conversion: conv,
		})
		return nil
	})
}

// Close releases the underlying file handle.
func (file *File) Close() error {
	return file.f.Close()
}

// ListGroups returns a summary of every channel group in the file, in the
// order encountered walking the data group chain.
func (file *File) ListGroups() []GroupInfo {
	out := make([]GroupInfo, len(file.groups))
	for i, g := range file.groups {
		name, _ := core.ReadText(file.f, g.cg.AcqNameLink)
		out[i] = GroupInfo{Index: i, Name: name, ChannelCount: len(g.channels)}
	}
	return out
}

// ListChannels returns a summary of every channel in the group at groupIndex.
func (file *File) ListChannels(groupIndex int) ([]ChannelInfo, error) {
	g, err := file.groupAt(groupIndex)
	if err != nil {
		return nil, err
	}
	out := make([]ChannelInfo, len(g.channels))
	for i, c := range g.channels {
		out[i] = ChannelInfo{
			Index:    i,
			Name:     c.name,
			DataType: DataType(c.cn.DataType),
			Unit:     c.unit,
			Comment:  c.comment,
		}
	}
	return out, nil
}

func (file *File) groupAt(groupIndex int) (*group, error) {
	if groupIndex < 0 || groupIndex >= len(file.groups) {
		return nil, utils.WrapError(fmt.Sprintf("looking up group %d", groupIndex), utils.ErrGroupNotFound)
	}
	return file.groups[groupIndex], nil
}

// ReadChannel returns every sample of the first channel named name,
// searching groups in iteration order.
func (file *File) ReadChannel(name string) ([]Value, error) {
	for gi, g := range file.groups {
		for ci, c := range g.channels {
			if c.name == name {
				return file.readChannelValues(gi, ci)
			}
		}
	}
	return nil, utils.WrapError(fmt.Sprintf("reading channel %q", name), utils.ErrChannelNotFound)
}

// ReadChannelInGroup returns every sample of channelName within the first
// group named groupName.
func (file *File) ReadChannelInGroup(groupName, channelName string) ([]Value, error) {
	for gi, g := range file.groups {
		gName, _ := core.ReadText(file.f, g.cg.AcqNameLink)
		if gName != groupName {
			continue
		}
		for ci, c := range g.channels {
			if c.name == channelName {
				return file.readChannelValues(gi, ci)
			}
		}
	}
	return nil, utils.WrapError(fmt.Sprintf("reading %s/%s", groupName, channelName), utils.ErrChannelNotFound)
}

func (file *File) readChannelValues(groupIndex, channelIndex int) ([]Value, error) {
	g := file.groups[groupIndex]
	if channelIndex < 0 || channelIndex >= len(g.channels) {
		return nil, utils.WrapError(fmt.Sprintf("reading channel %d", channelIndex), utils.ErrChannelNotFound)
	}
	c := g.channels[channelIndex]

	extents, err := core.CollectExtents(file.f, g.dg.DataLink)
	if err != nil {
		return nil, err
	}

	stream := &core.RecordStream{
		Extents:     extents,
		RecordIDLen: g.dg.RecordIDLen,
		RecordID:    g.cg.RecordID,
		RecordBytes: g.cg.RecordBytes,
	}

	var values []Value
	err = stream.ForEachRecord(file.f, func(record []byte) error {
		raw, err := core.DecodeField(c.field, record)
		if err != nil {
			return err
		}
		v, err := c.conversion.Apply(raw)
		if err != nil {
			return err
		}
		values = append(values, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}
