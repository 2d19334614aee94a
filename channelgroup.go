package mdf4

import (
	"fmt"

	"github.com/scigolib/mdf4/internal/core"
	"github.com/scigolib/mdf4/internal/utils"
)

// ChannelGroup is a handle to one channel group within an open File,
// providing direct access to its channels without re-walking the block
// graph on every call.
type ChannelGroup struct {
	file  *File
	index int
}

// Group returns a handle to the channel group at index.
func (file *File) Group(index int) (*ChannelGroup, error) {
	if _, err := file.groupAt(index); err != nil {
		return nil, err
	}
	return &ChannelGroup{file: file, index: index}, nil
}

// Name returns the channel group's acquisition name, or "" if unset.
func (cg *ChannelGroup) Name() string {
	g := cg.file.groups[cg.index]
	name, _ := core.ReadText(cg.file.f, g.cg.AcqNameLink)
	return name
}

// RecordCount returns the number of records written to this channel group.
func (cg *ChannelGroup) RecordCount() uint64 {
	return cg.file.groups[cg.index].cg.RecordCount
}

// Channel returns a handle to the channel named name within this group.
func (cg *ChannelGroup) Channel(name string) (*Channel, error) {
	g := cg.file.groups[cg.index]
	for i, c := range g.channels {
		if c.name == name {
			return &Channel{file: cg.file, groupIndex: cg.index, channelIndex: i, name: c.name}, nil
		}
	}
	return nil, utils.WrapError(fmt.Sprintf("looking up channel %q", name), utils.ErrChannelNotFound)
}

// ChannelAt returns a handle to the channel at channelIndex within this group.
func (cg *ChannelGroup) ChannelAt(channelIndex int) (*Channel, error) {
	g := cg.file.groups[cg.index]
	if channelIndex < 0 || channelIndex >= len(g.channels) {
		return nil, utils.WrapError(fmt.Sprintf("looking up channel %d", channelIndex), utils.ErrChannelNotFound)
	}
	return &Channel{file: cg.file, groupIndex: cg.index, channelIndex: channelIndex, name: g.channels[channelIndex].name}, nil
}
