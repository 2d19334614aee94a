package mdf4

// Channel is a handle to one channel within an open File's channel group.
type Channel struct {
	file         *File
	groupIndex   int
	channelIndex int
	name         string
}

// Name returns the channel's name.
func (c *Channel) Name() string {
	return c.name
}

// Unit returns the channel's engineering unit, or "" if unset.
func (c *Channel) Unit() string {
	return c.file.groups[c.groupIndex].channels[c.channelIndex].unit
}

// Comment returns the channel's comment text, or "" if unset.
func (c *Channel) Comment() string {
	return c.file.groups[c.groupIndex].channels[c.channelIndex].comment
}

// DataType returns the channel's on-disk data type.
func (c *Channel) DataType() DataType {
	return DataType(c.file.groups[c.groupIndex].channels[c.channelIndex].cn.DataType)
}

// ReadValues returns every sample of this channel.
func (c *Channel) ReadValues() ([]Value, error) {
	return c.file.readChannelValues(c.groupIndex, c.channelIndex)
}
