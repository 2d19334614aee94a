package mdf4

// DataGroup is a handle to one data group within an open File: the
// container owning one or more channel groups that share a data block.
type DataGroup struct {
	file     *File
	dgOffset uint64
}

// RecordIDLength returns the width, in bytes, of the record-id prefix
// used to distinguish channel groups sharing this data group's data
// block. 0 means the data group has a single channel group and no prefix.
func (dg *DataGroup) RecordIDLength() uint8 {
	for _, g := range dg.file.groups {
		if g.dgOffset == dg.dgOffset {
			return g.dg.RecordIDLen
		}
	}
	return 0
}
