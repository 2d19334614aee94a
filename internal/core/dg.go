package core

import "github.com/scigolib/mdf4/internal/utils"

// DG is a data group: one node in the HD's forward-linked list, owning an
// ordered list of channel groups that share a single data root.
type DG struct {
	Header HeaderCommon

	NextDGLink   uint64
	FirstCGLink  uint64
	DataLink     uint64 // points at a ##DT or ##DL block, or 0 if empty
	CommentLink  uint64

	RecordIDLen uint8 // 0, 1, 2, 4, or 8
}

// ParseDG parses the DG block at offset.
func ParseDG(r utils.ReaderAt, offset uint64) (*DG, error) {
	h, links, payload, err := ExpectID(r, offset, IDDG)
	if err != nil {
		return nil, err
	}
	if err := requireLinks(h, len(links), 4); err != nil {
		return nil, err
	}
	if err := requirePayload(h, len(payload), 1); err != nil {
		return nil, err
	}

	recIDLen := payload[0]
	if recIDLen != 0 && recIDLen != 1 && recIDLen != 2 && recIDLen != 4 && recIDLen != 8 {
		return nil, utils.WrapError("parsing ##DG", utils.ErrUnsupported)
	}

	return &DG{
		Header:      HeaderCommon{Offset: offset},
		NextDGLink:  links[0],
		FirstCGLink: links[1],
		DataLink:    links[2],
		CommentLink: links[3],
		RecordIDLen: recIDLen,
	}, nil
}

// WalkDGs follows the next-DG chain starting at first, calling visit for
// each node in order. Traversal stops at a null link.
func WalkDGs(r utils.ReaderAt, first uint64, visit func(offset uint64, dg *DG) error) error {
	offset := first
	for offset != 0 {
		dg, err := ParseDG(r, offset)
		if err != nil {
			return err
		}
		if err := visit(offset, dg); err != nil {
			return err
		}
		offset = dg.NextDGLink
	}
	return nil
}
