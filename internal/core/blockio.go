// Package core implements the MDF 4.1x block graph: identification region,
// the typed block kinds (HD, DG, CG, CN, CC, TX/MD, SI, DT/DL/SD), the
// record codec that decodes/encodes fixed-layout record fields, and the
// conversion engine that resolves CC chains into physical values.
//
// Every block on disk shares the same 24-byte framing (id, length, link
// count, link array, payload); ReadBlockAt and the typed Parse* functions
// are the code path every block read goes through. They read from a
// ReaderAt; the byte-range providers in package index are not parsed here.
package core

import (
	"encoding/binary"
	"fmt"

	"github.com/scigolib/mdf4/internal/utils"
)

// HeaderSize is the fixed size of a block's id+length+link-count prefix,
// before the link array.
const HeaderSize = 24

// Known block ids. Every block begins with one of these as its first 4 bytes.
const (
	IDHD = "##HD"
	IDFH = "##FH"
	IDDG = "##DG"
	IDCG = "##CG"
	IDCN = "##CN"
	IDCC = "##CC"
	IDSI = "##SI"
	IDTX = "##TX"
	IDMD = "##MD"
	IDDT = "##DT"
	IDDL = "##DL"
	IDSD = "##SD"
	IDDZ = "##DZ"
	IDHL = "##HL"
)

var knownBlockIDs = map[string]bool{
	IDHD: true, IDFH: true, IDDG: true, IDCG: true, IDCN: true,
	IDCC: true, IDSI: true, IDTX: true, IDMD: true, IDDT: true,
	IDDL: true, IDSD: true, IDDZ: true, IDHL: true,
}

// BlockHeader is the framing common to every MDF block.
type BlockHeader struct {
	ID        string
	Length    uint64
	LinkCount uint64
	Links     []uint64
	Offset    uint64 // absolute file offset of the block, incl. header
}

// PayloadOffset returns the absolute file offset where the block's payload
// begins, i.e. immediately after the header and link array.
func (h *BlockHeader) PayloadOffset() uint64 {
	return h.Offset + HeaderSize + 8*h.LinkCount
}

// PayloadLength returns the length of the block's payload in bytes.
func (h *BlockHeader) PayloadLength() uint64 {
	return h.Length - HeaderSize - 8*h.LinkCount
}

// ReadHeader reads and validates the 24-byte id/length/link-count prefix at
// offset. It does not read the link array or payload.
func ReadHeader(r utils.ReaderAt, offset uint64) (*BlockHeader, error) {
	buf := utils.GetBuffer(HeaderSize)
	defer utils.ReleaseBuffer(buf)

	//nolint:gosec // G115: MDF file offsets fit in int64 for io.ReaderAt
	n, err := r.ReadAt(buf, int64(offset))
	if n < HeaderSize {
		return nil, utils.WrapError(fmt.Sprintf("reading block header at 0x%x", offset), fmt.Errorf("%w: %v", utils.ErrTruncatedBlock, err))
	}

	id := string(buf[0:4])
	if !knownBlockIDs[id] {
		return nil, utils.WrapError(fmt.Sprintf("reading block header at 0x%x", offset), fmt.Errorf("%w: %q", utils.ErrBlockID, id))
	}

	length := binary.LittleEndian.Uint64(buf[8:16])
	if length < HeaderSize {
		return nil, utils.WrapError(fmt.Sprintf("reading block header at 0x%x", offset), fmt.Errorf("%w: length %d smaller than header", utils.ErrBlockSize, length))
	}

	linkCount := binary.LittleEndian.Uint64(buf[16:24])
	if HeaderSize+8*linkCount > length {
		return nil, utils.WrapError(fmt.Sprintf("reading block header at 0x%x", offset), fmt.Errorf("%w: link array overruns block of length %d", utils.ErrBlockSize, length))
	}

	return &BlockHeader{ID: id, Length: length, LinkCount: linkCount, Offset: offset}, nil
}

// ReadLinks reads the header's link array. A link value of 0 means "null".
func ReadLinks(r utils.ReaderAt, h *BlockHeader) ([]uint64, error) {
	if h.LinkCount == 0 {
		return nil, nil
	}
	size := int(8 * h.LinkCount)
	buf := utils.GetBuffer(size)
	defer utils.ReleaseBuffer(buf)

	//nolint:gosec // G115: MDF file offsets fit in int64 for io.ReaderAt
	if _, err := r.ReadAt(buf, int64(h.Offset+HeaderSize)); err != nil {
		return nil, utils.WrapError(fmt.Sprintf("reading links at 0x%x", h.Offset), fmt.Errorf("%w: %v", utils.ErrTruncatedBlock, err))
	}

	links := make([]uint64, h.LinkCount)
	for i := range links {
		links[i] = binary.LittleEndian.Uint64(buf[i*8 : i*8+8])
	}
	return links, nil
}

// ReadPayload reads the block's payload bytes (everything after the link array).
func ReadPayload(r utils.ReaderAt, h *BlockHeader) ([]byte, error) {
	plen := h.PayloadLength()
	if plen == 0 {
		return nil, nil
	}
	if err := utils.ValidateBufferSize(plen, utils.MaxRecordBlockSize, "block payload"); err != nil {
		return nil, utils.WrapError(fmt.Sprintf("reading payload at 0x%x", h.Offset), err)
	}

	buf := make([]byte, plen)
	//nolint:gosec // G115: MDF file offsets fit in int64 for io.ReaderAt
	if _, err := r.ReadAt(buf, int64(h.PayloadOffset())); err != nil {
		return nil, utils.WrapError(fmt.Sprintf("reading payload at 0x%x", h.Offset), fmt.Errorf("%w: %v", utils.ErrTruncatedBlock, err))
	}
	return buf, nil
}

// ReadBlockAt is the BlockIO entry point used by every typed block reader:
// it reads the header, link array, and payload of the block at offset in a
// single positioned sequence of reads.
func ReadBlockAt(r utils.ReaderAt, offset uint64) (*BlockHeader, []uint64, []byte, error) {
	h, err := ReadHeader(r, offset)
	if err != nil {
		return nil, nil, nil, err
	}
	links, err := ReadLinks(r, h)
	if err != nil {
		return nil, nil, nil, err
	}
	payload, err := ReadPayload(r, h)
	if err != nil {
		return nil, nil, nil, err
	}
	return h, links, payload, nil
}

// ExpectID reads the block header at offset and fails with
// ErrUnexpectedBlock unless its id matches want.
func ExpectID(r utils.ReaderAt, offset uint64, want string) (*BlockHeader, []uint64, []byte, error) {
	h, links, payload, err := ReadBlockAt(r, offset)
	if err != nil {
		return nil, nil, nil, err
	}
	if h.ID != want {
		return nil, nil, nil, utils.WrapError(fmt.Sprintf("reading %s at 0x%x", want, offset), fmt.Errorf("%w: got %q, want %q", utils.ErrUnexpectedBlock, h.ID, want))
	}
	return h, links, payload, nil
}

// PadLen returns n rounded up to the next multiple of 8, matching the
// 8-byte alignment every MDF block is padded to.
func PadLen(n int) int {
	if rem := n % 8; rem != 0 {
		return n + (8 - rem)
	}
	return n
}
