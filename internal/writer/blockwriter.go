package writer

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/scigolib/mdf4/internal/core"
)

// LinkPatch records a link slot whose target offset is not yet known when
// the owning block is emitted, paired with a pointer to the variable that
// will hold the target once it is allocated.
type LinkPatch struct {
	SlotOffset uint64 // absolute file offset of the 8-byte link slot
	Target     *uint64
}

// BlockWriter sequences block emission into a file, tracking a patch list
// so forward links (next-DG, first-CN, and so on) can be resolved once
// every dependent block has been allocated.
type BlockWriter struct {
	w         io.WriterAt
	allocator *Allocator
	patches   []LinkPatch
}

// NewBlockWriter creates a BlockWriter appending after initialOffset (the
// end of the identification block on a fresh file).
func NewBlockWriter(w io.WriterAt, initialOffset uint64) *BlockWriter {
	return &BlockWriter{w: w, allocator: NewAllocator(initialOffset)}
}

// Reserve allocates space for a block of the given id, link count, and
// payload size (unpadded), returning the block's start offset. The header
// and link array are written as zero-filled placeholders; link values are
// filled in later via PatchLink or resolved from the patch list when the
// caller invokes ResolvePatches.
func (bw *BlockWriter) Reserve(id string, linkCount int, payloadSize int) (uint64, error) {
	if len(id) != 4 {
		return 0, fmt.Errorf("writer: block id %q must be 4 bytes", id)
	}
	total := core.HeaderSize + 8*linkCount + payloadSize
	padded := core.PadLen(total)

	offset, err := bw.allocator.Allocate(uint64(padded))
	if err != nil {
		return 0, err
	}

	buf := make([]byte, padded)
	copy(buf[0:4], id)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(total))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(linkCount))

	if _, err := bw.w.WriteAt(buf, int64(offset)); err != nil {
		return 0, fmt.Errorf("writer: reserving %s at 0x%x: %w", id, offset, err)
	}
	return offset, nil
}

// WritePayload writes payload bytes at the block's payload offset, which
// the caller computes as offset + HeaderSize + 8*linkCount.
func (bw *BlockWriter) WritePayload(payloadOffset uint64, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	if _, err := bw.w.WriteAt(payload, int64(payloadOffset)); err != nil {
		return fmt.Errorf("writer: writing payload at 0x%x: %w", payloadOffset, err)
	}
	return nil
}

// PatchLink writes target into the 8-byte link slot at slotOffset
// immediately. Used when the target is already known (e.g. a block linking
// back to its already-allocated parent).
func (bw *BlockWriter) PatchLink(slotOffset uint64, target uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], target)
	if _, err := bw.w.WriteAt(buf[:], int64(slotOffset)); err != nil {
		return fmt.Errorf("writer: patching link at 0x%x: %w", slotOffset, err)
	}
	return nil
}

// DeferLink records a link slot to be resolved once *target is known,
// typically because target names a block not yet allocated (the next
// sibling in a forward-linked chain, for instance).
func (bw *BlockWriter) DeferLink(slotOffset uint64, target *uint64) {
	bw.patches = append(bw.patches, LinkPatch{SlotOffset: slotOffset, Target: target})
}

// ResolvePatches writes every deferred link's current target value. Call
// once all blocks have been allocated and every *uint64 target has been
// set to its final offset.
func (bw *BlockWriter) ResolvePatches() error {
	for _, p := range bw.patches {
		if err := bw.PatchLink(p.SlotOffset, *p.Target); err != nil {
			return err
		}
	}
	return nil
}

// EndOfFile returns the current allocator end-of-file offset: the total
// size the output file will have if no further blocks are allocated.
func (bw *BlockWriter) EndOfFile() uint64 {
	return bw.allocator.EndOfFile()
}

// ValidateLayout checks that every block this BlockWriter has allocated
// occupies disjoint space, catching an allocator bug before it corrupts
// the output file. Call once, after ResolvePatches, as Finalize's last
// integrity check.
func (bw *BlockWriter) ValidateLayout() error {
	return bw.allocator.ValidateNoOverlaps()
}
