package mdf4

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/scigolib/mdf4/internal/core"
	"github.com/scigolib/mdf4/internal/utils"
	iwriter "github.com/scigolib/mdf4/internal/writer"
)

// Finalize patches every forward link in the file, writes each group's
// metadata blocks (text, conversions, channels, channel group, data
// group), links them into the header, and writes the 64-byte
// identification region. Any channel group left with an open data block
// is a StateError.
func (w *Writer) Finalize() error {
	for i, g := range w.groups {
		if g.staging != nil && g.staging.State == iwriter.CGStateOpen {
			return utils.WrapError(fmt.Sprintf("finalizing group %d", i), utils.ErrState)
		}
	}

	bw := w.blockWriter()
	dgOffsets := make([]uint64, len(w.groups))

	for gi, g := range w.groups {
		cnOffsets := make([]uint64, len(g.channels))
		for ci, spec := range g.channels {
			nameOff, err := w.writeText(spec.name)
			if err != nil {
				return err
			}
			unitOff, err := w.writeText(spec.unit)
			if err != nil {
				return err
			}
			commentOff, err := w.writeText(spec.comment)
			if err != nil {
				return err
			}
			ccOff, err := w.writeConversion(spec.conversion)
			if err != nil {
				return err
			}

			cnOff, err := bw.Reserve(core.IDCN, 8, 16)
			if err != nil {
				return err
			}
			payload := make([]byte, 16)
			payload[0] = byte(spec.channelType)
			payload[1] = byte(spec.syncType)
			payload[2] = byte(spec.dataType)
			payload[3] = 0 // bit offset always 0 for writer-emitted channels
			binary.LittleEndian.PutUint32(payload[4:8], spec.byteOffset)
			binary.LittleEndian.PutUint32(payload[8:12], spec.bitCount)
			if err := bw.WritePayload(cnOff+core.HeaderSize+8*8, payload); err != nil {
				return err
			}
			if err := bw.PatchLink(cnOff+core.HeaderSize+8*2, nameOff); err != nil {
				return err
			}
			if err := bw.PatchLink(cnOff+core.HeaderSize+8*4, ccOff); err != nil {
				return err
			}
			if err := bw.PatchLink(cnOff+core.HeaderSize+8*6, unitOff); err != nil {
				return err
			}
			if err := bw.PatchLink(cnOff+core.HeaderSize+8*7, commentOff); err != nil {
				return err
			}
			cnOffsets[ci] = cnOff
		}

		for ci := 0; ci < len(cnOffsets)-1; ci++ {
			if err := bw.PatchLink(cnOffsets[ci]+core.HeaderSize, cnOffsets[ci+1]); err != nil {
				return err
			}
		}

		var firstCN uint64
		if len(cnOffsets) > 0 {
			firstCN = cnOffsets[0]
		}

		acqNameOff, err := w.writeText(g.name)
		if err != nil {
			return err
		}

		cgOff, err := bw.Reserve(core.IDCG, 6, 30)
		if err != nil {
			return err
		}
		cgPayload := make([]byte, 30)
		recordCount := uint64(0)
		if g.staging != nil {
			recordCount = g.staging.RecordCount
		}
		binary.LittleEndian.PutUint64(cgPayload[8:16], recordCount)
		binary.LittleEndian.PutUint16(cgPayload[18:20], uint16(len(g.channels)))
		binary.LittleEndian.PutUint32(cgPayload[20:24], g.recordBytes)
		if err := bw.WritePayload(cgOff+core.HeaderSize+6*8, cgPayload); err != nil {
			return err
		}
		if err := bw.PatchLink(cgOff+core.HeaderSize+8*1, firstCN); err != nil {
			return err
		}
		if err := bw.PatchLink(cgOff+core.HeaderSize+8*2, acqNameOff); err != nil {
			return err
		}

		dataLink, err := w.resolveDataLink(g)
		if err != nil {
			return err
		}

		dgOff, err := bw.Reserve(core.IDDG, 4, 1)
		if err != nil {
			return err
		}
		if err := bw.WritePayload(dgOff+core.HeaderSize+4*8, []byte{0}); err != nil {
			return err
		}
		if err := bw.PatchLink(dgOff+core.HeaderSize+8*1, cgOff); err != nil {
			return err
		}
		if err := bw.PatchLink(dgOff+core.HeaderSize+8*2, dataLink); err != nil {
			return err
		}
		dgOffsets[gi] = dgOff
	}

	for i := 0; i < len(dgOffsets)-1; i++ {
		if err := bw.PatchLink(dgOffsets[i]+core.HeaderSize, dgOffsets[i+1]); err != nil {
			return err
		}
	}

	if len(dgOffsets) > 0 {
		w.firstDGLink = dgOffsets[0]
	}
	if err := bw.ResolvePatches(); err != nil {
		return err
	}

	if err := bw.ValidateLayout(); err != nil {
		return utils.WrapError("finalizing", err)
	}

	if _, err := w.f.WriteAt(core.WriteIdentification("mdf4", 410), 0); err != nil {
		return utils.WrapError("writing identification block", fmt.Errorf("%w: %v", utils.ErrIO, err))
	}

	return nil
}

// writeText writes s as a ##TX block and returns its offset, or 0 if s is
// empty (a null link, meaning "no text").
func (w *Writer) writeText(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	bw := w.blockWriter()
	data := append([]byte(s), 0)
	offset, err := bw.Reserve(core.IDTX, 0, len(data))
	if err != nil {
		return 0, err
	}
	if err := bw.WritePayload(offset+core.HeaderSize, data); err != nil {
		return 0, err
	}
	return offset, nil
}

// writeConversion writes spec as a ##CC block (plus any text children it
// references) and returns its offset, or 0 if spec is nil.
func (w *Writer) writeConversion(spec *writerConversion) (uint64, error) {
	if spec == nil {
		return 0, nil
	}
	bw := w.blockWriter()

	switch spec.kind {
	case core.ConversionLinear:
		payload := make([]byte, 8+16)
		payload[0] = byte(core.ConversionLinear)
		binary.LittleEndian.PutUint16(payload[6:8], 2)
		binary.LittleEndian.PutUint64(payload[8:16], math.Float64bits(spec.a))
		binary.LittleEndian.PutUint64(payload[16:24], math.Float64bits(spec.b))
		offset, err := bw.Reserve(core.IDCC, 4, len(payload))
		if err != nil {
			return 0, err
		}
		if err := bw.WritePayload(offset+core.HeaderSize+4*8, payload); err != nil {
			return 0, err
		}
		return offset, nil

	case core.ConversionValueToText:
		refs := make([]uint64, 0, len(spec.pairs)+1)
		for _, p := range spec.pairs {
			off, err := w.writeText(p.Text)
			if err != nil {
				return 0, err
			}
			refs = append(refs, off)
		}
		if spec.defaultText != nil {
			off, err := w.writeText(*spec.defaultText)
			if err != nil {
				return 0, err
			}
			refs = append(refs, off)
		}

		valCount := len(spec.pairs)
		payload := make([]byte, 8+valCount*8)
		payload[0] = byte(core.ConversionValueToText)
		binary.LittleEndian.PutUint16(payload[4:6], uint16(len(refs)))
		binary.LittleEndian.PutUint16(payload[6:8], uint16(valCount))
		for i, p := range spec.pairs {
			binary.LittleEndian.PutUint64(payload[8+i*8:16+i*8], math.Float64bits(p.Value))
		}

		linkCount := 4 + len(refs)
		offset, err := bw.Reserve(core.IDCC, linkCount, len(payload))
		if err != nil {
			return 0, err
		}
		if err := bw.WritePayload(offset+core.HeaderSize+uint64(linkCount)*8, payload); err != nil {
			return 0, err
		}
		for i, ref := range refs {
			if err := bw.PatchLink(offset+core.HeaderSize+uint64(4+i)*8, ref); err != nil {
				return 0, err
			}
		}
		return offset, nil

	default:
		return 0, utils.WrapError("writing conversion", utils.ErrUnsupported)
	}
}

// resolveDataLink writes a ##DL block chaining a group's flushed ##DT
// children when there is more than one, returning the offset the owning
// DG's data link should point at: 0 (empty), the lone DT, or the DL.
func (w *Writer) resolveDataLink(g *groupSpec) (uint64, error) {
	if g.staging == nil || len(g.staging.DTOffsets) == 0 {
		return 0, nil
	}
	if len(g.staging.DTOffsets) == 1 {
		return g.staging.DTOffsets[0], nil
	}

	bw := w.blockWriter()
	links := g.staging.DTOffsets
	linkCount := 1 + len(links)
	offset, err := bw.Reserve(core.IDDL, linkCount, 8)
	if err != nil {
		return 0, err
	}
	if err := bw.WritePayload(offset+core.HeaderSize+uint64(linkCount)*8, []byte{0, 0, 0, 0, 0, 0, 0, 0}); err != nil {
		return 0, err
	}
	for i, child := range links {
		if err := bw.PatchLink(offset+core.HeaderSize+uint64(1+i)*8, child); err != nil {
			return 0, err
		}
	}
	return offset, nil
}
