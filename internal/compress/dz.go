// Package compress decodes ##DZ blocks: the optional deflate-compressed
// variant of ##DT/##DL data blocks. MDF 4.1x only ever deflates (with an
// optional byte-transpose prepass for better compression ratios on
// column-like records), so this package wraps compress/zlib rather than a
// general-purpose codec registry.
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/scigolib/mdf4/internal/utils"
)

// TransposeMode enumerates the ##DZ header's organization byte.
type TransposeMode uint8

const (
	TransposeNone TransposeMode = 0
	TransposeByte TransposeMode = 1
)

// Header is the ##DZ-specific prefix preceding the deflated payload.
type Header struct {
	OriginalID       string // the block id the decompressed payload represents, e.g. "##DT"
	Transpose        TransposeMode
	ZipType          uint8 // 0 = deflate
	DecompressedSize uint64
	CompressedSize   uint64
	TransposeColumns uint32 // record byte length, when Transpose == TransposeByte
}

// Decode inflates a ##DZ block's payload and reverses any byte-transpose,
// returning the inflated bytes exactly as the deflate stream holds them
// (no block header is added).
func Decode(h Header, compressed []byte) ([]byte, error) {
	if h.ZipType != 0 {
		return nil, utils.WrapError("decoding ##DZ block", utils.ErrUnsupported)
	}
	if err := utils.ValidateBufferSize(h.DecompressedSize, utils.MaxDecompressedSize, "##DZ decompressed payload"); err != nil {
		return nil, utils.WrapError("decoding ##DZ block", err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, utils.WrapError("decoding ##DZ block", fmt.Errorf("%w: %v", utils.ErrUnsupported, err))
	}
	defer zr.Close()

	out := make([]byte, h.DecompressedSize)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, utils.WrapError("decoding ##DZ block", fmt.Errorf("%w: %v", utils.ErrTruncatedBlock, err))
	}

	if h.Transpose == TransposeByte {
		out, err = untranspose(out, int(h.TransposeColumns))
		if err != nil {
			return nil, utils.WrapError("decoding ##DZ block", err)
		}
	}
	return out, nil
}

// untranspose reverses the byte-transpose MDF applies before deflating
// record-oriented data: bytes are stored column-major (all record byte 0s,
// then all byte 1s, ...) to improve compressibility; this restores
// row-major (record) order. cols is the record byte length.
func untranspose(data []byte, cols int) ([]byte, error) {
	if cols <= 0 {
		return nil, utils.ErrUnsupported
	}
	if len(data)%cols != 0 {
		return nil, utils.ErrBlockSize
	}
	rows := len(data) / cols
	out := make([]byte, len(data))
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			out[r*cols+c] = data[c*rows+r]
		}
	}
	return out, nil
}
