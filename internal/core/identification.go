package core

import (
	"fmt"
	"strings"

	"github.com/scigolib/mdf4/internal/utils"
)

// IdentificationSize is the fixed 64-byte size of the identification block
// that precedes every MDF file's block graph.
const IdentificationSize = 64

// Identification is the 64-byte region at the start of an MDF file,
// preceding the first block (##HD) in the block graph.
type Identification struct {
	FileID      string // "MDF" (8 bytes on disk, trailing spaces trimmed)
	FormatID    string // e.g. "4.10" (8 bytes on disk, trailing spaces trimmed)
	Program     string // 8 bytes, writer-defined
	VersionCode uint16 // e.g. 410 for 4.10
}

// ReadIdentification parses the identification block at file offset 0.
func ReadIdentification(r utils.ReaderAt) (*Identification, error) {
	buf := utils.GetBuffer(IdentificationSize)
	defer utils.ReleaseBuffer(buf)

	n, err := r.ReadAt(buf, 0)
	if n < IdentificationSize {
		return nil, utils.WrapError("reading identification block", fmt.Errorf("%w: %v", utils.ErrTruncatedBlock, err))
	}

	fileID := strings.TrimRight(string(buf[0:8]), " ")
	if fileID != "MDF" {
		return nil, utils.WrapError("reading identification block", fmt.Errorf("%w: file id %q, want \"MDF\"", utils.ErrBlockID, fileID))
	}

	id := &Identification{
		FileID:      fileID,
		FormatID:    strings.TrimRight(string(buf[8:16]), " "),
		Program:     strings.TrimRight(string(buf[16:24]), " \x00"),
		VersionCode: littleEndianUint16(buf[28:30]),
	}
	return id, nil
}

func littleEndianUint16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

// WriteIdentification renders the 64-byte identification block for writing.
// program is truncated or space-padded to 8 bytes, matching the fixed-width
// text fields the format uses throughout.
func WriteIdentification(program string, versionCode uint16) []byte {
	buf := make([]byte, IdentificationSize)
	copy(buf[0:8], padRight("MDF", 8))
	copy(buf[8:16], padRight(formatIDFor(versionCode), 8))
	copy(buf[16:24], padRight(program, 8))
	buf[28] = byte(versionCode)
	buf[29] = byte(versionCode >> 8)
	return buf
}

func formatIDFor(versionCode uint16) string {
	major := versionCode / 100
	minor := versionCode % 100
	return fmt.Sprintf("%d.%02d", major, minor)
}

func padRight(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}
