package core

import (
	"bytes"

	"github.com/scigolib/mdf4/internal/utils"
)

// ReadText parses the TX or MD block at offset and returns its text as a
// Go string with the trailing NUL and padding stripped. MD text is raw XML;
// callers that need structure should parse it themselves.
func ReadText(r utils.ReaderAt, offset uint64) (string, error) {
	if offset == 0 {
		return "", nil
	}
	h, err := ReadHeader(r, offset)
	if err != nil {
		return "", err
	}
	if h.ID != IDTX && h.ID != IDMD {
		return "", utils.WrapError("reading text block", utils.ErrUnexpectedBlock)
	}
	if err := utils.ValidateBufferSize(h.PayloadLength(), utils.MaxTextSize, "text block"); err != nil {
		return "", utils.WrapError("reading text block", err)
	}
	_, _, payload, err := ReadBlockAt(r, offset)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}
	return string(payload), nil
}
