package utils

import "encoding/binary"

// ReaderAt is a simplified interface for io.ReaderAt, satisfied by *os.File
// and bytes.Reader. The byte-range providers in package index implement
// ReadRange instead and do not satisfy it.
type ReaderAt interface {
	ReadAt(p []byte, off int64) (n int, err error)
}

// ReadUint64 reads a 64-bit value at the given offset using order.
// MDF stores container metadata little-endian but per-channel sample
// fields may use either order, so callers always pass the relevant order
// explicitly rather than relying on a file-wide default.
func ReadUint64(r ReaderAt, offset int64, order binary.ByteOrder) (uint64, error) {
	buf := GetBuffer(8)
	defer ReleaseBuffer(buf)

	if _, err := r.ReadAt(buf, offset); err != nil {
		return 0, err
	}
	return order.Uint64(buf), nil
}

// ReadUint32 reads a 32-bit value at the given offset using order.
func ReadUint32(r ReaderAt, offset int64, order binary.ByteOrder) (uint32, error) {
	buf := GetBuffer(4)
	defer ReleaseBuffer(buf)

	if _, err := r.ReadAt(buf, offset); err != nil {
		return 0, err
	}
	return order.Uint32(buf), nil
}

// ReadUint16 reads a 16-bit value at the given offset using order.
func ReadUint16(r ReaderAt, offset int64, order binary.ByteOrder) (uint16, error) {
	buf := GetBuffer(2)
	defer ReleaseBuffer(buf)

	if _, err := r.ReadAt(buf, offset); err != nil {
		return 0, err
	}
	return order.Uint16(buf), nil
}
