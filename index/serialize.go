package index

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/scigolib/mdf4/internal/utils"
)

// Save writes idx to path as the reference JSON interchange format: a
// top-level object with file_size, source_checksum, and channel_groups,
// the field names given by the Index struct's json tags.
func (idx *Index) Save(path string) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return utils.WrapError(fmt.Sprintf("saving index to %s", path), fmt.Errorf("%w: %v", ErrIndex, err))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return utils.WrapError(fmt.Sprintf("saving index to %s", path), fmt.Errorf("%w: %v", utils.ErrIO, err))
	}
	return nil
}

// Load reads an Index previously written by Save.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.WrapError(fmt.Sprintf("loading index from %s", path), fmt.Errorf("%w: %v", utils.ErrIO, err))
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, utils.WrapError(fmt.Sprintf("loading index from %s", path), fmt.Errorf("%w: %v", ErrIndex, err))
	}
	return &idx, nil
}

// VerifyAgainstFile recomputes the source file's fingerprint and checksums
// it against SourceChecksum, failing with ErrIndex on mismatch or size
// disagreement. Callers decoding a loaded index against a live file path
// SHOULD call this before trusting the index's byte ranges.
func (idx *Index) VerifyAgainstFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return utils.WrapError(fmt.Sprintf("verifying index against %s", path), fmt.Errorf("%w: %v", utils.ErrIO, err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return utils.WrapError(fmt.Sprintf("verifying index against %s", path), fmt.Errorf("%w: %v", utils.ErrIO, err))
	}
	if uint64(info.Size()) != idx.FileSize {
		return utils.WrapError(fmt.Sprintf("verifying index against %s", path), fmt.Errorf("%w: file size %d does not match indexed size %d", ErrIndex, info.Size(), idx.FileSize))
	}

	checksum, err := fingerprint(f)
	if err != nil {
		return utils.WrapError(fmt.Sprintf("verifying index against %s", path), fmt.Errorf("%w: %v", utils.ErrIO, err))
	}
	if idx.SourceChecksum != 0 && checksum != idx.SourceChecksum {
		return utils.WrapError(fmt.Sprintf("verifying index against %s", path), fmt.Errorf("%w: checksum mismatch", ErrIndex))
	}
	return nil
}
