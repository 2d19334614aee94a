package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/mdf4/internal/utils"
)

func TestWriteThenReadIdentification(t *testing.T) {
	raw := WriteIdentification("mdf4", 410)
	require.Len(t, raw, IdentificationSize)

	id, err := ReadIdentification(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "MDF", id.FileID)
	assert.Equal(t, "4.10", id.FormatID)
	assert.Equal(t, "mdf4", id.Program)
	assert.Equal(t, uint16(410), id.VersionCode)
}

func TestReadIdentificationRejectsBadMagic(t *testing.T) {
	raw := make([]byte, IdentificationSize)
	copy(raw[0:8], "XXXX    ")

	_, err := ReadIdentification(bytes.NewReader(raw))
	assert.ErrorIs(t, err, utils.ErrBlockID)
}

func TestWriteIdentificationTruncatesLongProgram(t *testing.T) {
	raw := WriteIdentification("way-too-long-name", 420)
	id, err := ReadIdentification(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Len(t, id.Program, 8)
	assert.Equal(t, "4.20", id.FormatID)
}
