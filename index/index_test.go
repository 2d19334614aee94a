package index_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/mdf4"
	"github.com/scigolib/mdf4/index"
)

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func writeTestFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "indexed.mf4")

	w, err := mdf4.NewWriter(path)
	require.NoError(t, err)

	cg, err := w.AddChannelGroup("Engine")
	require.NoError(t, err)
	require.NoError(t, w.AddTimeChannel(cg, "t"))
	require.NoError(t, w.AddChannel(cg, "rpm", mdf4.DataTypeUnsignedLE, 32))
	require.NoError(t, w.AddLinearConversion(cg, "rpm", 100.0, 2.0))

	require.NoError(t, w.StartDataBlock(cg))
	for i := 0; i < 10; i++ {
		require.NoError(t, w.WriteRecord(cg, []mdf4.Value{float32(i), uint32(i)}))
	}
	require.NoError(t, w.FinishDataBlock(cg))
	require.NoError(t, w.Finalize())
	require.NoError(t, w.Close())

	return path
}

func TestFromFileBuildsResolvedIndex(t *testing.T) {
	path := writeTestFile(t)

	idx, err := index.FromFile(path)
	require.NoError(t, err)
	require.Len(t, idx.ChannelGroups, 1)

	groups := idx.ListChannelGroups()
	require.Len(t, groups, 1)
	assert.Equal(t, "Engine", groups[0].Name)
	assert.Equal(t, 2, groups[0].ChannelCount)

	gi, ci, found := idx.FindChannelByName("rpm")
	require.True(t, found)
	assert.Equal(t, 0, gi)

	channels, err := idx.ListChannels(gi)
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "rpm", channels[ci].Name)

	ch := idx.ChannelGroups[gi].Channels[ci]
	require.NotNil(t, ch.Conversion)
	assert.Equal(t, "linear", ch.Conversion.ConversionType)
	assert.Equal(t, 100.0, ch.Conversion.A)
	assert.Equal(t, 2.0, ch.Conversion.B)
}

func TestFromFileUnknownGroupOrChannel(t *testing.T) {
	path := writeTestFile(t)
	idx, err := index.FromFile(path)
	require.NoError(t, err)

	_, err = idx.ListChannels(99)
	assert.ErrorIs(t, err, index.ErrGroupNotFound)

	_, _, found := idx.FindChannelByName("nope")
	assert.False(t, found)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := writeTestFile(t)
	idx, err := index.FromFile(path)
	require.NoError(t, err)

	jsonPath := filepath.Join(t.TempDir(), "indexed.json")
	require.NoError(t, idx.Save(jsonPath))

	loaded, err := index.Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, idx.FileSize, loaded.FileSize)
	assert.Equal(t, idx.SourceChecksum, loaded.SourceChecksum)
	require.Len(t, loaded.ChannelGroups, 1)
	assert.Equal(t, "Engine", loaded.ChannelGroups[0].Name)
}

func TestVerifyAgainstFileDetectsMismatch(t *testing.T) {
	path := writeTestFile(t)
	idx, err := index.FromFile(path)
	require.NoError(t, err)
	require.NoError(t, idx.VerifyAgainstFile(path))

	// The writer's output is deterministic, so alter one byte of a second
	// file to make its contents differ from the indexed one.
	otherPath := writeTestFile(t)
	data, err := readFile(otherPath)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(otherPath, data, 0o644))

	err = idx.VerifyAgainstFile(otherPath)
	assert.Error(t, err)
}

func TestGetChannelByteRangesForRecordsClipsToRequestedSpan(t *testing.T) {
	path := writeTestFile(t)
	idx, err := index.FromFile(path)
	require.NoError(t, err)

	gi, ci, found := idx.FindChannelByName("rpm")
	require.True(t, found)

	full, err := idx.GetChannelByteRanges(gi, ci)
	require.NoError(t, err)
	require.Len(t, full, 1)

	partial, err := idx.GetChannelByteRangesForRecords(gi, ci, 2, 3)
	require.NoError(t, err)
	require.Len(t, partial, 1)

	stride := idx.ChannelGroups[gi].RecordSize
	assert.Equal(t, full[0].FileOffset+uint64(2*stride), partial[0].FileOffset)
	assert.Equal(t, uint64(3*stride), partial[0].Size)
}

func TestReadChannelValuesFromFilePath(t *testing.T) {
	path := writeTestFile(t)
	idx, err := index.FromFile(path)
	require.NoError(t, err)

	gi, ci, found := idx.FindChannelByName("rpm")
	require.True(t, found)

	vals, err := idx.ReadChannelValues(gi, ci, path)
	require.NoError(t, err)
	require.Len(t, vals, 10)
	for i, v := range vals {
		assert.Equal(t, 100.0+2.0*float64(i), v)
	}
}

func TestReadChannelValuesFromMemoryRangeProvider(t *testing.T) {
	path := writeTestFile(t)
	idx, err := index.FromFile(path)
	require.NoError(t, err)

	data, err := readFile(path)
	require.NoError(t, err)
	provider := index.NewMemoryRangeProvider(data)

	gi, ci, found := idx.FindChannelByName("rpm")
	require.True(t, found)

	vals, err := idx.ReadChannelValues(gi, ci, provider)
	require.NoError(t, err)
	require.Len(t, vals, 10)
	assert.Equal(t, 100.0, vals[0])
}

func TestReadChannelValuesFromHTTPRangeProvider(t *testing.T) {
	path := writeTestFile(t)
	idx, err := index.FromFile(path)
	require.NoError(t, err)

	data, err := readFile(path)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "indexed.mf4", time.Time{}, bytes.NewReader(data))
	}))
	defer srv.Close()

	provider := index.NewHTTPRangeProvider(srv.URL, nil)

	gi, ci, found := idx.FindChannelByName("rpm")
	require.True(t, found)

	vals, err := idx.ReadChannelValues(gi, ci, provider)
	require.NoError(t, err)
	require.Len(t, vals, 10)
	assert.Equal(t, 100.0, vals[0])
}

func TestReadChannelValuesUnsupportedSourceType(t *testing.T) {
	path := writeTestFile(t)
	idx, err := index.FromFile(path)
	require.NoError(t, err)

	_, err = idx.ReadChannelValues(0, 0, 42)
	assert.Error(t, err)
}
