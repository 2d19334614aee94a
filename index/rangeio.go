package index

import (
	"fmt"
	"io"
	"net/http"

	"github.com/scigolib/mdf4/internal/utils"
)

// ByteRangeProvider supplies raw bytes from a span of an MDF file without
// exposing the rest of it. Implementations are called serially from a
// single decode loop and need not be internally thread-safe; local file,
// in-memory buffer, and HTTP range client all satisfy it.
type ByteRangeProvider interface {
	ReadRange(offset, length uint64) ([]byte, error)
}

// FileRangeProvider reads ranges from a local os.File-like handle.
type FileRangeProvider struct {
	r utils.ReaderAt
}

// NewFileRangeProvider wraps r (typically an *os.File) as a ByteRangeProvider.
func NewFileRangeProvider(r utils.ReaderAt) *FileRangeProvider {
	return &FileRangeProvider{r: r}
}

// ReadRange implements ByteRangeProvider.
func (p *FileRangeProvider) ReadRange(offset, length uint64) ([]byte, error) {
	buf := make([]byte, length)
	//nolint:gosec // G115: MDF file offsets fit in int64 for io.ReaderAt
	if _, err := p.r.ReadAt(buf, int64(offset)); err != nil {
		return nil, utils.WrapError(fmt.Sprintf("reading range [%d, %d)", offset, offset+length), fmt.Errorf("%w: %v", utils.ErrIO, err))
	}
	return buf, nil
}

// MemoryRangeProvider reads ranges from an in-memory buffer, for indexes
// built over data already resident in memory.
type MemoryRangeProvider struct {
	data []byte
}

// NewMemoryRangeProvider wraps data as a ByteRangeProvider.
func NewMemoryRangeProvider(data []byte) *MemoryRangeProvider {
	return &MemoryRangeProvider{data: data}
}

// ReadRange implements ByteRangeProvider.
func (p *MemoryRangeProvider) ReadRange(offset, length uint64) ([]byte, error) {
	end := offset + length
	if end > uint64(len(p.data)) {
		return nil, utils.WrapError(fmt.Sprintf("reading range [%d, %d)", offset, end), utils.ErrTruncatedBlock)
	}
	return p.data[offset:end], nil
}

// HTTPRangeProvider reads ranges via HTTP Range requests, for decoding a
// remote file without downloading it in full.
type HTTPRangeProvider struct {
	URL    string
	Client *http.Client
}

// NewHTTPRangeProvider creates a provider issuing Range requests against url.
// A nil client uses http.DefaultClient.
func NewHTTPRangeProvider(url string, client *http.Client) *HTTPRangeProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRangeProvider{URL: url, Client: client}
}

// ReadRange implements ByteRangeProvider by issuing a single-range GET.
func (p *HTTPRangeProvider) ReadRange(offset, length uint64) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, utils.WrapError("building range request", fmt.Errorf("%w: %v", utils.ErrIO, err))
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+length-1))

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, utils.WrapError(fmt.Sprintf("fetching range [%d, %d)", offset, offset+length), fmt.Errorf("%w: %v", utils.ErrIO, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return nil, utils.WrapError(fmt.Sprintf("fetching range [%d, %d)", offset, offset+length), fmt.Errorf("%w: unexpected status %d", utils.ErrIO, resp.StatusCode))
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		return nil, utils.WrapError(fmt.Sprintf("reading range [%d, %d)", offset, offset+length), fmt.Errorf("%w: %v", utils.ErrTruncatedBlock, err))
	}
	return buf, nil
}
