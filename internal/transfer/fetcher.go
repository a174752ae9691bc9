package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/datallboy/fanout/internal/domain"
)

// Fetcher opens a streaming read of a source locator.
type Fetcher interface {
	Open(ctx context.Context, source string) (io.ReadCloser, error)
}

// ClientConfig holds HTTP fetcher configuration
type ClientConfig struct {
	Timeout   time.Duration // 0 disables the client timeout
	UserAgent string
}

// DefaultClientConfig returns default HTTP fetcher configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{UserAgent: "fanout/1.0"}
}

// HTTPFetcher streams http and https sources.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

func NewHTTPFetcher(cfg ClientConfig) *HTTPFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultClientConfig().UserAgent
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
	}
}

func (f *HTTPFetcher) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", domain.ErrUnexpectedStatus, resp.StatusCode)
	}

	return resp.Body, nil
}

// FileFetcher reads file: URLs and bare local paths.
type FileFetcher struct {
	fs afero.Fs
}

func NewFileFetcher(fs afero.Fs) *FileFetcher {
	return &FileFetcher{fs: fs}
}

func (f *FileFetcher) Open(_ context.Context, source string) (io.ReadCloser, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, err
	}
	path := source
	if u.Scheme == "file" {
		path = u.Path
	}
	return f.fs.Open(path)
}

// MuxFetcher dispatches on the URL scheme. An empty scheme means a local path.
type MuxFetcher struct {
	schemes map[string]Fetcher
}

// NewMuxFetcher routes http/https to httpFetcher and file/"" to fileFetcher.
// Either may be nil to disable that family.
func NewMuxFetcher(httpFetcher, fileFetcher Fetcher) *MuxFetcher {
	m := &MuxFetcher{schemes: make(map[string]Fetcher)}
	if httpFetcher != nil {
		m.schemes["http"] = httpFetcher
		m.schemes["https"] = httpFetcher
	}
	if fileFetcher != nil {
		m.schemes["file"] = fileFetcher
		m.schemes[""] = fileFetcher
	}
	return m
}

// Register routes scheme to f, replacing any earlier registration.
func (m *MuxFetcher) Register(scheme string, f Fetcher) {
	m.schemes[strings.ToLower(scheme)] = f
}

func (m *MuxFetcher) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("malformed source: %w", err)
	}
	f, ok := m.schemes[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedScheme, u.Scheme)
	}
	return f.Open(ctx, source)
}
