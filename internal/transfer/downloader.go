package transfer

import (
	"context"
	"sync"

	"github.com/spf13/afero"

	"github.com/datallboy/fanout/internal/domain"
)

// DefaultBufferSize is the chunk size used when none is configured.
const DefaultBufferSize = 1024 * 1024

// Result is the classified outcome of one attempt and the bytes it wrote.
type Result struct {
	Outcome domain.Outcome
	Bytes   int64
}

// Downloader executes single transfers. It holds no per-transfer state and
// may be shared by every worker of a pool.
type Downloader struct {
	fetcher    Fetcher
	writer     *FileWriter
	bufferSize int
	buffers    sync.Pool
}

// NewDownloader writes destinations through fs and reads sources through
// fetcher, in chunks of bufferSize bytes.
func NewDownloader(fs afero.Fs, fetcher Fetcher, bufferSize int) *Downloader {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	d := &Downloader{
		fetcher:    fetcher,
		writer:     NewFileWriter(fs),
		bufferSize: bufferSize,
	}
	d.buffers.New = func() any {
		b := make([]byte, d.bufferSize)
		return &b
	}
	return d
}

// BufferSize returns the configured chunk size.
func (d *Downloader) BufferSize() int { return d.bufferSize }

// Attempt performs one transfer. Without overwrite, a destination that is
// already a regular file is skipped before any network or write access; in
// every other case the source is downloaded. Failures come back as
// OutcomeFailed with a *domain.TransferError; a partially written
// destination is left in place.
func (d *Downloader) Attempt(ctx context.Context, unit domain.TransferUnit, overwrite bool) (Result, error) {
	if !overwrite && d.writer.Exists(unit.Destination) {
		return Result{Outcome: domain.OutcomeSkipped}, nil
	}

	// The source is opened first so an unreachable source never leaves an
	// empty destination that a later run would skip.
	src, err := d.fetcher.Open(ctx, unit.Source)
	if err != nil {
		return failed(0, "open-source", unit, err)
	}
	defer src.Close()

	dst, err := d.writer.Create(unit.Destination)
	if err != nil {
		return failed(0, "create-destination", unit, err)
	}

	bp := d.buffers.Get().(*[]byte)
	defer d.buffers.Put(bp)

	n, err := CopyChunks(dst, src, *bp)
	if err != nil {
		dst.Close()
		return failed(n, "copy", unit, err)
	}

	if err := dst.Close(); err != nil {
		return failed(n, "copy", unit, err)
	}

	return Result{Outcome: domain.OutcomeOK, Bytes: n}, nil
}

func failed(n int64, op string, unit domain.TransferUnit, err error) (Result, error) {
	return Result{Outcome: domain.OutcomeFailed, Bytes: n}, &domain.TransferError{Op: op, Unit: unit, Err: err}
}
