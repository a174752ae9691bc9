package engine

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/datallboy/fanout/internal/domain"
	"github.com/datallboy/fanout/internal/transfer"
)

// fakeDownloader decides outcomes from the source string:
// "skip" in the source skips, "fail" fails, "panic" panics, "block" waits
// for release to be closed.
type fakeDownloader struct {
	mu       sync.Mutex
	seen     []string
	release  chan struct{}
	attempts int
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{release: make(chan struct{})}
}

func (f *fakeDownloader) Attempt(_ context.Context, unit domain.TransferUnit, overwrite bool) (transfer.Result, error) {
	f.mu.Lock()
	f.seen = append(f.seen, unit.Source)
	f.attempts++
	f.mu.Unlock()

	switch {
	case strings.Contains(unit.Source, "block"):
		<-f.release
		return transfer.Result{Outcome: domain.OutcomeOK, Bytes: 1}, nil
	case strings.Contains(unit.Source, "panic"):
		panic("simulated crash")
	case strings.Contains(unit.Source, "fail"):
		return transfer.Result{Outcome: domain.OutcomeFailed}, &domain.TransferError{
			Op: "open-source", Unit: unit, Err: errors.New("connection refused"),
		}
	case strings.Contains(unit.Source, "skip") && !overwrite:
		return transfer.Result{Outcome: domain.OutcomeSkipped}, nil
	default:
		return transfer.Result{Outcome: domain.OutcomeOK, Bytes: 10}, nil
	}
}

// errOnlyDownloader reports failure through the error alone.
type errOnlyDownloader struct{}

func (errOnlyDownloader) Attempt(context.Context, domain.TransferUnit, bool) (transfer.Result, error) {
	return transfer.Result{}, errors.New("boom")
}

// crashWriter panics on the line reporting a finished "crash" unit, which
// brings the worker down outside the downloader.
type crashWriter struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (w *crashWriter) Write(p []byte) (int, error) {
	if strings.Contains(string(p), "===> /out/crash") {
		panic("simulated crash")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (f *fakeDownloader) sources() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

func units(sources ...string) []domain.TransferUnit {
	out := make([]domain.TransferUnit, len(sources))
	for i, s := range sources {
		out[i] = domain.TransferUnit{Source: s, Destination: "/out/" + s}
	}
	return out
}
