package domain

import (
	"errors"
	"fmt"
)

// ErrUnsupportedScheme indicates a source URL no fetcher can open
var ErrUnsupportedScheme = errors.New("unsupported source scheme")

// ErrUnexpectedStatus indicates a non-2xx HTTP response
var ErrUnexpectedStatus = errors.New("unexpected status code")

// ErrSourceNotFound indicates an object store source with no such key
var ErrSourceNotFound = errors.New("source not found")

// ErrRunNotFound indicates an unknown run id
var ErrRunNotFound = errors.New("run not found")

// TransferError describes why a single transfer failed.
type TransferError struct {
	Op   string // attempt, open-source, create-destination, copy
	Unit TransferUnit
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s ===> %s: %v", e.Op, e.Unit.Source, e.Unit.Destination, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
