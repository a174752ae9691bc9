// Package worklist reads transfer lists from CSV.
//
// Two layouts are accepted. By default every row is "source,destination".
// With a URL column and a destination pattern, the source comes from that
// column and the destination is built from the pattern, where {index} is
// the zero-based row number and {ext} the extension of the URL path.
package worklist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/datallboy/fanout/internal/domain"
)

type Options struct {
	// URLColumn selects pattern mode when DestPattern is set.
	URLColumn   int
	DestPattern string
	Header      bool
}

func (o Options) patternMode() bool {
	return o.DestPattern != ""
}

// LoadFile reads the list at path from fs.
func LoadFile(fs afero.Fs, path string, opts Options) ([]domain.TransferUnit, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open work list: %w", err)
	}
	defer f.Close()

	return Load(f, opts)
}

// Load parses r. Blank lines and lines starting with # are ignored.
func Load(r io.Reader, opts Options) ([]domain.TransferUnit, error) {
	if opts.patternMode() && opts.URLColumn < 0 {
		return nil, errors.New("url column must not be negative")
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var units []domain.TransferUnit
	skipHeader := opts.Header

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse work list: %w", err)
		}

		if skipHeader {
			skipHeader = false
			continue
		}

		line, _ := cr.FieldPos(0)

		unit, err := opts.unit(record, len(units))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		units = append(units, unit)
	}

	return units, nil
}

func (o Options) unit(record []string, index int) (domain.TransferUnit, error) {
	if !o.patternMode() {
		if len(record) < 2 {
			return domain.TransferUnit{}, fmt.Errorf("expected source,destination but got %d column(s)", len(record))
		}
		return newUnit(record[0], record[1])
	}

	if o.URLColumn >= len(record) {
		return domain.TransferUnit{}, fmt.Errorf("no column %d in a row of %d", o.URLColumn, len(record))
	}

	source := strings.TrimSpace(record[o.URLColumn])
	dest := strings.NewReplacer(
		"{index}", strconv.Itoa(index),
		"{ext}", extension(source),
	).Replace(o.DestPattern)

	return newUnit(source, dest)
}

func newUnit(source, dest string) (domain.TransferUnit, error) {
	source = strings.TrimSpace(source)
	dest = strings.TrimSpace(dest)
	if source == "" || dest == "" {
		return domain.TransferUnit{}, errors.New("source and destination must not be empty")
	}
	return domain.TransferUnit{Source: source, Destination: dest}, nil
}

// extension returns the extension of the URL path without the dot.
func extension(source string) string {
	p := source
	if u, err := url.Parse(source); err == nil {
		p = u.Path
	}
	return strings.TrimPrefix(path.Ext(p), ".")
}
