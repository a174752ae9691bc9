package transfer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileWriter creates destination files and fills them chunk by chunk.
type FileWriter struct {
	fs afero.Fs
}

func NewFileWriter(fs afero.Fs) *FileWriter {
	return &FileWriter{fs: fs}
}

// Exists reports whether path is already a regular file.
func (fw *FileWriter) Exists(path string) bool {
	info, err := fw.fs.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Create truncates or creates path, making parent directories as needed.
func (fw *FileWriter) Create(path string) (afero.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := fw.fs.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("could not create directory %s: %w", dir, err)
		}
	}

	f, err := fw.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open destination file: %w", err)
	}
	return f, nil
}

// CopyChunks moves src into dst one buffer at a time until src is exhausted.
// Reads never exceed len(buf); io.CopyBuffer does not guarantee that once
// ReaderFrom or WriterTo are involved.
func CopyChunks(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			w, err := dst.Write(buf[:n])
			written += int64(w)
			if err != nil {
				return written, err
			}
			if w != n {
				return written, io.ErrShortWrite
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
