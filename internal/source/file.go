package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// FileSource reads a batch from a local file. Files ending in .gz or .zst
// are decompressed transparently.
type FileSource struct {
	path string
}

// File returns a FileSource for path.
func File(path string) *FileSource { return &FileSource{path: path} }

// Lines reads and splits the whole file.
func (s *FileSource) Lines(ctx context.Context) ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	var r io.Reader = f
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip %s: %w", s.path, err)
		}
		defer zr.Close()
		r = zr
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd %s: %w", s.path, err)
		}
		defer zr.Close()
		r = zr
	}

	lines, err := readLines(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return lines, nil
}
