package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// maxFiles bounds how many files one glob may expand to.
const maxFiles = 1000

// Reader reads rows of one parquet file.
//
// It maintains both an OS file handle and a parquet file handle to enable
// proper resource cleanup.
type Reader struct {
	path   string
	file   *os.File
	pqFile *parquet.File
}

// NewReader opens path and validates it as a parquet file.
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return &Reader{path: path, file: file, pqFile: pqFile}, nil
}

// Path returns the file path.
func (r *Reader) Path() string {
	return r.path
}

// NumRows returns the row count recorded in the file metadata.
func (r *Reader) NumRows() int64 {
	return r.pqFile.NumRows()
}

// Rows streams the rows of the file as maps keyed by column name. fn is
// called once per row in file order; the map is reused between calls.
func (r *Reader) Rows(fn func(row map[string]any) error) error {
	reader := parquet.NewReader(r.pqFile)
	defer func() { _ = reader.Close() }()

	row := make(map[string]any)
	for {
		clear(row)
		err := reader.Read(&row)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read row: %w", err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// ReadAll reads all rows of the file into memory.
func (r *Reader) ReadAll() ([]map[string]any, error) {
	var rows []map[string]any
	err := r.Rows(func(row map[string]any) error {
		cp := make(map[string]any, len(row))
		for k, v := range row {
			cp[k] = v
		}
		rows = append(rows, cp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Schema returns the parquet file schema.
func (r *Reader) Schema() *parquet.Schema {
	return r.pqFile.Schema()
}

// Close releases the file handle. It is safe to call Close multiple times.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Glob expands pattern into the sorted list of files to read. A pattern
// without wildcards is returned as is.
func Glob(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[]") {
		return []string{pattern}, nil
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match pattern: %s", pattern)
	}
	if len(matches) > maxFiles {
		return nil, fmt.Errorf("glob pattern matched too many files (%d), maximum is %d", len(matches), maxFiles)
	}
	sort.Strings(matches)
	return matches, nil
}
