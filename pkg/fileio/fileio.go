// Package fileio reads input documents and writes results without leaving
// half-written output files behind.
package fileio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// OutputExistsError is returned when the destination already exists and
// overwriting was not requested.
type OutputExistsError struct {
	Path string
}

func (e *OutputExistsError) Error() string {
	return fmt.Sprintf("output file already exists: %s", e.Path)
}

// 📖 ReadText reads a whole UTF-8 text file into memory
func ReadText(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Errorf("reading input file: %w", err)
	}
	if !utf8.Valid(data) {
		return "", errors.Errorf("reading input file %s: not valid UTF-8", path)
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Int("bytes", len(data)).Msg("read input file")
	return string(data), nil
}

// CheckDestination fails with OutputExistsError if path exists and overwrite
// is false.
func CheckDestination(path string, overwrite bool) error {
	if overwrite {
		return nil
	}
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return &OutputExistsError{Path: path}
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return errors.Errorf("checking output file: %w", err)
	}
}

// 💾 WriteAtomic writes content to a temp file next to path and renames it
// into place, creating parent directories as needed.
func WriteAtomic(ctx context.Context, path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("setting temp file mode: %w", err)
	}

	// Rename temp file to target (atomic operation)
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath) // Clean up temp file
		return errors.Errorf("renaming temp file: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Int("bytes", len(content)).Msg("wrote output file")
	return nil
}
