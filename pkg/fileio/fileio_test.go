package fileio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestReadText(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	t.Run("utf8", func(t *testing.T) {
		path := filepath.Join(dir, "lexicon.txt")
		require.NoError(t, os.WriteFile(path, []byte("\\lx ñandú\r\n"), 0644))

		got, err := ReadText(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "\\lx ñandú\r\n", got)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := ReadText(ctx, filepath.Join(dir, "nope.txt"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("invalid_utf8", func(t *testing.T) {
		path := filepath.Join(dir, "latin1.txt")
		require.NoError(t, os.WriteFile(path, []byte{'\\', 'l', 'x', ' ', 0xf1, '\n'}, 0644))

		_, err := ReadText(ctx, path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not valid UTF-8")
	})
}

func TestCheckDestination(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0644))

	tests := []struct {
		name      string
		path      string
		overwrite bool
		wantErr   bool
	}{
		{name: "missing_file", path: filepath.Join(dir, "new.txt")},
		{name: "existing_file_overwrite", path: existing, overwrite: true},
		{name: "existing_file", path: existing, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckDestination(tt.path, tt.overwrite)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var oerr *OutputExistsError
			require.True(t, errors.As(err, &oerr))
			assert.Equal(t, tt.path, oerr.Path)
		})
	}
}

func TestWriteAtomic(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("creates_parents", func(t *testing.T) {
		path := filepath.Join(dir, "a", "b", "out.txt")
		require.NoError(t, WriteAtomic(ctx, path, []byte("hello")))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(got))
	})

	t.Run("replaces_existing", func(t *testing.T) {
		path := filepath.Join(dir, "out.txt")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0644))
		require.NoError(t, WriteAtomic(ctx, path, []byte("new")))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(got))
	})

	t.Run("leaves_no_temp_files", func(t *testing.T) {
		sub := filepath.Join(dir, "clean")
		require.NoError(t, WriteAtomic(ctx, filepath.Join(sub, "x.txt"), []byte("x")))

		entries, err := os.ReadDir(sub)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "x.txt", entries[0].Name())
	})
}
