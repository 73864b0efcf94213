package batch

import (
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// 🔍 Expand returns the files under root matching pattern, minus any matching
// one of the ignore patterns. Paths are relative to root, slash separated and
// sorted.
func Expand(root, pattern string, ignore ...string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.Errorf("invalid glob pattern %q", pattern)
	}
	for _, ig := range ignore {
		if !doublestar.ValidatePattern(ig) {
			return nil, errors.Errorf("invalid ignore pattern %q", ig)
		}
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Errorf("expanding %q in %s: %w", pattern, root, err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if !ignored(m, ignore) {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func ignored(path string, patterns []string) bool {
	for _, p := range patterns {
		// patterns were validated by Expand
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}
