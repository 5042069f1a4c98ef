package inject

import "path/filepath"

// absOrSelfPortable normalises a path the launcher process itself will pass
// along (as opposed to absOrSelf in the Windows injector, which normalises a
// path written into a remote process). Kept separate since only the latter
// needs the build tag.
func absOrSelfPortable(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
