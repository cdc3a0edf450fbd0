package workspace

import (
	"path/filepath"
	"strings"
)

// pathContains reports whether dir equals root or sits beneath it.
func pathContains(root, dir string) bool {
	root = filepath.Clean(root)
	dir = filepath.Clean(dir)
	if root == dir {
		return true
	}
	return strings.HasPrefix(dir, root+string(filepath.Separator))
}
