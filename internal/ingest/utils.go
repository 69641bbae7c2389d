package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/proposal-builder/constants"
)

// AllowedExt checks if a file extension is in the upload allow-list.
func AllowedExt(ext string) bool {
	return constants.IsAllowedExt(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// SafeFilename strips any directory components (either separator style) from
// a client-supplied name. It returns "" for names that reduce to nothing.
func SafeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}
