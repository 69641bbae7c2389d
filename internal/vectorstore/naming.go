package vectorstore

import (
	"path/filepath"
	"strings"
)

// DBFile is the SQLite file name inside a collection directory.
const DBFile = "collection.db"

var segmentReplacer = strings.NewReplacer(" ", "_", "-", "_", "\t", "_", "/", "_", `\`, "_")

// normalize lower-cases s and maps spaces, hyphens and path separators to
// '_'. normalize(normalize(s)) == normalize(s).
func normalize(s string) string {
	s = segmentReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
	if s == "." || s == ".." {
		return "_"
	}
	return s
}

// DocumentBasename is the file name of document without directories or
// extension.
func DocumentBasename(document string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(document), `\`, "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CollectionName is "{company}_{document_basename}", normalized.
func CollectionName(company, document string) string {
	return normalize(company) + "_" + normalize(DocumentBasename(document))
}

// PersistDir is the directory holding the collection database:
// {root}/{company}/{document_basename}.
func PersistDir(root, company, document string) string {
	return filepath.Join(root, normalize(company), normalize(DocumentBasename(document)))
}
