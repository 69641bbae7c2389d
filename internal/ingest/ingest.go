package ingest

import (
	"context"
	"io"

	"github.com/joseph-ayodele/proposal-builder/internal/ocr"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	Document     ocr.Document
	Deduplicated bool // same content already seen earlier in the walk
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the pipeline and the server depend on.
type Ingestor interface {
	// SaveUpload stores an uploaded file under {root}/{enterprise}/{filename}.
	SaveUpload(ctx context.Context, enterprise, filename string, r io.Reader) (ocr.Document, error)
	// IngestPath describes a file already on disk.
	IngestPath(ctx context.Context, path string) (ocr.Document, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
