package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/proposal-builder/constants"
	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/ocr"
)

// ErrTooLarge is returned when an upload exceeds the size cap.
var ErrTooLarge = fmt.Errorf("%w: upload exceeds size limit", common.ErrInvalidInput)

// FSIngestor reads from and saves to the local filesystem.
type FSIngestor struct {
	Root     string // FILE_SAVE_PATH
	MaxBytes int64  // 0 -> constants.MaxUploadMB
	logger   *slog.Logger
}

func NewFSIngestor(root string, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		Root:     root,
		MaxBytes: int64(constants.MaxUploadMB) << 20,
		logger:   logger,
	}
}

// SaveUpload writes r to {Root}/{enterprise}/{filename}, creating directories
// on demand. Path components in filename are dropped. The file is written to
// a temp name first and renamed once fully hashed.
func (i *FSIngestor) SaveUpload(ctx context.Context, enterprise, filename string, r io.Reader) (ocr.Document, error) {
	var out ocr.Document

	name := SafeFilename(filename)
	enterprise = strings.TrimSpace(enterprise)
	v := common.NewValidator().
		Field("enterprise", enterprise, common.Required, common.NoPathSeparators, common.MaxLength(120)).
		Field("filename", name, common.Required, common.MaxLength(255))
	if err := common.ValidateAndReturnError(v); err != nil {
		return out, err
	}
	ext := constants.NormalizeExt(filepath.Ext(name))
	if !AllowedExt(ext) {
		return out, common.InvalidInputErrorf("unsupported file type %q", ext)
	}

	dir := filepath.Join(i.Root, enterprise)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		i.logger.Error("ingest.upload.mkdir_failed", "dir", dir, "error", err)
		return out, common.StorageError("create upload directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return out, common.StorageError("create temp file", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmpName)
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), &ctxReader{ctx: ctx, r: io.LimitReader(r, i.maxBytes()+1)})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		i.logger.Error("ingest.upload.write_failed", "file", name, "error", err)
		return out, common.StorageError("write upload", err)
	}
	if n > i.maxBytes() {
		return out, common.NewAppError("INVALID_INPUT", fmt.Sprintf("%s is larger than %d MB", name, i.maxBytes()>>20), ErrTooLarge)
	}

	dst := filepath.Join(dir, name)
	if err := os.Rename(tmpName, dst); err != nil {
		return out, common.StorageError("store upload", err)
	}

	out, err = describe(ctx, dst, hex.EncodeToString(h.Sum(nil)))
	if err != nil {
		return out, err
	}
	i.logger.Info("ingest.upload.saved",
		"enterprise", enterprise,
		"file", name,
		"bytes", n,
		"kind", out.Kind,
		"sha256", out.SHA256[:12],
	)
	return out, nil
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (ocr.Document, error) {
	var out ocr.Document

	abs, err := filepath.Abs(path)
	if err != nil {
		i.logger.Error("ingest.path.abs_failed", "path", path, "error", err)
		return out, err
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		i.logger.Warn("ingest.path.unsupported", "path", abs, "ext", ext)
		return out, common.InvalidInputErrorf("unsupported or missing extension %q", ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		i.logger.Error("ingest.path.open_failed", "path", abs, "error", err)
		return out, err
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			i.logger.Warn("ingest.path.close_failed", "path", abs, "error", err)
		}
	}(f)

	h := sha256.New()
	if _, err := io.Copy(h, &ctxReader{ctx: ctx, r: f}); err != nil {
		i.logger.Error("ingest.path.hash_failed", "path", abs, "error", err)
		return out, err
	}
	return describe(ctx, abs, hex.EncodeToString(h.Sum(nil)))
}

// IngestDirectory walks root, skips hidden entries if requested, and calls
// IngestPath for each allowed file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.InvalidInputErrorf("root path is required")
	}

	var (
		results []IngestionResult
		stats   DirStats
		seen    = map[string]string{}
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		doc, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		res := IngestionResult{SourcePath: path, Document: doc}
		if first, ok := seen[doc.SHA256]; ok {
			res.Deduplicated = true
			stats.Deduplicated++
			i.logger.Debug("ingest.dir.duplicate", "path", path, "first", first)
		} else {
			seen[doc.SHA256] = path
		}
		results = append(results, res)
		stats.Succeeded++
		return nil
	})

	i.logger.Info("ingest.dir.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

func (i *FSIngestor) maxBytes() int64 {
	if i.MaxBytes > 0 {
		return i.MaxBytes
	}
	return int64(constants.MaxUploadMB) << 20
}

func describe(ctx context.Context, path, sum string) (ocr.Document, error) {
	st, err := os.Stat(path)
	if err != nil {
		return ocr.Document{}, err
	}
	return ocr.Document{
		Path:    path,
		Name:    filepath.Base(path),
		Ext:     constants.NormalizeExt(filepath.Ext(path)),
		Size:    st.Size(),
		SHA256:  sum,
		ModTime: st.ModTime().UTC(),
		Kind:    ocr.Classify(ctx, path),
	}, nil
}

// ctxReader stops a long copy when the context ends.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
