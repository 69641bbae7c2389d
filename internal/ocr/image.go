package ocr

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{Method: "image-caption", Pages: 1}
	if e.captioner == nil {
		return res, errors.New("image needs a captioner")
	}
	text, warns, n, err := e.captionAll(ctx, []string{path}, false)
	res.Text = text
	res.Captioned = n
	res.Warnings = warns
	return res, err
}

// captionAll captions each image in order. A failed caption is recorded as
// a warning and skipped; only context cancellation aborts the run.
func (e *Extractor) captionAll(ctx context.Context, images []string, headers bool) (string, []string, int, error) {
	var (
		b     strings.Builder
		warns []string
		n     int
	)
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return b.String(), warns, n, err
		}
		caption, err := e.captioner.Caption(ctx, img)
		if err != nil {
			if ctx.Err() != nil {
				return b.String(), warns, n, ctx.Err()
			}
			e.logger.Warn("ocr.caption.error", "image", filepath.Base(img), "page", i+1, "error", err)
			warns = append(warns, fmt.Sprintf("caption page %d: %v", i+1, err))
			continue
		}
		caption = strings.TrimSpace(caption)
		if caption == "" {
			warns = append(warns, fmt.Sprintf("caption page %d: empty", i+1))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if headers {
			b.WriteString(PageHeader(i + 1))
			b.WriteString("\n")
		}
		b.WriteString(caption)
		n++
	}
	return b.String(), warns, n, nil
}
