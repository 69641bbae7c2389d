package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// withPDF opens path and hands the reader to fn. The PDF library panics on
// some malformed files; that is reported as an error.
func withPDF(path string, fn func(*pdf.Reader) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(r)
}

func firstPageChars(path string) (int, error) {
	var n int
	err := withPDF(path, func(r *pdf.Reader) error {
		if r.NumPage() < 1 {
			return errors.New("pdf has no pages")
		}
		p := r.Page(1)
		if p.V.IsNull() {
			return nil
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return err
		}
		n = utf8.RuneCountInString(strings.TrimSpace(txt))
		return nil
	})
	return n, err
}

func (e *Extractor) extractPDFText(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{Method: "pdf-text"}
	var b strings.Builder
	err := withPDF(path, func(r *pdf.Reader) error {
		total := r.NumPage()
		if e.cfg.MaxPages > 0 && total > e.cfg.MaxPages {
			res.Warnings = append(res.Warnings, fmt.Sprintf("only the first %d of %d pages were read", e.cfg.MaxPages, total))
			total = e.cfg.MaxPages
		}
		for i := 1; i <= total; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := r.Page(i)
			if p.V.IsNull() {
				continue
			}
			txt, err := p.GetPlainText(nil)
			if err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", i, err))
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(PageHeader(i))
			b.WriteString("\n")
			b.WriteString(txt)
			res.Pages++
		}
		return nil
	})
	res.Text = b.String()
	return res, err
}

func (e *Extractor) extractPDFImages(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{Method: "pdf-caption"}
	if e.captioner == nil {
		return res, errors.New("image-only pdf needs a captioner")
	}

	tmpDir, err := os.MkdirTemp(e.cfg.TempDir, "pb-pages-*")
	if err != nil {
		return res, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("ocr.tempdir.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 150 -png [-l N] <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, prefix)
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...); err != nil {
		res.Warnings = append(res.Warnings, strings.TrimSpace(string(errb)))
		return res, fmt.Errorf("pdftoppm: %w", err)
	}

	// page-1.png, page-2.png, ... (zero padded when there are many pages)
	pages, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(pages)
	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		pages = pages[:e.cfg.MaxPages]
	}
	if len(pages) == 0 {
		res.Warnings = append(res.Warnings, "pdftoppm produced no images")
		return res, errors.New("no pages rendered")
	}

	text, warns, n, err := e.captionAll(ctx, pages, true)
	res.Text = text
	res.Pages = len(pages)
	res.Captioned = n
	res.Warnings = append(res.Warnings, warns...)
	return res, err
}
