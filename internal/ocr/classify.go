package ocr

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/proposal-builder/constants"
)

// Classify decides how a document is turned into text. Image MIME types
// (by extension, then by content) are single images; a PDF whose first page
// has no extractable characters is image-only. Any PDF probe error falls
// back to KindPDFWithText.
func Classify(ctx context.Context, path string) constants.DocumentKind {
	ext := constants.NormalizeExt(filepath.Ext(path))
	switch constants.MapExtToFormat(ext) {
	case constants.IMAGE:
		return constants.KindSingleImage
	case constants.TEXT:
		return constants.KindPlainText
	case constants.DOCX:
		return constants.KindWordDocument
	}
	if sniffImage(path) {
		return constants.KindSingleImage
	}
	if ctx.Err() != nil {
		return constants.KindPDFWithText
	}

	n, err := firstPageChars(path)
	if err != nil {
		slog.Debug("ocr.classify.fallback", "file", filepath.Base(path), "error", err)
		return constants.KindPDFWithText
	}
	if n == 0 {
		return constants.KindPDFWithImages
	}
	return constants.KindPDFWithText
}

func sniffImage(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(head[:n]), "image/")
}
