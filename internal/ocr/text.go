package ocr

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

var (
	reCtrl       = regexp.MustCompile(`[\x00-\x08\x0b\x0e-\x1f\x7f]`)
	reTrailingWS = regexp.MustCompile(`[ \t]+\n`)
	reBlankRuns  = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans extracted text: unix newlines, no control characters,
// no trailing spaces and at most one blank line in a row.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\f", "\n")
	s = reCtrl.ReplaceAllString(s, "")
	s = reTrailingWS.ReplaceAllString(s, "\n")
	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// extractPlainText reads txt/csv files, decoding non-UTF-8 content with the
// detected charset.
func extractPlainText(path string) (ExtractionResult, error) {
	res := ExtractionResult{Method: "plain-text", Pages: 1}
	b, err := os.ReadFile(path)
	if err != nil {
		return res, err
	}
	if !utf8.Valid(b) {
		enc, name, _ := charset.DetermineEncoding(b, "text/plain")
		decoded, err := enc.NewDecoder().Bytes(b)
		if err != nil {
			return res, fmt.Errorf("decode %s: %w", name, err)
		}
		res.Warnings = append(res.Warnings, "decoded from "+name)
		b = decoded
	}
	res.Text = string(b)
	return res, nil
}

// extractDocx pulls the text runs out of word/document.xml. Paragraphs and
// line breaks become newlines; tabs are kept.
func extractDocx(path string) (ExtractionResult, error) {
	res := ExtractionResult{Method: "docx", Pages: 1}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return res, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return res, fmt.Errorf("open docx: word/document.xml not found")
	}
	rc, err := doc.Open()
	if err != nil {
		return res, err
	}
	defer rc.Close()

	text, err := docxText(rc)
	res.Text = text
	return res, err
}

func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		b      strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return b.String(), fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}
