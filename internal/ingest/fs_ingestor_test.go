package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/proposal-builder/constants"
	"github.com/joseph-ayodele/proposal-builder/internal/common"
)

func newTestIngestor(t *testing.T) *FSIngestor {
	t.Helper()
	return NewFSIngestor(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSafeFilename(t *testing.T) {
	tests := map[string]string{
		"rfi.pdf":               "rfi.pdf",
		"../../etc/passwd.txt":  "passwd.txt",
		`C:\Users\me\brief.docx`: "brief.docx",
		"  spaced name.csv ":    "spaced name.csv",
		"..":                    "",
		"dir/":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeFilename(in), in)
	}
}

func TestSaveUpload(t *testing.T) {
	ing := newTestIngestor(t)
	content := "Acme Corp is looking for a CRM partner."

	doc, err := ing.SaveUpload(context.Background(), "Acme Corp", "../../rfi.txt", strings.NewReader(content))
	require.NoError(t, err)

	want := filepath.Join(ing.Root, "Acme Corp", "rfi.txt")
	assert.Equal(t, want, doc.Path)
	assert.Equal(t, "rfi.txt", doc.Name)
	assert.Equal(t, "txt", doc.Ext)
	assert.Equal(t, int64(len(content)), doc.Size)
	assert.Equal(t, constants.KindPlainText, doc.Kind)

	sum := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(sum[:]), doc.SHA256)

	b, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, content, string(b))

	entries, err := os.ReadDir(filepath.Join(ing.Root, "Acme Corp"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestSaveUploadRejects(t *testing.T) {
	ing := newTestIngestor(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		enterprise string
		filename   string
	}{
		{"bad extension", "Acme", "payload.exe"},
		{"no extension", "Acme", "README"},
		{"empty enterprise", " ", "rfi.pdf"},
		{"enterprise escapes root", "../other", "rfi.pdf"},
		{"empty filename", "Acme", "../"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ing.SaveUpload(ctx, tt.enterprise, tt.filename, strings.NewReader("x"))
			require.Error(t, err)
			assert.Equal(t, 400, common.HTTPStatus(err))
		})
	}

	entries, _ := os.ReadDir(ing.Root)
	assert.Empty(t, entries)
}

func TestSaveUploadTooLarge(t *testing.T) {
	ing := newTestIngestor(t)
	ing.MaxBytes = 8

	_, err := ing.SaveUpload(context.Background(), "Acme", "big.txt", bytes.NewReader(make([]byte, 9)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))
	assert.NoFileExists(t, filepath.Join(ing.Root, "Acme", "big.txt"))
}

func TestIngestPath(t *testing.T) {
	ing := newTestIngestor(t)
	dir := t.TempDir()
	p := filepath.Join(dir, "notes.csv")
	require.NoError(t, os.WriteFile(p, []byte("a,b\n1,2\n"), 0o644))

	doc, err := ing.IngestPath(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "notes.csv", doc.Name)
	assert.Equal(t, constants.KindPlainText, doc.Kind)
	assert.Len(t, doc.SHA256, 64)

	_, err = ing.IngestPath(context.Background(), filepath.Join(dir, "x.exe"))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestIngestDirectory(t *testing.T) {
	ing := newTestIngestor(t)
	root := t.TempDir()
	write := func(rel, body string) {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	write("a.txt", "same")
	write("sub/b.txt", "same")
	write("sub/c.csv", "other")
	write("skip.exe", "nope")
	write(".hidden/d.txt", "hidden")
	write(".e.txt", "hidden")

	results, stats, err := ing.IngestDirectory(context.Background(), root, true)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(3), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Equal(t, uint32(0), stats.Failed)

	_, stats, err = ing.IngestDirectory(context.Background(), root, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), stats.Matched)

	_, _, err = ing.IngestDirectory(context.Background(), "  ", true)
	assert.Error(t, err)
}

func TestStartWatcherInitialScan(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "rfi.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored.exe"), []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 10 * time.Millisecond}, nil)
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(root, "rfi.txt"), p)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial event")
	}

	cancel()
	for range events {
	}
}

func TestStartWatcherNoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
