package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/extract"
	"github.com/joseph-ayodele/proposal-builder/internal/llm"
)

func TestParseKind(t *testing.T) {
	k, err := parseKind(" services ")
	require.NoError(t, err)
	assert.Equal(t, extract.KindServices, k)

	_, err = parseKind("budget")
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestReadSessionMissingFileHasDefaults(t *testing.T) {
	snap, err := readSession(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "USD", snap.Project.Currency)
	assert.Equal(t, "corporate", snap.Project.Theme)
}

func TestReadSessionRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := readSession(path)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestMergeExtractionAndPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions", "acme.json")

	snap, err := readSession(path)
	require.NoError(t, err)

	pains := llm.Extraction{"Legacy Systems": "• old ERP", "Data Silos": "• no sharing", "Slow Reporting": "• weekly"}
	require.NoError(t, mergeExtraction(ctx, &snap, extract.KindPainPoints, "Acme Corp", "/docs/rfi.pdf", pains))
	require.NoError(t, mergeExtraction(ctx, &snap, extract.KindPainPoints, "Other", "/docs/rfi.pdf", nil))
	require.NoError(t, mergeExtraction(ctx, &snap, extract.KindServices, "Bolt", "/docs/caps.pdf", llm.Extraction{"Cloud": "• migrations"}))
	require.NoError(t, writeSession(path, snap))

	got, err := readSession(path)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Client.EnterpriseName)
	assert.Equal(t, []string{"/docs/rfi.pdf"}, got.Client.Documents)
	assert.Equal(t, map[string]string(pains), got.Client.PainPoints)
	assert.Equal(t, "Bolt", got.Seller.EnterpriseName)
	assert.Equal(t, map[string]string{"Cloud": "• migrations"}, got.Seller.Services)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestAppendOnce(t *testing.T) {
	in := []string{"a"}
	out := appendOnce(in, "b")
	assert.Equal(t, []string{"a", "b"}, out)
	assert.Equal(t, []string{"a"}, in)
	assert.Equal(t, []string{"a"}, appendOnce(in, "a"))
	assert.Equal(t, []string{"a"}, appendOnce(in, ""))
}

func TestPrintJSONResultView(t *testing.T) {
	var buf bytes.Buffer
	stdout = &buf
	t.Cleanup(func() { stdout = os.Stdout })

	res := common.Degraded("x", errors.New("no text"))
	require.NoError(t, printJSON(viewOf(res, "analysis", nil)))
	assert.JSONEq(t, `{"outcome":"degraded","message":"analysis completed with fallback content: no text"}`, buf.String())
}
