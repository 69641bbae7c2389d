package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/formstate"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func snapshot() formstate.Snapshot {
	snap := formstate.NewSnapshot()
	snap.Client.EnterpriseName = "Acme Corp"
	snap.Client.DiscoveredURLs = []string{"https://acme.example", "https://acme.example/about"}
	snap.Client.PainPoints = map[string]string{"Legacy billing": "• slow", "Data silos": "• split"}
	snap.Client.SelectedPainPoints = formstate.NewSet("Data silos")
	snap.Seller.EnterpriseName = "Beta"
	snap.Seller.Services = map[string]string{"Cloud": "• migrate"}
	snap.Project.Currency = "EUR"
	snap.Project.Pricing = map[string]any{
		"line_items": []any{map[string]any{"item": "Build", "amount": 40000.0}},
		"total":      40000.0,
	}
	return snap
}

func TestSessionXLSX(t *testing.T) {
	svc := NewService(t.TempDir(), quiet())
	b, err := svc.SessionXLSX(context.Background(), snapshot())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetClient, SheetSeller, SheetInsights, SheetProject, SheetPricing}, f.GetSheetList())

	rows, err := f.GetRows(SheetClient)
	require.NoError(t, err)
	values := map[string]string{}
	for _, r := range rows[1:] {
		if len(r) == 2 {
			values[r[0]] = r[1]
		}
	}
	assert.Equal(t, "Acme Corp", values["enterprise_name"])
	assert.Equal(t, "https://acme.example\nhttps://acme.example/about", values["discovered_urls"])

	insights, err := f.GetRows(SheetInsights)
	require.NoError(t, err)
	require.Len(t, insights, 4)
	assert.Equal(t, []string{"Client pain point", "Data silos", "TRUE", "• split"}, insights[1])
	assert.Equal(t, "FALSE", insights[2][2])
	assert.Equal(t, "Cloud", insights[3][1])

	pricing, err := f.GetRows(SheetPricing)
	require.NoError(t, err)
	assert.Equal(t, []string{"Build", "40000", "EUR"}, pricing[1])
	assert.Equal(t, "Total", pricing[2][0])
}

func TestWriteSession(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir, quiet())
	path, err := svc.WriteSession(context.Background(), snapshot())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Acme Corp_session.xlsx"), path)
	assert.FileExists(t, path)

	_, err = svc.WriteSession(context.Background(), formstate.NewSnapshot())
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
