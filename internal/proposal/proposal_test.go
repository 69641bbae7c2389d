package proposal

import (
	"context"
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
	"github.com/joseph-ayodele/proposal-builder/internal/formstate"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func fixedClock() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }

func snapshot() formstate.Snapshot {
	snap := formstate.NewSnapshot()
	snap.Client.EnterpriseName = "Acme Corp"
	snap.Client.PainPoints = map[string]string{
		"Legacy billing": "• slow month-end close\n• manual <script>alert(1)</script>",
		"Data silos":     "• CRM and ERP disagree",
		"Compliance":     "• SOX findings",
	}
	snap.Client.SelectedPainPoints = formstate.NewSet("Legacy billing", "Data silos")
	snap.Seller.EnterpriseName = "Beta Consulting"
	snap.Seller.ContactName = "Jordan Lee"
	snap.Seller.ContactEmail = "jordan@beta.example"
	snap.Seller.Services = map[string]string{"Cloud migration": "• lift and shift"}
	snap.Project.Title = "Billing Modernisation"
	snap.Project.Description = "Replace the legacy billing platform."
	snap.Project.Currency = "EUR"
	snap.Project.Scope = map[string]any{"objectives": []any{"Faster close"}, "out_of_scope": "• Hardware"}
	snap.Project.Timeline = map[string]any{
		"phases":      []any{map[string]any{"name": "Build", "weeks": 8.0, "activities": []any{"Code", "Test"}}},
		"total_weeks": 8.0,
	}
	snap.Project.Pricing = map[string]any{
		"line_items":    []any{map[string]any{"item": "Build", "amount": 40000.0}},
		"total":         40000.0,
		"payment_terms": "Net 30",
	}
	snap.Project.Sections = map[string]map[string]any{
		"Assumptions": {"body": "Client provides test data.", "order": 2.0},
		"Background":  {"items": []any{"Founded 1990"}, "order": 1.0},
	}
	return snap
}

func sectionTitles(doc Document) []string {
	out := make([]string, len(doc.Sections))
	for i, s := range doc.Sections {
		out[i] = s.Title
	}
	return out
}

func TestBuild(t *testing.T) {
	doc := Build(snapshot(), fixedClock())
	assert.Equal(t, "Billing Modernisation", doc.Title)
	assert.Equal(t, "Prepared for Acme Corp", doc.Subtitle)
	assert.Equal(t, "March 4, 2026", doc.Date)
	assert.Equal(t, "Jordan Lee · jordan@beta.example", doc.Contact)
	assert.Equal(t, []string{
		"Executive Summary",
		"Understanding Your Challenges",
		"Our Services",
		"Project Scope",
		"Timeline",
		"Investment",
		"Background",
		"Assumptions",
		"Next Steps",
	}, sectionTitles(doc))

	byTitle := map[string]Section{}
	for _, s := range doc.Sections {
		byTitle[s.Title] = s
	}
	challenges := byTitle["Understanding Your Challenges"]
	assert.Equal(t, constants.SectionProblem, challenges.Style)
	require.Len(t, challenges.Groups, 2, "only selected pain points")
	assert.Equal(t, "Data silos", challenges.Groups[0].Heading)

	pricing := byTitle["Investment"]
	assert.Equal(t, constants.SectionPricing, pricing.Style)
	assert.Equal(t, []string{"Build", "EUR 40,000.00"}, pricing.Table.Rows[0])
	assert.Equal(t, "Payment terms: Net 30", pricing.Intro)

	assert.Equal(t, []string{"Total", "8 weeks", ""}, byTitle["Timeline"].Table.Footer)
	assert.Equal(t, constants.SectionTimeline, byTitle["Timeline"].Style)
	assert.Equal(t, []string{"Hardware"}, byTitle["Project Scope"].Groups[1].Items)
}

func TestBuildEmptySnapshot(t *testing.T) {
	doc := Build(formstate.NewSnapshot(), fixedClock())
	assert.Equal(t, "Sales Proposal", doc.Title)
	assert.Equal(t, []string{"Next Steps"}, sectionTitles(doc))
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(Build(snapshot(), fixedClock()))
	require.NoError(t, err)
	s := string(html)
	assert.Contains(t, s, `<div class="cover">`)
	assert.Contains(t, s, `<section class="style-pricing">`)
	assert.Contains(t, s, `<section class="style-problem">`)
	assert.Contains(t, s, "EUR 40,000.00")
	assert.Contains(t, s, "'Helvetica Neue', Arial, sans-serif")
	assert.NotContains(t, s, "<script>alert(1)</script>")
	assert.Contains(t, s, "&lt;script&gt;")
	assert.NotContains(t, s, "ZgotmplZ")
}

func TestMoney(t *testing.T) {
	tests := []struct {
		currency string
		amount   float64
		want     string
	}{
		{"EUR", 40000, "EUR 40,000.00"},
		{"usd", 1234567.891, "USD 1,234,567.89"},
		{"", 999.5, "999.50"},
		{"GBP", -12.3, "GBP -12.30"},
		{"USD", 0, "USD 0.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Money(tt.currency, tt.amount))
	}
}

type fakeRenderer struct {
	name  string
	err   error
	calls int
}

func (f *fakeRenderer) Name() string { return f.name }

func (f *fakeRenderer) RenderPDF(_ context.Context, _, pdfPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(pdfPath, []byte("%PDF-1.4 fake"), 0o644)
}

func TestGenerateHTMLOnly(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(Config{OutputDir: dir}, quiet(), WithClock(fixedClock))
	res := g.Generate(context.Background(), snapshot(), false)
	require.True(t, res.IsOK())
	assert.Equal(t, filepath.Join(dir, "Acme Corp_proposal.html"), res.Value.HTMLPath)
	assert.Empty(t, res.Value.PDFPath)
	assert.FileExists(t, res.Value.HTMLPath)
}

func TestGeneratePDFFallbackChain(t *testing.T) {
	dir := t.TempDir()
	chrome := &fakeRenderer{name: "chromedp", err: errors.New("no chrome")}
	wk := &fakeRenderer{name: "wkhtmltopdf"}
	g := NewGenerator(Config{OutputDir: dir}, quiet(), WithRenderers(chrome, wk))

	res := g.Generate(context.Background(), snapshot(), true)
	require.True(t, res.IsOK())
	assert.Equal(t, "wkhtmltopdf", res.Value.Renderer)
	assert.Equal(t, filepath.Join(dir, "Acme Corp_proposal.pdf"), res.Value.PDFPath)
	assert.FileExists(t, res.Value.PDFPath)
	assert.Equal(t, 1, chrome.calls)
}

func TestGeneratePDFAllFail(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(Config{OutputDir: dir}, quiet(), WithRenderers(
		&fakeRenderer{name: "chromedp", err: errors.New("no chrome")},
		&fakeRenderer{name: "wkhtmltopdf", err: errors.New("not installed")},
	))
	res := g.Generate(context.Background(), snapshot(), true)
	require.True(t, res.IsDegraded())
	assert.Empty(t, res.Value.PDFPath)
	assert.FileExists(t, res.Value.HTMLPath)
	assert.ErrorContains(t, res.Cause, "not installed")
	assert.NoFileExists(t, filepath.Join(dir, "Acme Corp_proposal.pdf"))
}

func TestGenerateRequiresEnterprise(t *testing.T) {
	res := NewGenerator(Config{OutputDir: t.TempDir()}, quiet()).Generate(context.Background(), formstate.NewSnapshot(), false)
	require.True(t, res.IsFailed())
	assert.ErrorIs(t, res.Err, common.ErrInvalidInput)
}

type recordingRunner struct {
	name string
	args []string
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.name, r.args = name, args
	return nil, nil, os.WriteFile(args[len(args)-1], []byte("%PDF"), 0o644)
}

func TestWkhtmltopdfRenderer(t *testing.T) {
	dir := t.TempDir()
	rr := &recordingRunner{}
	r := WkhtmltopdfRenderer{Bin: "/opt/wk", Runner: rr}
	in, out := filepath.Join(dir, "p.html"), filepath.Join(dir, "p.pdf")
	require.NoError(t, r.RenderPDF(context.Background(), in, out))
	assert.Equal(t, "/opt/wk", rr.name)
	assert.Equal(t, in, rr.args[len(rr.args)-2])
	assert.True(t, strings.HasPrefix(rr.args[0], "--"))
}

func TestThemeFor(t *testing.T) {
	assert.Equal(t, "modern", ThemeFor(" Modern ").Name)
	assert.Equal(t, "corporate", ThemeFor("neon").Name)
}
