package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/formstate"
	"github.com/joseph-ayodele/proposal-builder/internal/llm"
)

// Sheet names, in workbook order.
const (
	SheetClient   = "Client"
	SheetSeller   = "Seller"
	SheetInsights = "Insights"
	SheetProject  = "Project"
	SheetPricing  = "Pricing"
)

const maxCellChars = 32000 // excel caps a cell at 32767 characters

// Service writes a session summary workbook.
type Service struct {
	outputDir string
	logger    *slog.Logger
}

func NewService(outputDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if outputDir == "" {
		outputDir = "./output"
	}
	return &Service{outputDir: outputDir, logger: logger}
}

// Path is {outputDir}/{enterprise}_session.xlsx.
func (s *Service) Path(enterprise string) string {
	return filepath.Join(s.outputDir, common.FileSafeName(enterprise)+"_session.xlsx")
}

// SessionXLSX returns the workbook bytes for snap.
func (s *Service) SessionXLSX(ctx context.Context, snap formstate.Snapshot) ([]byte, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheets := []struct {
		name string
		fill func(*excelize.File, string) int
	}{
		{SheetClient, func(f *excelize.File, sh string) int { return writeRecord(f, sh, snap.Client) }},
		{SheetSeller, func(f *excelize.File, sh string) int { return writeRecord(f, sh, snap.Seller) }},
		{SheetInsights, func(f *excelize.File, sh string) int { return writeInsights(f, sh, snap) }},
		{SheetProject, func(f *excelize.File, sh string) int { return writeRecord(f, sh, snap.Project) }},
		{SheetPricing, func(f *excelize.File, sh string) int { return writePricing(f, sh, snap.Project) }},
	}
	rows := 0
	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return nil, fmt.Errorf("xlsx sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return nil, fmt.Errorf("xlsx sheet: %w", err)
		}
		rows += sh.fill(f, sh.name)
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"enterprise", snap.Client.EnterpriseName,
		"rows", rows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteSession writes the workbook to Path(client enterprise name).
func (s *Service) WriteSession(ctx context.Context, snap formstate.Snapshot) (string, error) {
	if strings.TrimSpace(snap.Client.EnterpriseName) == "" {
		return "", common.InvalidInputErrorf("client enterprise_name is required to export a session")
	}
	b, err := s.SessionXLSX(ctx, snap)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", common.StorageError("create output dir", err)
	}
	path := s.Path(snap.Client.EnterpriseName)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", common.StorageError("write workbook", err)
	}
	return path, nil
}

func header(f *excelize.File, sheet string, cols ...string) {
	for i, h := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(cols), 1)
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}
}

func write(f *excelize.File, sheet string, col, row int, v any) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	if s, ok := v.(string); ok {
		v = truncate(s, maxCellChars)
	}
	_ = f.SetCellValue(sheet, cell, v)
}

// writeRecord lays a form record out as Field / Value rows using the JSON
// names, so the sheet matches the API.
func writeRecord(f *excelize.File, sheet string, rec any) int {
	header(f, sheet, "Field", "Value")
	b, err := json.Marshal(rec)
	if err != nil {
		return 0
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return 0
	}
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	row := 2
	for _, name := range names {
		write(f, sheet, 1, row, name)
		write(f, sheet, 2, row, cellText(fields[name]))
		row++
	}
	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "B", 80)
	return row - 2
}

func writeInsights(f *excelize.File, sheet string, snap formstate.Snapshot) int {
	header(f, sheet, "Source", "Category", "Selected", "Insight")
	row := 2
	emit := func(source string, e map[string]string, selected formstate.Set) {
		for _, k := range llm.Extraction(e).Keys() {
			write(f, sheet, 1, row, source)
			write(f, sheet, 2, row, k)
			write(f, sheet, 3, row, selected.Has(k))
			write(f, sheet, 4, row, e[k])
			row++
		}
	}
	emit("Client pain point", snap.Client.PainPoints, snap.Client.SelectedPainPoints)
	emit("Seller service", snap.Seller.Services, snap.Seller.SelectedServices)
	_ = f.SetColWidth(sheet, "A", "A", 20)
	_ = f.SetColWidth(sheet, "B", "B", 28)
	_ = f.SetColWidth(sheet, "D", "D", 80)
	return row - 2
}

func writePricing(f *excelize.File, sheet string, p formstate.ProjectSpecification) int {
	header(f, sheet, "Item", "Amount", "Currency")
	currency := p.Currency
	if c, ok := p.Pricing["currency"].(string); ok && c != "" {
		currency = c
	}
	items, _ := p.Pricing["line_items"].([]any)
	row := 2
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		write(f, sheet, 1, row, cellText(m["item"]))
		write(f, sheet, 2, row, m["amount"])
		write(f, sheet, 3, row, currency)
		row++
	}
	if total, ok := p.Pricing["total"]; ok {
		write(f, sheet, 1, row, "Total")
		write(f, sheet, 2, row, total)
		write(f, sheet, 3, row, currency)
		row++
	}
	_ = f.SetColWidth(sheet, "A", "A", 36)
	_ = f.SetColWidth(sheet, "B", "C", 14)
	return row - 2
}

// cellText flattens a JSON value: lists become lines, objects compact JSON.
func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, it := range t {
			parts = append(parts, cellText(it))
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
