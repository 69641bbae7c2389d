package proposal

import (
	"html/template"
	"strings"
)

// Theme is the palette and type the template is rendered with. Values are
// trusted CSS literals.
type Theme struct {
	Name       string
	Primary    template.CSS
	Accent     template.CSS
	Background template.CSS
	Text       template.CSS
	Font       template.CSS
}

var themes = map[string]Theme{
	"corporate": {Name: "corporate", Primary: "#1f3a5f", Accent: "#2e86de", Background: "#ffffff", Text: "#1d1d1f", Font: "'Helvetica Neue', Arial, sans-serif"},
	"modern":    {Name: "modern", Primary: "#0f766e", Accent: "#f59e0b", Background: "#fafaf9", Text: "#1c1917", Font: "'Inter', 'Segoe UI', sans-serif"},
	"minimal":   {Name: "minimal", Primary: "#111111", Accent: "#6b7280", Background: "#ffffff", Text: "#111111", Font: "Georgia, 'Times New Roman', serif"},
}

// ThemeFor returns the named theme, or corporate for unknown names.
func ThemeFor(name string) Theme {
	if t, ok := themes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t
	}
	return themes["corporate"]
}

func ThemeNames() []string {
	return []string{"corporate", "modern", "minimal"}
}
