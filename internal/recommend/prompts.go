package recommend

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/proposal-builder/internal/llm"
)

// Input is what the recommendation prompts know about the deal.
type Input struct {
	ClientName         string
	ClientIndustry     string
	ClientDescription  string
	PainPoints         llm.Extraction
	SellerName         string
	Services           llm.Extraction
	ProjectDescription string
	Budget             string
	Currency           string
	StartDate          string
	Notes              string
}

func (in Input) currency() string {
	if c := strings.TrimSpace(in.Currency); c != "" {
		return strings.ToUpper(c)
	}
	return "USD"
}

// shape is the JSON object each kind must answer with, keyed by the
// top-level fields it requires.
var shape = map[Kind]struct {
	required []string
	example  string
}{
	KindScope: {
		required: []string{"objectives", "deliverables", "in_scope", "out_of_scope"},
		example:  `{"objectives": ["..."], "deliverables": ["..."], "in_scope": ["..."], "out_of_scope": ["..."]}`,
	},
	KindTimeline: {
		required: []string{"phases", "total_weeks"},
		example:  `{"phases": [{"name": "Discovery", "weeks": 2, "activities": ["..."]}], "total_weeks": 12}`,
	},
	KindEffort: {
		required: []string{"roles", "total_hours"},
		example:  `{"roles": {"Project Manager": 160, "Developer": 640}, "total_hours": 800}`,
	},
	KindTeam: {
		required: []string{"members"},
		example:  `{"members": [{"role": "Project Manager", "count": 1, "responsibilities": "..."}]}`,
	},
	KindPricing: {
		required: []string{"currency", "line_items", "total", "payment_terms"},
		example:  `{"currency": "USD", "line_items": [{"item": "Discovery", "amount": 12000}], "total": 12000, "payment_terms": "..."}`,
	},
}

var instructions = map[Kind]string{
	KindScope:    "Recommend the project scope: objectives, concrete deliverables, what is in scope and what is explicitly out of scope.",
	KindTimeline: "Recommend a delivery timeline as ordered phases with a duration in whole weeks and the key activities of each phase.",
	KindEffort:   "Estimate the effort in person-hours per role and the total.",
	KindTeam:     "Recommend the delivery team: each role, how many people fill it and their responsibilities.",
	KindPricing:  "Recommend pricing as line items with amounts and a total, plus payment terms.",
}

// BuildPrompt renders the prompt for kind.
func BuildPrompt(kind Kind, in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a solutions architect at %s preparing a sales proposal for %s",
		orDefault(in.SellerName, "our company"), orDefault(in.ClientName, "a prospective client"))
	if in.ClientIndustry != "" {
		fmt.Fprintf(&b, " (%s industry)", in.ClientIndustry)
	}
	b.WriteString(".\n")
	b.WriteString(instructions[kind])
	b.WriteString("\n\n")

	writeSection(&b, "Client description", in.ClientDescription)
	writeSection(&b, "Project description", in.ProjectDescription)
	writeExtraction(&b, "Client pain points", in.PainPoints)
	writeExtraction(&b, "Seller services", in.Services)
	writeSection(&b, "Budget", in.Budget)
	writeSection(&b, "Preferred start", in.StartDate)
	writeSection(&b, "Notes", in.Notes)

	b.WriteString("Return ONLY a JSON object shaped like:\n")
	b.WriteString(shape[kind].example)
	b.WriteString("\nUse these exact top-level keys: " + strings.Join(shape[kind].required, ", ") + ".\n")
	if kind == KindPricing {
		fmt.Fprintf(&b, "All amounts are in %s, written as plain numbers without currency symbols or thousands separators.\n", in.currency())
	}
	b.WriteString("Free-text values that list several points use bullets separated by the two characters \"\\n• \".\n")
	b.WriteString("Do not wrap the JSON in markdown fences and do not add any text before or after it.")
	return b.String()
}

func writeSection(b *strings.Builder, title, body string) {
	if body = strings.TrimSpace(body); body == "" {
		return
	}
	fmt.Fprintf(b, "%s:\n%s\n\n", title, body)
}

func writeExtraction(b *strings.Builder, title string, e llm.Extraction) {
	if len(e) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, k := range e.Keys() {
		fmt.Fprintf(b, "- %s: %s\n", k, strings.ReplaceAll(e[k], "\n", " "))
	}
	b.WriteString("\n")
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

// schemaFor requires the kind's top-level keys.
func schemaFor(kind Kind) map[string]any {
	req := make([]any, len(shape[kind].required))
	for i, k := range shape[kind].required {
		req[i] = k
	}
	return map[string]any{"type": "object", "required": req}
}
