package proposal

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/proposal-builder/constants"
	"github.com/joseph-ayodele/proposal-builder/internal/formstate"
	"github.com/joseph-ayodele/proposal-builder/internal/llm"
)

// Group is a headed bullet list inside a section.
type Group struct {
	Heading string
	Items   []string
}

type Table struct {
	Headers []string
	Rows    [][]string
	Footer  []string
}

type Section struct {
	Title  string
	Style  constants.SectionStyle
	Intro  string
	Groups []Group
	Table  *Table
}

// Document is everything the template renders.
type Document struct {
	Title      string
	Subtitle   string
	ClientName string
	SellerName string
	Contact    string
	Date       string
	Theme      Theme
	Sections   []Section
}

// Build assembles the proposal from a session snapshot. Sections without
// content are left out.
func Build(snap formstate.Snapshot, now time.Time) Document {
	c, s, p := snap.Client, snap.Seller, snap.Project
	doc := Document{
		Title:      orDefault(p.Title, "Sales Proposal"),
		Subtitle:   fmt.Sprintf("Prepared for %s", orDefault(c.EnterpriseName, "our client")),
		ClientName: c.EnterpriseName,
		SellerName: s.EnterpriseName,
		Contact:    strings.TrimSpace(strings.Join(nonEmpty(s.ContactName, s.ContactEmail), " · ")),
		Date:       now.Format("January 2, 2006"),
		Theme:      ThemeFor(p.Theme),
	}

	add := func(sec Section) {
		if sec.Intro == "" && len(sec.Groups) == 0 && sec.Table == nil {
			return
		}
		if sec.Style == "" {
			sec.Style, _ = constants.SectionStyleFor(sec.Title)
		}
		doc.Sections = append(doc.Sections, sec)
	}

	add(Section{Title: "Executive Summary", Intro: summary(snap)})
	add(Section{Title: "Understanding Your Challenges", Groups: extractionGroups(c.PainPoints, c.SelectedPainPoints)})
	add(Section{Title: "Our Services", Intro: s.Description, Groups: extractionGroups(s.Services, s.SelectedServices)})
	add(scopeSection(p.Scope))
	add(timelineSection(p.Timeline))
	add(teamSection(p.Team))
	add(effortSection(p.Effort))
	add(pricingSection(p.Pricing, p.Currency))

	titles := make([]string, 0, len(p.Sections))
	for t := range p.Sections {
		titles = append(titles, t)
	}
	sort.Slice(titles, func(i, j int) bool {
		oi, oj := asFloat(p.Sections[titles[i]]["order"]), asFloat(p.Sections[titles[j]]["order"])
		if oi != oj {
			return oi < oj
		}
		return titles[i] < titles[j]
	})
	for _, t := range titles {
		body := p.Sections[t]
		sec := Section{Title: t, Intro: asString(body["body"])}
		if items := asList(body["items"]); len(items) > 0 {
			sec.Groups = []Group{{Items: items}}
		}
		if st := asString(body["style"]); st != "" {
			sec.Style, _ = constants.SectionStyleFor(st)
		}
		add(sec)
	}

	if len(s.Differentiators) > 0 {
		add(Section{Title: "Why " + orDefault(s.EnterpriseName, "Us"), Groups: []Group{{Items: s.Differentiators}}})
	}
	add(Section{Title: "Next Steps", Intro: nextSteps(c.EnterpriseName, s)})
	return doc
}

func summary(snap formstate.Snapshot) string {
	c, s, p := snap.Client, snap.Seller, snap.Project
	if strings.TrimSpace(p.Description) == "" && c.EnterpriseName == "" {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s is pleased to present this proposal to %s.", orDefault(s.EnterpriseName, "We"), orDefault(c.EnterpriseName, "you"))
	if d := strings.TrimSpace(p.Description); d != "" {
		b.WriteString(" " + d)
	}
	return b.String()
}

func nextSteps(client string, s formstate.Seller) string {
	who := orDefault(s.ContactName, "our team")
	msg := fmt.Sprintf("We would welcome the opportunity to review this proposal with %s. Please contact %s", orDefault(client, "you"), who)
	if s.ContactEmail != "" {
		msg += " at " + s.ContactEmail
	}
	return msg + " to agree on the next steps."
}

// extractionGroups renders one group per category, limited to selected
// categories when a selection exists.
func extractionGroups(e map[string]string, selected formstate.Set) []Group {
	keys := llm.Extraction(e).Keys()
	var out []Group
	for _, k := range keys {
		if len(selected) > 0 && !selected.Has(k) {
			continue
		}
		out = append(out, Group{Heading: k, Items: llm.Bullets(e[k])})
	}
	return out
}

func scopeSection(m map[string]any) Section {
	sec := Section{Title: "Project Scope"}
	for _, f := range []struct{ key, heading string }{
		{"objectives", "Objectives"},
		{"deliverables", "Deliverables"},
		{"in_scope", "In Scope"},
		{"out_of_scope", "Out of Scope"},
	} {
		if items := asList(m[f.key]); len(items) > 0 {
			sec.Groups = append(sec.Groups, Group{Heading: f.heading, Items: items})
		}
	}
	return sec
}

func timelineSection(m map[string]any) Section {
	sec := Section{Title: "Timeline"}
	phases := asMaps(m["phases"])
	if len(phases) == 0 {
		return sec
	}
	t := &Table{Headers: []string{"Phase", "Duration", "Key activities"}}
	for _, ph := range phases {
		t.Rows = append(t.Rows, []string{asString(ph["name"]), weeks(ph["weeks"]), strings.Join(asList(ph["activities"]), ", ")})
	}
	if total, ok := m["total_weeks"]; ok {
		t.Footer = []string{"Total", weeks(total), ""}
	}
	sec.Table = t
	return sec
}

func teamSection(m map[string]any) Section {
	sec := Section{Title: "Proposed Team"}
	members := asMaps(m["members"])
	if len(members) == 0 {
		return sec
	}
	t := &Table{Headers: []string{"Role", "Count", "Responsibilities"}}
	for _, mem := range members {
		t.Rows = append(t.Rows, []string{asString(mem["role"]), asString(mem["count"]), asString(mem["responsibilities"])})
	}
	sec.Table = t
	return sec
}

func effortSection(m map[string]any) Section {
	sec := Section{Title: "Effort Estimate", Style: constants.SectionTeam}
	roles, _ := m["roles"].(map[string]any)
	if len(roles) == 0 {
		return sec
	}
	names := make([]string, 0, len(roles))
	for r := range roles {
		names = append(names, r)
	}
	sort.Strings(names)
	t := &Table{Headers: []string{"Role", "Hours"}}
	for _, r := range names {
		t.Rows = append(t.Rows, []string{r, asString(roles[r])})
	}
	if total, ok := m["total_hours"]; ok {
		t.Footer = []string{"Total", asString(total)}
	}
	sec.Table = t
	return sec
}

func pricingSection(m map[string]any, currency string) Section {
	sec := Section{Title: "Investment"}
	items := asMaps(m["line_items"])
	if len(items) == 0 {
		return sec
	}
	if c := asString(m["currency"]); c != "" {
		currency = c
	}
	t := &Table{Headers: []string{"Item", "Amount"}}
	for _, it := range items {
		t.Rows = append(t.Rows, []string{asString(it["item"]), Money(currency, asFloat(it["amount"]))})
	}
	if total, ok := m["total"]; ok {
		t.Footer = []string{"Total", Money(currency, asFloat(total))}
	}
	sec.Table = t
	if terms := asString(m["payment_terms"]); terms != "" {
		sec.Intro = "Payment terms: " + terms
	}
	return sec
}

// Money formats an amount as "EUR 40,000.00".
func Money(currency string, amount float64) string {
	neg := amount < 0
	cents := int64(math.Round(math.Abs(amount) * 100))
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	s := fmt.Sprintf("%s.%02d", b.String(), cents%100)
	if neg {
		s = "-" + s
	}
	if currency = strings.TrimSpace(currency); currency != "" {
		s = strings.ToUpper(currency) + " " + s
	}
	return s
}

func weeks(v any) string {
	s := asString(v)
	if s == "" {
		return ""
	}
	if s == "1" {
		return "1 week"
	}
	return s + " weeks"
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		f, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		return f
	default:
		return 0
	}
}

// asList accepts a list or a bullet string.
func asList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			if s := asString(it); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	case string:
		return llm.Bullets(t)
	default:
		return nil
	}
}

func asMaps(v any) []map[string]any {
	list, _ := v.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, it := range list {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

func nonEmpty(ss ...string) []string {
	var out []string
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
