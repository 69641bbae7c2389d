package constants

import (
	"strings"
)

// SectionStyle selects the visual block used for a proposal section.
type SectionStyle string

const (
	SectionOverview SectionStyle = "overview"
	SectionProblem  SectionStyle = "problem"
	SectionSolution SectionStyle = "solution"
	SectionScope    SectionStyle = "scope"
	SectionTimeline SectionStyle = "timeline"
	SectionTeam     SectionStyle = "team"
	SectionPricing  SectionStyle = "pricing"
	SectionTerms    SectionStyle = "terms"
	SectionDefault  SectionStyle = "default"
)

// sectionKeywords is checked in order; the first style whose keyword list
// hits the title wins. Pricing comes before scope so "Scope & Pricing" is
// rendered as a pricing table.
var sectionKeywords = []struct {
	style    SectionStyle
	keywords []string
}{
	{SectionPricing, []string{"pricing", "price", "cost", "investment", "budget", "fee", "commercial"}},
	{SectionTimeline, []string{"timeline", "schedule", "milestone", "phase", "roadmap", "plan"}},
	{SectionTeam, []string{"team", "staffing", "resource", "people", "effort", "roles"}},
	{SectionProblem, []string{"pain", "challenge", "problem", "issue", "need", "requirement"}},
	{SectionSolution, []string{"service", "solution", "approach", "offering", "capabilit", "methodology"}},
	{SectionScope, []string{"scope", "deliverable", "objective", "out of scope"}},
	{SectionOverview, []string{"executive", "summary", "introduction", "overview", "about", "why"}},
	{SectionTerms, []string{"terms", "condition", "assumption", "next step", "contact"}},
}

var allSectionStyles = []SectionStyle{
	SectionOverview,
	SectionProblem,
	SectionSolution,
	SectionScope,
	SectionTimeline,
	SectionTeam,
	SectionPricing,
	SectionTerms,
	SectionDefault,
}

// SectionStyleFor keyword-matches a section title against the curated lists.
// The bool is false when nothing matched and SectionDefault is returned.
func SectionStyleFor(title string) (SectionStyle, bool) {
	normalized := strings.ToLower(strings.TrimSpace(title))
	if normalized == "" {
		return SectionDefault, false
	}

	for _, entry := range sectionKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(normalized, kw) {
				return entry.style, true
			}
		}
	}

	// exact style names are accepted too ("pricing", "terms", ...)
	for _, s := range allSectionStyles {
		if normalized == string(s) {
			return s, true
		}
	}

	return SectionDefault, false
}
