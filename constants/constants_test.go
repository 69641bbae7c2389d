package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSectionStyleFor(t *testing.T) {
	cases := []struct {
		title   string
		want    SectionStyle
		matched bool
	}{
		{"Executive Summary", SectionOverview, true},
		{"Scope & Pricing", SectionPricing, true},
		{"Delivery Timeline", SectionTimeline, true},
		{"  PROPOSED TEAM  ", SectionTeam, true},
		{"Client Challenges", SectionProblem, true},
		{"Our Services", SectionSolution, true},
		{"Deliverables", SectionScope, true},
		{"Terms and Conditions", SectionTerms, true},
		{"default", SectionDefault, true},
		{"Appendix", SectionDefault, false},
		{"", SectionDefault, false},
	}
	for _, tc := range cases {
		got, ok := SectionStyleFor(tc.title)
		assert.Equal(t, tc.want, got, tc.title)
		assert.Equal(t, tc.matched, ok, tc.title)
	}
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, "pdf", NormalizeExt(" .PDF"))
	assert.True(t, IsAllowedExt(".Jpeg"))
	assert.False(t, IsAllowedExt("exe"))

	assert.Equal(t, PDF, MapExtToFormat("pdf"))
	assert.Equal(t, IMAGE, MapExtToFormat(".png"))
	assert.Equal(t, TEXT, MapExtToFormat("csv"))
	assert.Equal(t, DOCX, MapExtToFormat("docx"))
	assert.Equal(t, Format(""), MapExtToFormat("heic"))

	assert.Equal(t, "application/pdf", MimeTypeForExt("pdf"))
	assert.Contains(t, MimeTypeForExt("jpg"), "image/jpeg")
}
