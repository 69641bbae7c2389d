package llm

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// CaptionPrompt asks a vision model to transcribe everything on an image so
// the caption can stand in for the document text.
const CaptionPrompt = "Exhaustively describe this image. Transcribe every piece of visible text verbatim, " +
	"in reading order, including headings, paragraphs, bullet points, table cells (row by row), labels, " +
	"footnotes, stamps and handwriting. Then describe every non-text element: charts (axes, series, values), " +
	"diagrams (nodes, arrows, relationships), logos, photographs and layout. Do not summarize, do not omit " +
	"anything that is legible, and do not add commentary or interpretation beyond what is shown."

// Number of categories each extraction prompt demands.
const (
	PainPointKeys = 3
	ServiceKeys   = 6
)

const maxContextChars = 12000

// BuildPainPointsPrompt asks for exactly PainPointKeys client pain-point
// categories drawn from an RFI context.
func BuildPainPointsPrompt(company, docContext string) string {
	parts := []string{
		"You are a pre-sales analyst reading excerpts of a Request for Information (RFI) sent by " + nonEmpty(company, "a prospective client") + ".",
		"Identify the client's most important business pain points.",
		"",
		"Return ONLY a JSON object with EXACTLY " + strconv.Itoa(PainPointKeys) + " keys.",
		"Each key is a short pain-point category label of 2 to 5 words.",
		"Each value is a string of 2 to 4 concise bullet points; every bullet starts with \"• \" and bullets are separated by the two characters \"\\n• \" (newline followed by a bullet).",
		"Ground every bullet in the excerpts; do not invent facts, numbers or names.",
		"Do not wrap the JSON in markdown fences and do not add any text before or after it.",
		"",
		"If the excerpts are not an RFI or are unrelated to a sales or procurement context, return the single token null instead of a JSON object.",
	}
	return strings.Join(parts, "\n") + contextBlock(docContext)
}

// BuildServicesPrompt asks for exactly ServiceKeys service categories a
// seller offers, drawn from a capabilities document context.
func BuildServicesPrompt(company, docContext string) string {
	parts := []string{
		"You are a solutions consultant reading excerpts of a capabilities document from " + nonEmpty(company, "a service provider") + ".",
		"Identify the services this company offers.",
		"",
		"Return ONLY a JSON object with EXACTLY " + strconv.Itoa(ServiceKeys) + " keys.",
		"Each key is a short service category name of 1 to 4 words.",
		"Each value is a string of 2 to 3 concise bullet points describing the offering; every bullet starts with \"• \" and bullets are separated by the two characters \"\\n• \".",
		"Ground every bullet in the excerpts; do not invent certifications, clients or figures.",
		"Do not wrap the JSON in markdown fences and do not add any text before or after it.",
		"",
		"If the excerpts do not describe a company's services or are unrelated to sales, return the single token null instead of a JSON object.",
	}
	return strings.Join(parts, "\n") + contextBlock(docContext)
}

// Retrieval queries paired with the prompts above.
const (
	PainPointsQuery = "client challenges, problems, pain points, requirements, objectives and needs"
	ServicesQuery   = "services offered, capabilities, solutions, expertise and offerings"
)

func contextBlock(docContext string) string {
	c := strings.TrimSpace(docContext)
	if len(c) > maxContextChars {
		cut := maxContextChars
		for cut > 0 && !utf8.RuneStart(c[cut]) {
			cut--
		}
		c = c[:cut] + "\n…(truncated)"
	}
	var b strings.Builder
	b.WriteString("\n\nExcerpts:\n\"\"\"\n")
	b.WriteString(c)
	b.WriteString("\n\"\"\"")
	return b.String()
}

func nonEmpty(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}
