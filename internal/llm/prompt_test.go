package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBuildPainPointsPrompt(t *testing.T) {
	p := BuildPainPointsPrompt("Acme Corp", "We need to replace our billing system.")
	assert.Contains(t, p, "Acme Corp")
	assert.Contains(t, p, "EXACTLY 3 keys")
	assert.Contains(t, p, `"\n• "`)
	assert.Contains(t, p, "null")
	assert.Contains(t, p, "We need to replace our billing system.")
}

func TestBuildServicesPrompt(t *testing.T) {
	p := BuildServicesPrompt("", "cloud migration")
	assert.Contains(t, p, "a service provider")
	assert.Contains(t, p, "EXACTLY 6 keys")
	assert.Contains(t, p, "null")
}

func TestPromptContextTruncated(t *testing.T) {
	p := BuildPainPointsPrompt("x", strings.Repeat("a", maxContextChars+500))
	assert.Contains(t, p, "(truncated)")
	assert.NotContains(t, p, strings.Repeat("a", maxContextChars+1))

	// a two-byte rune straddling the limit is dropped whole
	p = BuildServicesPrompt("x", strings.Repeat("a", maxContextChars-1)+strings.Repeat("é", 10))
	assert.True(t, utf8.ValidString(p))
	assert.Contains(t, p, strings.Repeat("a", maxContextChars-1)+"\n…(truncated)")
}
