package chunk

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/proposal-builder/constants"
)

type lenCounter struct{}

func (lenCounter) CountTokens(s string) int { return len(strings.Fields(s)) }

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%03d", i)
	}
	return strings.Join(w, " ")
}

func sharedRunes(prev, next string) int {
	for k := min(len(prev), len(next)); k > 0; k-- {
		if strings.HasSuffix(prev, next[:k]) {
			return k
		}
	}
	return 0
}

func TestNewChunkerValidatesOverlap(t *testing.T) {
	_, err := NewChunker(Config{Overlap: 49}, nil)
	assert.Error(t, err)
	_, err = NewChunker(Config{Overlap: 81}, nil)
	assert.Error(t, err)
	_, err = NewChunker(Config{Size: 60, Overlap: 60, CaptionOverlap: 60}, nil)
	assert.Error(t, err)

	c, err := NewChunker(Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, c.cfg.Size)
	assert.Equal(t, DefaultOverlap, c.cfg.Overlap)
	assert.Equal(t, DefaultCaptionOverlap, c.cfg.CaptionOverlap)
}

func TestSplitTextBounds(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"words", words(400)},
		{"paragraphs", strings.Repeat("Acme Corp needs a CRM.\n\nBudget is tight.\n", 80)},
		{"no separators", strings.Repeat("x", 2000)},
		{"multibyte", strings.Repeat("é", 1500)},
		{"short", "just one line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitText(tt.text, DefaultSize, DefaultOverlap)
			require.NotEmpty(t, chunks)
			for _, c := range chunks {
				assert.LessOrEqual(t, utf8.RuneCountInString(c), DefaultSize)
				assert.NotEmpty(t, strings.TrimSpace(c))
			}
		})
	}
}

func TestSplitTextBlank(t *testing.T) {
	assert.Empty(t, SplitText("", DefaultSize, DefaultOverlap))
	assert.Empty(t, SplitText(" \n\n \n", DefaultSize, DefaultOverlap))
}

func TestSplitTextShortIsSingleChunk(t *testing.T) {
	assert.Equal(t, []string{"hello world"}, SplitText("  hello world \n", DefaultSize, DefaultOverlap))
}

func TestSplitTextOverlap(t *testing.T) {
	for _, overlap := range []int{MinOverlap, MaxOverlap} {
		t.Run(fmt.Sprint(overlap), func(t *testing.T) {
			chunks := SplitText(words(500), DefaultSize, overlap)
			require.Greater(t, len(chunks), 2)
			for i := 1; i < len(chunks); i++ {
				shared := sharedRunes(chunks[i-1], chunks[i])
				assert.Greater(t, shared, 0, "chunk %d shares nothing with its predecessor", i)
				assert.LessOrEqual(t, shared, overlap)
				assert.GreaterOrEqual(t, shared, overlap-5)
			}
		})
	}
}

func TestSplitAttachesMetadata(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c, err := NewChunker(Config{}, nil, WithTokenCounter(lenCounter{}), WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	src := Source{
		Name:      "rfi.pdf",
		Company:   "Acme Corp",
		Kind:      constants.KindPDFWithText,
		FileHash:  "abc",
		FileSize:  1234,
		Extension: "pdf",
	}
	chunks := c.Split(words(300), src)
	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		md := ch.Metadata
		assert.Equal(t, i, md.ChunkIndex)
		assert.Equal(t, len(chunks), md.TotalChunks)
		assert.Equal(t, "rfi.pdf", md.Source)
		assert.Equal(t, "Acme Corp", md.Company)
		assert.Equal(t, ContentTypeText, md.ContentType)
		assert.Equal(t, fixed, md.ProcessedAt)
		assert.Equal(t, "abc", md.FileHash)
		assert.Equal(t, len(strings.Fields(ch.Content)), md.Tokens)
	}
}

func TestSplitCaptionUsesCaptionOverlap(t *testing.T) {
	c, err := NewChunker(Config{}, nil)
	require.NoError(t, err)

	chunks := c.Split(words(500), Source{Name: "scan.png", Kind: constants.KindSingleImage})
	require.Greater(t, len(chunks), 2)
	assert.Equal(t, ContentTypeCaption, chunks[0].Metadata.ContentType)
	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, sharedRunes(chunks[i-1].Content, chunks[i].Content), DefaultCaptionOverlap)
	}
	assert.Zero(t, chunks[0].Metadata.Tokens)
}
