package chunk

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/proposal-builder/constants"
)

const (
	DefaultSize           = 600
	DefaultOverlap        = 80
	DefaultCaptionOverlap = 50

	MinOverlap = 50
	MaxOverlap = 80
)

// Separators are tried in order; "" splits into single characters.
var Separators = []string{"\n\n", "\n", " ", ""}

// Content types recorded in chunk metadata.
const (
	ContentTypeText    = "document_text"
	ContentTypeCaption = "image_caption"
)

// Metadata travels with every chunk into the vector store.
type Metadata struct {
	Source       string    `json:"source"`
	Company      string    `json:"company"`
	ChunkIndex   int       `json:"chunk_index"`
	TotalChunks  int       `json:"total_chunks"`
	ProcessedAt  time.Time `json:"processed_at"`
	ContentType  string    `json:"content_type"`
	FileHash     string    `json:"file_hash,omitempty"`
	FileSize     int64     `json:"file_size,omitempty"`
	Extension    string    `json:"extension,omitempty"`
	FileModified time.Time `json:"file_modified,omitempty"`
	Tokens       int       `json:"tokens,omitempty"`
}

// Chunk is one piece of a document. Chunks are values; nothing mutates
// them after Split returns.
type Chunk struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Source describes the document being split.
type Source struct {
	Name         string
	Company      string
	Kind         constants.DocumentKind
	FileHash     string
	FileSize     int64
	Extension    string
	FileModified time.Time
}

// TokenCounter counts model tokens in a string.
type TokenCounter interface {
	CountTokens(text string) int
}

type Config struct {
	Size           int // max runes per chunk, default 600
	Overlap        int // runes shared with the previous chunk, default 80
	CaptionOverlap int // overlap for captioned documents, default 50
}

type Option func(*Chunker)

// WithTokenCounter records token counts in chunk metadata.
func WithTokenCounter(tc TokenCounter) Option {
	return func(c *Chunker) { c.tokens = tc }
}

// WithClock overrides the processed-at timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Chunker) { c.now = now }
}

type Chunker struct {
	cfg    Config
	tokens TokenCounter
	now    func() time.Time
	logger *slog.Logger
}

func NewChunker(cfg Config, logger *slog.Logger, opts ...Option) (*Chunker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.Overlap == 0 {
		cfg.Overlap = DefaultOverlap
	}
	if cfg.CaptionOverlap == 0 {
		cfg.CaptionOverlap = DefaultCaptionOverlap
	}
	for _, ov := range []int{cfg.Overlap, cfg.CaptionOverlap} {
		if ov < MinOverlap || ov > MaxOverlap {
			return nil, fmt.Errorf("chunk overlap %d outside [%d, %d]", ov, MinOverlap, MaxOverlap)
		}
		if ov >= cfg.Size {
			return nil, fmt.Errorf("chunk overlap %d must be smaller than size %d", ov, cfg.Size)
		}
	}
	c := &Chunker{cfg: cfg, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Split cuts text into chunks of at most Size runes and attaches metadata.
// Non-blank text always yields at least one chunk.
func (c *Chunker) Split(text string, src Source) []Chunk {
	overlap, contentType := c.cfg.Overlap, ContentTypeText
	if src.Kind.NeedsCaptioning() {
		overlap, contentType = c.cfg.CaptionOverlap, ContentTypeCaption
	}

	pieces := SplitText(text, c.cfg.Size, overlap)
	processedAt := c.now().UTC()
	out := make([]Chunk, len(pieces))
	for i, p := range pieces {
		md := Metadata{
			Source:       src.Name,
			Company:      src.Company,
			ChunkIndex:   i,
			TotalChunks:  len(pieces),
			ProcessedAt:  processedAt,
			ContentType:  contentType,
			FileHash:     src.FileHash,
			FileSize:     src.FileSize,
			Extension:    src.Extension,
			FileModified: src.FileModified,
		}
		if c.tokens != nil {
			md.Tokens = c.tokens.CountTokens(p)
		}
		out[i] = Chunk{Content: p, Metadata: md}
	}

	c.logger.Debug("chunk.split",
		"source", src.Name,
		"company", src.Company,
		"chars", utf8.RuneCountInString(text),
		"chunks", len(out),
		"overlap", overlap,
	)
	return out
}

// SplitText is a recursive character splitter: it splits on the first
// separator present, merges neighbouring pieces up to size with up to overlap
// runes carried over, and recurses into pieces that are still too long.
func SplitText(text string, size, overlap int) []string {
	return splitRecursive(text, Separators, size, overlap)
}

func splitRecursive(text string, seps []string, size, overlap int) []string {
	sep := seps[len(seps)-1]
	var rest []string
	for i, s := range seps {
		if s == "" {
			sep = s
			break
		}
		if strings.Contains(text, s) {
			sep, rest = s, seps[i+1:]
			break
		}
	}

	var splits []string
	if sep == "" {
		for _, r := range text {
			splits = append(splits, string(r))
		}
	} else {
		for _, s := range strings.Split(text, sep) {
			if s != "" {
				splits = append(splits, s)
			}
		}
	}

	var final, good []string
	for _, s := range splits {
		if runeLen(s) < size {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			final = append(final, merge(good, sep, size, overlap)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, s)
		} else {
			final = append(final, splitRecursive(s, rest, size, overlap)...)
		}
	}
	if len(good) > 0 {
		final = append(final, merge(good, sep, size, overlap)...)
	}
	return final
}

// merge greedily packs splits into documents of at most size runes. When a
// document is emitted, splits are dropped from its front until at most
// overlap runes remain to seed the next one.
func merge(splits []string, sep string, size, overlap int) []string {
	sepLen := runeLen(sep)
	joiner := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	var (
		docs    []string
		current []string
		total   int
	)
	for _, d := range splits {
		l := runeLen(d)
		if total+l+joiner(len(current)) > size && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
				docs = append(docs, doc)
			}
			for total > overlap || (total+l+joiner(len(current)) > size && total > 0) {
				total -= runeLen(current[0]) + joiner(len(current)-1)
				current = current[1:]
			}
		}
		current = append(current, d)
		total += l + joiner(len(current)-1)
	}
	if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
