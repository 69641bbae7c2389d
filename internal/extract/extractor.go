package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/llm"
)

// Kind names an extraction prompt.
type Kind string

const (
	KindPainPoints Kind = "pain_points"
	KindServices   Kind = "services"
)

// Keys is the category count the prompt for k demands.
func (k Kind) Keys() int {
	if k == KindServices {
		return llm.ServiceKeys
	}
	return llm.PainPointKeys
}

// Query is the retrieval query paired with the prompt for k.
func (k Kind) Query() string {
	if k == KindServices {
		return llm.ServicesQuery
	}
	return llm.PainPointsQuery
}

type Option func(*Extractor)

// WithDefaults sets the extraction substituted when a response cannot be
// used. Nil leaves an empty extraction.
func WithDefaults(kind Kind, def llm.Extraction) Option {
	return func(e *Extractor) { e.defaults[kind] = def }
}

// WithPythonLiteral enables the Python-literal decoder on unframed bodies.
func WithPythonLiteral(on bool) Option {
	return func(e *Extractor) { e.parse.PythonLiteral = on }
}

// Extractor turns retrieved document context into category → insight maps.
type Extractor struct {
	llm      llm.Completer
	logger   *slog.Logger
	parse    llm.ParseOptions
	defaults map[Kind]llm.Extraction
}

func NewExtractor(completer llm.Completer, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		llm:      completer,
		logger:   logger,
		parse:    llm.ParseOptions{PythonLiteral: true},
		defaults: map[Kind]llm.Extraction{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PainPoints extracts exactly three client pain-point categories.
func (e *Extractor) PainPoints(ctx context.Context, company, docContext string) common.Result[llm.Extraction] {
	return e.Extract(ctx, KindPainPoints, company, docContext)
}

// Services extracts exactly six seller service categories.
func (e *Extractor) Services(ctx context.Context, company, docContext string) common.Result[llm.Extraction] {
	return e.Extract(ctx, KindServices, company, docContext)
}

// Extract runs the prompt for kind. A null answer is ok with an empty
// extraction; transport, parse and shape errors degrade to the defaults.
// Only cancellation fails.
func (e *Extractor) Extract(ctx context.Context, kind Kind, company, docContext string) common.Result[llm.Extraction] {
	rid := uuid.New().String()
	start := time.Now()
	log := e.logger.With("req_id", rid, "kind", string(kind), "company", company)

	var prompt string
	switch kind {
	case KindPainPoints:
		prompt = llm.BuildPainPointsPrompt(company, docContext)
	case KindServices:
		prompt = llm.BuildServicesPrompt(company, docContext)
	default:
		return common.Failed[llm.Extraction](common.InvalidInputErrorf("unknown extraction kind %q", kind))
	}

	if e.llm == nil {
		return e.degrade(log, kind, errors.New("no llm configured"))
	}
	log.Info("extract.start", "context_chars", len(docContext))

	// no JSON mode: the prompts allow a bare null answer
	resp, err := e.llm.Complete(ctx, llm.ChatRequest{
		Purpose: string(kind),
		Prompt:  prompt,
	})
	if err != nil {
		if ctx.Err() != nil {
			return common.Failed[llm.Extraction](ctx.Err())
		}
		return e.degrade(log, kind, fmt.Errorf("complete: %w", err))
	}

	out, err := llm.ParseExtraction(resp.Content, kind.Keys(), e.parse)
	switch {
	case errors.Is(err, llm.ErrNotRelevant):
		log.Info("extract.not_relevant", "elapsed_ms", time.Since(start).Milliseconds())
		return common.OK(llm.Extraction{})
	case err != nil:
		log.Warn("extract.parse_failed", "error", err, "content_len", len(resp.Content))
		return e.degrade(log, kind, err)
	}

	log.Info("extract.ok",
		"keys", len(out),
		"tokens", resp.TokensUsed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return common.OK(out)
}

func (e *Extractor) degrade(log *slog.Logger, kind Kind, cause error) common.Result[llm.Extraction] {
	log.Warn("extract.degraded", "error", cause)
	def := llm.Extraction{}
	for k, v := range e.defaults[kind] {
		def[k] = v
	}
	return common.Degraded(def, cause)
}
