package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/llm"
)

// Kind is one section of the project specification.
type Kind string

const (
	KindScope    Kind = "scope"
	KindTimeline Kind = "timeline"
	KindEffort   Kind = "effort"
	KindTeam     Kind = "team"
	KindPricing  Kind = "pricing"
)

// Kinds lists every recommendation in the order they are reported.
var Kinds = []Kind{KindScope, KindTimeline, KindEffort, KindTeam, KindPricing}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", common.InvalidInputErrorf("unknown recommendation kind %q", s)
}

const (
	DefaultTaskTimeout = 30 * time.Second
	DefaultConcurrency = 5
)

// Recommendation is one kind's answer and how it was obtained.
type Recommendation struct {
	Kind    Kind           `json:"kind"`
	Value   map[string]any `json:"value"`
	Outcome common.Outcome `json:"outcome"`
	Cause   string         `json:"cause,omitempty"`
}

type Option func(*Service)

func WithTaskTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// Service asks the LLM for project-specification recommendations.
type Service struct {
	llm     llm.Completer
	logger  *slog.Logger
	timeout time.Duration
	limit   int
}

func NewService(completer llm.Completer, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{llm: completer, logger: logger, timeout: DefaultTaskTimeout, limit: DefaultConcurrency}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend runs one kind under the per-task timeout. Any error, including
// the timeout, degrades to the canned default.
func (s *Service) Recommend(ctx context.Context, kind Kind, in Input) common.Result[map[string]any] {
	if _, ok := shape[kind]; !ok {
		return common.Failed[map[string]any](common.InvalidInputErrorf("unknown recommendation kind %q", kind))
	}
	rid := uuid.New().String()
	start := time.Now()
	log := s.logger.With("req_id", rid, "kind", string(kind))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	value, err := s.ask(ctx, kind, in)
	if err != nil {
		log.Warn("recommend.degraded", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return common.Degraded(Defaults(kind, in.currency()), err)
	}
	log.Info("recommend.ok", "keys", len(value), "elapsed_ms", time.Since(start).Milliseconds())
	return common.OK(value)
}

func (s *Service) ask(ctx context.Context, kind Kind, in Input) (map[string]any, error) {
	if s.llm == nil {
		return nil, errors.New("no llm configured")
	}
	resp, err := s.llm.Complete(ctx, llm.ChatRequest{
		Purpose:  string(kind),
		Prompt:   BuildPrompt(kind, in),
		JSONMode: true,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("timed out after %s: %w", s.timeout, ctx.Err())
		}
		return nil, fmt.Errorf("complete: %w", err)
	}
	obj, err := llm.ParseObject(resp.Content, llm.ParseOptions{PythonLiteral: true})
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("re-encode recommendation: %w", err)
	}
	if err := llm.ValidateJSONAgainstSchema(schemaFor(kind), b); err != nil {
		return nil, err
	}
	return obj, nil
}

// RecommendAll fans the five kinds out with bounded concurrency. Each worker
// writes only its own slot; the slice is complete once Wait returns. The
// error is non-nil only when ctx itself was cancelled.
func (s *Service) RecommendAll(ctx context.Context, in Input) ([]Recommendation, error) {
	start := time.Now()
	out := make([]Recommendation, len(Kinds))

	var g errgroup.Group
	g.SetLimit(s.limit)
	for i, kind := range Kinds {
		g.Go(func() error {
			res := s.Recommend(ctx, kind, in)
			rec := Recommendation{Kind: kind, Value: res.Value, Outcome: res.Outcome}
			if res.Cause != nil {
				rec.Cause = res.Cause.Error()
			}
			out[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return out, err
	}
	degraded := 0
	for _, r := range out {
		if r.Outcome != common.OutcomeOK {
			degraded++
		}
	}
	s.logger.Info("recommend.all.done",
		"kinds", len(out),
		"degraded", degraded,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
