package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/llm"
)

// Complete implements llm.Completer with a single-turn chat completion.
func (c *Client) Complete(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	rid := uuid.New().String()
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "llm.chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.purpose", req.Purpose),
		attribute.String("llm.model", c.cfg.Model),
		attribute.Int("llm.prompt_chars", len(req.Prompt)),
	)

	c.logger.Info("llm.chat.start",
		"req_id", rid,
		"purpose", req.Purpose,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"prompt_len", len(req.Prompt),
		"json_mode", req.JSONMode,
	)

	var msgs []openai.ChatCompletionMessageParamUnion
	if s := strings.TrimSpace(req.System); s != "" {
		msgs = append(msgs, openai.SystemMessage(s))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.cfg.Model),
		Messages:    msgs,
		Temperature: openai.Float(float64(c.cfg.Temperature)),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
	}

	completion, err := execute(ctx, c, rid, "chat", func(ctx context.Context) (*openai.ChatCompletion, error) {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		return c.api.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		c.logger.Error("llm.chat.error",
			"req_id", rid, "purpose", req.Purpose, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ChatResponse{}, err
	}
	if len(completion.Choices) == 0 {
		c.logger.Error("llm.chat.no_choices",
			"req_id", rid, "purpose", req.Purpose,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ChatResponse{}, fmt.Errorf("%w: no choices in openai response", common.ErrUpstream)
	}

	out := llm.ChatResponse{
		Content:    strings.TrimSpace(completion.Choices[0].Message.Content),
		Model:      string(completion.Model),
		TokensUsed: int(completion.Usage.TotalTokens),
	}
	span.SetAttributes(attribute.Int("llm.tokens", out.TokensUsed))
	c.logger.Info("llm.chat.ok",
		"req_id", rid,
		"purpose", req.Purpose,
		"tokens", out.TokensUsed,
		"content_len", len(out.Content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// execute runs fn behind the rate limiter and circuit breaker, retrying 429
// responses with exponential backoff.
func execute[T any](ctx context.Context, c *Client, rid, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(c.cfg.BaseBackoff, c.cfg.MaxBackoff, attempt)
			c.logger.Warn("llm.retry.backoff",
				"req_id", rid, "op", op, "attempt", attempt, "wait_ms", wait.Milliseconds(), "error", lastErr)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(wait):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("%s: rate limiter: %w", op, err)
		}

		out, err := c.breaker.Execute(func() (interface{}, error) {
			return fn(ctx)
		})
		if err == nil {
			return out.(T), nil
		}
		lastErr = err

		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return zero, fmt.Errorf("%s: %w: circuit open: %w", op, common.ErrUpstream, err)
		case isContextError(err):
			return zero, err
		case !isRateLimitError(err):
			return zero, fmt.Errorf("%s: %w: %w", op, common.ErrUpstream, err)
		}
	}

	return zero, fmt.Errorf("%s: %w: max retries exceeded: %w", op, common.ErrUpstream, lastErr)
}

func backoff(base, ceiling time.Duration, attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt-1))) * base
	if d > ceiling {
		d = ceiling
	}
	return d
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
