package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"go.opentelemetry.io/otel/attribute"
)

// Embed returns one vector per input text, batching MaxEmbeddingBatch inputs
// per request.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}
	rid := uuid.New().String()
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "llm.embed")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", c.cfg.EmbeddingModel),
		attribute.Int("llm.inputs", len(texts)),
	)

	out := make([][]float32, 0, len(texts))
	for lo := 0; lo < len(texts); lo += MaxEmbeddingBatch {
		hi := min(lo+MaxEmbeddingBatch, len(texts))
		batch, err := c.embedBatch(ctx, rid, texts[lo:hi])
		if err != nil {
			span.RecordError(err)
			c.logger.Error("llm.embed.error",
				"req_id", rid, "batch_start", lo, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, err
		}
		out = append(out, batch...)
	}

	c.logger.Info("llm.embed.ok",
		"req_id", rid,
		"inputs", len(texts),
		"model", c.cfg.EmbeddingModel,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, rid string, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if c.cfg.EmbeddingDimension > 0 {
		params.Dimensions = openai.Int(int64(c.cfg.EmbeddingDimension))
	}

	resp, err := execute(ctx, c, rid, "embed", func(ctx context.Context) (*openai.CreateEmbeddingResponse, error) {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		return c.api.Embeddings.New(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: want %d vectors, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, data := range resp.Data {
		if int(data.Index) < 0 || int(data.Index) >= len(vectors) {
			return nil, fmt.Errorf("embeddings: index %d out of range", data.Index)
		}
		vec := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vec[i] = float32(v)
		}
		vectors[data.Index] = vec
	}
	return vectors, nil
}

// EmbeddingModel returns the embedding model name.
func (c *Client) EmbeddingModel() string { return c.cfg.EmbeddingModel }
