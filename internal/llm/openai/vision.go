package openai

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
	"go.opentelemetry.io/otel/attribute"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/llm"
)

// Caption sends an image to the vision model with the exhaustive
// description prompt and returns the caption text.
func (c *Client) Caption(ctx context.Context, imagePath string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "llm.caption")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.cfg.VisionModel))

	dataURL, mimeType, err := llm.ReadAsDataURL(imagePath)
	if err != nil {
		c.logger.Error("llm.caption.read_error", "req_id", rid, "path", imagePath, "error", err)
		return "", fmt.Errorf("read image: %w", err)
	}
	c.logger.Info("llm.caption.start",
		"req_id", rid,
		"model", c.cfg.VisionModel,
		"file", filepath.Base(imagePath),
		"mime", mimeType,
		"data_url_len", len(dataURL),
	)

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.cfg.VisionModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(llm.CaptionPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(4096),
	}

	completion, err := execute(ctx, c, rid, "caption", func(ctx context.Context) (*openai.ChatCompletion, error) {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		return c.api.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		span.RecordError(err)
		c.logger.Error("llm.caption.error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in caption response", common.ErrUpstream)
	}

	caption := strings.TrimSpace(completion.Choices[0].Message.Content)
	c.logger.Info("llm.caption.ok",
		"req_id", rid,
		"caption_len", len(caption),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return caption, nil
}
