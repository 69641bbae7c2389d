package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	DefaultModel          = "gpt-4o-mini"
	DefaultVisionModel    = "gpt-4o"
	DefaultEmbeddingModel = "text-embedding-3-small"

	// MaxEmbeddingBatch is the largest input slice sent in one embeddings call.
	MaxEmbeddingBatch = 100
)

// Config for the OpenAI client.
type Config struct {
	APIKey             string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL            string        // empty -> SDK default (https://api.openai.com/v1)
	Model              string        // chat model for extraction and recommendations
	VisionModel        string        // chat model used for image captions
	EmbeddingModel     string        // e.g., "text-embedding-3-small"
	EmbeddingDimension int           // 0 -> model default
	Temperature        float32       // 0..2
	Timeout            time.Duration // per-call timeout
	RPM                int           // requests per minute; <= 0 disables limiting

	MaxRetries  int           // retries on 429, default 3
	BaseBackoff time.Duration // default 2s
	MaxBackoff  time.Duration // default 32s

	HTTPClient *http.Client
}

type Client struct {
	cfg     Config
	api     openai.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	tracer  trace.Tracer
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = DefaultVisionModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 32 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0), // retries are handled here so they respect the breaker
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPM > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RPM)/60.0), max(1, cfg.RPM/10))
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// rate limits and caller cancellations say nothing about provider health
			return err == nil || isRateLimitError(err) || isContextError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("llm.breaker.state_change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		cfg:     cfg,
		api:     openai.NewClient(opts...),
		breaker: breaker,
		limiter: limiter,
		tracer:  otel.Tracer("github.com/joseph-ayodele/proposal-builder/internal/llm/openai"),
		logger:  logger,
	}
}

// Model returns the chat model name.
func (c *Client) Model() string { return c.cfg.Model }
