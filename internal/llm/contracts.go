package llm

import "context"

// ChatRequest is a single-turn completion request.
type ChatRequest struct {
	// Purpose labels the call in logs and traces ("pain_points", "scope", ...).
	Purpose  string
	System   string
	Prompt   string
	JSONMode bool
	// MaxTokens caps the completion; 0 leaves the provider default.
	MaxTokens int
}

// ChatResponse is the raw completion text plus accounting.
type ChatResponse struct {
	Content    string
	Model      string
	TokensUsed int
}

// Completer is the interface extraction and recommendation depend on.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
