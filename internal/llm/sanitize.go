package llm

import "strings"

// Frame identifies the markdown envelope an LLM wrapped its payload in.
type Frame int

const (
	FrameNone   Frame = iota // payload was not fenced
	FramePython              // ```python ... ```
	FrameJSON                // ```json ... ```
	FramePlain               // ``` ... ```
)

func (f Frame) String() string {
	switch f {
	case FramePython:
		return "python"
	case FrameJSON:
		return "json"
	case FramePlain:
		return "plain"
	default:
		return "none"
	}
}

const fenceClose = "```"

// frames are tried in order; the bare fence must come last because it is a
// prefix of the other two.
var frames = []struct {
	frame Frame
	open  string
}{
	{FramePython, "```python"},
	{FrameJSON, "```json"},
	{FramePlain, "```"},
}

// Envelope is the result of de-framing a raw response.
type Envelope struct {
	Frame Frame
	Body  string
}

// Unwrap removes at most one fence pair from raw and trims whitespace.
// Matching is case-sensitive. Input without a known opening fence comes back
// trimmed with FrameNone, so Unwrap(Unwrap(x).Body) == Unwrap(x) for clean
// payloads.
func Unwrap(raw string) Envelope {
	s := strings.TrimSpace(raw)
	for _, f := range frames {
		if !strings.HasPrefix(s, f.open) {
			continue
		}
		body := strings.TrimPrefix(s, f.open)
		body = strings.TrimSpace(body)
		body = strings.TrimSuffix(body, fenceClose)
		return Envelope{Frame: f.frame, Body: strings.TrimSpace(body)}
	}
	return Envelope{Frame: FrameNone, Body: s}
}

// StripFences is Unwrap without the frame tag.
func StripFences(raw string) string {
	return Unwrap(raw).Body
}
