package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/llm"
)

type fakeCompleter struct {
	content string
	err     error
	got     []llm.ChatRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return llm.ChatResponse{}, f.err
	}
	return llm.ChatResponse{Content: f.content}, nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPainPoints(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     error
		outcome common.Outcome
		keys    int
	}{
		{
			name:    "three keys",
			content: `{"Legacy billing":"• slow\n• manual","Data silos":"• CRM split","Compliance":"• SOX audit"}`,
			outcome: common.OutcomeOK,
			keys:    3,
		},
		{
			name:    "fenced python dict",
			content: "```python\n{'Legacy billing': ['slow', 'manual'], 'Data silos': 'x', 'Compliance': 'y',}\n```",
			outcome: common.OutcomeOK,
			keys:    3,
		},
		{name: "null is empty ok", content: "null", outcome: common.OutcomeOK, keys: 0},
		{name: "fenced null", content: "```json\nnull\n```", outcome: common.OutcomeOK, keys: 0},
		{name: "empty object", content: "{}", outcome: common.OutcomeOK, keys: 0},
		{name: "wrapped null", content: `{"result": null}`, outcome: common.OutcomeOK, keys: 0},
		{name: "wrong key count", content: `{"a":"x","b":"y"}`, outcome: common.OutcomeDegraded, keys: 0},
		{name: "not json", content: "I cannot help with that.", outcome: common.OutcomeDegraded, keys: 0},
		{name: "upstream error", err: errors.New("boom"), outcome: common.OutcomeDegraded, keys: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{content: tt.content, err: tt.err}
			res := NewExtractor(fc, quiet()).PainPoints(context.Background(), "Acme Corp", "we need a new billing system")
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Len(t, res.Value, tt.keys)
			require.Len(t, fc.got, 1)
			assert.False(t, fc.got[0].JSONMode, "json mode cannot carry a bare null")
			assert.Equal(t, "pain_points", fc.got[0].Purpose)
			assert.Contains(t, fc.got[0].Prompt, "EXACTLY 3 keys")
		})
	}
}

func TestServicesNeedsSixKeys(t *testing.T) {
	six := `{"a":"• 1","b":"• 2","c":"• 3","d":"• 4","e":"• 5","f":"• 6"}`
	res := NewExtractor(&fakeCompleter{content: six}, quiet()).Services(context.Background(), "Beta", "ctx")
	require.True(t, res.IsOK())
	assert.Len(t, res.Value, 6)

	three := `{"a":"• 1","b":"• 2","c":"• 3"}`
	res = NewExtractor(&fakeCompleter{content: three}, quiet()).Services(context.Background(), "Beta", "ctx")
	require.True(t, res.IsDegraded())
	assert.ErrorIs(t, res.Cause, llm.ErrKeyCount)
}

func TestDegradedUsesDefaults(t *testing.T) {
	def := llm.Extraction{"Cost": "• too high", "Speed": "• too slow", "Risk": "• vendor lock-in"}
	e := NewExtractor(&fakeCompleter{content: `{"only":"• one"}`}, quiet(), WithDefaults(KindPainPoints, def))
	res := e.PainPoints(context.Background(), "Acme", "ctx")
	require.True(t, res.IsDegraded())
	assert.Equal(t, def, res.Value)

	// the defaults are copied, not shared
	res.Value["Cost"] = "changed"
	again := e.PainPoints(context.Background(), "Acme", "ctx")
	assert.Equal(t, "• too high", again.Value["Cost"])
}

func TestCancelledFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := NewExtractor(&fakeCompleter{err: context.Canceled}, quiet()).PainPoints(ctx, "Acme", "ctx")
	require.True(t, res.IsFailed())
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestUnknownKind(t *testing.T) {
	res := NewExtractor(&fakeCompleter{}, quiet()).Extract(context.Background(), Kind("other"), "Acme", "ctx")
	require.True(t, res.IsFailed())
	assert.ErrorIs(t, res.Err, common.ErrInvalidInput)
}
