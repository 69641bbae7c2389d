package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePythonLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{"dict with single quotes", `{'a': 'b'}`, map[string]any{"a": "b"}},
		{"keywords", `[True, False, None]`, []any{true, false, nil}},
		{"tuple", `(1, 2.5, -3)`, []any{1.0, 2.5, -3.0}},
		{"trailing commas", `{'a': [1, 2,], }`, map[string]any{"a": []any{1.0, 2.0}}},
		{"set", `{'x', 'y'}`, []any{"x", "y"}},
		{"empty dict", `{}`, map[string]any{}},
		{"nested", `{'team': {'lead': 1, 'dev': 3}}`, map[string]any{"team": map[string]any{"lead": 1.0, "dev": 3.0}}},
		{"implicit concatenation", `'ab' "cd"`, "abcd"},
		{"triple quoted", "'''line1\nline2'''", "line1\nline2"},
		{"escapes", `'it\'s\né'`, "it's\né"},
		{"underscored number", `1_000`, 1000.0},
		{"exponent", `1e-3`, 0.001},
		{"comment", "{'a': 1  # one\n}", map[string]any{"a": 1.0}},
		{"numeric key", `{1: 'x'}`, map[string]any{"1": "x"}},
		{"double quotes", `{"k": "v"}`, map[string]any{"k": "v"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePythonLiteral(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePythonLiteralErrors(t *testing.T) {
	for _, in := range []string{
		``,
		`{'a': }`,
		`{'a' 1}`,
		`'unterminated`,
		`[1, 2`,
		`{'a': 1} extra`,
		`foo`,
		`{[1]: 2}`,
	} {
		_, err := ParsePythonLiteral(in)
		assert.ErrorIs(t, err, ErrPythonLiteral, in)
	}
}
