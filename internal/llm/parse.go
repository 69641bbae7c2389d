package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotRelevant is returned when the model answered with the literal
	// null, meaning the document is off-topic for the prompt. An empty
	// object or one holding only nulls ({"result": null}) means the same.
	ErrNotRelevant = errors.New("llm judged the document not relevant")
	// ErrNotObject is returned when the payload decodes to something other
	// than an object.
	ErrNotObject = errors.New("llm response is not an object")
	// ErrKeyCount is returned when an extraction has the wrong number of
	// categories.
	ErrKeyCount = errors.New("llm response has the wrong number of keys")
)

// BulletSeparator is the literal sequence the prompts require between bullets.
const BulletSeparator = "\n• "

// ParseOptions tunes ParseObject.
type ParseOptions struct {
	// PythonLiteral enables the Python-literal decoder as a fallback when
	// JSON decoding fails. It is always enabled for ```python frames.
	PythonLiteral bool
}

// ParseObject de-frames raw and decodes it into an object.
func ParseObject(raw string, opts ParseOptions) (map[string]any, error) {
	env := Unwrap(raw)
	if env.Body == "" {
		return nil, fmt.Errorf("%w: empty response", ErrNotObject)
	}
	if env.Body == "null" || env.Body == "None" {
		return nil, ErrNotRelevant
	}

	var v any
	jsonErr := json.Unmarshal([]byte(env.Body), &v)
	if jsonErr != nil {
		if !opts.PythonLiteral && env.Frame != FramePython {
			return nil, fmt.Errorf("decode json (%s frame): %w", env.Frame, jsonErr)
		}
		pv, pyErr := ParsePythonLiteral(env.Body)
		if pyErr != nil {
			return nil, fmt.Errorf("decode json: %v; decode python literal: %w", jsonErr, pyErr)
		}
		v = pv
	}

	switch t := v.(type) {
	case nil:
		return nil, ErrNotRelevant
	case map[string]any:
		return t, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrNotObject, v)
	}
}

func onlyNulls(obj map[string]any) bool {
	for _, v := range obj {
		if v != nil {
			return false
		}
	}
	return true
}

// Extraction maps a short category label to a bullet-formatted insight.
type Extraction map[string]string

// Keys returns the category labels in sorted order.
func (e Extraction) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseExtraction parses raw into an Extraction with exactly keys entries.
// A null response yields ErrNotRelevant; callers treat that as an empty
// result. Values that arrive as lists are joined with BulletSeparator.
func ParseExtraction(raw string, keys int, opts ParseOptions) (Extraction, error) {
	obj, err := ParseObject(raw, opts)
	if err != nil {
		return nil, err
	}
	if onlyNulls(obj) {
		return nil, ErrNotRelevant
	}

	b, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("re-encode extraction: %w", err)
	}
	if err := ValidateJSONAgainstSchema(BuildExtractionSchema(keys), b); err != nil {
		if len(obj) != keys {
			return nil, fmt.Errorf("%w: want %d, got %d", ErrKeyCount, keys, len(obj))
		}
		return nil, err
	}

	out := make(Extraction, len(obj))
	for k, v := range obj {
		out[strings.TrimSpace(k)] = bulletText(v)
	}
	return out, nil
}

// bulletText renders a schema-valid value (string or list of strings) as
// bullet text.
func bulletText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		items := make([]string, 0, len(t))
		for _, it := range t {
			s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(fmt.Sprint(it)), "•"))
			if s != "" {
				items = append(items, s)
			}
		}
		if len(items) == 0 {
			return ""
		}
		return "• " + strings.Join(items, BulletSeparator)
	default:
		return fmt.Sprint(v)
	}
}

// Bullets splits bullet text back into its items.
func Bullets(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "•"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
