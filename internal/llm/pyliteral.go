package llm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrPythonLiteral is returned when a payload is not a Python literal.
var ErrPythonLiteral = errors.New("invalid python literal")

// ParsePythonLiteral decodes the subset of Python literal syntax models emit
// when asked for a dict: dicts, lists, tuples, sets, str (single, double and
// triple quoted, with implicit concatenation), int, float, True, False, None.
// Values decode to the same Go types encoding/json produces: map[string]any,
// []any, string, float64, bool and nil. Tuples and sets decode to []any.
func ParsePythonLiteral(s string) (any, error) {
	p := &pyParser{src: s}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing input %q", p.rest(12))
	}
	return v, nil
}

type pyParser struct {
	src string
	pos int
}

func (p *pyParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrPythonLiteral, p.pos, fmt.Sprintf(format, args...))
}

func (p *pyParser) rest(n int) string {
	r := p.src[p.pos:]
	if len(r) > n {
		r = r[:n]
	}
	return r
}

func (p *pyParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *pyParser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case c == '#':
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *pyParser) value() (any, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == 0:
		return nil, p.errorf("unexpected end of input")
	case c == '{':
		return p.dictOrSet()
	case c == '[':
		p.pos++
		return p.sequence(']')
	case c == '(':
		p.pos++
		return p.sequence(')')
	case c == '\'' || c == '"':
		return p.strings()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return p.keyword()
	}
}

func (p *pyParser) keyword() (any, error) {
	start := p.pos
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsLetter(r) && r != '_' {
			break
		}
		p.pos += size
	}
	switch word := p.src[start:p.pos]; word {
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "None":
		return nil, nil
	case "":
		return nil, p.errorf("unexpected character %q", p.rest(1))
	default:
		p.pos = start
		return nil, p.errorf("unknown name %q", word)
	}
}

func (p *pyParser) sequence(closer byte) ([]any, error) {
	out := make([]any, 0)
	for {
		p.skipSpace()
		if p.peek() == closer {
			p.pos++
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case closer:
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or %q", closer)
		}
	}
}

func (p *pyParser) dictOrSet() (any, error) {
	p.pos++ // '{'
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return map[string]any{}, nil
	}

	first, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() != ':' {
		// set literal
		items := []any{first}
		if p.peek() == '}' {
			p.pos++
			return items, nil
		}
		if p.peek() != ',' {
			return nil, p.errorf("expected ',' or '}' in set")
		}
		p.pos++
		rest, err := p.sequence('}')
		if err != nil {
			return nil, err
		}
		return append(items, rest...), nil
	}

	out := map[string]any{}
	key := first
	for {
		p.pos++ // ':'
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		k, err := p.keyString(key)
		if err != nil {
			return nil, err
		}
		out[k] = v

		p.skipSpace()
		switch p.peek() {
		case '}':
			p.pos++
			return out, nil
		case ',':
			p.pos++
		default:
			return nil, p.errorf("expected ',' or '}' in dict")
		}

		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return out, nil
		}
		if key, err = p.value(); err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':' in dict")
		}
	}
}

func (p *pyParser) keyString(k any) (string, error) {
	switch t := k.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		if t {
			return "True", nil
		}
		return "False", nil
	case nil:
		return "None", nil
	default:
		return "", p.errorf("unhashable dict key of type %T", k)
	}
}

// strings reads one or more adjacent string literals and concatenates them.
func (p *pyParser) strings() (string, error) {
	var b strings.Builder
	for {
		s, err := p.str()
		if err != nil {
			return "", err
		}
		b.WriteString(s)
		p.skipSpace()
		if c := p.peek(); c != '\'' && c != '"' {
			return b.String(), nil
		}
	}
}

func (p *pyParser) str() (string, error) {
	q := p.src[p.pos]
	triple := strings.HasPrefix(p.src[p.pos:], strings.Repeat(string(q), 3))
	if triple {
		p.pos += 3
	} else {
		p.pos++
	}

	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '\\':
			if err := p.escape(&b); err != nil {
				return "", err
			}
			continue
		case c == q && !triple:
			p.pos++
			return b.String(), nil
		case c == q && strings.HasPrefix(p.src[p.pos:], strings.Repeat(string(q), 3)):
			p.pos += 3
			return b.String(), nil
		case c == '\n' && !triple:
			return "", p.errorf("newline in string literal")
		}
		b.WriteByte(c)
		p.pos++
	}
	return "", p.errorf("unterminated string")
}

func (p *pyParser) escape(b *strings.Builder) error {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return p.errorf("dangling escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case '\\', '\'', '"':
		b.WriteByte(c)
	case '\n':
		// line continuation
	case 'u', 'x':
		n := 4
		if c == 'x' {
			n = 2
		}
		if p.pos+n > len(p.src) {
			return p.errorf("short \\%c escape", c)
		}
		code, err := strconv.ParseUint(p.src[p.pos:p.pos+n], 16, 32)
		if err != nil {
			return p.errorf("bad \\%c escape", c)
		}
		b.WriteRune(rune(code))
		p.pos += n
	default:
		// Python keeps unknown escapes verbatim
		b.WriteByte('\\')
		b.WriteByte(c)
	}
	return nil
}

func (p *pyParser) number() (float64, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == '_' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		if (c == '-' || c == '+') && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E') {
			p.pos++
			continue
		}
		break
	}
	lit := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		p.pos = start
		return 0, p.errorf("bad number %q", lit)
	}
	return f, nil
}
