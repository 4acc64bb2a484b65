package pdf

import (
	"errors"
	"fmt"
	"strconv"
)

// lexer walks the raw file bytes. Working on the full slice keeps reference
// lookahead ("n g R") a matter of saving and restoring an index.
type lexer struct {
	data []byte
	pos  int
}

func isWhitespace(c byte) bool {
	return c == 0 || c == '\t' || c == '\n' || c == '\f' || c == '\r' || c == ' '
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *lexer) peek() (byte, bool) {
	if l.pos >= len(l.data) {
		return 0, false
	}
	return l.data[l.pos], true
}

// readToken returns the next regular token (keyword or number text).
func (l *lexer) readToken() string {
	l.skipWhitespace()
	start := l.pos
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		l.pos++
	}
	return string(l.data[start:l.pos])
}

var errUnexpectedEOF = errors.New("unexpected end of file")

// readObject parses the next object.
func (l *lexer) readObject() (Object, error) {
	l.skipWhitespace()
	c, ok := l.peek()
	if !ok {
		return nil, errUnexpectedEOF
	}
	switch {
	case c == '/':
		return l.readName()
	case c == '(':
		return l.readLiteralString()
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			return l.readDict()
		}
		return l.readHexString()
	case c == '[':
		return l.readArray()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return l.readNumberOrRef()
	default:
		switch tok := l.readToken(); tok {
		case "true":
			return Boolean(true), nil
		case "false":
			return Boolean(false), nil
		case "null":
			return Null{}, nil
		case "":
			return nil, fmt.Errorf("unexpected byte %q at offset %d", c, l.pos)
		default:
			return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok, l.pos)
		}
	}
}

func (l *lexer) readName() (Name, error) {
	l.pos++ // consume '/'
	var out []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		if c == '#' && l.pos+2 < len(l.data) {
			if v, err := strconv.ParseUint(string(l.data[l.pos+1:l.pos+3]), 16, 8); err == nil {
				out = append(out, byte(v))
				l.pos += 3
				continue
			}
		}
		out = append(out, c)
		l.pos++
	}
	return Name(out), nil
}

func (l *lexer) readNumberOrRef() (Object, error) {
	save := l.pos
	first := l.readToken()
	num, err := parseNumber(first)
	if err != nil {
		l.pos = save
		return nil, err
	}
	if n, isInt := num.(Integer); isInt && n >= 0 {
		// Lookahead for "gen R".
		afterFirst := l.pos
		second := l.readToken()
		if gen, err := strconv.Atoi(second); err == nil && gen >= 0 {
			afterSecond := l.pos
			if l.readToken() == "R" {
				return Ref{Num: int(n), Gen: gen}, nil
			}
			l.pos = afterSecond
		}
		l.pos = afterFirst
	}
	return num, nil
}

func parseNumber(tok string) (Object, error) {
	if tok == "" {
		return nil, errors.New("empty number token")
	}
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return Integer(i), nil
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", tok)
	}
	return Real(f), nil
}

func (l *lexer) readLiteralString() (String, error) {
	l.pos++ // consume '('
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos >= len(l.data) {
				return nil, errUnexpectedEOF
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
				// line continuation, emit nothing
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data); i++ {
						d := l.data[l.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return String(out), nil
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return nil, errUnexpectedEOF
}

func (l *lexer) readHexString() (String, error) {
	l.pos++ // consume '<'
	var out []byte
	var hi byte
	haveHi := false
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			if haveHi {
				out = append(out, hi<<4)
			}
			return String(out), nil
		}
		v, ok := hexVal(c)
		if !ok {
			continue
		}
		if haveHi {
			out = append(out, hi<<4|v)
			haveHi = false
		} else {
			hi = v
			haveHi = true
		}
	}
	return nil, errUnexpectedEOF
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (l *lexer) readArray() (Array, error) {
	l.pos++ // consume '['
	var out Array
	for {
		l.skipWhitespace()
		c, ok := l.peek()
		if !ok {
			return nil, errUnexpectedEOF
		}
		if c == ']' {
			l.pos++
			return out, nil
		}
		obj, err := l.readObject()
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
}

func (l *lexer) readDict() (Dict, error) {
	l.pos += 2 // consume '<<'
	out := make(Dict)
	for {
		l.skipWhitespace()
		c, ok := l.peek()
		if !ok {
			return nil, errUnexpectedEOF
		}
		if c == '>' {
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
				l.pos += 2
				return out, nil
			}
			return nil, fmt.Errorf("stray '>' at offset %d", l.pos)
		}
		if c != '/' {
			return nil, fmt.Errorf("dictionary key must be a name at offset %d", l.pos)
		}
		key, err := l.readName()
		if err != nil {
			return nil, err
		}
		val, err := l.readObject()
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
}

// expectKeyword consumes the given keyword or fails.
func (l *lexer) expectKeyword(kw string) error {
	if tok := l.readToken(); tok != kw {
		return fmt.Errorf("expected %q, got %q at offset %d", kw, tok, l.pos)
	}
	return nil
}

// skipStreamEOL moves past the single EOL that follows the "stream" keyword.
func (l *lexer) skipStreamEOL() {
	if l.pos < len(l.data) && l.data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\n' {
		l.pos++
	}
}
