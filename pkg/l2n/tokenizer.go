package l2n

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// netlistLexer splits the netlist text format into words, quoted strings
// and punctuation.
var netlistLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments run to the end of the line
	{Name: "Comment", Pattern: `#[^\n]*`},

	// Whitespace
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	// Quoted names, single or double quotes with backslash escapes
	{Name: "String", Pattern: `"(\\.|[^"\\])*"|'(\\.|[^'\\])*'`},

	// Braces and the coordinate repeat marker
	{Name: "Punct", Pattern: `[()*]`},

	// Keywords, names and numbers
	{Name: "Word", Pattern: `[^\s()"'#]+`},
})

var (
	tokString = netlistLexer.Symbols()["String"]
	tokPunct  = netlistLexer.Symbols()["Punct"]
	tokWord   = netlistLexer.Symbols()["Word"]
)

// tokenizer is a one-token lookahead stream over the lexer output.
// Comments and whitespace are dropped.
type tokenizer struct {
	toks []lexer.Token
	pos  int
	path string
}

func newTokenizer(r io.Reader, path string) (*tokenizer, error) {
	lex, err := netlistLexer.Lex(path, r)
	if err != nil {
		return nil, err
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, &ParseError{Msg: err.Error(), Line: lexLine(err), Path: path}
	}
	t := &tokenizer{path: path}
	for _, tok := range all {
		switch tok.Type {
		case tokString, tokPunct, tokWord:
			t.toks = append(t.toks, tok)
		}
	}
	return t, nil
}

func lexLine(err error) int {
	if perr, ok := err.(interface{ Position() lexer.Position }); ok {
		return perr.Position().Line
	}
	return 0
}

func (t *tokenizer) atEnd() bool { return t.pos >= len(t.toks) }

// line returns the line of the next token, or of the last one at the end.
func (t *tokenizer) line() int {
	switch {
	case len(t.toks) == 0:
		return 0
	case t.atEnd():
		return t.toks[len(t.toks)-1].Pos.Line
	default:
		return t.toks[t.pos].Pos.Line
	}
}

func (t *tokenizer) errorf(format string, args ...any) error {
	return &ParseError{Msg: fmt.Sprintf(format, args...), Line: t.line(), Path: t.path}
}

// test consumes the next token if it is the given punctuation.
func (t *tokenizer) test(punct string) bool {
	if t.atEnd() {
		return false
	}
	tok := t.toks[t.pos]
	if tok.Type == tokPunct && tok.Value == punct {
		t.pos++
		return true
	}
	return false
}

// testKey consumes the next token if it spells the keyword.
func (t *tokenizer) testKey(k keyword) bool {
	if t.atEnd() {
		return false
	}
	tok := t.toks[t.pos]
	if tok.Type == tokWord && (tok.Value == k.long || tok.Value == k.short) {
		t.pos++
		return true
	}
	return false
}

func (t *tokenizer) expect(punct string) error {
	if !t.test(punct) {
		return t.errorf("Expected '%s'", punct)
	}
	return nil
}

func (t *tokenizer) readWordOrQuoted() (string, error) {
	if t.atEnd() {
		return "", t.errorf("Expected a name, got end of input")
	}
	tok := t.toks[t.pos]
	switch tok.Type {
	case tokWord:
		t.pos++
		return tok.Value, nil
	case tokString:
		t.pos++
		return unquote(tok.Value), nil
	}
	return "", t.errorf("Expected a name, got '%s'", tok.Value)
}

func (t *tokenizer) readWord() (string, error) {
	if t.atEnd() || t.toks[t.pos].Type != tokWord {
		return "", t.errorf("Expected a value")
	}
	tok := t.toks[t.pos]
	t.pos++
	return tok.Value, nil
}

func (t *tokenizer) readInt() (int, error) {
	w, err := t.readWord()
	if err != nil {
		return 0, err
	}
	i, err := strconv.Atoi(w)
	if err != nil {
		return 0, t.errorf("Expected an integer value, got '%s'", w)
	}
	return i, nil
}

func (t *tokenizer) readCoord() (int64, error) {
	w, err := t.readWord()
	if err != nil {
		return 0, err
	}
	i, err := strconv.ParseInt(w, 10, 64)
	if err != nil {
		return 0, t.errorf("Expected a coordinate, got '%s'", w)
	}
	return i, nil
}

func (t *tokenizer) readDouble() (float64, error) {
	w, err := t.readWord()
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return 0, t.errorf("Expected a floating-point value, got '%s'", w)
	}
	return f, nil
}

func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	body := s[1 : len(s)-1]
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		sb.WriteByte(body[i])
	}
	return sb.String()
}

// quoteIfNeeded returns s as a bare word when the lexer reads it back as
// one, and as a double-quoted string otherwise.
func quoteIfNeeded(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\r\n()\"'#*\\") {
		return s
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

// brace tracks an optional "( ... )" group.
type brace struct {
	t       *tokenizer
	has     bool
	checked bool
}

func (t *tokenizer) openBrace() *brace {
	return &brace{t: t, has: t.test("(")}
}

// more reports whether the group has more content. It consumes the
// closing brace when reached.
func (b *brace) more() bool {
	if !b.has {
		b.checked = true
		return false
	}
	if b.t.test(")") {
		b.checked = true
		return false
	}
	if b.t.atEnd() {
		return false
	}
	return true
}

func (b *brace) done() error {
	if b.has && !b.checked {
		if err := b.t.expect(")"); err != nil {
			return err
		}
		b.checked = true
	}
	return nil
}
