package lexer

import (
	"strconv"
	"strings"

	"github.com/lainsce/ergo/internal/errs"
)

// Lex tokenizes src in full, returning the token list or the first lexical
// error encountered. It never panics and always terminates (spec.md §8,
// "lexer totality"): every branch either advances the cursor or returns.
func Lex(path, src string) ([]Token, error) {
	l := &lexState{path: path, src: src, line: 1, col: 1}
	return l.run()
}

type lexState struct {
	path string
	src  string
	i    int
	line int
	col  int

	nest     int // (), [], {} nesting depth, suppresses newline-SEMI
	retDepth int // nesting depth of `(( ... ))` return specs

	lastSig TokenKind // last significant (non-SEMI) token kind
	hasSig  bool

	toks []Token
}

func (l *lexState) peek(k int) byte {
	if l.i+k >= len(l.src) {
		return 0
	}
	return l.src[l.i+k]
}

func (l *lexState) adv(n int) {
	for j := 0; j < n; j++ {
		if l.i >= len(l.src) {
			return
		}
		if l.src[l.i] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.i++
	}
}

func (l *lexState) emit(t Token) {
	l.toks = append(l.toks, t)
}

func (l *lexState) setLast(k TokenKind) {
	if k != SEMI {
		l.lastSig = k
		l.hasSig = true
	}
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentMid(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

var twoCharOps = map[string]TokenKind{
	"==": EQEQ, "!=": NEQ, "<=": LE, ">=": GE,
	"&&": ANDAND, "||": OROR, "=>": FATARROW,
	"+=": PLUSEQ, "-=": MINUSEQ, "*=": STAREQ, "/=": SLASHEQ,
}

var punctKinds = map[byte]TokenKind{
	'(': LPAR, ')': RPAR, '[': LBRACK, ']': RBRACK,
	'{': LBRACE, '}': RBRACE, ',': COMMA, '.': DOT, ':': COLON,
	'+': PLUS, '-': MINUS, '*': STAR, '/': SLASH, '%': PCT,
	'!': BANG, '=': EQ, '<': LT, '>': GT, '|': BAR,
}

func (l *lexState) run() ([]Token, error) {
	for l.i < len(l.src) {
		ch := l.src[l.i]

		if ch == ' ' || ch == '\t' || ch == '\r' {
			l.adv(1)
			continue
		}

		if ch == '\n' {
			l.adv(1)
			if l.nest == 0 && l.hasSig && stmtEnd[l.lastSig] {
				l.emit(Token{Kind: SEMI, Text: ";", Line: l.line - 1, Col: 0})
			}
			continue
		}

		two := string(ch)
		if l.i+1 < len(l.src) {
			two = string(ch) + string(l.src[l.i+1])
		}

		if two == "((" && l.retDepth == 0 && l.hasSig && l.lastSig == RPAR {
			l.emit(Token{Kind: RETSPECOP, Text: "((", Line: l.line, Col: l.col})
			l.adv(2)
			l.retDepth++
			l.setLast(RETSPECOP)
			continue
		}

		if two == "))" && l.retDepth > 0 {
			l.emit(Token{Kind: RETSPECCL, Text: "))", Line: l.line, Col: l.col})
			l.adv(2)
			if l.retDepth > 0 {
				l.retDepth--
			}
			l.setLast(RETSPECCL)
			continue
		}

		if two == "--" && l.retDepth > 0 {
			l.emit(Token{Kind: RETVOID, Text: "--", Line: l.line, Col: l.col})
			l.adv(2)
			l.setLast(RETVOID)
			continue
		}

		if two == "--" && l.retDepth == 0 {
			l.adv(2)
			for l.i < len(l.src) && l.src[l.i] != '\n' {
				l.adv(1)
			}
			continue
		}

		if kind, ok := twoCharOps[two]; ok {
			l.emit(Token{Kind: kind, Text: two, Line: l.line, Col: l.col})
			l.adv(2)
			l.setLast(kind)
			continue
		}

		if ch == ';' {
			l.emit(Token{Kind: SEMI, Text: ";", Line: l.line, Col: l.col})
			l.adv(1)
			// explicit SEMI is the "last real" token but never updates
			// lastSig, matching the reference lexer's last_sig_kind rule.
			continue
		}

		if kind, ok := punctKinds[ch]; ok {
			l.emit(Token{Kind: kind, Text: string(ch), Line: l.line, Col: l.col})
			l.adv(1)
			switch ch {
			case '(', '[', '{':
				l.nest++
			case ')', ']', '}':
				if l.nest > 0 {
					l.nest--
				}
			}
			l.setLast(kind)
			continue
		}

		if ch == '?' {
			l.emit(Token{Kind: QMARK, Text: "?", Line: l.line, Col: l.col})
			l.adv(1)
			l.setLast(QMARK)
			continue
		}

		if ch == '#' {
			l.emit(Token{Kind: HASH, Text: "#", Line: l.line, Col: l.col})
			l.adv(1)
			l.setLast(HASH)
			continue
		}

		if ch == '@' && l.peek(1) == '"' {
			if err := l.lexInterpString(); err != nil {
				return nil, err
			}
			continue
		}

		if ch == '"' {
			if err := l.lexRawString(); err != nil {
				return nil, err
			}
			continue
		}

		if isDigit(ch) {
			l.lexNumber()
			continue
		}

		if isIdentStart(ch) {
			l.lexIdent()
			continue
		}

		return nil, errs.NewLex(l.path, l.line, l.col, "unexpected char %q", string(ch))
	}

	if l.nest == 0 && l.hasSig && stmtEnd[l.lastSig] {
		l.emit(Token{Kind: SEMI, Text: ";", Line: l.line, Col: l.col})
	}

	out := make([]Token, 0, len(l.toks))
	for _, t := range l.toks {
		if t.Kind == SEMI && len(out) > 0 && out[len(out)-1].Kind == SEMI {
			continue
		}
		out = append(out, t)
	}
	out = append(out, Token{Kind: EOF, Text: "", Line: l.line, Col: l.col})
	return out, nil
}

func (l *lexState) lexNumber() {
	startLine, startCol := l.line, l.col
	var buf strings.Builder
	for l.i < len(l.src) && isDigit(l.src[l.i]) {
		buf.WriteByte(l.src[l.i])
		l.adv(1)
	}
	if l.peek(0) == '.' && isDigit(l.peek(1)) {
		buf.WriteByte('.')
		l.adv(1)
		for l.i < len(l.src) && isDigit(l.src[l.i]) {
			buf.WriteByte(l.src[l.i])
			l.adv(1)
		}
		s := buf.String()
		v, _ := strconv.ParseFloat(s, 64)
		l.emit(Token{Kind: FLOAT, Text: s, Line: startLine, Col: startCol, FloatVal: v})
		l.setLast(FLOAT)
		return
	}
	s := buf.String()
	v, _ := strconv.ParseInt(s, 10, 64)
	l.emit(Token{Kind: INT, Text: s, Line: startLine, Col: startCol, IntVal: v})
	l.setLast(INT)
}

func (l *lexState) lexIdent() {
	startLine, startCol := l.line, l.col
	var buf strings.Builder
	for l.i < len(l.src) && isIdentMid(l.src[l.i]) {
		buf.WriteByte(l.src[l.i])
		l.adv(1)
	}
	word := buf.String()
	if kind, ok := keywords[word]; ok {
		l.emit(Token{Kind: kind, Text: word, Line: startLine, Col: startCol})
		l.setLast(kind)
		return
	}
	l.emit(Token{Kind: IDENT, Text: word, Line: startLine, Col: startCol})
	l.setLast(IDENT)
}

func (l *lexState) lexRawString() error {
	startLine, startCol := l.line, l.col
	l.adv(1) // opening "
	var buf strings.Builder
	for l.i < len(l.src) {
		c := l.src[l.i]
		if c == '"' {
			l.adv(1)
			l.emit(Token{
				Kind: STR, Text: `"..."`, Line: startLine, Col: startCol,
				StrVal: []StrPart{{Kind: "text", Text: buf.String()}},
			})
			l.setLast(STR)
			return nil
		}
		if c == '\n' {
			return errs.NewLex(l.path, startLine, startCol, "unterminated string")
		}
		buf.WriteByte(c)
		l.adv(1)
	}
	return errs.NewLex(l.path, startLine, startCol, "unterminated string")
}

func (l *lexState) lexInterpString() error {
	startLine, startCol := l.line, l.col
	l.adv(2) // @"
	var parts []StrPart
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			parts = append(parts, StrPart{Kind: "text", Text: buf.String()})
			buf.Reset()
		}
	}

	for l.i < len(l.src) {
		c := l.src[l.i]

		if c == '"' {
			l.adv(1)
			flush()
			l.emit(Token{Kind: STR, Text: `@"..."`, Line: startLine, Col: startCol, StrVal: parts})
			l.setLast(STR)
			return nil
		}

		if c == '\n' {
			return errs.NewLex(l.path, startLine, startCol, "unterminated string")
		}

		if c == '\\' {
			l.adv(1)
			e := l.peek(0)
			switch e {
			case 'n':
				buf.WriteByte('\n')
				l.adv(1)
			case 't':
				buf.WriteByte('\t')
				l.adv(1)
			case 'r':
				buf.WriteByte('\r')
				l.adv(1)
			case '\\':
				buf.WriteByte('\\')
				l.adv(1)
			case '"':
				buf.WriteByte('"')
				l.adv(1)
			case '$':
				buf.WriteByte('$')
				l.adv(1)
			case 'u':
				if l.peek(1) == '{' {
					l.adv(2) // u{
					var hexbuf strings.Builder
					for l.i < len(l.src) && l.peek(0) != '}' {
						hexbuf.WriteByte(l.peek(0))
						l.adv(1)
					}
					if l.peek(0) != '}' {
						return errs.NewLex(l.path, l.line, l.col, `bad \u{...} escape`)
					}
					l.adv(1) // }
					code, err := strconv.ParseInt(hexbuf.String(), 16, 32)
					if err != nil {
						return errs.NewLex(l.path, l.line, l.col, `bad \u{...} escape`)
					}
					buf.WriteRune(rune(code))
				} else {
					return errs.NewLex(l.path, l.line, l.col, "unknown escape \\u")
				}
			default:
				return errs.NewLex(l.path, l.line, l.col, "unknown escape \\%c", e)
			}
			continue
		}

		if c == '$' {
			if !isIdentStart(l.peek(1)) {
				buf.WriteByte('$')
				l.adv(1)
				continue
			}
			flush()
			l.adv(1) // consume '$'
			var namebuf strings.Builder
			for l.i < len(l.src) && isIdentMid(l.src[l.i]) {
				namebuf.WriteByte(l.src[l.i])
				l.adv(1)
			}
			parts = append(parts, StrPart{Kind: "var", Name: namebuf.String()})
			continue
		}

		buf.WriteByte(c)
		l.adv(1)
	}

	return errs.NewLex(l.path, startLine, startCol, "unterminated string")
}
