package filter

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/andresuchdata/orderplan/internal/domain"
)

// SyntaxError reports where an expression stopped making sense. Pos is a
// rune offset into the source.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at position %d: %s", domain.ErrExpressionSyntax.Error(), e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return domain.ErrExpressionSyntax
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of expression"
	}
	return strconv.Quote(t.text)
}

var keywords = map[string]tokenKind{
	"and": tokAnd,
	"or":  tokOr,
	"not": tokNot,
}

func lex(src string) ([]token, error) {
	runes := []rune(src)
	var tokens []token
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &SyntaxError{Pos: start, Msg: fmt.Sprintf("bad number %q", text)}
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, num: num, pos: start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			text := string(runes[start:i])
			kind := tokIdent
			if kw, ok := keywords[strings.ToLower(text)]; ok {
				kind = kw
			}
			tokens = append(tokens, token{kind: kind, text: text, pos: start})
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case strings.ContainsRune("+-*/", r):
			tokens = append(tokens, token{kind: tokOp, text: string(r), pos: i})
			i++
		case strings.ContainsRune("<>=!", r):
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{kind: tokOp, text: string(runes[i : i+2]), pos: i})
				i += 2
				continue
			}
			if r == '=' || r == '!' {
				return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected %q, did you mean %q", string(r), string(r)+"=")}
			}
			tokens = append(tokens, token{kind: tokOp, text: string(r), pos: i})
			i++
		default:
			return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", string(r))}
		}
	}
	return append(tokens, token{kind: tokEOF, pos: len(runes)}), nil
}
