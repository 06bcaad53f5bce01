// Package liquid parses the small expression language used inside outputs
// and tag markup: filter chains, loop headers and conditions. It never
// evaluates anything.
package liquid

import (
	"unicode/utf8"
)

type TokKind uint8

const (
	TIdent TokKind = iota + 1
	TString
	TNumber
	TPipe     // |
	TColon    // :
	TComma    // ,
	TDot      // .
	TRange    // ..
	TLBracket // [
	TRBracket // ]
	TLParen   // (
	TRParen   // )
	TCompare  // == != <> < > <= >=
	TAssign   // =
	TBang     // !
	TQuestion // ?
	TAmpAmp   // &&
	TOther
)

// Tok is one lexeme. Off and End are byte offsets into the parsed markup.
type Tok struct {
	Kind TokKind
	Text string
	Off  int
	End  int
	Open bool // строка без закрывающей кавычки
}

// Lex splits markup into expression tokens. It never fails: bytes it does
// not understand become TOther tokens.
func Lex(s string) []Tok {
	var out []Tok
	i := 0
	emit := func(kind TokKind, start, end int) {
		out = append(out, Tok{Kind: kind, Text: s[start:end], Off: start, End: end})
	}
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '"' || c == '\'':
			start := i
			i++
			for i < len(s) && s[i] != c {
				i++
			}
			if i < len(s) {
				i++
				emit(TString, start, i)
			} else {
				emit(TString, start, i)
				out[len(out)-1].Open = true
			}
		case isDigit(c) || (c == '-' && i+1 < len(s) && isDigit(s[i+1]) && !prevIsValue(out)):
			start := i
			i++
			for i < len(s) && isDigit(s[i]) {
				i++
			}
			if i+1 < len(s) && s[i] == '.' && isDigit(s[i+1]) {
				i++
				for i < len(s) && isDigit(s[i]) {
					i++
				}
			}
			emit(TNumber, start, i)
		case isIdentStart(c):
			start := i
			for i < len(s) && isIdentByte(s[i]) {
				i++
			}
			emit(TIdent, start, i)
		case c == '.':
			if i+1 < len(s) && s[i+1] == '.' {
				emit(TRange, i, i+2)
				i += 2
			} else {
				emit(TDot, i, i+1)
				i++
			}
		case c == '=' || c == '!' || c == '<' || c == '>':
			if i+1 < len(s) && (s[i+1] == '=' || (c == '<' && s[i+1] == '>')) {
				emit(TCompare, i, i+2)
				i += 2
				continue
			}
			switch c {
			case '=':
				emit(TAssign, i, i+1)
			case '!':
				emit(TBang, i, i+1)
			default:
				emit(TCompare, i, i+1)
			}
			i++
		case c == '&' && i+1 < len(s) && s[i+1] == '&':
			emit(TAmpAmp, i, i+2)
			i += 2
		default:
			kind := TOther
			switch c {
			case '|':
				kind = TPipe
			case ':':
				kind = TColon
			case ',':
				kind = TComma
			case '[':
				kind = TLBracket
			case ']':
				kind = TRBracket
			case '(':
				kind = TLParen
			case ')':
				kind = TRParen
			case '?':
				kind = TQuestion
			}
			size := 1
			if c >= utf8.RuneSelf {
				_, size = utf8.DecodeRuneInString(s[i:])
			}
			emit(kind, i, i+size)
			i += size
		}
	}
	return out
}

// prevIsValue reports whether a '-' would be a binary minus rather than a sign.
func prevIsValue(toks []Tok) bool {
	if len(toks) == 0 {
		return false
	}
	switch toks[len(toks)-1].Kind {
	case TIdent, TNumber, TString, TRBracket, TRParen:
		return true
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '-'
}
