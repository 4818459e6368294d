package condition

import (
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenDot
	tokenString
	tokenNumber
	tokenTrue
	tokenFalse
	tokenAnd
	tokenOr
	tokenNot
	tokenIn
	tokenCompare
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
)

var keywords = map[string]tokenKind{
	"and":   tokenAnd,
	"or":    tokenOr,
	"not":   tokenNot,
	"in":    tokenIn,
	"true":  tokenTrue,
	"false": tokenFalse,
}

type token struct {
	kind  tokenKind
	text  string
	value any
	pos   int
}

func (t token) describe() string {
	if t.kind == tokenEOF {
		return "end of expression"
	}

	return strconv.Quote(t.text)
}

type lexer struct {
	src []rune
	pos int
}

func lex(src string) ([]token, error) {
	l := &lexer{src: []rune(src)}

	var tokens []token

	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, tok)

		if tok.kind == tokenEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) peek(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}

	return l.src[l.pos+offset]
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}

	start := l.pos
	if start >= len(l.src) {
		return token{kind: tokenEOF, pos: start}, nil
	}

	char := l.src[start]

	switch {
	case isIdentStart(char):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}

		text := string(l.src[start:l.pos])
		if kind, ok := keywords[text]; ok {
			return token{kind: kind, text: text, pos: start}, nil
		}

		return token{kind: tokenIdent, text: text, pos: start}, nil
	case isDigit(char), char == '-' && isDigit(l.peek(1)):
		return l.number()
	case char == '"' || char == '\'':
		return l.string(char)
	}

	single := map[rune]tokenKind{
		'.': tokenDot,
		'(': tokenLParen,
		')': tokenRParen,
		'[': tokenLBracket,
		']': tokenRBracket,
		',': tokenComma,
	}
	if kind, ok := single[char]; ok {
		l.pos++

		return token{kind: kind, text: string(char), pos: start}, nil
	}

	two := string(char) + string(l.peek(1))
	switch two {
	case "==", "!=", "<=", ">=":
		l.pos += 2

		return token{kind: tokenCompare, text: two, pos: start}, nil
	case "&&":
		l.pos += 2

		return token{kind: tokenAnd, text: two, pos: start}, nil
	case "||":
		l.pos += 2

		return token{kind: tokenOr, text: two, pos: start}, nil
	}

	switch char {
	case '<', '>':
		l.pos++

		return token{kind: tokenCompare, text: string(char), pos: start}, nil
	case '!':
		l.pos++

		return token{kind: tokenNot, text: "!", pos: start}, nil
	}

	return token{}, &LexError{Pos: start, Char: char}
}

func (l *lexer) number() (token, error) {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
	}

	seenDot := false

	for l.pos < len(l.src) {
		char := l.src[l.pos]
		if char == '.' && !seenDot && isDigit(l.peek(1)) {
			seenDot = true
			l.pos++

			continue
		}

		if !isDigit(char) {
			break
		}

		l.pos++
	}

	text := string(l.src[start:l.pos])

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, &LexError{Pos: start, Char: l.src[start]}
	}

	return token{kind: tokenNumber, text: text, value: value, pos: start}, nil
}

func (l *lexer) string(quote rune) (token, error) {
	start := l.pos
	l.pos++

	var builder strings.Builder

	for l.pos < len(l.src) {
		char := l.src[l.pos]

		switch char {
		case quote:
			l.pos++

			return token{kind: tokenString, text: string(l.src[start:l.pos]), value: builder.String(), pos: start}, nil
		case '\\':
			escaped := l.peek(1)
			switch escaped {
			case 'n':
				builder.WriteRune('\n')
			case 't':
				builder.WriteRune('\t')
			case '\\', '"', '\'':
				builder.WriteRune(escaped)
			default:
				return token{}, &LexError{Pos: l.pos + 1, Char: escaped}
			}

			l.pos += 2
		default:
			builder.WriteRune(char)
			l.pos++
		}
	}

	// unterminated string
	return token{}, &LexError{Pos: start, Char: quote}
}

func isIdentStart(char rune) bool {
	return char == '_' || (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z')
}

func isIdentPart(char rune) bool {
	return isIdentStart(char) || isDigit(char)
}

func isDigit(char rune) bool {
	return char >= '0' && char <= '9'
}
