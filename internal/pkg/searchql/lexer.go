package searchql

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenTerm TokenType = iota
	TokenAnd
	TokenOr
	TokenNot
	TokenLParen
	TokenRParen
)

func (t TokenType) String() string {
	switch t {
	case TokenTerm:
		return "TERM"
	case TokenAnd:
		return "AND"
	case TokenOr:
		return "OR"
	case TokenNot:
		return "NOT"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token. Value is only set for TokenTerm and is
// always lowercase.
type Token struct {
	Type  TokenType
	Value string
}

func (t Token) String() string {
	if t.Type == TokenTerm {
		return "TERM(" + t.Value + ")"
	}
	return t.Type.String()
}

// Lexer splits a search string into tokens.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, pos: 0}
}

// Tokenize returns the full token sequence for input, including the AND
// tokens implied by juxtaposition.
func Tokenize(input string) []Token {
	return InsertImplicitAnd(NewLexer(input).Scan())
}

// Scan reads the whole input and returns the raw tokens, without implicit
// AND insertion.
func (l *Lexer) Scan() []Token {
	var tokens []Token
	for {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			return tokens
		}

		switch l.input[l.pos] {
		case '"':
			if phrase, ok := l.readPhrase(); ok {
				tokens = append(tokens, Token{Type: TokenTerm, Value: strings.ToLower(phrase)})
			}
		case '(':
			l.pos++
			tokens = append(tokens, Token{Type: TokenLParen})
		case ')':
			l.pos++
			tokens = append(tokens, Token{Type: TokenRParen})
		case '|':
			l.pos++
			tokens = append(tokens, Token{Type: TokenOr})
		default:
			tokens = append(tokens, wordTokens(l.readWord())...)
		}
	}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !isSpace(r) {
			return
		}
		l.pos += size
	}
}

// readPhrase consumes a non-empty "..." phrase. A quote that does not open
// one (unterminated or "") is skipped on its own and ok is false.
func (l *Lexer) readPhrase() (string, bool) {
	end := strings.IndexByte(l.input[l.pos+1:], '"')
	if end <= 0 {
		l.pos++
		return "", false
	}
	phrase := l.input[l.pos+1 : l.pos+1+end]
	l.pos += end + 2
	return phrase, true
}

func (l *Lexer) readWord() string {
	start := l.pos
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if isSpecial(r) || isSpace(r) {
			break
		}
		l.pos += size
	}
	return l.input[start:l.pos]
}

// wordTokens classifies a bare word. A leading '-' negates the rest of the
// word, which is never re-checked for keywords.
func wordTokens(word string) []Token {
	switch strings.ToLower(word) {
	case "and":
		return []Token{{Type: TokenAnd}}
	case "not":
		return []Token{{Type: TokenNot}}
	}

	if strings.HasPrefix(word, "-") {
		return []Token{
			{Type: TokenNot},
			{Type: TokenTerm, Value: strings.ToLower(word[1:])},
		}
	}
	return []Token{{Type: TokenTerm, Value: strings.ToLower(word)}}
}

// InsertImplicitAnd returns a copy of tokens with an AND between every
// TERM/')' followed by a TERM/'('.
func InsertImplicitAnd(tokens []Token) []Token {
	if len(tokens) == 0 {
		return nil
	}

	out := make([]Token, 0, len(tokens)*2-1)
	for i, tok := range tokens {
		if i > 0 && endsOperand(tokens[i-1].Type) && startsOperand(tok.Type) {
			out = append(out, Token{Type: TokenAnd})
		}
		out = append(out, tok)
	}
	return out
}

func endsOperand(t TokenType) bool {
	return t == TokenTerm || t == TokenRParen
}

func startsOperand(t TokenType) bool {
	return t == TokenTerm || t == TokenLParen
}

func isSpecial(r rune) bool {
	return r == '(' || r == ')' || r == '|' || r == '"'
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}
