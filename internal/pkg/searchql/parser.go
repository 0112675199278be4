package searchql

// Parser turns a token sequence into an AST. It never fails: tokens that
// cannot start an operand degrade to an empty term.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a Parser over tokens, which should already contain the
// implicit AND tokens (see Tokenize).
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse tokenizes and parses input. It returns nil when the input holds no
// tokens, meaning no filtering should occur.
func Parse(input string) Node {
	tokens := Tokenize(input)
	if len(tokens) == 0 {
		return nil
	}
	return NewParser(tokens).Parse()
}

// Parse parses one expression from the current position. Tokens left over
// after it are ignored.
func (p *Parser) Parse() Node {
	if len(p.tokens) == 0 {
		return nil
	}
	return p.parseOr()
}

func (p *Parser) peek() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *Parser) at(t TokenType) bool {
	tok, ok := p.peek()
	return ok && tok.Type == t
}

// parseOr handles OR expressions (lowest precedence).
func (p *Parser) parseOr() Node {
	left := p.parseAnd()
	for p.at(TokenOr) {
		p.pos++
		left = OrExpr{Left: left, Right: p.parseAnd()}
	}
	return left
}

// parseAnd handles AND expressions, explicit or implied.
func (p *Parser) parseAnd() Node {
	left := p.parseNot()
	for p.at(TokenAnd) {
		p.pos++
		left = AndExpr{Left: left, Right: p.parseNot()}
	}
	return left
}

// parseNot handles NOT expressions.
func (p *Parser) parseNot() Node {
	if p.at(TokenNot) {
		p.pos++
		return NotExpr{Expr: p.parseNot()} // NOT is right-associative
	}
	return p.parseFactor()
}

// parseFactor handles (expr) and terms.
func (p *Parser) parseFactor() Node {
	tok, ok := p.peek()
	if !ok {
		return TermExpr{}
	}

	switch tok.Type {
	case TokenLParen:
		p.pos++
		expr := p.parseOr()
		if p.at(TokenRParen) {
			p.pos++
		}
		return expr
	case TokenTerm:
		p.pos++
		return TermExpr{Text: tok.Value}
	default:
		// stray operator or ')': absorb it
		p.pos++
		return TermExpr{}
	}
}
