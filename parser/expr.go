package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/anvil/object"
)

func errTrailing(rest string) error {
	return fmt.Errorf("unexpected `%s' after expression", strings.TrimSpace(rest))
}

// exprParser is a small recursive-descent parser over an operand string.
// Precedence, low to high: addition/subtraction, multiplication, unary
// minus. Atoms are integers (decimal, hex, character), `$` for the current
// assembly position, symbols, and parenthesized expressions.
type exprParser struct {
	s   string
	pos int
	p   *Parser
}

func (ep *exprParser) parse() (*object.Expr, error) {
	return ep.parseAdd()
}

// rest returns the unconsumed remainder of the operand string.
func (ep *exprParser) rest() string {
	return ep.s[ep.pos:]
}

func (ep *exprParser) skipSpaces() {
	for ep.pos < len(ep.s) && (ep.s[ep.pos] == ' ' || ep.s[ep.pos] == '\t') {
		ep.pos++
	}
}

func (ep *exprParser) peek() byte {
	if ep.pos >= len(ep.s) {
		return 0
	}
	return ep.s[ep.pos]
}

func (ep *exprParser) parseAdd() (*object.Expr, error) {
	lhs, err := ep.parseMul()
	if err != nil {
		return nil, err
	}
	for {
		ep.skipSpaces()
		switch ep.peek() {
		case '+':
			ep.pos++
			rhs, err := ep.parseMul()
			if err != nil {
				return nil, err
			}
			lhs = object.Add(lhs, rhs)
		case '-':
			ep.pos++
			rhs, err := ep.parseMul()
			if err != nil {
				return nil, err
			}
			lhs = object.Sub(lhs, rhs)
		default:
			return lhs, nil
		}
	}
}

func (ep *exprParser) parseMul() (*object.Expr, error) {
	lhs, err := ep.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		ep.skipSpaces()
		if ep.peek() != '*' {
			return lhs, nil
		}
		ep.pos++
		rhs, err := ep.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = object.Mul(lhs, rhs)
	}
}

func (ep *exprParser) parseUnary() (*object.Expr, error) {
	ep.skipSpaces()
	if ep.peek() == '-' {
		ep.pos++
		e, err := ep.parseUnary()
		if err != nil {
			return nil, err
		}
		return object.Neg(e), nil
	}
	return ep.parseAtom()
}

func (ep *exprParser) parseAtom() (*object.Expr, error) {
	ep.skipSpaces()
	c := ep.peek()
	switch {
	case c == '(':
		ep.pos++
		e, err := ep.parseAdd()
		if err != nil {
			return nil, err
		}
		ep.skipSpaces()
		if ep.peek() != ')' {
			return nil, fmt.Errorf("expected `)'")
		}
		ep.pos++
		return e, nil

	case c == '$':
		ep.pos++
		loc := ep.p.section().FreshLocation(ep.p.line)
		return object.NewLoc(loc), nil

	case c == '\'':
		return ep.parseChar()

	case c >= '0' && c <= '9':
		return ep.parseNumber()

	case isIdentStart(c):
		start := ep.pos
		for ep.pos < len(ep.s) && isIdentChar(ep.s[ep.pos]) {
			ep.pos++
		}
		name := ep.s[start:ep.pos]
		sym := ep.p.obj.Symbol(name)
		sym.Use(ep.p.line)
		return object.NewSym(sym), nil
	}
	if c == 0 {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	return nil, fmt.Errorf("unexpected character `%c' in expression", c)
}

func (ep *exprParser) parseNumber() (*object.Expr, error) {
	start := ep.pos
	base := 10
	if strings.HasPrefix(ep.s[ep.pos:], "0x") || strings.HasPrefix(ep.s[ep.pos:], "0X") {
		base = 16
		ep.pos += 2
		start = ep.pos
		for ep.pos < len(ep.s) && isHexDigit(ep.s[ep.pos]) {
			ep.pos++
		}
	} else {
		for ep.pos < len(ep.s) && ep.s[ep.pos] >= '0' && ep.s[ep.pos] <= '9' {
			ep.pos++
		}
	}
	lit := ep.s[start:ep.pos]
	if lit == "" {
		return nil, fmt.Errorf("malformed number")
	}
	v, err := strconv.ParseInt(lit, base, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed number `%s'", lit)
	}
	return object.NewInt(v), nil
}

func (ep *exprParser) parseChar() (*object.Expr, error) {
	// 'c' character constant
	if ep.pos+2 >= len(ep.s) || ep.s[ep.pos+2] != '\'' {
		return nil, fmt.Errorf("malformed character constant")
	}
	v := int64(ep.s[ep.pos+1])
	ep.pos += 3
	return object.NewInt(v), nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
