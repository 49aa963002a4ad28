// Package calculator evaluates short arithmetic expressions typed into the
// search bar. Supported: + - * / ^ (right-associative), parentheses, unary
// sign and decimal literals.
package calculator

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var (
	errDivisionByZero = errors.New("division by zero")
	errMissingParen   = errors.New("missing closing parenthesis")
	errUnexpected     = errors.New("unexpected character")
)

// Result is the outcome of evaluating a query as an expression
type Result struct {
	Value      float64
	Expression string
}

// Evaluate parses expr and returns its value. ok is false when expr is not an
// arithmetic expression, is malformed, or evaluates to a non-finite number.
func Evaluate(expr string) (value float64, ok bool) {
	src := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, expr)

	if src == "" || !strings.ContainsAny(src, "+-*/^()") || !strings.ContainsAny(src, "0123456789") {
		return 0, false
	}

	p := &parser{src: src}
	v, err := p.expression()
	if err != nil || p.pos != len(p.src) {
		return 0, false
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Lookup evaluates query and wraps the value together with the original text
func Lookup(query string) (Result, bool) {
	v, ok := Evaluate(query)
	if !ok {
		return Result{}, false
	}
	return Result{Value: v, Expression: query}, true
}

// Format renders a value without trailing zeros
func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type parser struct {
	src string
	pos int
}

func (p *parser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *parser) expression() (float64, error) {
	left, err := p.term()
	if err != nil {
		return 0, err
	}
	for c := p.peek(); c == '+' || c == '-'; c = p.peek() {
		p.pos++
		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if c == '+' {
			left += right
		} else {
			left -= right
		}
	}
	return left, nil
}

func (p *parser) term() (float64, error) {
	left, err := p.power()
	if err != nil {
		return 0, err
	}
	for c := p.peek(); c == '*' || c == '/'; c = p.peek() {
		p.pos++
		right, err := p.power()
		if err != nil {
			return 0, err
		}
		if c == '/' {
			if right == 0 {
				return 0, errDivisionByZero
			}
			left /= right
		} else {
			left *= right
		}
	}
	return left, nil
}

func (p *parser) power() (float64, error) {
	base, err := p.unary()
	if err != nil {
		return 0, err
	}
	if p.peek() == '^' {
		p.pos++
		exp, err := p.power()
		if err != nil {
			return 0, err
		}
		base = math.Pow(base, exp)
	}
	return base, nil
}

func (p *parser) unary() (float64, error) {
	switch p.peek() {
	case '-':
		p.pos++
		v, err := p.atom()
		return -v, err
	case '+':
		p.pos++
	}
	return p.atom()
}

func (p *parser) atom() (float64, error) {
	if p.peek() == '(' {
		p.pos++
		v, err := p.expression()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, errMissingParen
		}
		p.pos++
		return v, nil
	}

	start := p.pos
	for c := p.peek(); (c >= '0' && c <= '9') || c == '.'; c = p.peek() {
		p.pos++
	}
	if p.pos == start {
		return 0, errUnexpected
	}
	v, err := strconv.ParseFloat(literalPrefix(p.src[start:p.pos]), 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// literalPrefix cuts a run of digits and dots at its second dot, so
// "1.2.3" reads as 1.2.
func literalPrefix(s string) string {
	first := strings.IndexByte(s, '.')
	if first < 0 {
		return s
	}
	if second := strings.IndexByte(s[first+1:], '.'); second >= 0 {
		return s[:first+1+second]
	}
	return s
}
