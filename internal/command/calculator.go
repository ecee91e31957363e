// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     command
// Description: Arithmetic evaluator for spoken math expressions
// License:     MIT
// ============================================================================

package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrDivisionByZero is returned when an expression divides by zero.
var ErrDivisionByZero = errors.New("division by zero")

// tokenType represents the type of a lexical token
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenNumber
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
)

// mathToken is a single token of a math expression
type mathToken struct {
	typ   tokenType
	value float64
}

// tokenize splits an expression into number and operator tokens.
func tokenize(expr string) ([]mathToken, error) {
	var tokens []mathToken
	i := 0
	for i < len(expr) {
		ch := expr[i]
		switch {
		case ch == ' ' || ch == '\t':
			i++
		case ch == '+':
			tokens = append(tokens, mathToken{typ: tokenPlus})
			i++
		case ch == '-':
			tokens = append(tokens, mathToken{typ: tokenMinus})
			i++
		case ch == '*':
			tokens = append(tokens, mathToken{typ: tokenStar})
			i++
		case ch == '/':
			tokens = append(tokens, mathToken{typ: tokenSlash})
			i++
		case unicode.IsDigit(rune(ch)) || ch == '.':
			start := i
			for i < len(expr) && (unicode.IsDigit(rune(expr[i])) || expr[i] == '.') {
				i++
			}
			value, err := strconv.ParseFloat(expr[start:i], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", expr[start:i])
			}
			tokens = append(tokens, mathToken{typ: tokenNumber, value: value})
		default:
			return nil, fmt.Errorf("unexpected character %q", ch)
		}
	}
	tokens = append(tokens, mathToken{typ: tokenEOF})
	return tokens, nil
}

// exprParser evaluates a token stream with standard operator precedence
type exprParser struct {
	tokens []mathToken
	pos    int
}

func (p *exprParser) peek() mathToken {
	return p.tokens[p.pos]
}

func (p *exprParser) next() mathToken {
	tok := p.tokens[p.pos]
	if tok.typ != tokenEOF {
		p.pos++
	}
	return tok
}

// parseExpr handles + and -
func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek().typ {
		case tokenPlus:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case tokenMinus:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

// parseTerm handles * and /
func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek().typ {
		case tokenStar:
			p.next()
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case tokenSlash:
			p.next()
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, ErrDivisionByZero
			}
			left /= right
		default:
			return left, nil
		}
	}
}

// parseFactor handles numbers and unary signs
func (p *exprParser) parseFactor() (float64, error) {
	tok := p.next()
	switch tok.typ {
	case tokenNumber:
		return tok.value, nil
	case tokenMinus:
		value, err := p.parseFactor()
		return -value, err
	case tokenPlus:
		return p.parseFactor()
	default:
		return 0, errors.New("expected number")
	}
}

// Evaluate computes the value of an arithmetic expression with the
// operators + - * / and standard precedence.
func Evaluate(expr string) (float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, errors.New("empty expression")
	}

	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}

	parser := &exprParser{tokens: tokens}
	result, err := parser.parseExpr()
	if err != nil {
		return 0, err
	}
	if parser.peek().typ != tokenEOF {
		return 0, errors.New("unexpected trailing input")
	}
	return result, nil
}

// FormatNumber renders a result without trailing zeros, so "10 / 2"
// speaks as "5" rather than "5.000000".
func FormatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
