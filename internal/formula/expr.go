package formula

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

const (
	maxExpressionLength = 1024
	maxDepth            = 64
)

var (
	ErrDivisionByZero    = errors.New("division by zero")
	ErrUnknownVariable   = errors.New("unknown variable")
	ErrNonFiniteResult   = errors.New("non-finite result")
	ErrExpressionTooLong = errors.New("expression too long")
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

func tokenize(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		c := rune(src[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c >= '0' && c <= '9' || c == '.':
			start := i
			for i < len(src) && (src[i] >= '0' && src[i] <= '9' || src[i] == '.') {
				i++
			}
			// optional exponent: 1e3, 2.5E-2
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && src[j] >= '0' && src[j] <= '9' {
					i = j
					for i < len(src) && src[i] >= '0' && src[i] <= '9' {
						i++
					}
				}
			}
			v, err := strconv.ParseFloat(src[start:i], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q at %d", src[start:i], start)
			}
			tokens = append(tokens, token{kind: tokNumber, text: src[start:i], num: v, pos: start})
		case c == '_' || unicode.IsLetter(c):
			start := i
			for i < len(src) && (src[i] == '_' || unicode.IsLetter(rune(src[i])) || unicode.IsDigit(rune(src[i]))) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: src[start:i], pos: start})
		case strings.ContainsRune("+-*/", c):
			tokens = append(tokens, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			tokens = append(tokens, token{kind: tokComma, text: ",", pos: i})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q at %d", c, i)
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(src)})
	return tokens, nil
}

// node is a parsed arithmetic expression.
type node interface {
	eval(vars Variables) (float64, error)
}

type numberNode float64

func (n numberNode) eval(Variables) (float64, error) { return float64(n), nil }

type varNode string

func (n varNode) eval(vars Variables) (float64, error) {
	v, ok := vars[string(n)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownVariable, string(n))
	}
	return v, nil
}

type unaryNode struct {
	op      byte
	operand node
}

func (n unaryNode) eval(vars Variables) (float64, error) {
	v, err := n.operand.eval(vars)
	if err != nil {
		return 0, err
	}
	if n.op == '-' {
		return -v, nil
	}
	return v, nil
}

type binaryNode struct {
	op          byte
	left, right node
}

func (n binaryNode) eval(vars Variables) (float64, error) {
	l, err := n.left.eval(vars)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(vars)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		return l / r, nil
	}
	return 0, fmt.Errorf("unknown operator %q", n.op)
}

type callNode struct {
	name string
	args []node
}

var functions = map[string]struct {
	minArgs, maxArgs int
	fn               func(args []float64) float64
}{
	"min": {2, 8, func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Min(m, v)
		}
		return m
	}},
	"max": {2, 8, func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Max(m, v)
		}
		return m
	}},
	"abs":   {1, 1, func(a []float64) float64 { return math.Abs(a[0]) }},
	"round": {1, 1, func(a []float64) float64 { return math.Round(a[0]) }},
}

func (n callNode) eval(vars Variables) (float64, error) {
	values := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(vars)
		if err != nil {
			return 0, err
		}
		values[i] = v
	}
	return functions[n.name].fn(values), nil
}

type parser struct {
	tokens []token
	pos    int
	depth  int
}

// Expression is a compiled arithmetic formula.
type Expression struct {
	source string
	root   node
}

func (e *Expression) String() string { return e.source }

// Parse compiles src. Grammar:
//
//	expr   = term { ("+" | "-") term }
//	term   = unary { ("*" | "/") unary }
//	unary  = ("+" | "-") unary | primary
//	primary = number | ident | ident "(" expr { "," expr } ")" | "(" expr ")"
func Parse(src string) (*Expression, error) {
	if len(src) > maxExpressionLength {
		return nil, ErrExpressionTooLong
	}
	if strings.TrimSpace(src) == "" {
		return nil, errors.New("empty expression")
	}

	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	root, err := p.expr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at %d", tok.text, tok.pos)
	}

	return &Expression{source: src, root: root}, nil
}

// Eval evaluates the expression against vars. Division by zero and non-finite results are errors.
func (e *Expression) Eval(vars Variables) (float64, error) {
	v, err := e.root.eval(vars)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNonFiniteResult
	}
	return v, nil
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return errors.New("expression nested too deeply")
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) expr() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.text[0], left: left, right: right}
	}
}

func (p *parser) term() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "*" && tok.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.text[0], left: left, right: right}
	}
}

func (p *parser) unary() (node, error) {
	tok := p.peek()
	if tok.kind == tokOp && (tok.text == "+" || tok.text == "-") {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()

		p.next()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: tok.text[0], operand: operand}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return numberNode(tok.num), nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.call(tok)
		}
		return varNode(tok.text), nil
	case tokLParen:
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("expected ')' at %d", closing.pos)
		}
		return inner, nil
	case tokEOF:
		return nil, errors.New("unexpected end of expression")
	default:
		return nil, fmt.Errorf("unexpected %q at %d", tok.text, tok.pos)
	}
}

func (p *parser) call(name token) (node, error) {
	spec, ok := functions[strings.ToLower(name.text)]
	if !ok {
		return nil, fmt.Errorf("unknown function %q at %d", name.text, name.pos)
	}
	p.next() // (

	var args []node
	for {
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		tok := p.next()
		if tok.kind == tokRParen {
			break
		}
		if tok.kind != tokComma {
			return nil, fmt.Errorf("expected ',' or ')' at %d", tok.pos)
		}
	}

	if len(args) < spec.minArgs || len(args) > spec.maxArgs {
		return nil, fmt.Errorf("%s expects %d..%d arguments, got %d", name.text, spec.minArgs, spec.maxArgs, len(args))
	}

	return callNode{name: strings.ToLower(name.text), args: args}, nil
}
