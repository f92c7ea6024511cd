package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/sandevgo/ivorybot/internal/core"
)

// Calculator evaluates arithmetic expressions with a hand-rolled
// recursive-descent parser. No eval, no reflection: the grammar below is the
// entire attack surface.
//
//	expr    := term (('+'|'-') term)*
//	term    := power (('*'|'/'|'%') power)*
//	power   := unary (('**'|'^') power)?
//	unary   := ('-'|'+') unary | primary
//	primary := number | constant | func '(' expr ')' | '(' expr ')'
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

func (c *Calculator) Definition() core.ToolDefinition {
	return core.ToolDefinition{
		Name:        "calculator",
		Description: "Performs mathematical calculations. Supports +, -, *, /, %, ** (power), parentheses, and the functions sqrt, sin, cos, tan, abs, log, exp plus the constants pi and e.",
		Parameters: core.Schema{
			Type: "object",
			Properties: map[string]core.Property{
				"expression": {
					Type:        "string",
					Description: "Mathematical expression to evaluate, e.g. '2 + 2' or 'sqrt(144) * pi'",
				},
			},
			Required: []string{"expression"},
		},
	}
}

func (c *Calculator) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	expr := StringParam(params, "expression")
	if strings.TrimSpace(expr) == "" {
		return nil, core.NewToolError(core.FailInvalidParameters, "expression is empty")
	}

	value, err := Evaluate(expr)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"expression": expr,
		"result":     value,
	}, nil
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

var functions = map[string]func(float64) (float64, error){
	"sqrt": func(x float64) (float64, error) {
		if x < 0 {
			return 0, fmt.Errorf("sqrt of negative number")
		}
		return math.Sqrt(x), nil
	},
	"sin": func(x float64) (float64, error) { return math.Sin(x), nil },
	"cos": func(x float64) (float64, error) { return math.Cos(x), nil },
	"tan": func(x float64) (float64, error) { return math.Tan(x), nil },
	"abs": func(x float64) (float64, error) { return math.Abs(x), nil },
	"log": func(x float64) (float64, error) {
		if x <= 0 {
			return 0, fmt.Errorf("log of non-positive number")
		}
		return math.Log(x), nil
	},
	"exp": func(x float64) (float64, error) { return math.Exp(x), nil },
}

// Evaluate parses and computes expr. All failures come back as evaluation
// tool errors with a position where that helps.
func Evaluate(expr string) (float64, error) {
	p := &calcParser{input: expr}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, core.NewToolError(core.FailEvaluation, "unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, core.NewToolError(core.FailEvaluation, "expression result is not a finite number")
	}
	return value, nil
}

type calcParser struct {
	input string
	pos   int
}

func (p *calcParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
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

func (p *calcParser) parseTerm() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch {
		case p.peek() == '*' && !p.peekAhead("**"):
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			left *= right
		case p.peek() == '/':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, core.NewToolError(core.FailEvaluation, "division by zero")
			}
			left /= right
		case p.peek() == '%':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, core.NewToolError(core.FailEvaluation, "modulo by zero")
			}
			left = math.Mod(left, right)
		default:
			return left, nil
		}
	}
}

// parsePower is right-associative: 2**3**2 is 2**(3**2).
func (p *calcParser) parsePower() (float64, error) {
	base, err := p.parseUnary()
	if err != nil {
		return 0, err
	}

	p.skipSpaces()
	if p.peekAhead("**") {
		p.pos += 2
	} else if p.peek() == '^' {
		p.pos++
	} else {
		return base, nil
	}

	exponent, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exponent), nil
}

func (p *calcParser) parseUnary() (float64, error) {
	p.skipSpaces()
	switch p.peek() {
	case '-':
		p.pos++
		value, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -value, nil
	case '+':
		p.pos++
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *calcParser) parsePrimary() (float64, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, core.NewToolError(core.FailEvaluation, "unexpected end of expression")
	}

	ch := p.input[p.pos]

	if ch == '(' {
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if err := p.expect(')'); err != nil {
			return 0, err
		}
		return value, nil
	}

	if unicode.IsLetter(rune(ch)) {
		return p.parseIdent()
	}

	if ch == '.' || (ch >= '0' && ch <= '9') {
		return p.parseNumber()
	}

	return 0, core.NewToolError(core.FailEvaluation, "unexpected character %q at position %d", ch, p.pos)
}

func (p *calcParser) parseIdent() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsLetter(rune(p.input[p.pos])) || unicode.IsDigit(rune(p.input[p.pos]))) {
		p.pos++
	}
	name := strings.ToLower(p.input[start:p.pos])

	if value, ok := constants[name]; ok {
		return value, nil
	}

	fn, ok := functions[name]
	if !ok {
		return 0, core.NewToolError(core.FailEvaluation, "unknown function or constant: %s", name)
	}

	if err := p.expect('('); err != nil {
		return 0, err
	}
	arg, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if err := p.expect(')'); err != nil {
		return 0, err
	}

	value, err := fn(arg)
	if err != nil {
		return 0, core.NewToolError(core.FailEvaluation, "%s: %s", name, err.Error())
	}
	return value, nil
}

func (p *calcParser) parseNumber() (float64, error) {
	start := p.pos
	seenDot := false
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == '.' {
			if seenDot {
				break
			}
			seenDot = true
			p.pos++
			continue
		}
		if ch < '0' || ch > '9' {
			break
		}
		p.pos++
	}

	text := p.input[start:p.pos]
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, core.NewToolError(core.FailEvaluation, "invalid number %q at position %d", text, start)
	}
	return value, nil
}

func (p *calcParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *calcParser) peekAhead(s string) bool {
	return strings.HasPrefix(p.input[p.pos:], s)
}

func (p *calcParser) expect(ch byte) error {
	p.skipSpaces()
	if p.pos >= len(p.input) || p.input[p.pos] != ch {
		return core.NewToolError(core.FailEvaluation, "expected %q at position %d", ch, p.pos)
	}
	p.pos++
	return nil
}

func (p *calcParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}
