package calculator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrEvaluation is wrapped by every failure to compute a finite result.
var ErrEvaluation = errors.New("evaluation error")

// Operator is one of the four keypad operations.
type Operator byte

const (
	Add      Operator = '+'
	Subtract Operator = '-'
	Multiply Operator = '*'
	Divide   Operator = '/'
)

// ParseOperator maps a keypad label to an operator.
func ParseOperator(c byte) (Operator, bool) {
	switch op := Operator(c); op {
	case Add, Subtract, Multiply, Divide:
		return op, true
	}
	return 0, false
}

func (op Operator) String() string {
	return string(op)
}

// Name is the operation name used in routes, span names and metric attributes.
func (op Operator) Name() string {
	switch op {
	case Add:
		return "add"
	case Subtract:
		return "subtract"
	case Multiply:
		return "multiply"
	case Divide:
		return "divide"
	}
	return "unknown"
}

// Apply computes a <op> b. Division by zero and any other non-finite
// result are reported as ErrEvaluation.
func (op Operator) Apply(a, b float64) (float64, error) {
	var result float64

	switch op {
	case Add:
		result = a + b
	case Subtract:
		result = a - b
	case Multiply:
		result = a * b
	case Divide:
		if b == 0 {
			return 0, fmt.Errorf("%w: division by zero: %g / %g", ErrEvaluation, a, b)
		}
		result = a / b
	default:
		return 0, fmt.Errorf("%w: unknown operator %q", ErrEvaluation, byte(op))
	}

	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: non-finite result: %g %s %g", ErrEvaluation, a, op, b)
	}

	return result, nil
}

// Evaluate computes left <op> right on operand strings and returns the
// formatted result.
func Evaluate(left string, op Operator, right string) (string, error) {
	a, err := parseOperand(left)
	if err != nil {
		return "", err
	}

	b, err := parseOperand(right)
	if err != nil {
		return "", err
	}

	result, err := op.Apply(a, b)
	if err != nil {
		return "", err
	}

	return FormatNumber(result), nil
}

func parseOperand(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed operand %q", ErrEvaluation, s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: malformed operand %q", ErrEvaluation, s)
	}
	return f, nil
}

// FormatNumber renders f as the shortest decimal string that round-trips.
// Magnitudes outside [1e-6, 1e21) switch to exponent form ("1e+21", "1.5e-7").
func FormatNumber(f float64) string {
	if f == 0 {
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")

	return mantissa + "e" + sign + digits
}
