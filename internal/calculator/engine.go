package calculator

import "strings"

// Evaluation describes the arithmetic performed by a single transition, if any.
type Evaluation struct {
	Performed bool
	Chained   bool // triggered by an operator key rather than "="
	Left      string
	Op        Operator
	Right     string
	Result    string
	Err       error
}

// Apply returns the state that follows s after token t.
func Apply(s State, t Token) State {
	next, _ := Step(s, t)
	return next
}

// Step is Apply plus a record of the evaluation the transition ran.
// A failed evaluation is not a failure of Step: the returned state is
// Errored and the cause is reported in Evaluation.Err.
func Step(s State, t Token) (State, Evaluation) {
	if s == nil {
		s = Initial()
	}

	if t.Kind == TokenClear {
		return Initial(), Evaluation{}
	}

	switch s := s.(type) {
	case Resulted, Errored:
		return afterResult(s, t), Evaluation{}

	case Entering:
		switch t.Kind {
		case TokenDigit:
			return Entering{Buffer: appendDigit(s.Buffer, t.Digit)}, Evaluation{}
		case TokenDecimal:
			return Entering{Buffer: appendDecimal(s.Buffer)}, Evaluation{}
		case TokenOperator:
			if s.Buffer == "" {
				return s, Evaluation{}
			}
			return OperatorPending{Stored: s.Buffer, Op: t.Op}, Evaluation{}
		}
		return s, Evaluation{}

	case OperatorPending:
		switch t.Kind {
		case TokenDigit:
			return ChainEntering{Stored: s.Stored, Op: s.Op, Buffer: appendDigit("", t.Digit)}, Evaluation{}
		case TokenDecimal:
			return ChainEntering{Stored: s.Stored, Op: s.Op, Buffer: appendDecimal("")}, Evaluation{}
		}
		// Operators and "=" need a right operand.
		return s, Evaluation{}

	case ChainEntering:
		switch t.Kind {
		case TokenDigit:
			s.Buffer = appendDigit(s.Buffer, t.Digit)
			return s, Evaluation{}
		case TokenDecimal:
			s.Buffer = appendDecimal(s.Buffer)
			return s, Evaluation{}
		case TokenOperator:
			ev := evaluate(s, true)
			if ev.Err != nil {
				return Errored{}, ev
			}
			return OperatorPending{Stored: ev.Result, Op: t.Op}, ev
		case TokenEquals:
			ev := evaluate(s, false)
			if ev.Err != nil {
				return Errored{}, ev
			}
			return Resulted{Value: ev.Result}, ev
		}
		return s, Evaluation{}
	}

	return s, Evaluation{}
}

// afterResult handles input while the display holds a finished value or "Error".
func afterResult(s State, t Token) State {
	switch t.Kind {
	case TokenOperator:
		return OperatorPending{Stored: s.Display(), Op: t.Op}
	case TokenDigit:
		return Entering{Buffer: appendDigit("", t.Digit)}
	case TokenDecimal:
		return Entering{Buffer: appendDecimal("")}
	}
	return s
}

func evaluate(s ChainEntering, chained bool) Evaluation {
	ev := Evaluation{
		Performed: true,
		Chained:   chained,
		Left:      s.Stored,
		Op:        s.Op,
		Right:     s.Buffer,
	}
	ev.Result, ev.Err = Evaluate(s.Stored, s.Op, s.Buffer)
	return ev
}

func appendDigit(buf string, d byte) string {
	if buf == "0" {
		return string(d)
	}
	return buf + string(d)
}

func appendDecimal(buf string) string {
	switch {
	case strings.Contains(buf, "."):
		return buf
	case buf == "":
		return "0."
	}
	return buf + "."
}

// Engine holds the state of one calculator screen. The zero value is
// ready to use. Engine is not safe for concurrent use.
type Engine struct {
	state State
}

func NewEngine() *Engine {
	return &Engine{state: Initial()}
}

// Press applies one token.
func (e *Engine) Press(t Token) Evaluation {
	var ev Evaluation
	e.state, ev = Step(e.State(), t)
	return ev
}

func (e *Engine) State() State {
	if e.state == nil {
		return Initial()
	}
	return e.state
}

func (e *Engine) Display() string {
	return e.State().Display()
}

// Reset returns the engine to its initial state.
func (e *Engine) Reset() {
	e.state = Initial()
}
