package calculator

// ErrorDisplay is rendered after a failed evaluation.
const ErrorDisplay = "Error"

// Phase names the variant a State is in.
type Phase string

const (
	PhaseEntering        Phase = "entering"
	PhaseOperatorPending Phase = "operator_pending"
	PhaseChainEntering   Phase = "chain_entering"
	PhaseResulted        Phase = "resulted"
	PhaseErrored         Phase = "errored"
)

// State is the calculator's input state. It is one of Entering,
// OperatorPending, ChainEntering, Resulted or Errored; no other
// implementations exist.
type State interface {
	Phase() Phase
	Display() string
	isState()
}

// Entering is the state while the first operand is typed. An empty
// Buffer is the initial state.
type Entering struct {
	Buffer string
}

// OperatorPending is the state after an operator was chosen and before
// the right operand is started. Stored is the left operand or a chained
// intermediate result.
type OperatorPending struct {
	Stored string
	Op     Operator
}

// ChainEntering is the state while the right operand is typed. Buffer is
// never empty.
type ChainEntering struct {
	Stored string
	Op     Operator
	Buffer string
}

// Resulted holds the value produced by "=", which is also the operand buffer.
type Resulted struct {
	Value string
}

// Errored follows a failed evaluation.
type Errored struct{}

func (Entering) Phase() Phase        { return PhaseEntering }
func (OperatorPending) Phase() Phase { return PhaseOperatorPending }
func (ChainEntering) Phase() Phase   { return PhaseChainEntering }
func (Resulted) Phase() Phase        { return PhaseResulted }
func (Errored) Phase() Phase         { return PhaseErrored }

func (s Entering) Display() string {
	if s.Buffer == "" {
		return "0"
	}
	return s.Buffer
}

func (s OperatorPending) Display() string { return s.Stored }
func (s ChainEntering) Display() string   { return s.Buffer }
func (s Resulted) Display() string        { return s.Value }
func (Errored) Display() string           { return ErrorDisplay }

func (Entering) isState()        {}
func (OperatorPending) isState() {}
func (ChainEntering) isState()   {}
func (Resulted) isState()        {}
func (Errored) isState()         {}

// Initial is the state on screen entry and after "C".
func Initial() State {
	return Entering{}
}

// Buffer returns the operand currently being typed, or "" if none.
func Buffer(s State) string {
	switch s := s.(type) {
	case Entering:
		return s.Buffer
	case ChainEntering:
		return s.Buffer
	case Resulted:
		return s.Value
	}
	return ""
}

// PendingOperator returns the chosen operator, if any.
func PendingOperator(s State) (Operator, bool) {
	switch s := s.(type) {
	case OperatorPending:
		return s.Op, true
	case ChainEntering:
		return s.Op, true
	}
	return 0, false
}

// StoredOperand returns the left operand of the pending operation, if any.
func StoredOperand(s State) (string, bool) {
	switch s := s.(type) {
	case OperatorPending:
		return s.Stored, true
	case ChainEntering:
		return s.Stored, true
	}
	return "", false
}

// ResultFlag reports whether the display holds a finished value.
func ResultFlag(s State) bool {
	switch s.(type) {
	case Resulted, Errored:
		return true
	}
	return false
}

// Snapshot is the flattened, renderable view of a State.
type Snapshot struct {
	Display  string `json:"display"`
	Phase    Phase  `json:"phase"`
	Buffer   string `json:"buffer"`
	Operator string `json:"operator,omitempty"`
	Stored   string `json:"stored,omitempty"`
	Result   bool   `json:"result"`
}

// TakeSnapshot flattens s.
func TakeSnapshot(s State) Snapshot {
	snap := Snapshot{
		Display: s.Display(),
		Phase:   s.Phase(),
		Buffer:  Buffer(s),
		Result:  ResultFlag(s),
	}
	if op, ok := PendingOperator(s); ok {
		snap.Operator = op.String()
	}
	if stored, ok := StoredOperand(s); ok {
		snap.Stored = stored
	}
	return snap
}
