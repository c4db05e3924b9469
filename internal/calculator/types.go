package calculator

// CalcRequest is the JSON body for binary operations (add, subtract, multiply, divide).
type CalcRequest struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// CalcResponse is the JSON response for the binary operation endpoints.
type CalcResponse struct {
	Operation string  `json:"operation"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	Result    float64 `json:"result"`
	Display   string  `json:"display"`
}

// KeysRequest carries keypad input, e.g. {"keys": "12.5+3="}.
type KeysRequest struct {
	Keys string `json:"keys"`
}

// SessionResponse is returned when a session is opened or read.
type SessionResponse struct {
	ID    string   `json:"id"`
	State Snapshot `json:"state"`
}

// KeysResponse is the JSON response for POST /calculator/sessions/{id}/keys.
type KeysResponse struct {
	ID       string   `json:"id"`
	Keys     string   `json:"keys"`
	Displays []string `json:"displays"` // display after each key
	State    Snapshot `json:"state"`
}

// KeyResult records the display after one key of a stateless evaluation.
type KeyResult struct {
	Key     string `json:"key"`
	Display string `json:"display"`
	Phase   Phase  `json:"phase"`
}

// EvaluateResponse is the JSON response for POST /calculator/evaluate.
type EvaluateResponse struct {
	Keys  string      `json:"keys"`
	Steps []KeyResult `json:"steps"`
	State Snapshot    `json:"state"`
}
