package calculator

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnknownToken is returned for any key outside the keypad alphabet.
var ErrUnknownToken = errors.New("unknown key")

// TokenKind classifies a keypad token.
type TokenKind int

const (
	TokenDigit TokenKind = iota
	TokenDecimal
	TokenOperator
	TokenClear
	TokenEquals
)

func (k TokenKind) String() string {
	switch k {
	case TokenDigit:
		return "digit"
	case TokenDecimal:
		return "decimal"
	case TokenOperator:
		return "operator"
	case TokenClear:
		return "clear"
	case TokenEquals:
		return "equals"
	}
	return "unknown"
}

// Token is one tap on the keypad.
type Token struct {
	Kind  TokenKind
	Digit byte     // '0'..'9' when Kind == TokenDigit
	Op    Operator // set when Kind == TokenOperator
}

// DigitToken returns the token for digit d ('0'..'9').
func DigitToken(d byte) Token {
	return Token{Kind: TokenDigit, Digit: d}
}

func OperatorToken(op Operator) Token {
	return Token{Kind: TokenOperator, Op: op}
}

var (
	DecimalToken = Token{Kind: TokenDecimal}
	ClearToken   = Token{Kind: TokenClear}
	EqualsToken  = Token{Kind: TokenEquals}
)

// String returns the keypad label of the token.
func (t Token) String() string {
	switch t.Kind {
	case TokenDigit:
		return string(t.Digit)
	case TokenDecimal:
		return "."
	case TokenOperator:
		return t.Op.String()
	case TokenClear:
		return "C"
	case TokenEquals:
		return "="
	}
	return "?"
}

// ParseToken maps a single keypad label to its token.
func ParseToken(key string) (Token, error) {
	if len(key) != 1 {
		return Token{}, fmt.Errorf("%w: %q", ErrUnknownToken, key)
	}

	c := key[0]
	switch {
	case c >= '0' && c <= '9':
		return DigitToken(c), nil
	case c == '.':
		return DecimalToken, nil
	case c == 'C':
		return ClearToken, nil
	case c == '=':
		return EqualsToken, nil
	}

	if op, ok := ParseOperator(c); ok {
		return OperatorToken(op), nil
	}

	return Token{}, fmt.Errorf("%w: %q", ErrUnknownToken, key)
}

// ParseKeys splits a run of keypad labels such as "12.5+3=" into tokens.
// Whitespace between keys is ignored.
func ParseKeys(keys string) ([]Token, error) {
	tokens := make([]Token, 0, len(keys))

	for i, r := range keys {
		if unicode.IsSpace(r) {
			continue
		}
		if r > unicode.MaxASCII {
			return nil, fmt.Errorf("%w: %q at position %d", ErrUnknownToken, r, i)
		}

		tok, err := ParseToken(string(r))
		if err != nil {
			return nil, fmt.Errorf("%w at position %d", err, i)
		}
		tokens = append(tokens, tok)
	}

	return tokens, nil
}

// FormatKeys is the inverse of ParseKeys.
func FormatKeys(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.String())
	}
	return b.String()
}
