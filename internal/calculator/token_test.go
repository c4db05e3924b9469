package calculator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToken(t *testing.T) {
	tests := []struct {
		key  string
		want Token
	}{
		{key: "0", want: DigitToken('0')},
		{key: "9", want: DigitToken('9')},
		{key: ".", want: DecimalToken},
		{key: "+", want: OperatorToken(Add)},
		{key: "-", want: OperatorToken(Subtract)},
		{key: "*", want: OperatorToken(Multiply)},
		{key: "/", want: OperatorToken(Divide)},
		{key: "C", want: ClearToken},
		{key: "=", want: EqualsToken},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			got, err := ParseToken(tc.key)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.key, got.String())
		})
	}
}

func TestParseTokenRejectsUnknownKeys(t *testing.T) {
	for _, key := range []string{"", "c", "x", "%", "10", "==", "×"} {
		t.Run(key, func(t *testing.T) {
			_, err := ParseToken(key)
			assert.True(t, errors.Is(err, ErrUnknownToken), "got %v", err)
		})
	}
}

func TestParseKeys(t *testing.T) {
	tokens, err := ParseKeys(" 12.5 + 3 =\n")
	require.NoError(t, err)

	assert.Equal(t, []Token{
		DigitToken('1'),
		DigitToken('2'),
		DecimalToken,
		DigitToken('5'),
		OperatorToken(Add),
		DigitToken('3'),
		EqualsToken,
	}, tokens)
	assert.Equal(t, "12.5+3=", FormatKeys(tokens))
}

func TestParseKeysRejectsUnknownKeys(t *testing.T) {
	_, err := ParseKeys("2+x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownToken))
	assert.Contains(t, err.Error(), "position 2")

	_, err = ParseKeys("2×3")
	assert.True(t, errors.Is(err, ErrUnknownToken))
}

func TestParseKeysEmpty(t *testing.T) {
	tokens, err := ParseKeys("")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
