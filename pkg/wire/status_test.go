package wire

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySuccess(t *testing.T) {
	out, err := ClassifyLine("0 \r\n")
	require.NoError(t, err)
	assert.Equal(t, KindSuccess, out.Kind)
	assert.Empty(t, out.Payload)
	assert.NoError(t, out.Err())
	assert.True(t, out.OK())

	out, err = ClassifyLine("0 1\r\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, out.Payload)

	out, err = ClassifyLine("0 300 0 150 0 90 -180\r\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"300", "0", "150", "0", "90", "-180"}, out.Payload)
}

func TestClassifyWarningKeepsPayload(t *testing.T) {
	out, err := ClassifyLine("1 limit reached\r\n")
	require.NoError(t, err)
	assert.Equal(t, KindWarning, out.Kind)
	assert.Equal(t, 1, out.Code)
	assert.Equal(t, []string{"limit", "reached"}, out.Payload)
	assert.True(t, out.OK())
	assert.NoError(t, out.Err())
}

func TestClassifyPowerNotEnabled(t *testing.T) {
	for _, line := range []string{
		"-1046\r\n",
		"-1046 \r\n",
		"-1046 Robot power not enabled\r\n",
		"-1046 0 1\r\n",
	} {
		out, err := ClassifyLine(line)
		require.NoError(t, err, line)
		assert.Equal(t, KindError, out.Kind)
		assert.Equal(t, ConditionPowerNotEnabled, out.Condition)
		assert.Nil(t, out.Payload)

		var domErr *DomainError
		require.True(t, errors.As(out.Err(), &domErr))
		assert.Equal(t, StatusPowerNotEnabled, domErr.Code)
		assert.ErrorIs(t, out.Err(), ErrPowerNotEnabled)
	}
}

func TestClassifyGenericError(t *testing.T) {
	out, err := ClassifyLine("-1 Invalid robot index\r\n")
	require.NoError(t, err)
	assert.Equal(t, KindError, out.Kind)
	assert.Equal(t, -1, out.Code)
	assert.Equal(t, ConditionNone, out.Condition)
	assert.Nil(t, out.Payload)
	assert.False(t, out.OK())
	assert.NotErrorIs(t, out.Err(), ErrPowerNotEnabled)
	assert.Equal(t, "controller error -1", out.Err().Error())

	out, err = ClassifyLine("-1234\r\n")
	require.NoError(t, err)
	assert.Equal(t, -1234, out.Code)
}

func TestClassifyTotality(t *testing.T) {
	for code := -2000; code <= 2000; code++ {
		out, err := Classify(Tokens{strconv.Itoa(code), "x", "y"})
		require.NoError(t, err)

		switch code {
		case StatusSuccess:
			assert.Equal(t, KindSuccess, out.Kind)
			assert.Equal(t, []string{"x", "y"}, out.Payload)
		case StatusWarning:
			assert.Equal(t, KindWarning, out.Kind)
			assert.Equal(t, []string{"x", "y"}, out.Payload)
		default:
			assert.Equal(t, KindError, out.Kind)
			assert.Equal(t, code, out.Code)
		}
	}
}

func TestClassifyMalformed(t *testing.T) {
	tests := []struct {
		name   string
		tokens Tokens
	}{
		{"nil tokens", nil},
		{"empty line", Decode("\r\n")},
		{"text status", Decode("OK done\r\n")},
		{"float status", Decode("0.5\r\n")},
		{"leading space", Decode(" 0\r\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.tokens)
			var protoErr *ProtocolError
			assert.True(t, errors.As(err, &protoErr), "expected ProtocolError, got %v", err)
		})
	}
}

func TestClassifyPayloadIsCopy(t *testing.T) {
	tokens := Tokens{"0", "a", "b"}
	out, err := Classify(tokens)
	require.NoError(t, err)

	tokens[1] = "changed"
	assert.Equal(t, []string{"a", "b"}, out.Payload)
}
