package resp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeScalars(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  Kind
		data  string
	}{
		{"simple string", "+OK\r\n", KindSimpleString, "OK"},
		{"error", "-ERR unknown command\r\n", KindError, "ERR unknown command"},
		{"integer", ":1000\r\n", KindInteger, "1000"},
		{"negative integer", ":-42\r\n", KindInteger, "-42"},
		{"bulk string", "$5\r\nhello\r\n", KindBulkString, "hello"},
		{"empty bulk string", "$0\r\n\r\n", KindBulkString, ""},
		{"bulk with crlf payload", "$7\r\na\r\nb\r\nc\r\n", KindBulkString, "a\r\nb\r\nc"},
		{"resp3 null", "_\r\n", KindNull, ""},
		{"boolean true", "#t\r\n", KindBoolean, "t"},
		{"double", ",3.14\r\n", KindDouble, "3.14"},
		{"big number", "(3492890328409238509324850943850943825024385\r\n", KindBigNumber, "3492890328409238509324850943850943825024385"},
		{"verbatim", "=15\r\ntxt:Some string\r\n", KindVerbatim, "txt:Some string"},
		{"bulk error", "!21\r\nSYNTAX invalid syntax\r\n", KindBulkError, "SYNTAX invalid syntax"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, n, err := Decode([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, len(tt.input), n)
			assert.Equal(t, tt.kind, frame.Kind)
			assert.Equal(t, tt.data, frame.Text())
		})
	}
}

func TestDecodeNullLegacy(t *testing.T) {
	for _, input := range []string{"$-1\r\n", "*-1\r\n"} {
		frame, n, err := Decode([]byte(input))
		require.NoError(t, err, input)
		assert.Equal(t, len(input), n)
		assert.True(t, frame.IsNull())
	}
}

func TestDecodeArray(t *testing.T) {
	frame, n, err := Decode([]byte("*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n:7\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 26, n)
	require.Equal(t, KindArray, frame.Kind)
	require.Len(t, frame.Items, 3)
	assert.Equal(t, "SET", frame.Items[0].Text())
	assert.Equal(t, "key", frame.Items[1].Text())
	v, ok := frame.Items[2].Int()
	require.True(t, ok)
	assert.Equal(t, int64(7), v)
}

func TestDecodeNestedAggregate(t *testing.T) {
	frame, _, err := Decode([]byte("*2\r\n*2\r\n:1\r\n:2\r\n+done\r\n"))
	require.NoError(t, err)
	require.Len(t, frame.Items, 2)
	assert.Equal(t, KindArray, frame.Items[0].Kind)
	assert.Len(t, frame.Items[0].Items, 2)
	assert.Equal(t, "done", frame.Items[1].Text())
}

func TestDecodeMapFlattensPairs(t *testing.T) {
	frame, _, err := Decode([]byte("%2\r\n+first\r\n:1\r\n+second\r\n:2\r\n"))
	require.NoError(t, err)
	assert.Equal(t, KindMap, frame.Kind)
	require.Len(t, frame.Items, 4)
	assert.Equal(t, "first", frame.Items[0].Text())
	assert.Equal(t, "second", frame.Items[2].Text())
}

func TestDecodePushFrame(t *testing.T) {
	frame, _, err := Decode([]byte(">3\r\n$7\r\nmessage\r\n$4\r\nnews\r\n$5\r\nhello\r\n"))
	require.NoError(t, err)
	assert.Equal(t, KindPush, frame.Kind)
	require.Len(t, frame.Items, 3)
	assert.Equal(t, "message", frame.Items[0].Text())
}

// Every strict prefix of a valid frame must report ErrIncomplete and
// consume nothing. Decoding must be repeatable on the same prefix.
func TestDecodeIncompleteAtEverySplit(t *testing.T) {
	inputs := []string{
		"+OK\r\n",
		"$5\r\nhello\r\n",
		"*2\r\n$3\r\nfoo\r\n:42\r\n",
		"%1\r\n+key\r\n$3\r\nval\r\n",
		">3\r\n$7\r\nmessage\r\n$2\r\nch\r\n$2\r\nhi\r\n",
	}

	for _, input := range inputs {
		for cut := 0; cut < len(input); cut++ {
			prefix := []byte(input[:cut])

			_, n, err := Decode(prefix)
			require.ErrorIs(t, err, ErrIncomplete, "input %q cut %d", input, cut)
			require.Zero(t, n)

			// same prefix again: same answer
			_, n, err = Decode(prefix)
			require.ErrorIs(t, err, ErrIncomplete)
			require.Zero(t, n)
		}

		frame, n, err := Decode([]byte(input))
		require.NoError(t, err)
		require.Equal(t, len(input), n)
		require.NotZero(t, frame.Kind)
	}
}

// A complete frame followed by trailing bytes decodes the frame and
// reports its exact length.
func TestDecodeLeavesTrailingBytes(t *testing.T) {
	input := []byte("+OK\r\n:5\r\n")
	frame, n, err := Decode(input)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "OK", frame.Text())

	frame, n, err = Decode(input[n:])
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	v, _ := frame.Int()
	assert.Equal(t, int64(5), v)
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown type byte", "?oops\r\n"},
		{"bare cr in header", "+OK\rX\n"},
		{"bulk missing crlf", "$5\r\nhelloXX"},
		{"bad length", "$abc\r\n"},
		{"negative array length", "*-7\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.input))
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrIncomplete)

			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr))
		})
	}
}

// A count header is untrusted input: a huge claimed element count must
// neither allocate by the claim nor crash, just report the frame as
// incomplete until the bytes actually arrive.
func TestDecodeHostileCountHeaders(t *testing.T) {
	for _, input := range []string{
		"*99999999999999\r\n",
		"*100000000\r\n",
		"%99999999\r\n",
		">2000000000\r\n",
		"*10\r\n+only-one\r\n",
	} {
		_, n, err := Decode([]byte(input))
		require.ErrorIs(t, err, ErrIncomplete, input)
		require.Zero(t, n)
	}

	// a map count whose flattened pair count cannot be represented is
	// malformed, not incomplete
	_, _, err := Decode([]byte("%6000000000000000000\r\n"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrIncomplete)
}

func TestFrameClone(t *testing.T) {
	buf := []byte("*1\r\n$5\r\nhello\r\n")
	frame, _, err := Decode(buf)
	require.NoError(t, err)

	clone := frame.Clone()
	copy(buf, "*1\r\n$5\r\nXXXXX\r\n")

	assert.Equal(t, "XXXXX", frame.Items[0].Text())
	assert.Equal(t, "hello", clone.Items[0].Text())
}
