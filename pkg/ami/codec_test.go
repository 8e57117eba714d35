package ami

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSimple(t *testing.T) {
	t.Run("ordered headers", func(t *testing.T) {
		r := Decode("Response: Success\r\nActionID: ping-123\r\nPing: Pong\r\n\r\n")
		assert.Equal(t, []string{"Response", "ActionID", "Ping"}, r.Keys())
		assert.Equal(t, "Success", r.Value("Response"))
		assert.Equal(t, "ping-123", r.Value("ActionID"))
		assert.Equal(t, "Pong", r.Value("Ping"))
	})

	t.Run("value keeps later separators", func(t *testing.T) {
		r := Decode("Event: Newchannel\r\nCallerIDName: Alice: Desk\r\n\r\n")
		assert.Equal(t, "Alice: Desk", r.Value("CallerIDName"))
	})

	t.Run("duplicate keys overwrite in place", func(t *testing.T) {
		r := Decode("A: 1\r\nB: 2\r\nA: 3\r\n\r\n")
		assert.Equal(t, []string{"A", "B"}, r.Keys())
		assert.Equal(t, "3", r.Value("A"))
	})

	t.Run("line without separator", func(t *testing.T) {
		r := Decode("Event: Foo\r\nbare\r\n\r\n")
		v, ok := r.Get("bare")
		assert.True(t, ok)
		assert.Equal(t, "", v)
	})

	t.Run("nothing parseable", func(t *testing.T) {
		assert.Equal(t, 0, Decode("\r\n\r\n").Len())
		assert.Equal(t, 0, Decode("").Len())
	})
}

func TestDecodeFollows(t *testing.T) {
	t.Run("single line body", func(t *testing.T) {
		r := Decode("Response: Follows\r\nPrivilege: Command\r\nHello World\r\n--END COMMAND--\r\n\r\n")
		assert.Equal(t, []string{"Response", "Privilege", "Results"}, r.Keys())
		assert.Equal(t, "Follows", r.Value("Response"))
		assert.Equal(t, "Command", r.Value("Privilege"))
		assert.Equal(t, "Hello World", r.Value("Results"))
	})

	t.Run("newline separated body stays whole", func(t *testing.T) {
		block := "Response: Follows\r\nActionID: command-1\r\n" +
			"Conf Num       Parties\n1000           0002\n--END COMMAND--\r\n\r\n"
		r := Decode(block)
		assert.Equal(t, "command-1", r.Value("ActionID"))
		assert.Equal(t, "Conf Num       Parties\n1000           0002", r.Value("Results"))
	})

	t.Run("CRLF separated body keeps only last line", func(t *testing.T) {
		r := Decode("Response: Follows\r\nfirst\r\nsecond\r\n--END COMMAND--\r\n\r\n")
		assert.Equal(t, "second", r.Value("Results"))
		assert.True(t, r.Has("first"))
	})

	t.Run("leading whitespace trimmed from results", func(t *testing.T) {
		r := Decode("Response: Follows\r\n   indented\r\n--END COMMAND--\r\n\r\n")
		assert.Equal(t, "indented", r.Value("Results"))
	})

	t.Run("no body", func(t *testing.T) {
		r := Decode("Response: Follows\r\n--END COMMAND--\r\n\r\n")
		assert.Equal(t, "Follows", r.Value("Response"))
		v, ok := r.Get("Results")
		assert.True(t, ok)
		assert.Equal(t, "", v)
	})

	t.Run("follows header not first", func(t *testing.T) {
		r := Decode("Privilege: Command\r\nResponse: Follows\r\n\r\n")
		assert.False(t, r.Has("Results"))
	})
}

func TestDecodeStrict(t *testing.T) {
	_, err := DecodeStrict("\r\n\r\n")
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "\r\n\r\n", de.Block)

	r, err := DecodeStrict("Event: Foo\r\n\r\n")
	require.NoError(t, err)
	assert.Equal(t, "Foo", r.Name())
}
