package views

import (
	"context"
	"testing"
	"time"

	"github.com/dyluth/switchboard/internal/testutil"
	"github.com/dyluth/switchboard/pkg/ami"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testChannels = [][]string{
	{"Channel", "SIP/100-00000001", "CallerIDNum", "100", "CallerIDName", "Alice", "State", "Up",
		"Context", "default", "Extension", "200", "Priority", "1", "Seconds", "42", "Uniqueid", "1700000000.1"},
	{"Channel", "SIP/101-00000002", "CallerIDNum", "101", "CallerIDName", "Bob", "State", "Ring",
		"Context", "default", "Extension", "300", "Priority", "2", "Uniqueid", "1700000000.2"},
}

// handleStatus scripts Status replies from testChannels, honoring a Channel filter.
func handleStatus(m *testutil.MockManager) {
	m.Handle("Status", func(a ami.Record) []string {
		_, filter, filtered := a.Lookup("Channel")
		out := []string{testutil.Response(a, "Success", "Message", "Channel status will follow")}
		if filtered && filter == "SIP/missing" {
			return []string{testutil.Response(a, "Error", "Message", "No such channel")}
		}
		for _, fields := range testChannels {
			if filtered && fields[1] != filter {
				continue
			}
			out = append(out, testutil.Event(a, "Status", append([]string{"Privilege", "Call"}, fields...)...))
		}
		return append(out, testutil.Event(a, "StatusComplete", "Items", "2"))
	})
}

func countActions(m *testutil.MockManager, name string) int {
	n := 0
	for _, a := range m.Actions() {
		if a.Value("Action") == name {
			n++
		}
	}
	return n
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"Channel":          "channel",
		"CallerIDNum":      "caller_id_num",
		"CallerIDName":     "caller_id_name",
		"ConnectedLineNum": "connected_line_num",
		"Seconds":          "seconds",
		"Name":             "name",
		"AMAFlags":         "ama_flags",
		"already_snake":    "already_snake",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, NormalizeKey(in))
		})
	}
}

func TestListChannels(t *testing.T) {
	m := testutil.StartMockManager(t)
	handleStatus(m)
	c := m.Dial()
	ctx := context.Background()

	channels, err := ListChannels(ctx, c)
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "SIP/100-00000001", channels[0].Name)
	assert.Equal(t, "SIP/101-00000002", channels[1].String())

	t.Run("first snapshot comes from the listing", func(t *testing.T) {
		snap, err := channels[0].Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, countActions(m, "Status"))

		assert.Equal(t, []string{"name", "caller_id_num", "caller_id_name", "state", "context", "extension", "priority", "seconds"}, snap.Keys())
		assert.Equal(t, "SIP/100-00000001", snap.String("name"))
		assert.Equal(t, "Alice", snap.String("caller_id_name"))
		priority, ok := snap.Int("priority")
		assert.True(t, ok)
		assert.Equal(t, 1, priority)
		seconds, ok := snap.Int("seconds")
		assert.True(t, ok)
		assert.Equal(t, 42, seconds)
		assert.False(t, snap.Has("uniqueid"))
	})

	t.Run("later snapshots refresh", func(t *testing.T) {
		snap, err := channels[0].Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, countActions(m, "Status"))
		assert.Equal(t, "SIP/100-00000001", snap.String("name"))

		last := m.Actions()[len(m.Actions())-1]
		assert.Equal(t, "SIP/100-00000001", last.Value("Channel"))
	})
}

func TestChannelNotFound(t *testing.T) {
	m := testutil.StartMockManager(t)
	handleStatus(m)
	c := m.Dial()

	t.Run("error response", func(t *testing.T) {
		_, err := NewChannel(c, "SIP/missing").Snapshot(context.Background())
		require.Error(t, err)
		assert.True(t, ami.IsNotFound(err))
		assert.Contains(t, err.Error(), "No such channel")
	})

	t.Run("no status events", func(t *testing.T) {
		_, err := FetchChannels(context.Background(), c, "SIP/absent")
		assert.True(t, ami.IsNotFound(err))
	})
}

func TestFetchChannelsCancelled(t *testing.T) {
	m := testutil.StartMockManager(t)
	m.Handle("Status", func(a ami.Record) []string { return nil })
	c := m.Dial()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := FetchChannels(ctx, c, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChannelActions(t *testing.T) {
	m := testutil.StartMockManager(t)
	c := m.Dial()
	ch := NewChannel(c, "SIP/100-00000001")

	_, err := ch.Hangup()
	require.NoError(t, err)
	_, err = ch.Redirect("300", ami.NewRecord("Context", "sales"))
	require.NoError(t, err)
	require.NoError(t, ch.PlayDTMF(context.Background(), "12", time.Millisecond))

	require.Eventually(t, func() bool { return len(m.Actions()) == 4 }, 2*time.Second, 10*time.Millisecond)
	actions := m.Actions()
	assert.Equal(t, "Hangup", actions[0].Value("Action"))
	assert.Equal(t, "SIP/100-00000001", actions[0].Value("Channel"))
	assert.Equal(t, "Redirect", actions[1].Value("Action"))
	assert.Equal(t, "sales", actions[1].Value("Context"))
	assert.Equal(t, "1", actions[1].Value("Priority"))
	assert.Equal(t, "1", actions[2].Value("Digit"))
	assert.Equal(t, "2", actions[3].Value("Digit"))
}
