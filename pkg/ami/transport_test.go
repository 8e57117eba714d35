package ami

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockManager is a minimal manager server. It sends a banner, then answers
// each action block using respond.
type mockManager struct {
	ln      net.Listener
	respond func(action Record) string
}

func startMockManager(t *testing.T, respond func(action Record) string) *mockManager {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	m := &mockManager{ln: ln, respond: respond}
	t.Cleanup(func() { ln.Close() })
	go m.serve()
	return m
}

func (m *mockManager) addr() string { return m.ln.Addr().String() }

func (m *mockManager) serve() {
	conn, err := m.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("Asterisk Call Manager/5.0.1\r\n")); err != nil {
		return
	}
	reader := bufio.NewReader(conn)
	var block strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		block.WriteString(line)
		if line != "\r\n" {
			continue
		}
		action := Decode(block.String())
		block.Reset()
		reply := m.respond(action)
		if reply == "" {
			continue
		}
		if _, err := conn.Write([]byte(reply)); err != nil {
			return
		}
		if action.Value("Action") == "Logoff" {
			return
		}
	}
}

func TestDialTelnet(t *testing.T) {
	m := startMockManager(t, func(action Record) string {
		id := action.Value("Actionid")
		switch action.Value("Action") {
		case "Login":
			if action.Value("Secret") != "s3cret" {
				return "Response: Error\r\nActionID: " + id + "\r\nMessage: Authentication failed\r\n\r\n"
			}
			return "Response: Success\r\nActionID: " + id + "\r\nMessage: Authentication accepted\r\n\r\n"
		case "Command":
			return "Response: Follows\r\nPrivilege: Command\r\nActionID: " + id + "\r\n" +
				"System uptime: 1 hour\n--END COMMAND--\r\n\r\n"
		case "Logoff":
			return "Response: Goodbye\r\nActionID: " + id + "\r\nMessage: Thanks for all the fish.\r\n\r\n"
		}
		return ""
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, m.addr(), WithDialTimeout(time.Second))
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "Asterisk Call Manager/5.0.1", c.Banner())

	reply, err := c.Request(ctx, "Login", NewRecord("Username", "admin", "Secret", "s3cret"))
	require.NoError(t, err)
	assert.Equal(t, "Authentication accepted", reply.Value("Message"))

	out, err := c.ExecuteCommand(ctx, "core show uptime")
	require.NoError(t, err)
	assert.Equal(t, "System uptime: 1 hour", out)

	_, err = c.Logoff()
	require.NoError(t, err)

	select {
	case <-c.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("pump did not stop after the server closed the stream")
	}
	assert.NoError(t, c.Err())

	names := []string{}
	for _, r := range c.Events() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{"Success", "Follows", "Goodbye"}, names)
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(context.Background(), addr, WithDialTimeout(time.Second))
	assert.Error(t, err)
}

func TestDialCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Dial(ctx, "127.0.0.1:1")
	assert.ErrorIs(t, err, context.Canceled)
}
