// Package testutil provides a scripted manager server for tests that need a
// real TCP session.
package testutil

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dyluth/switchboard/pkg/ami"
	"github.com/stretchr/testify/require"
)

// Banner is the greeting the mock manager sends on connect.
const Banner = "Asterisk Call Manager/5.0.1"

// Responder answers one action with zero or more blocks.
type Responder func(action ami.Record) []string

// MockManager is a scripted manager server listening on a loopback port.
//
// Login, Logoff and Ping are answered out of the box. Other actions need a
// Handle call; console commands are scripted with HandleCommand. Unscripted
// actions get an Error response.
type MockManager struct {
	t  *testing.T
	ln net.Listener

	mu       sync.Mutex
	handlers map[string]Responder
	commands map[string]string
	actions  []ami.Record
	conn     net.Conn
}

// StartMockManager starts a server that is shut down when the test ends.
func StartMockManager(t *testing.T) *MockManager {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "Failed to listen for mock manager")

	m := &MockManager{
		t:        t,
		ln:       ln,
		handlers: make(map[string]Responder),
		commands: make(map[string]string),
	}
	m.Handle("Login", func(a ami.Record) []string {
		return []string{Response(a, "Success", "Message", "Authentication accepted")}
	})
	m.Handle("Ping", func(a ami.Record) []string {
		return []string{Response(a, "Success", "Ping", "Pong")}
	})
	m.Handle("Logoff", func(a ami.Record) []string {
		return []string{Response(a, "Goodbye", "Message", "Thanks for all the fish.")}
	})

	t.Cleanup(func() {
		ln.Close()
		m.mu.Lock()
		if m.conn != nil {
			m.conn.Close()
		}
		m.mu.Unlock()
	})
	go m.acceptLoop()
	return m
}

// Addr returns the listening address.
func (m *MockManager) Addr() string {
	return m.ln.Addr().String()
}

// HostPort splits Addr into host and port.
func (m *MockManager) HostPort() (string, string) {
	host, port, _ := net.SplitHostPort(m.Addr())
	return host, port
}

// Handle scripts the reply to an action. Names match ignoring case.
func (m *MockManager) Handle(action string, r Responder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[strings.ToLower(action)] = r
}

// HandleCommand scripts the output of a console command.
func (m *MockManager) HandleCommand(command, output string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[command] = output
}

// Actions returns every action received so far.
func (m *MockManager) Actions() []ami.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ami.Record, len(m.actions))
	for i, a := range m.actions {
		out[i] = a.Clone()
	}
	return out
}

// Push writes unsolicited blocks to the connected client.
func (m *MockManager) Push(blocks ...string) {
	m.t.Helper()
	require.Eventually(m.t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.conn != nil
	}, 2*time.Second, 10*time.Millisecond, "No client connected to mock manager")

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	for _, b := range blocks {
		_, err := conn.Write([]byte(b))
		require.NoError(m.t, err)
	}
}

// Dial connects a client and closes it when the test ends.
func (m *MockManager) Dial(opts ...ami.Option) *ami.Client {
	m.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := ami.Dial(ctx, m.Addr(), opts...)
	require.NoError(m.t, err, "Failed to dial mock manager")
	m.t.Cleanup(func() { c.Close() })
	return c
}

func (m *MockManager) acceptLoop() {
	for {
		conn, err := m.ln.Accept()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.conn = conn
		m.mu.Unlock()
		go m.serve(conn)
	}
}

func (m *MockManager) serve(conn net.Conn) {
	defer conn.Close()
	if _, err := conn.Write([]byte(Banner + "\r\n")); err != nil {
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
		action := ami.Decode(block.String())
		block.Reset()

		for _, reply := range m.reply(action) {
			if _, err := conn.Write([]byte(reply)); err != nil {
				return
			}
		}
		if strings.EqualFold(action.Value("Action"), "Logoff") {
			return
		}
	}
}

func (m *MockManager) reply(action ami.Record) []string {
	name := strings.ToLower(action.Value("Action"))

	m.mu.Lock()
	m.actions = append(m.actions, action.Clone())
	handler, ok := m.handlers[name]
	_, command, _ := action.Lookup("Command")
	output, known := m.commands[command]
	m.mu.Unlock()

	switch {
	case ok:
		return handler(action)
	case name == "command" && known:
		return []string{Follows(action, output)}
	case name == "command":
		return []string{Response(action, "Error", "Message", "Command output follows")}
	default:
		return []string{Response(action, "Error", "Message", "Invalid/unknown command")}
	}
}

// ActionID returns the correlation id of a received action.
func ActionID(action ami.Record) string {
	_, id, _ := action.Lookup(ami.HeaderActionID)
	return id
}

// Response renders a reply to action with the given Response value.
func Response(action ami.Record, response string, pairs ...string) string {
	r := ami.NewRecord(ami.HeaderResponse, response, ami.HeaderActionID, ActionID(action))
	return appendPairs(r, pairs).Format()
}

// Event renders an event correlated to action.
func Event(action ami.Record, event string, pairs ...string) string {
	r := ami.NewRecord(ami.HeaderEvent, event, ami.HeaderActionID, ActionID(action))
	return appendPairs(r, pairs).Format()
}

// Follows renders console output the way the switch returns it.
func Follows(action ami.Record, output string) string {
	var b strings.Builder
	b.WriteString("Response: Follows\r\nPrivilege: Command\r\n")
	b.WriteString("ActionID: " + ActionID(action) + "\r\n")
	if output != "" {
		b.WriteString(output)
		if !strings.HasSuffix(output, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString(ami.EndCommandMarker + "\r\n\r\n")
	return b.String()
}

func appendPairs(r ami.Record, pairs []string) ami.Record {
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}
