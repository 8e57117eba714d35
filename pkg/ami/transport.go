package ami

import (
	"fmt"
	"time"

	"github.com/ziutek/telnet"
)

// Transport is the byte stream to the switch. The pump is its only reader;
// writes are serialized by the Client.
type Transport interface {
	// ReadLine reads through the next "\n". Used once for the banner.
	ReadLine() (string, error)
	// ReadBlock reads through the next blank line and returns the block
	// including its terminator.
	ReadBlock() (string, error)
	Write(p []byte) (int, error)
	Close() error
}

// telnetTransport reads the manager stream through a telnet connection, which
// takes care of any option negotiation the server starts.
type telnetTransport struct {
	conn *telnet.Conn
}

// DialTelnet opens a telnet connection to addr ("host:port").
func DialTelnet(addr string, timeout time.Duration) (Transport, error) {
	conn, err := telnet.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &telnetTransport{conn: conn}, nil
}

func (t *telnetTransport) ReadLine() (string, error) {
	return t.conn.ReadString('\n')
}

func (t *telnetTransport) ReadBlock() (string, error) {
	data, err := t.conn.ReadUntil(BlockTerminator)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (t *telnetTransport) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

func (t *telnetTransport) Close() error {
	return t.conn.Close()
}
