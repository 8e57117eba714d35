package ami

import (
	"context"
	"strconv"
	"time"
)

// DefaultDTMFInterval is the pause between digits sent by PlayDTMF.
const DefaultDTMFInterval = 500 * time.Millisecond

// originateTimeout is the ring time, in milliseconds, used by Originate.
const originateTimeout = 60 * 1000

// Login authenticates the session. Extra opts are sent as given.
func (c *Client) Login(username, secret string, opts Record) (string, error) {
	return c.SendAction("Login", mergeOptions(opts, NewRecord("Username", username, "Secret", secret)))
}

// Logoff ends the session. The switch replies with Goodbye and closes the stream.
func (c *Client) Logoff() (string, error) {
	return c.SendAction("Logoff", Record{})
}

// Ping asks the switch for a keepalive reply.
func (c *Client) Ping() (string, error) {
	return c.SendAction("Ping", Record{})
}

// Originate places a call from channel to exten in the default context,
// priority 1, asynchronously with a sixty second ring time. opts override
// any of these.
func (c *Client) Originate(channel, exten string, opts Record) (string, error) {
	defaults := NewRecord(
		"Channel", channel,
		"Exten", exten,
		"Context", c.defaultContext,
		"Priority", "1",
		"Async", "yes",
		"Timeout", strconv.Itoa(originateTimeout),
	)
	return c.SendAction("Originate", mergeOptions(defaults, opts))
}

// PlayDTMF sends one PlayDTMF action per digit, pausing interval between
// digits. A non-positive interval uses DefaultDTMFInterval.
func (c *Client) PlayDTMF(ctx context.Context, channel, digits string, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultDTMFInterval
	}
	for i, d := range digits {
		if i > 0 {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if _, err := c.SendAction("PlayDTMF", NewRecord("Channel", channel, "Digit", string(d))); err != nil {
			return err
		}
	}
	return nil
}

// Hangup hangs up channel.
func (c *Client) Hangup(channel string) (string, error) {
	return c.SendAction("Hangup", NewRecord("Channel", channel))
}

// Redirect transfers channel to exten in the default context at priority 1.
// opts override either.
func (c *Client) Redirect(channel, exten string, opts Record) (string, error) {
	defaults := NewRecord(
		"Channel", channel,
		"Exten", exten,
		"Context", c.defaultContext,
		"Priority", "1",
	)
	return c.SendAction("Redirect", mergeOptions(defaults, opts))
}

// Command sends a console command without waiting for its output.
// Use ExecuteCommand to collect the output.
func (c *Client) Command(cmd string) (string, error) {
	return c.SendAction("Command", NewRecord("Command", cmd))
}
