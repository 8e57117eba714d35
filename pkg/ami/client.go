package ami

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithSink forwards every logged entry to s. Sinks are called in the order
// they were added.
func WithSink(s Sink) Option {
	return func(c *Client) {
		if s != nil {
			c.sinks = append(c.sinks, s)
		}
	}
}

// WithDebugWriter sets where debug mode writes records. Defaults to stderr.
func WithDebugWriter(w io.Writer) Option {
	return func(c *Client) {
		c.debugWriter = w
	}
}

// WithDefaultContext sets the dialplan context used by actions that need one.
func WithDefaultContext(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.defaultContext = name
		}
	}
}

// WithDialTimeout bounds connection establishment in Dial.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithSinkTimeout bounds each sink append. A sink that blocks longer is
// abandoned for that entry and the failure goes to Errors().
func WithSinkTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.sinkTimeout = d
		}
	}
}

// Client is one manager session. It owns its transport, event bus and event
// log; nothing is shared between clients.
type Client struct {
	transport Transport
	bus       *Bus
	events    *EventLog
	sinks     []Sink

	banner         string
	defaultContext string
	dialTimeout    time.Duration
	sinkTimeout    time.Duration

	writeMu sync.Mutex
	closing atomic.Bool

	debugMu       sync.Mutex
	debugListener *Listener
	debugWriter   io.Writer
	debugWriteMu  sync.Mutex

	done      chan struct{}
	errMu     sync.Mutex
	err       error
	closeOnce sync.Once
	closeErr  error
}

func newClient(opts []Option) *Client {
	c := &Client{
		bus:            NewBus(),
		events:         NewEventLog(),
		defaultContext: DefaultContext,
		dialTimeout:    DialTimeout,
		sinkTimeout:    SinkTimeout,
		debugWriter:    os.Stderr,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to the manager interface at addr over telnet and starts the
// session. See Connect.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	probe := newClient(opts)
	timeout := probe.dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := DialTelnet(addr, timeout)
	if err != nil {
		return nil, err
	}
	c, err := Connect(t, opts...)
	if err != nil {
		t.Close()
		return nil, err
	}
	return c, nil
}

// Connect reads and discards the banner line from t, then starts the pump.
// The returned client is the sole reader of t from then on.
func Connect(t Transport, opts ...Option) (*Client, error) {
	c := newClient(opts)
	c.transport = t

	banner, err := t.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("read banner: %w", err)
	}
	c.banner = strings.TrimRight(banner, "\r\n")
	log.Printf("[Client] Connected: %s", c.banner)

	go c.pump()
	return c, nil
}

// Banner returns the greeting line the switch sent on connect.
func (c *Client) Banner() string {
	return c.banner
}

// DefaultContext returns the dialplan context used when an action needs one.
func (c *Client) DefaultContext() string {
	return c.defaultContext
}

// Bus returns the session's event bus.
func (c *Client) Bus() *Bus {
	return c.bus
}

// Attach registers l under every name. See Bus.Attach.
func (c *Client) Attach(l *Listener, names ...string) error {
	return c.bus.Attach(l, names...)
}

// On registers fn under name. See Bus.On.
func (c *Client) On(name string, fn HandlerFunc) (*Listener, error) {
	return c.bus.On(name, fn)
}

// Detach removes the first registration of l under name. See Bus.Detach.
func (c *Client) Detach(name string, l *Listener) *Listener {
	return c.bus.Detach(name, l)
}

// DetachAll removes every listener under name. See Bus.DetachAll.
func (c *Client) DetachAll(name string) []*Listener {
	return c.bus.DetachAll(name)
}

// Events returns copies of every record received so far, in arrival order.
func (c *Client) Events() []Record {
	return c.events.Records()
}

// EventLog returns the session's event log.
func (c *Client) EventLog() *EventLog {
	return c.events
}

// Errors returns the diagnostic channel. See Bus.Errors.
func (c *Client) Errors() <-chan error {
	return c.bus.Errors()
}

// Done is closed when the pump stops.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the read error that stopped the pump, or nil when it stopped
// on end of stream or has not stopped.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	c.err = err
}

// SetDebug toggles debug mode. While on, every dispatched record is written
// in wire form to the debug writer.
func (c *Client) SetDebug(on bool) {
	c.debugMu.Lock()
	defer c.debugMu.Unlock()

	if on == (c.debugListener != nil) {
		return
	}
	if !on {
		c.bus.Detach(Wildcard, c.debugListener)
		c.debugListener = nil
		return
	}
	l := NewListener(c.writeDebug)
	// Attach only fails for a nil listener.
	_ = c.bus.Attach(l, Wildcard)
	c.debugListener = l
}

// Debug reports whether debug mode is on.
func (c *Client) Debug() bool {
	c.debugMu.Lock()
	defer c.debugMu.Unlock()
	return c.debugListener != nil
}

func (c *Client) writeDebug(r Record) {
	c.debugWriteMu.Lock()
	defer c.debugWriteMu.Unlock()
	fmt.Fprint(c.debugWriter, r.Format())
}

// SendAction writes an action and returns its correlation identifier without
// waiting for a reply. opts is not modified. An ActionID option, matched
// ignoring case, is used as the identifier; otherwise one is generated.
func (c *Client) SendAction(name string, opts Record) (string, error) {
	opts = opts.Clone()
	id := ensureActionID(name, &opts)
	if err := c.write(FormatAction(name, opts)); err != nil {
		return id, fmt.Errorf("send %s: %w", name, err)
	}
	return id, nil
}

func ensureActionID(name string, opts *Record) string {
	if _, v, ok := opts.Lookup(HeaderActionID); ok {
		return v
	}
	id := NewActionID(name)
	opts.Set(HeaderActionID, id)
	return id
}

func (c *Client) write(s string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closing.Load() {
		return ErrClosed
	}
	_, err := io.WriteString(c.transport, s)
	return err
}

// Request sends an action and waits for the response carrying its
// correlation identifier. An Error response is returned together with an
// *ActionFailureError.
//
// The library imposes no timeout: only ctx ends the wait.
func (c *Client) Request(ctx context.Context, name string, opts Record) (Record, error) {
	opts = opts.Clone()
	id := ensureActionID(name, &opts)

	replies := make(chan Record, 1)
	var once sync.Once
	l := NewListener(func(r Record) {
		if r.Has(HeaderEvent) || !r.Has(HeaderResponse) || r.Value(HeaderActionID) != id {
			return
		}
		once.Do(func() { replies <- r })
	})
	if err := c.bus.Attach(l, Wildcard); err != nil {
		return Record{}, err
	}
	defer c.bus.Detach(Wildcard, l)

	if _, err := c.SendAction(name, opts); err != nil {
		return Record{}, err
	}

	select {
	case r := <-replies:
		if r.Name() == ResponseError {
			return r, &ActionFailureError{Action: name, ActionID: id, Message: r.Value(HeaderMessage)}
		}
		return r, nil
	case <-ctx.Done():
		return Record{}, ctx.Err()
	}
}

type commandResult struct {
	results string
	err     error
}

// ExecuteCommand runs a console command and returns its output.
//
// Listeners for the Follows and Error replies are attached before the
// command is sent and detached when the call returns. Replies whose ActionID
// belongs to another action are ignored. There is no built-in timeout: with
// a context that is never cancelled the call blocks until the switch answers.
func (c *Client) ExecuteCommand(ctx context.Context, text string) (string, error) {
	const action = "Command"
	id := NewActionID(action)

	result := make(chan commandResult, 1)
	var once sync.Once
	deliver := func(res commandResult) {
		once.Do(func() { result <- res })
	}
	ours := func(r Record) bool {
		v, ok := r.Get(HeaderActionID)
		return !ok || v == id
	}

	follows := NewListener(func(r Record) {
		if ours(r) {
			deliver(commandResult{results: r.Value(HeaderResults)})
		}
	})
	failure := NewListener(func(r Record) {
		if ours(r) {
			deliver(commandResult{err: &ActionFailureError{Action: action, ActionID: id, Message: r.Value(HeaderMessage)}})
		}
	})
	if err := c.bus.Attach(follows, ResponseFollows); err != nil {
		return "", err
	}
	defer c.bus.Detach(ResponseFollows, follows)
	if err := c.bus.Attach(failure, ResponseError); err != nil {
		return "", err
	}
	defer c.bus.Detach(ResponseError, failure)

	if _, err := c.SendAction(action, NewRecord(action, text, HeaderActionID, id)); err != nil {
		return "", err
	}

	select {
	case res := <-result:
		return res.results, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close closes the transport and waits for the pump to stop. Listener
// goroutines already running are not waited for; use Bus().Wait for that.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.closing.Store(true)
		c.writeMu.Unlock()

		c.closeErr = c.transport.Close()
		<-c.done
	})
	return c.closeErr
}
