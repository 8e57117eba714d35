package ami

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBanner = "Asterisk Call Manager/1.1\r\n"

// fakeTransport is an in-memory Transport. Tests feed blocks to the pump and
// read back what the client wrote.
type fakeTransport struct {
	blocks    chan string
	writes    chan string
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		blocks: make(chan string, 16),
		writes: make(chan string, 64),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) ReadLine() (string, error) { return testBanner, nil }

func (f *fakeTransport) ReadBlock() (string, error) {
	select {
	case b, ok := <-f.blocks:
		if !ok {
			return "", io.EOF
		}
		return b, nil
	case <-f.closed:
		return "", net.ErrClosed
	}
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.writes <- string(p)
	return len(p), nil
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) feed(blocks ...string) {
	for _, b := range blocks {
		f.blocks <- b
	}
}

// nextAction returns the next action the client wrote, decoded.
func (f *fakeTransport) nextAction(t *testing.T) Record {
	t.Helper()
	select {
	case w := <-f.writes:
		return Decode(w)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the client to write an action")
		return Record{}
	}
}

// memorySink collects appended entries.
type memorySink struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (s *memorySink) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return s.err
}

func (s *memorySink) seqs() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Seq
	}
	return out
}

// blockingSink never completes an append on its own.
type blockingSink struct{}

func (blockingSink) Append(ctx context.Context, _ Entry) error {
	<-ctx.Done()
	return ctx.Err()
}

func setupTestClient(t *testing.T, opts ...Option) (*Client, *fakeTransport) {
	ft := newFakeTransport()
	c, err := Connect(ft, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, ft
}

func waitDone(t *testing.T, c *Client) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop")
	}
}

func TestConnect(t *testing.T) {
	c, _ := setupTestClient(t)
	assert.Equal(t, "Asterisk Call Manager/1.1", c.Banner())
	assert.Equal(t, DefaultContext, c.DefaultContext())

	t.Run("banner read failure", func(t *testing.T) {
		_, err := Connect(&brokenTransport{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read banner")
	})
}

type brokenTransport struct{ fakeTransport }

func (b *brokenTransport) ReadLine() (string, error) { return "", io.ErrUnexpectedEOF }

func TestPump(t *testing.T) {
	t.Run("logs dispatches and forwards in order", func(t *testing.T) {
		sink := &memorySink{}
		c, ft := setupTestClient(t, WithSink(sink))

		got := make(chan string, 2)
		_, err := c.On(Wildcard, func(r Record) { got <- r.Name() })
		require.NoError(t, err)

		ft.feed("Event: Newchannel\r\nChannel: SIP/100\r\n\r\n", "Event: Hangup\r\nChannel: SIP/100\r\n\r\n")
		close(ft.blocks)
		waitDone(t, c)
		c.Bus().Wait()

		assert.NoError(t, c.Err())
		events := c.Events()
		require.Len(t, events, 2)
		assert.Equal(t, "Newchannel", events[0].Name())
		assert.Equal(t, "Hangup", events[1].Name())
		assert.Equal(t, []uint64{1, 2}, sink.seqs())
		assert.Len(t, got, 2)
	})

	t.Run("empty block is reported and still logged", func(t *testing.T) {
		c, ft := setupTestClient(t)
		ft.feed("\r\n\r\n")
		close(ft.blocks)
		waitDone(t, c)

		assert.Equal(t, 1, c.EventLog().Len())
		select {
		case err := <-c.Errors():
			var de *DecodeError
			assert.ErrorAs(t, err, &de)
		default:
			t.Fatal("expected a decode error")
		}
	})

	t.Run("sink failure is reported", func(t *testing.T) {
		sink := &memorySink{err: errors.New("disk full")}
		c, ft := setupTestClient(t, WithSink(sink))
		ft.feed("Event: Hangup\r\n\r\n")
		close(ft.blocks)
		waitDone(t, c)

		select {
		case err := <-c.Errors():
			assert.Contains(t, err.Error(), "disk full")
		default:
			t.Fatal("expected a sink error")
		}
	})

	t.Run("stalled sink does not stall dispatch", func(t *testing.T) {
		c, ft := setupTestClient(t, WithSink(blockingSink{}), WithSinkTimeout(20*time.Millisecond))

		got := make(chan string, 2)
		_, err := c.On(Wildcard, func(r Record) { got <- r.Name() })
		require.NoError(t, err)

		ft.feed("Event: Newchannel\r\n\r\n", "Event: Hangup\r\n\r\n")
		close(ft.blocks)
		waitDone(t, c)
		c.Bus().Wait()

		assert.Len(t, got, 2)
		for i := 0; i < 2; i++ {
			select {
			case err := <-c.Errors():
				assert.ErrorIs(t, err, context.DeadlineExceeded)
			default:
				t.Fatal("expected a sink timeout")
			}
		}
	})

	t.Run("read error stops the pump", func(t *testing.T) {
		c, err := Connect(&failingReads{})
		require.NoError(t, err)
		waitDone(t, c)
		assert.ErrorIs(t, c.Err(), io.ErrUnexpectedEOF)
	})
}

type failingReads struct{ fakeTransport }

func (f *failingReads) ReadLine() (string, error)  { return testBanner, nil }
func (f *failingReads) ReadBlock() (string, error) { return "", io.ErrUnexpectedEOF }
func (f *failingReads) Close() error               { return nil }

func TestSendAction(t *testing.T) {
	c, ft := setupTestClient(t)

	t.Run("generates an id", func(t *testing.T) {
		id, err := c.SendAction("ping", Record{})
		require.NoError(t, err)
		assert.Regexp(t, `^ping-\d+\.\d{9}$`, id)

		sent := ft.nextAction(t)
		assert.Equal(t, "Ping", sent.Value("Action"))
		assert.Equal(t, id, sent.Value("Actionid"))
	})

	t.Run("uses caller id regardless of key case", func(t *testing.T) {
		opts := NewRecord("actionid", "mine-1", "Channel", "SIP/100")
		id, err := c.SendAction("Hangup", opts)
		require.NoError(t, err)
		assert.Equal(t, "mine-1", id)
		assert.Equal(t, 2, opts.Len())

		sent := ft.nextAction(t)
		assert.Equal(t, []string{"Action", "Actionid", "Channel"}, sent.Keys())
		assert.Equal(t, "mine-1", sent.Value("Actionid"))
	})

	t.Run("concurrent sends get distinct ids", func(t *testing.T) {
		var wg sync.WaitGroup
		ids := make([]string, 2)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id, err := c.SendAction("Ping", Record{})
				assert.NoError(t, err)
				ids[i] = id
			}(i)
		}
		wg.Wait()
		ft.nextAction(t)
		ft.nextAction(t)
		assert.NotEqual(t, ids[0], ids[1])
	})
}

func TestExecuteCommand(t *testing.T) {
	t.Run("returns results", func(t *testing.T) {
		c, ft := setupTestClient(t)
		type result struct {
			out string
			err error
		}
		done := make(chan result, 1)
		go func() {
			out, err := c.ExecuteCommand(context.Background(), "core show uptime")
			done <- result{out, err}
		}()

		sent := ft.nextAction(t)
		assert.Equal(t, "Command", sent.Value("Action"))
		assert.Equal(t, "core show uptime", sent.Value("Command"))
		id := sent.Value("Actionid")

		ft.feed(
			"Response: Follows\r\nActionID: other-1\r\nnot ours\r\n--END COMMAND--\r\n\r\n",
			"Response: Follows\r\nActionID: "+id+"\r\nSystem uptime: 5 minutes\r\n--END COMMAND--\r\n\r\n",
		)

		select {
		case res := <-done:
			require.NoError(t, res.err)
			assert.Equal(t, "System uptime: 5 minutes", res.out)
		case <-time.After(2 * time.Second):
			t.Fatal("ExecuteCommand did not return")
		}
		assert.Empty(t, c.Bus().Listeners(ResponseFollows))
		assert.Empty(t, c.Bus().Listeners(ResponseError))
	})

	t.Run("error response", func(t *testing.T) {
		c, ft := setupTestClient(t)
		done := make(chan error, 1)
		go func() {
			_, err := c.ExecuteCommand(context.Background(), "bogus")
			done <- err
		}()

		id := ft.nextAction(t).Value("Actionid")
		ft.feed("Response: Error\r\nActionID: " + id + "\r\nMessage: Command output follows\r\n\r\n")

		select {
		case err := <-done:
			var afe *ActionFailureError
			require.ErrorAs(t, err, &afe)
			assert.Equal(t, "Command output follows", afe.Message)
			assert.Equal(t, id, afe.ActionID)
		case <-time.After(2 * time.Second):
			t.Fatal("ExecuteCommand did not return")
		}
	})

	t.Run("context ends the wait", func(t *testing.T) {
		c, ft := setupTestClient(t)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			_, err := c.ExecuteCommand(ctx, "core show uptime")
			done <- err
		}()
		ft.nextAction(t)
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Fatal("ExecuteCommand ignored cancellation")
		}
	})
}

func TestRequest(t *testing.T) {
	c, ft := setupTestClient(t)

	t.Run("matches response by id", func(t *testing.T) {
		done := make(chan Record, 1)
		go func() {
			r, err := c.Request(context.Background(), "Ping", Record{})
			assert.NoError(t, err)
			done <- r
		}()

		id := ft.nextAction(t).Value("Actionid")
		ft.feed(
			"Event: PeerStatus\r\nActionID: "+id+"\r\n\r\n",
			"Response: Success\r\nActionID: "+id+"\r\nPing: Pong\r\n\r\n",
		)

		select {
		case r := <-done:
			assert.Equal(t, "Pong", r.Value("Ping"))
		case <-time.After(2 * time.Second):
			t.Fatal("Request did not return")
		}
	})

	t.Run("error response", func(t *testing.T) {
		done := make(chan error, 1)
		go func() {
			_, err := c.Request(context.Background(), "Hangup", NewRecord("Channel", "SIP/none"))
			done <- err
		}()

		id := ft.nextAction(t).Value("Actionid")
		ft.feed("Response: Error\r\nActionID: " + id + "\r\nMessage: No such channel\r\n\r\n")

		select {
		case err := <-done:
			var afe *ActionFailureError
			require.ErrorAs(t, err, &afe)
			assert.Equal(t, "Hangup", afe.Action)
			assert.Equal(t, "No such channel", afe.Message)
		case <-time.After(2 * time.Second):
			t.Fatal("Request did not return")
		}
	})
}

func TestDebug(t *testing.T) {
	var buf bytes.Buffer
	c, ft := setupTestClient(t, WithDebugWriter(&buf))

	c.SetDebug(true)
	c.SetDebug(true)
	assert.True(t, c.Debug())
	assert.Len(t, c.Bus().Listeners(Wildcard), 1)

	ft.feed("Event: Hangup\r\nChannel: SIP/100\r\n\r\n")
	close(ft.blocks)
	waitDone(t, c)
	c.Bus().Wait()

	assert.Equal(t, "Event: Hangup\r\nChannel: SIP/100\r\n\r\n", buf.String())

	c.SetDebug(false)
	assert.False(t, c.Debug())
	assert.Empty(t, c.Bus().Listeners(Wildcard))
}

func TestClose(t *testing.T) {
	c, _ := setupTestClient(t)
	require.NoError(t, c.Close())
	waitDone(t, c)
	assert.NoError(t, c.Err())
	require.NoError(t, c.Close())

	_, err := c.SendAction("Ping", Record{})
	assert.ErrorIs(t, err, ErrClosed)
}
