package views

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dyluth/switchboard/pkg/ami"
)

// Event and field names used by the Status action.
const (
	statusAction        = "Status"
	statusEvent         = "Status"
	statusCompleteEvent = "StatusComplete"
)

// strippedChannelFields are removed from Status events before normalization.
var strippedChannelFields = []string{"Event", "Privilege", "ActionID", "Uniqueid"}

// channelIntFields are coerced to int in channel snapshots.
var channelIntFields = []string{"priority", "seconds"}

// Channel is a live call leg on the switch.
type Channel struct {
	Name string

	m    Manager
	info lazySnapshot
}

// NewChannel returns a view of the named channel. Its first Snapshot call
// queries the switch.
func NewChannel(m Manager, name string) *Channel {
	ch := &Channel{Name: name, m: m}
	ch.info.fetch = func(ctx context.Context) (Snapshot, error) {
		rows, err := FetchChannels(ctx, m, name)
		if err != nil {
			return Snapshot{}, err
		}
		return rows[0], nil
	}
	return ch
}

// String returns the channel name.
func (c *Channel) String() string {
	return c.Name
}

// Snapshot returns the channel's fields. A channel obtained from
// ListChannels serves its listing data on the first call; every other call
// queries the switch.
func (c *Channel) Snapshot(ctx context.Context) (Snapshot, error) {
	return c.info.get(ctx)
}

// Hangup hangs up the channel.
func (c *Channel) Hangup() (string, error) {
	return c.m.Hangup(c.Name)
}

// Redirect transfers the channel to exten.
func (c *Channel) Redirect(exten string, opts ami.Record) (string, error) {
	return c.m.Redirect(c.Name, exten, opts)
}

// PlayDTMF plays digits on the channel.
func (c *Channel) PlayDTMF(ctx context.Context, digits string, interval time.Duration) error {
	return c.m.PlayDTMF(ctx, c.Name, digits, interval)
}

// ListChannels returns every active channel.
func ListChannels(ctx context.Context, m Manager) ([]*Channel, error) {
	rows, err := FetchChannels(ctx, m, "")
	if err != nil {
		return nil, err
	}
	channels := make([]*Channel, 0, len(rows))
	for _, row := range rows {
		ch := NewChannel(m, row.String("name"))
		ch.info.seed(row)
		channels = append(channels, ch)
	}
	return channels, nil
}

// FetchChannels sends a Status action, optionally limited to one channel,
// and returns one normalized snapshot per Status event.
//
// The call waits for StatusComplete or an Error response carrying its
// ActionID. For a named channel, an Error response or an empty result is a
// *ami.NotFoundError.
func FetchChannels(ctx context.Context, m Manager, name string) ([]Snapshot, error) {
	id := ami.NewActionID(statusAction)
	ours := func(r ami.Record) bool {
		v, ok := r.Get(ami.HeaderActionID)
		return !ok || v == id
	}

	start := uint64(m.EventLog().Len())
	terminal := make(chan ami.Record, 1)
	var once sync.Once
	l := ami.NewListener(func(r ami.Record) {
		if !ours(r) {
			return
		}
		if r.Value(ami.HeaderEvent) == statusCompleteEvent || r.Value(ami.HeaderResponse) == ami.ResponseError {
			once.Do(func() { terminal <- r })
		}
	})
	if err := m.Attach(l, ami.Wildcard); err != nil {
		return nil, err
	}
	defer m.Detach(ami.Wildcard, l)

	opts := ami.NewRecord(ami.HeaderActionID, id)
	if name != "" {
		opts.Set("Channel", name)
	}
	if _, err := m.SendAction(statusAction, opts); err != nil {
		return nil, err
	}

	var end ami.Record
	select {
	case end = <-terminal:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if end.Value(ami.HeaderResponse) == ami.ResponseError {
		msg := end.Value(ami.HeaderMessage)
		if name == "" {
			return nil, &ami.ActionFailureError{Action: statusAction, ActionID: id, Message: msg}
		}
		return nil, &ami.NotFoundError{Kind: ami.NotFoundChannel, Name: name, Message: msg}
	}

	// The pump logs a record before dispatching it, so every Status event
	// that preceded the terminal one is already in the log.
	var rows []Snapshot
	for _, e := range m.EventLog().Since(start) {
		r := e.Record
		if !ours(r) {
			continue
		}
		if r.Value(ami.HeaderEvent) == statusCompleteEvent {
			break
		}
		if r.Value(ami.HeaderEvent) == statusEvent {
			rows = append(rows, channelSnapshot(r))
		}
	}
	log.Printf("[Views] Status %s returned %d channel(s)", id, len(rows))

	if name != "" && len(rows) == 0 {
		return nil, &ami.NotFoundError{Kind: ami.NotFoundChannel, Name: name, Message: fmt.Sprintf("no status for %s", name)}
	}
	return rows, nil
}

// channelSnapshot strips bookkeeping headers, moves Channel to the front as
// Name, and normalizes the rest.
func channelSnapshot(r ami.Record) Snapshot {
	e := r.Clone()
	for _, k := range strippedChannelFields {
		e.Delete(k)
	}
	out := ami.NewRecord("Name", e.Value("Channel"))
	e.Delete("Channel")
	for _, k := range e.Keys() {
		out.Set(k, e.Value(k))
	}
	return normalize(out, channelIntFields...)
}
