package ami

import (
	"context"
	"sync"
	"time"
)

// Entry is one record in the event log, stamped on arrival.
type Entry struct {
	Seq        uint64
	ReceivedAt time.Time
	Record     Record
}

// Sink receives every logged entry after it is appended. Sinks run on the
// pump goroutine, so a slow sink delays dispatch of later records.
type Sink interface {
	Append(ctx context.Context, e Entry) error
}

// EventLog is the append-only history of every record the pump decoded.
// It hands out copies only; logged records are never mutated.
type EventLog struct {
	mu      sync.Mutex
	entries []Entry
}

// NewEventLog creates an empty log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append stores r and returns the entry that was logged.
func (l *EventLog) Append(r Record) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := Entry{
		Seq:        uint64(len(l.entries)) + 1,
		ReceivedAt: time.Now(),
		Record:     r,
	}
	l.entries = append(l.entries, e)
	return Entry{Seq: e.Seq, ReceivedAt: e.ReceivedAt, Record: r.Clone()}
}

// Len returns the number of logged entries.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Records returns copies of every logged record in arrival order.
func (l *EventLog) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Record.Clone()
	}
	return out
}

// Since returns copies of entries with a sequence number greater than seq.
func (l *EventLog) Since(seq uint64) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq >= uint64(len(l.entries)) {
		return nil
	}
	out := make([]Entry, 0, uint64(len(l.entries))-seq)
	for _, e := range l.entries[seq:] {
		out = append(out, Entry{Seq: e.Seq, ReceivedAt: e.ReceivedAt, Record: e.Record.Clone()})
	}
	return out
}
