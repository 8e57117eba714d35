// Package views builds typed, refreshable views of switch state on top of
// the manager client: active channels, conference rooms and extension state.
package views

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/switchboard/pkg/ami"
)

// Manager is the part of *ami.Client the views rely on.
type Manager interface {
	SendAction(name string, opts ami.Record) (string, error)
	Request(ctx context.Context, name string, opts ami.Record) (ami.Record, error)
	ExecuteCommand(ctx context.Context, text string) (string, error)
	Attach(l *ami.Listener, names ...string) error
	Detach(name string, l *ami.Listener) *ami.Listener
	EventLog() *ami.EventLog
	DefaultContext() string
	Hangup(channel string) (string, error)
	Redirect(channel, exten string, opts ami.Record) (string, error)
	PlayDTMF(ctx context.Context, channel, digits string, interval time.Duration) error
}

// Snapshot is an ordered set of normalized fields. Values are strings, or
// ints for fields a view coerces.
type Snapshot struct {
	keys   []string
	values map[string]any
}

func (s *Snapshot) set(key string, value any) {
	if s.values == nil {
		s.values = make(map[string]any)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns the field value and whether it is present.
func (s Snapshot) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether the field is present.
func (s Snapshot) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// String returns the field formatted as text, or "" when absent.
func (s Snapshot) String(key string) string {
	v, ok := s.values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(v)
}

// Int returns the field as an int when it was coerced to one.
func (s Snapshot) Int(key string) (int, bool) {
	v, ok := s.values[key].(int)
	return v, ok
}

// Keys returns the field names in order.
func (s Snapshot) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of fields.
func (s Snapshot) Len() int {
	return len(s.keys)
}

// MarshalJSON encodes the snapshot as an object in field order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(s.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var (
	acronymRun = regexp.MustCompile(`([A-Z])([A-Z]*)([A-Z])`)
	camelHump  = regexp.MustCompile(`([a-z])([A-Z])`)
)

// NormalizeKey converts a MixedCase header name to lower_snake_case.
// Runs of capitals collapse to one word boundary at each end, so
// "CallerIDNum" becomes "caller_id_num".
func NormalizeKey(key string) string {
	var b strings.Builder
	last := 0
	for _, m := range acronymRun.FindAllStringSubmatchIndex(key, -1) {
		b.WriteString(key[last:m[0]])
		b.WriteString(key[m[2]:m[3]])
		b.WriteString(strings.ToLower(key[m[4]:m[5]]))
		b.WriteString(key[m[6]:m[7]])
		last = m[1]
	}
	b.WriteString(key[last:])
	return strings.ToLower(camelHump.ReplaceAllString(b.String(), "${1}_${2}"))
}

// normalize copies r into a Snapshot with normalized keys. Fields named in
// ints are stored as int when they parse; otherwise the text is kept.
func normalize(r ami.Record, ints ...string) Snapshot {
	var s Snapshot
	for _, k := range r.Keys() {
		name := NormalizeKey(k)
		value := r.Value(k)
		if contains(ints, name) {
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				s.set(name, n)
				continue
			}
		}
		s.set(name, value)
	}
	return s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// lazySnapshot serves a seeded snapshot once, then fetches a fresh one on
// every read.
type lazySnapshot struct {
	mu     sync.Mutex
	snap   Snapshot
	seeded bool
	fetch  func(ctx context.Context) (Snapshot, error)
}

func (l *lazySnapshot) seed(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snap = s
	l.seeded = true
}

func (l *lazySnapshot) get(ctx context.Context) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seeded {
		l.seeded = false
		return l.snap, nil
	}
	s, err := l.fetch(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	l.snap = s
	return s, nil
}
