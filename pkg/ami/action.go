package ami

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"
)

// lastStamp holds the most recent nanosecond stamp handed out by NewActionID.
var lastStamp atomic.Int64

// NewActionID generates a correlation identifier of the form
// "<lowercased action>-<seconds>.<nanoseconds>". Stamps are strictly
// increasing across the process, so concurrent calls never collide.
func NewActionID(action string) string {
	for {
		last := lastStamp.Load()
		now := time.Now().UnixNano()
		if now <= last {
			now = last + 1
		}
		if lastStamp.CompareAndSwap(last, now) {
			return fmt.Sprintf("%s-%d.%09d", strings.ToLower(action), now/int64(time.Second), now%int64(time.Second))
		}
	}
}

// capitalize upper-cases the first letter and lower-cases the rest.
// The manager treats action and header names case-insensitively.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// FormatAction renders an action request: an "Action: <Name>" line, one line
// per option with capitalized keys, and the block terminator.
func FormatAction(name string, opts Record) string {
	var b strings.Builder
	b.WriteString(HeaderAction)
	b.WriteString(headerSeparator)
	b.WriteString(capitalize(name))
	b.WriteString(lineTerminator)
	for _, k := range opts.Keys() {
		b.WriteString(capitalize(k))
		b.WriteString(headerSeparator)
		b.WriteString(opts.Value(k))
		b.WriteString(lineTerminator)
	}
	b.WriteString(lineTerminator)
	return b.String()
}

// mergeOptions overlays opts on defaults. Keys match ignoring case so a
// caller's "Context" replaces the default "context".
func mergeOptions(defaults, opts Record) Record {
	out := defaults.Clone()
	for _, k := range opts.Keys() {
		if stored, _, ok := out.Lookup(k); ok {
			out.Set(stored, opts.Value(k))
			continue
		}
		out.Set(k, opts.Value(k))
	}
	return out
}
