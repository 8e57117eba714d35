// Package watch renders live manager records for the terminal, either as
// a sink on a local session or from a Redis mirror of a remote one.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dyluth/switchboard/internal/eventsink"
	"github.com/dyluth/switchboard/internal/filter"
	"github.com/dyluth/switchboard/pkg/ami"
)

// OutputFormat specifies how streamed records are rendered.
type OutputFormat string

const (
	// OutputFormatDefault renders one human-readable line per record
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON renders one JSON object per line
	OutputFormatJSON OutputFormat = "json"
)

type formatter interface {
	FormatEntry(e eventsink.StoredEntry) error
}

func newFormatter(format OutputFormat, w io.Writer) (formatter, error) {
	switch format {
	case OutputFormatDefault, "":
		return &defaultFormatter{writer: w}, nil
	case OutputFormatJSON:
		return &jsonFormatter{writer: w}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// Stream filters and renders records. It is an ami.Sink, so attaching it
// with ami.WithSink prints records in the order the pump logs them.
type Stream struct {
	session string
	filters *filter.Criteria
	out     formatter

	mu    sync.Mutex
	count int
}

// NewStream creates a stream writing to w. filters may be nil.
func NewStream(w io.Writer, format OutputFormat, session string, filters *filter.Criteria) (*Stream, error) {
	f, err := newFormatter(format, w)
	if err != nil {
		return nil, err
	}
	return &Stream{session: session, filters: filters, out: f}, nil
}

// Append implements ami.Sink.
func (s *Stream) Append(_ context.Context, e ami.Entry) error {
	return s.Write(eventsink.FromEntry(s.session, e))
}

// Write renders e if it passes the filters.
func (s *Stream) Write(e eventsink.StoredEntry) error {
	if s.filters != nil && !s.filters.Matches(e.Record, e.ReceivedAt) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.out.FormatEntry(e); err != nil {
		return fmt.Errorf("failed to write record %d: %w", e.Seq, err)
	}
	s.count++
	return nil
}

// Count returns how many records have been rendered.
func (s *Stream) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Consume renders records from a Redis subscription until ctx is cancelled
// or the subscription ends. Malformed messages are reported to errs, which
// may be nil.
func (s *Stream) Consume(ctx context.Context, sub *eventsink.Subscription, errs io.Writer) error {
	events := sub.Events()
	subErrs := sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if err := s.Write(e); err != nil {
				return err
			}
		case err, ok := <-subErrs:
			if !ok {
				subErrs = nil
				continue
			}
			if errs != nil {
				fmt.Fprintf(errs, "Warning: %v\n", err)
			}
		}
	}
}

// defaultFormatter renders human-readable lines with emojis.
type defaultFormatter struct {
	writer io.Writer
}

func (f *defaultFormatter) FormatEntry(e eventsink.StoredEntry) error {
	timestamp := e.ReceivedAt.Format("15:04:05")

	name := e.Name
	if name == "" {
		name = "(empty)"
	}

	var line string
	if e.Record.Has(ami.HeaderEvent) {
		line = fmt.Sprintf("[%s] %s %s #%d", timestamp, eventEmoji(name), name, e.Seq)
	} else {
		line = fmt.Sprintf("[%s] %s Response %s #%d", timestamp, responseEmoji(name), name, e.Seq)
	}
	if summary := summarize(e.Record); summary != "" {
		line += ": " + summary
	}

	_, err := fmt.Fprintln(f.writer, line)
	return err
}

func eventEmoji(name string) string {
	switch strings.ToLower(name) {
	case "newchannel":
		return "📞"
	case "hangup":
		return "📴"
	case "newstate":
		return "🔔"
	case "dtmf", "dtmfbegin", "dtmfend":
		return "🔢"
	case "meetmejoin", "meetmeleave":
		return "👥"
	case "status", "statuscomplete":
		return "📋"
	default:
		return "📣"
	}
}

func responseEmoji(name string) string {
	switch name {
	case ami.ResponseSuccess:
		return "✅"
	case ami.ResponseError:
		return "❌"
	case ami.ResponseFollows:
		return "📄"
	default:
		return "💬"
	}
}

// summarize joins the headers other than the dispatch ones. Command output
// is reduced to its line count.
func summarize(r ami.Record) string {
	var parts []string
	for _, k := range r.Keys() {
		switch k {
		case ami.HeaderEvent, ami.HeaderResponse, "Privilege":
			continue
		}
		v := r.Value(k)
		if strings.Contains(v, "\n") {
			v = fmt.Sprintf("(%d lines)", strings.Count(v, "\n")+1)
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ", ")
}

// jsonFormatter renders line-delimited JSON.
type jsonFormatter struct {
	writer io.Writer
}

func (f *jsonFormatter) FormatEntry(e eventsink.StoredEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f.writer, string(data))
	return err
}
