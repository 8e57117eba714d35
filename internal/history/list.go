package history

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/switchboard/internal/eventsink"
	"github.com/dyluth/switchboard/internal/filter"
)

// OutputFormat specifies how to format the record list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated headers
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete records as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// Store is the query side of an event store.
type Store interface {
	Query(ctx context.Context, q eventsink.Query) ([]eventsink.StoredEntry, error)
}

// ListRecords queries the store and writes matching records to w.
// Time and name filters are pushed into the query; header filters are
// applied to the results.
func ListRecords(ctx context.Context, store Store, session string, format OutputFormat, filters *filter.Criteria, w io.Writer) error {
	q := eventsink.Query{Session: session}
	if filters != nil {
		q.SinceTimestampMs = filters.SinceTimestampMs
		q.UntilTimestampMs = filters.UntilTimestampMs
		q.NameGlob = filters.NameGlob
	}

	entries, err := store.Query(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to query records: %w", err)
	}

	if filters != nil && len(filters.Headers) > 0 {
		kept := entries[:0]
		for _, e := range entries {
			if filters.Matches(e.Record, e.ReceivedAt) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	source := "all sessions"
	if session != "" {
		source = fmt.Sprintf("session '%s'", session)
	}

	switch format {
	case OutputFormatDefault:
		FormatTable(w, entries, source)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, entries); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}
