package history

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/switchboard/internal/eventsink"
)

// GetRecord retrieves one record by session and sequence number and writes
// it as pretty-printed JSON.
func GetRecord(ctx context.Context, store Store, session string, seq uint64, w io.Writer) error {
	if err := eventsink.ValidateSessionID(session); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}
	if seq == 0 {
		return fmt.Errorf("invalid sequence number: must be positive")
	}

	entries, err := store.Query(ctx, eventsink.Query{Session: session, Seq: seq, Limit: 1})
	if err != nil {
		return fmt.Errorf("failed to fetch record: %w", err)
	}
	if len(entries) == 0 {
		return &RecordNotFoundError{Session: session, Seq: seq}
	}

	if err := FormatSingleJSON(w, entries[0]); err != nil {
		return fmt.Errorf("failed to format record: %w", err)
	}

	return nil
}

// RecordNotFoundError represents a specific "record not found" error.
// This allows callers to distinguish not-found errors from other failures.
type RecordNotFoundError struct {
	Session string
	Seq     uint64
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("record %d in session '%s' not found", e.Seq, e.Session)
}

// IsNotFound returns true if the error is a RecordNotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*RecordNotFoundError)
	return ok
}
