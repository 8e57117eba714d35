// Package eventsink persists and mirrors the records a manager session
// receives. Sinks implement ami.Sink and are attached with ami.WithSink.
package eventsink

import (
	"fmt"
	"time"

	"github.com/dyluth/switchboard/pkg/ami"
	"github.com/google/uuid"
)

// StoredEntry is a logged record as sinks store it.
type StoredEntry struct {
	Session    string     `json:"session"`
	Seq        uint64     `json:"seq"`
	ReceivedAt time.Time  `json:"received_at"`
	Name       string     `json:"name"`
	Record     ami.Record `json:"record"`
}

// FromEntry converts a log entry for storage under session.
func FromEntry(session string, e ami.Entry) StoredEntry {
	return StoredEntry{
		Session:    session,
		Seq:        e.Seq,
		ReceivedAt: e.ReceivedAt,
		Name:       e.Record.Name(),
		Record:     e.Record,
	}
}

// NewSessionID generates a session identifier.
func NewSessionID() string {
	return uuid.New().String()
}

// ValidateSessionID rejects identifiers that would break key patterns.
func ValidateSessionID(session string) error {
	if session == "" {
		return fmt.Errorf("session cannot be empty")
	}
	for _, r := range session {
		if r == ':' || r == '*' || r == ' ' {
			return fmt.Errorf("session %q contains invalid character %q", session, r)
		}
	}
	return nil
}
