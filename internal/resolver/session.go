// Package resolver expands the short session prefixes shown by
// "switchboard history" into full session IDs.
package resolver

import (
	"context"
	"fmt"
	"strings"
)

// MinPrefixLength is the shortest prefix accepted for a session that is
// not matched exactly.
const MinPrefixLength = 4

// SessionLister lists the sessions present in a history store.
type SessionLister interface {
	Sessions(ctx context.Context) ([]string, error)
}

// ResolveSession resolves a session ID or prefix to a full session ID.
// An exact match always wins, even when it is also a prefix of another
// session.
func ResolveSession(ctx context.Context, store SessionLister, prefix string) (string, error) {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list sessions: %w", err)
	}

	for _, s := range sessions {
		if s == prefix {
			return s, nil
		}
	}

	if len(prefix) < MinPrefixLength {
		return "", fmt.Errorf("session prefix must be at least %d characters (got %d)", MinPrefixLength, len(prefix))
	}

	var matches []string
	for _, s := range sessions {
		if strings.HasPrefix(s, prefix) {
			matches = append(matches, s)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Prefix: prefix}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{Prefix: prefix, Matches: matches}
	}
}

// NotFoundError indicates no session matched the prefix.
type NotFoundError struct {
	Prefix string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no sessions found matching '%s'", e.Prefix)
}

// AmbiguousError indicates several sessions matched the prefix.
type AmbiguousError struct {
	Prefix  string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous session prefix '%s' matches %d sessions", e.Prefix, len(e.Matches))
}

// FormatAmbiguousError lists the matching sessions (up to 10, then
// "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	msg := fmt.Sprintf("'%s' matches %d sessions:\n", err.Prefix, len(err.Matches))

	displayCount := len(err.Matches)
	if displayCount > 10 {
		displayCount = 10
	}
	for i := 0; i < displayCount; i++ {
		msg += fmt.Sprintf("  %s\n", err.Matches[i])
	}
	if len(err.Matches) > 10 {
		msg += fmt.Sprintf("  ...and %d more\n", len(err.Matches)-10)
	}

	msg += "\nUse a longer prefix to pick one session."
	return msg
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
