package filter

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyluth/switchboard/pkg/ami"
)

// Criteria defines filtering criteria for received records.
// All filters are ANDed together - a record must match ALL criteria to pass.
type Criteria struct {
	SinceTimestampMs int64             // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64             // Unix timestamp in milliseconds, 0 = no filter
	NameGlob         string            // Glob pattern for the dispatch name, empty = no filter
	Headers          map[string]string // Exact header values, empty = no filter
}

// Matches returns true if the record received at receivedAt matches all
// filter criteria. Empty/zero criteria values match everything.
func (c *Criteria) Matches(r ami.Record, receivedAt time.Time) bool {
	ms := receivedAt.UnixMilli()
	if c.SinceTimestampMs > 0 && ms < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && ms > c.UntilTimestampMs {
		return false
	}

	if c.NameGlob != "" {
		matched, err := filepath.Match(c.NameGlob, r.Name())
		if err != nil || !matched {
			return false
		}
	}

	// Header names match ignoring case, values exactly
	for k, want := range c.Headers {
		_, got, ok := r.Lookup(k)
		if !ok || got != want {
			return false
		}
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.SinceTimestampMs > 0 ||
		c.UntilTimestampMs > 0 ||
		c.NameGlob != "" ||
		len(c.Headers) > 0
}

// ParseHeaders turns KEY=VALUE flag values into a header filter.
func ParseHeaders(specs []string) (map[string]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(specs))
	for _, spec := range specs {
		k, v, ok := strings.Cut(spec, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid header filter %q (expected KEY=VALUE)", spec)
		}
		out[k] = v
	}
	return out, nil
}

// ValidateGlob reports a malformed glob pattern up front.
func ValidateGlob(pattern string) error {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid name pattern %q: %w", pattern, err)
	}
	return nil
}
