package history

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/switchboard/internal/eventsink"
	"github.com/dyluth/switchboard/pkg/ami"
)

// headerSkip lists headers the table summary leaves out.
var headerSkip = map[string]bool{
	ami.HeaderEvent:    true,
	ami.HeaderResponse: true,
	"Privilege":        true,
}

// FormatTable writes entries as a formatted table to the provided writer.
// The table includes columns: SEQ, NAME, AGE and a truncated header summary.
// Returns the number of entries formatted.
func FormatTable(w io.Writer, entries []eventsink.StoredEntry, source string) int {
	if len(entries) == 0 {
		fmt.Fprintf(w, "No records found in %s\n", source)
		return 0
	}

	fmt.Fprintf(w, "Records in %s:\n\n", source)

	fmt.Fprintf(w, "%-10s %-6s %-20s %-8s %s\n",
		"SESSION", "SEQ", "NAME", "AGE", "HEADERS")
	fmt.Fprintf(w, "%-10s %-6s %-20s %-8s %s\n",
		"----------", "------", "--------------------", "--------", "----------------------------------------")

	for _, e := range entries {
		fmt.Fprintf(w, "%-10s %-6d %-20s %-8s %s\n",
			formatSession(e.Session),
			e.Seq,
			formatName(e.Name),
			formatTimestamp(e.ReceivedAt),
			formatHeaders(e.Record),
		)
	}

	countMsg := "record"
	if len(entries) != 1 {
		countMsg = "records"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(entries), countMsg)

	return len(entries)
}

// FormatJSONL writes entries as line-delimited JSON (JSONL) to the provided writer.
// Each entry is written as a single JSON object on its own line.
func FormatJSONL(w io.Writer, entries []eventsink.StoredEntry) error {
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal record to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}

	return nil
}

// FormatSingleJSON writes one entry as pretty-printed JSON to the provided writer.
func FormatSingleJSON(w io.Writer, e eventsink.StoredEntry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record to JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)

	return nil
}

// formatSession truncates a session id to its first 8 characters.
func formatSession(session string) string {
	if len(session) > 8 {
		return session[:8]
	}
	return session
}

// formatName truncates long dispatch names. Empty names return "-".
func formatName(name string) string {
	if name == "" {
		return "-"
	}
	if len(name) > 20 {
		return name[:17] + "..."
	}
	return name
}

// formatHeaders renders the remaining headers as key=value pairs, truncated
// to 60 characters. Records with nothing else to show return "-".
func formatHeaders(r ami.Record) string {
	var parts []string
	for _, k := range r.Keys() {
		if headerSkip[k] {
			continue
		}
		parts = append(parts, k+"="+r.Value(k))
	}
	if len(parts) == 0 {
		return "-"
	}

	s := strings.Join(parts, " ")
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}

// formatTimestamp shows the time since t, like "2m ago".
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	diff := time.Since(t)
	if diff < time.Minute {
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	} else if diff < time.Hour {
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	} else {
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
