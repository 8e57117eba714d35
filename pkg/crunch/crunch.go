// Package crunch turns the fixed-width text printed by console commands into
// rows of named fields.
//
// Each report format is described by a Pattern: a line expression whose
// named groups become the row fields, and an optional aggregate expression
// that pulls one summary row out of the whole text before the lines are
// scanned. The package knows nothing about any specific report.
package crunch

import (
	"bytes"
	"encoding/json"
	"regexp"
)

// lineSplit separates console output into lines.
var lineSplit = regexp.MustCompile(`\r?\n`)

// Field is one named capture. Present is false when the group did not take
// part in the match.
type Field struct {
	Name    string
	Value   string
	Present bool
}

// Row holds the named captures of one match in group order.
type Row struct {
	fields []Field
}

// Len returns the number of fields, present or not.
func (r Row) Len() int {
	return len(r.fields)
}

// Fields returns a copy of the fields in group order.
func (r Row) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Names returns the field names in group order.
func (r Row) Names() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Name
	}
	return out
}

// Get returns the value of the named field and whether it participated in
// the match. Unknown names report false.
func (r Row) Get(name string) (string, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, f.Present
		}
	}
	return "", false
}

// Has reports whether the row has a field called name, present or not.
func (r Row) Has(name string) bool {
	for _, f := range r.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Value returns the named field, or "" when absent.
func (r Row) Value(name string) string {
	v, _ := r.Get(name)
	return v
}

// Map returns the present fields keyed by name.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.fields))
	for _, f := range r.fields {
		if f.Present {
			m[f.Name] = f.Value
		}
	}
	return m
}

// MarshalJSON encodes the row as an object in field order. Absent fields
// encode as null.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if !f.Present {
			buf.WriteString("null")
			continue
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is the outcome of crunching one text.
type Result struct {
	Rows      []Row
	Aggregate Row
}

// Crunch parses text.
//
// When aggregate is non-nil its first match anywhere in text becomes the
// Aggregate row and is cut out of the text. The rest is split into lines and
// every line where line matches (anywhere in the line) yields a row. Rows
// without fields are dropped.
func Crunch(text string, line, aggregate *regexp.Regexp) Result {
	var res Result
	if aggregate != nil {
		if loc := aggregate.FindStringSubmatchIndex(text); loc != nil {
			res.Aggregate = rowFromMatch(aggregate, text, loc)
			text = text[:loc[0]] + text[loc[1]:]
		}
	}

	for _, l := range lineSplit.Split(text, -1) {
		loc := line.FindStringSubmatchIndex(l)
		if loc == nil {
			continue
		}
		if row := rowFromMatch(line, l, loc); row.Len() > 0 {
			res.Rows = append(res.Rows, row)
		}
	}
	return res
}

func rowFromMatch(re *regexp.Regexp, s string, loc []int) Row {
	var row Row
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		start, end := loc[2*i], loc[2*i+1]
		if start < 0 {
			row.fields = append(row.fields, Field{Name: name})
			continue
		}
		row.fields = append(row.fields, Field{Name: name, Value: s[start:end], Present: true})
	}
	return row
}

// Pattern pairs a line expression with an optional aggregate expression.
type Pattern struct {
	Line      *regexp.Regexp
	Aggregate *regexp.Regexp
}

// MustCompile builds a Pattern, panicking on an invalid expression.
// An empty aggregate means none.
func MustCompile(line, aggregate string) Pattern {
	p := Pattern{Line: regexp.MustCompile(line)}
	if aggregate != "" {
		p.Aggregate = regexp.MustCompile(aggregate)
	}
	return p
}

// Apply crunches text with the pattern.
func (p Pattern) Apply(text string) Result {
	return Crunch(text, p.Line, p.Aggregate)
}
