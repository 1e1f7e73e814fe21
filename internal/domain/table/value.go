// Package table holds the movie collection as named, typed columns.
package table

import (
	"strconv"
	"strings"
	"time"
)

// Kind identifies what a single cell holds.
type Kind uint8

const (
	// KindAbsent marks a cell with no recorded value.
	KindAbsent Kind = iota
	// KindNumber marks a numeric cell.
	KindNumber
	// KindText marks a text cell.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "invalid"
	}
}

// Value is a tagged cell: either absent, a number or a text.
// The zero Value is absent.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// Absent returns the absent marker.
func Absent() Value { return Value{Kind: KindAbsent} }

// Number wraps f as a numeric cell.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Text wraps s as a text cell.
func Text(s string) Value { return Value{Kind: KindText, Str: s} }

// IsAbsent reports whether v carries no value.
func (v Value) IsAbsent() bool { return v.Kind == KindAbsent }

// Interface returns nil, float64 or string, suitable for JSON encoding.
func (v Value) Interface() any {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindText:
		return v.Str
	default:
		return nil
	}
}

// String renders the cell; absent cells render as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return formatNumber(v.Num)
	case KindText:
		return v.Str
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Record maps column names to cells.
type Record map[string]Value

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ColumnType is the declared type of a column.
type ColumnType uint8

const (
	// TypeNumeric columns hold numbers.
	TypeNumeric ColumnType = iota
	// TypeText columns hold free text.
	TypeText
	// TypeDate columns hold date-like text.
	TypeDate
)

func (t ColumnType) String() string {
	switch t {
	case TypeNumeric:
		return "numeric"
	case TypeText:
		return "text"
	case TypeDate:
		return "date"
	default:
		return "unknown"
	}
}

// Column describes one entry of the schema.
type Column struct {
	Name string
	Type ColumnType
}

// dateLayouts are tried in order when reading a date-like cell.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// ParseDate parses a date-like string using the supported layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Year extracts the calendar year of a date-like cell.
// Absent, numeric and unparseable cells report false.
func Year(v Value) (int, bool) {
	if v.Kind != KindText {
		return 0, false
	}
	t, ok := ParseDate(v.Str)
	if !ok {
		return 0, false
	}
	return t.Year(), true
}
