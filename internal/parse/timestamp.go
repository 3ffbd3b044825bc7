package parse

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the layout used for every timestamp written by the service:
// UTC with millisecond precision, e.g. 2025-03-01T08:15:30.120Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Layouts accepted when reading timestamps back. Records may be edited by hand,
// so a few common shapes are tolerated.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Timestamp parses a stored timestamp string.
// Layouts without a zone are interpreted as UTC.
func Timestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %q", raw)
}

// TimestampOrZero is Timestamp with the error dropped.
func TimestampOrZero(raw string) time.Time {
	t, err := Timestamp(raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
