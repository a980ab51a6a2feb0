package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayouts are tried in order for string timestamps. The zone-less
// layouts are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a raw JSON timestamp value. Strings are matched against
// the known layouts, numbers are taken as epoch milliseconds and a missing or
// null value yields the zero time.
func ParseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("unable to parse timestamp: %w", err)
		}
		if s == "" {
			return time.Time{}, nil
		}
		return parseTimeString(s)
	default:
		var millis json.Number
		if err := json.Unmarshal(raw, &millis); err != nil {
			return time.Time{}, fmt.Errorf("unsupported timestamp value: %s", raw)
		}
		ms, err := millis.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("unsupported timestamp value: %s", raw)
		}
		return time.UnixMilli(ms).UTC(), nil
	}
}

func parseTimeString(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp string: %s", s)
}
