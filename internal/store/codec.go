package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// TimeLayout is a fixed-width UTC layout. Fixed width keeps lexical order
// equal to chronological order for text-typed columns and keys.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// FormatTimePtr renders t, or nil when t is nil.
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

// ParseTime parses TimeLayout, falling back to RFC 3339 variants.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ParseNullTime parses a nullable column. Invalid values decode as nil.
func ParseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := ParseTime(s.String)
	if err != nil {
		return nil
	}
	return &t
}

// NormalizeTime returns t in UTC, or now when t is zero.
func NormalizeTime(t, now time.Time) time.Time {
	if t.IsZero() {
		return now.UTC()
	}
	return t.UTC()
}

// NormalizeTimePtr returns t in UTC, preserving nil.
func NormalizeTimePtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

// EncodeJSON serializes v for a text column. Empty values encode as NULL.
func EncodeJSON(v any) (*string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []string:
		if len(x) == 0 {
			return nil, nil
		}
	case map[string]any:
		if len(x) == 0 {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// DecodeJSON decodes a nullable text column into dst. Malformed JSON leaves
// dst untouched.
func DecodeJSON(s sql.NullString, dst any) {
	if !s.Valid || s.String == "" {
		return
	}
	_ = json.Unmarshal([]byte(s.String), dst)
}
