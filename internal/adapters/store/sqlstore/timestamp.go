package sqlstore

import (
	"fmt"
	"time"
)

// Fixed-width UTC so that TEXT columns in SQLite compare chronologically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type timestamp struct {
	Time  time.Time
	Valid bool
}

func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		ts.Time, ts.Valid = time.Time{}, false
		return nil
	case time.Time:
		ts.Time, ts.Valid = v.UTC(), true
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
}

func (ts *timestamp) parse(raw string) error {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			ts.Time, ts.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("scan timestamp: cannot parse %q", raw)
}

func (ts timestamp) ptr() *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
