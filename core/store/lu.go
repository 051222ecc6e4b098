package store

import (
	"fmt"
	"time"
)

const (
	isoMillisLayout = "2006-01-02T15:04:05.000"
	isoSecondLayout = "2006-01-02T15:04:05"
)

// LuCodec controls how a store's last-updated field round-trips between
// its stored representation and a native time.Time.
type LuCodec struct {
	// Decode converts a stored last-updated value to a time.Time.
	Decode func(v any) (time.Time, error)
	// Encode converts a time.Time to the stored representation.
	Encode func(t time.Time) any
}

// ISOCodec returns the default last-updated codec: naive-UTC ISO-8601
// strings with millisecond precision. Encoding ceils the timestamp to the
// next millisecond before formatting, so a decoded value is never earlier
// than the time that was encoded even though sub-millisecond precision is
// lost. This prioritizes not reprocessing items on incremental rebuilds
// over catching a source document updated within 1ms of a get_items pass.
func ISOCodec() LuCodec {
	return LuCodec{
		Decode: isoToTime,
		Encode: func(t time.Time) any { return timeToISOCeilMillis(t) },
	}
}

// timeToISOCeilMillis formats t as ISO-8601 with millisecond precision,
// ceiled to the next millisecond.
func timeToISOCeilMillis(t time.Time) string {
	return t.UTC().Add(time.Millisecond).Format(isoMillisLayout)
}

// isoToTime parses an ISO-8601 string, accepting both millisecond and
// whole-second precision. time.Time values pass through unchanged.
func isoToTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		if ts, err := time.Parse(isoMillisLayout, t); err == nil {
			return ts, nil
		}
		if ts, err := time.Parse(isoSecondLayout, t); err == nil {
			return ts, nil
		}
		return time.Time{}, fmt.Errorf("cannot parse last-updated value %q", t)
	default:
		return time.Time{}, fmt.Errorf("cannot decode last-updated value of type %T", v)
	}
}
