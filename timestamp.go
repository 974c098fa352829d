package deckcontent

import (
	"encoding/json"
	"time"
)

// timestampLayouts are the accepted wire forms, tried in order. The first
// entry is the form this library writes; the zoneless variants accept
// documents produced by tools that serialize local ISO-8601 without an offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp is a point in time serialized as an ISO-8601 string.
type Timestamp struct {
	time.Time

	// unparsable is set when UnmarshalJSON saw a value it could not decode.
	// The containing element resets both of its timestamps to the current
	// time when either one carries this flag.
	unparsable bool
}

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return Timestamp{Time: time.Now()}
}

// MarshalJSON writes the timestamp as an RFC 3339 string with nanoseconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts any of the timestampLayouts. A value that matches
// none of them does not fail the decode; it marks the timestamp unparsable
// and leaves recovery to the containing element.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		t.unparsable = true
		return nil
	}
	if s == "" {
		t.Time = time.Now()
		return nil
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			t.unparsable = false
			return nil
		}
	}
	t.unparsable = true
	return nil
}

// Equal reports whether two timestamps refer to the same instant.
func (t Timestamp) Equal(u Timestamp) bool {
	return t.Time.Equal(u.Time)
}
