package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// localDateTimeLayouts covers the zone-less timestamps the review API emits alongside RFC 3339.
var localDateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Timestamp decodes both RFC 3339 and zone-less "2006-01-02T15:04:05" values; zone-less
// values are read as UTC.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range localDateTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", raw)
}
