package debate

import (
	"encoding/json"
	"time"
)

// Timestamp is the opaque "at" attribute of verdict events. Producers send
// either an RFC 3339 string or epoch milliseconds; anything else decodes to
// the zero value rather than failing the event.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			t.Time = time.Time{}
			return nil
		}
		t.Time = parsed.UTC()
	case float64:
		t.Time = time.UnixMilli(int64(v)).UTC()
	default:
		t.Time = time.Time{}
	}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
