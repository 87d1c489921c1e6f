package types

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// HomeManager is one reading from the portal's homemanager endpoint. The
// ratios and consumption values are reported verbatim by the portal.
type HomeManager struct {
	TotalConsumption     Metric                `json:"TotalConsumption"`
	GridConsumption      Metric                `json:"GridConsumption"`
	SelfConsumption      Metric                `json:"SelfConsumption"`
	SelfConsumptionQuote Metric                `json:"SelfConsumptionQuote"`
	AutarkyQuote         Metric                `json:"AutarkyQuote"`
	Timestamp            *HomeManagerTimestamp `json:"Timestamp"`

	InfoMessages    []Message `json:"InfoMessages"`
	WarningMessages []Message `json:"WarningMessages"`
	ErrorMessages   []Message `json:"ErrorMessages"`
}

// HomeManagerTimestamp is the portal's timestamp object. DateTime is kept as
// the portal formats it.
type HomeManagerTimestamp struct {
	DateTime string `json:"DateTime"`
}

// Valid reports whether the reading carries a timestamp. The portal answers
// with well-formed JSON but no timestamp once the session has expired, so a
// reading without one means the session is gone.
func (h HomeManager) Valid() bool {
	return h.Timestamp != nil && h.Timestamp.DateTime != ""
}

// DateTime returns the portal timestamp or an empty string.
func (h HomeManager) DateTime() string {
	if h.Timestamp == nil {
		return ""
	}
	return h.Timestamp.DateTime
}

// Message is one entry of an info/warning/error list. The portal sends plain
// strings; anything else is kept as its compact JSON text.
type Message string

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = Message(s)
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return err
	}
	*m = Message(buf.String())
	return nil
}

// Metric is one reading as the portal reported it. A null or missing reading
// has no value. Numbers sent as strings are read as numbers; any other value
// is kept as its JSON text.
type Metric struct {
	v any
}

// NewMetric returns a Metric holding f.
func NewMetric(f float64) Metric {
	return Metric{v: f}
}

// Value returns nil, a float64 or a string.
func (m Metric) Value() any {
	return m.v
}

// Float64 returns the reading and whether it was numeric.
func (m Metric) Float64() (float64, bool) {
	f, ok := m.v.(float64)
	return f, ok
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metric) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		m.v = nil
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		m.v = f
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			m.v = f
		} else {
			m.v = s
		}
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return err
	}
	m.v = buf.String()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m Metric) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.v)
}
