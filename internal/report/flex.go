package report

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Text is a string field that also accepts JSON numbers and booleans, which
// upstream agents emit interchangeably for codes and years.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(data)
	return nil
}

func (t Text) String() string { return string(t) }

// Number is a numeric field that also accepts numeric strings such as "0.85"
// or "72%". A missing or unparseable value leaves Valid false.
type Number struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSuffix(strings.TrimSpace(s), "%")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	*n = Number{Value: v, Valid: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Format renders the number without trailing zeros, or "" when missing.
func (n Number) Format() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// Percent renders a 0..1 ratio as a percentage; values above 1 are assumed
// to already be percentages.
func (n Number) Percent() string {
	if !n.Valid {
		return ""
	}
	v := n.Value
	if v <= 1 {
		v *= 100
	}
	return strconv.FormatFloat(v, 'f', 0, 64) + "%"
}

// Strings is a list field that also accepts a single string or a
// comma-separated string.
type Strings []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Strings) UnmarshalJSON(data []byte) error {
	*s = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '[':
		var items []Text
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		for _, it := range items {
			if v := strings.TrimSpace(string(it)); v != "" {
				*s = append(*s, v)
			}
		}
	case '"':
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		for _, part := range strings.Split(one, ",") {
			if v := strings.TrimSpace(part); v != "" {
				*s = append(*s, v)
			}
		}
	default:
		*s = Strings{string(data)}
	}
	return nil
}

// Flag is a boolean field that also accepts "yes"/"no"/"true"/"false"
// strings. Valid is false when the value is missing.
type Flag struct {
	Value bool
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	*f = Flag{}
	data = bytes.TrimSpace(data)
	switch strings.ToLower(strings.Trim(string(data), `"`)) {
	case "true", "yes", "y", "1", "present", "found":
		*f = Flag{Value: true, Valid: true}
	case "false", "no", "n", "0", "missing", "absent", "not_found":
		*f = Flag{Value: false, Valid: true}
	}
	return nil
}

// Label renders the flag as Yes/No, or "" when missing.
func (f Flag) Label() string {
	if !f.Valid {
		return ""
	}
	if f.Value {
		return "Yes"
	}
	return "No"
}
