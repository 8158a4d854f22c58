package appointment

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/Pairs34/CerrahPasaRandevu/internal/internaltypes"
)

// TimeSlot is the server's identifier for one bookable appointment time (the
// `saat` field). It keeps the JSON value exactly as received, so a numeric
// `saat` is sent back as a number.
type TimeSlot struct{ raw string }

// Slot returns a TimeSlot holding s as a JSON string.
func Slot(s string) TimeSlot { return TimeSlot{raw: quote(s)} }

func (t TimeSlot) String() string               { return text(t.raw) }
func (t TimeSlot) IsZero() bool                 { return t.raw == "" }
func (t TimeSlot) MarshalJSON() ([]byte, error) { return encodeRaw(t.raw), nil }

func (t *TimeSlot) UnmarshalJSON(b []byte) error {
	raw, err := decodeScalar(b)
	if err != nil {
		return err
	}
	t.raw = raw
	return nil
}

// Scalar is a profile field stored as a JSON string, number, bool or null.
// It is forwarded with the same JSON type it was stored with.
type Scalar struct{ raw string }

// Text returns a Scalar holding s as a JSON string.
func Text(s string) Scalar { return Scalar{raw: quote(s)} }

// ParseScalar reads a command-line value: a JSON number, true, false, null
// or quoted string keeps its JSON type, anything else becomes a string.
func ParseScalar(s string) Scalar {
	t := bytes.TrimSpace([]byte(s))
	if len(t) > 0 && json.Valid(t) {
		if raw, err := decodeScalar(t); err == nil {
			return Scalar{raw: raw}
		}
	}
	return Text(s)
}

func (s Scalar) String() string               { return text(s.raw) }
func (s Scalar) IsZero() bool                 { return s.raw == "" }
func (s Scalar) MarshalJSON() ([]byte, error) { return encodeRaw(s.raw), nil }

func (s *Scalar) UnmarshalJSON(b []byte) error {
	raw, err := decodeScalar(b)
	if err != nil {
		return err
	}
	s.raw = raw
	return nil
}

// decodeScalar returns the trimmed JSON text of a string, number, bool or
// null. Objects and arrays are rejected.
func decodeScalar(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return "", nil
	}
	if b[0] == '{' || b[0] == '[' {
		return "", fmt.Errorf("%w: expected scalar, got %.32s", internaltypes.ErrMalformed, b)
	}
	if !json.Valid(b) {
		return "", fmt.Errorf("%w: invalid JSON value %.32s", internaltypes.ErrMalformed, b)
	}
	return string(b), nil
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func text(raw string) string {
	switch {
	case raw == "" || raw == "null":
		return ""
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return s
		}
	}
	return raw
}

func encodeRaw(raw string) []byte {
	if raw == "" {
		return []byte("null")
	}
	return []byte(raw)
}

type field struct {
	key string
	raw string
}

// marshalObject writes fields in order and leaves out the ones never set,
// the way an undefined property disappears from a JSON body.
func marshalObject(fields []field) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(quote(f.key))
		buf.WriteByte(':')
		buf.WriteString(f.raw)
		n++
	}
	buf.WriteByte('}')
	return buf.Bytes()
}
