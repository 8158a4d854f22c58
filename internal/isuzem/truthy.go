package isuzem

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// truthy decodes any JSON value with JavaScript truthiness. false, 0, "",
// null and a missing field are false.
type truthy bool

func (t *truthy) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*t = false
		return nil
	}
	switch b[0] {
	case 'n', 'f':
		*t = false
	case 't', '{', '[':
		*t = true
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = s != ""
	default:
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return err
		}
		*t = f != 0
	}
	return nil
}
