package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

func wantArgs(c Call, lo, hi int) error {
	if n := len(c.Args); n < lo || n > hi {
		if lo == hi {
			return BadRequest(fmt.Sprintf("%s takes %d argument(s), got %d", c.Op, lo, n))
		}
		return BadRequest(fmt.Sprintf("%s takes %d to %d argument(s), got %d", c.Op, lo, hi, n))
	}
	return nil
}

// stringArg decodes a JSON string.
func stringArg(c Call, i int) (string, error) {
	var s string
	if err := json.Unmarshal(c.Args[i], &s); err != nil {
		return "", BadRequest(fmt.Sprintf("%s argument %d must be a string", c.Op, i))
	}
	return s, nil
}

// stringsArg decodes a JSON array, coercing numbers and booleans to strings.
// null decodes to nil.
func stringsArg(c Call, i int) ([]string, error) {
	raw := bytes.TrimSpace(c.Args[i])
	if bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var items []any
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	if err := d.Decode(&items); err != nil {
		return nil, BadRequest(fmt.Sprintf("%s argument %d must be an array", c.Op, i))
	}
	out := make([]string, 0, len(items))
	for j, it := range items {
		switch v := it.(type) {
		case string:
			out = append(out, v)
		case json.Number:
			out = append(out, v.String())
		case bool:
			out = append(out, strconv.FormatBool(v))
		default:
			return nil, BadRequest(fmt.Sprintf("%s argument %d element %d must be a scalar", c.Op, i, j))
		}
	}
	return out, nil
}
