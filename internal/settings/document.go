package settings

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Document is the flat option map. Every edit returns a new Document; the
// receiver is never modified.
type Document map[string]any

// Defaults returns a document holding every catalogue default.
func Defaults() Document {
	d := make(Document, len(Catalogue))
	for _, o := range Catalogue {
		d[o.Key] = o.Default
	}
	return d
}

// Seed returns a copy of d with values applied. Values for catalogue keys are
// coerced to the option's kind; unknown keys are kept as given.
func (d Document) Seed(values map[string]any) Document {
	out := d.clone()
	for k, v := range values {
		if o, ok := Lookup(k); ok {
			if cv, ok := coerce(o.Kind, v); ok {
				out[k] = cv
			}
			continue
		}
		out[k] = v
	}
	return out
}

// With returns a copy of d with key set to v.
func (d Document) With(key string, v any) Document {
	out := d.clone()
	out[key] = v
	return out
}

// Toggle flips a boolean option.
func (d Document) Toggle(key string) Document {
	b, _ := d[key].(bool)
	return d.With(key, !b)
}

// Cycle moves a choice option to its next value, wrapping around.
func (d Document) Cycle(key string) Document {
	o, ok := Lookup(key)
	if !ok || len(o.Choices) == 0 {
		return d
	}
	cur, _ := d[key].(string)
	next := o.Choices[0]
	for i, c := range o.Choices {
		if c == cur {
			next = o.Choices[(i+1)%len(o.Choices)]
			break
		}
	}
	return d.With(key, next)
}

// Adjust moves a number option by steps increments, clamped to its range.
func (d Document) Adjust(key string, steps int) Document {
	o, ok := Lookup(key)
	if !ok || o.Kind != KindNumber {
		return d
	}
	cur, ok := toFloat(d[key])
	if !ok {
		cur, _ = toFloat(o.Default)
	}
	v := cur + float64(steps)*o.Step
	// keep one-decimal steps free of float noise
	v = math.Round(v*1e6) / 1e6
	v = math.Max(o.Min, math.Min(o.Max, v))
	return d.With(key, v)
}

// SetText stores s for a text option, or parses it for a number option.
// Unparseable numbers leave d unchanged.
func (d Document) SetText(key, s string) Document {
	if o, ok := Lookup(key); ok && o.Kind == KindNumber {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return d
		}
		return d.With(key, f)
	}
	return d.With(key, s)
}

// Flags renders d as recorder arguments. Keys are sorted; true becomes
// "--key"; false, nil and empty strings are dropped; everything else becomes
// "--key", "value".
func (d Document) Flags() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var flags []string
	for _, k := range keys {
		switch v := d[k].(type) {
		case nil:
		case bool:
			if v {
				flags = append(flags, "--"+k)
			}
		case string:
			if v != "" {
				flags = append(flags, "--"+k, v)
			}
		default:
			flags = append(flags, "--"+k, FormatValue(v))
		}
	}
	return flags
}

// FormatValue renders a document value for flags and display.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func (d Document) clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func coerce(k Kind, v any) (any, bool) {
	switch k {
	case KindBool:
		switch t := v.(type) {
		case bool:
			return t, true
		case string:
			b, err := strconv.ParseBool(t)
			return b, err == nil
		}
		return nil, false
	case KindNumber:
		if f, ok := toFloat(v); ok {
			return f, true
		}
		if s, ok := v.(string); ok {
			f, err := strconv.ParseFloat(s, 64)
			return f, err == nil
		}
		return nil, false
	default:
		if s, ok := v.(string); ok {
			return s, true
		}
		return FormatValue(v), true
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	}
	return 0, false
}
