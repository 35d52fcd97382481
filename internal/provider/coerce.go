package provider

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Coercer turns loosely typed provider numbers into finite floats.
// Values that are present but cannot be parsed become 0 and their field
// name is remembered so the resulting Quote can report them.
type Coercer struct {
	unparsed []string
}

// Float parses v. Absent values (nil, empty string) yield 0 without being
// flagged.
func (c *Coercer) Float(field string, v any) float64 {
	f, present, ok := ParseFloat(v)
	if present && !ok {
		c.unparsed = append(c.unparsed, field)
	}
	return f
}

// Price is Float with the additional rule that negative values are invalid.
func (c *Coercer) Price(field string, v any) float64 {
	f := c.Float(field, v)
	if f < 0 {
		c.unparsed = append(c.unparsed, field)
		return 0
	}
	return f
}

// Optional returns nil for absent values and a pointer otherwise.
func (c *Coercer) Optional(field string, v any) *float64 {
	if _, present, _ := ParseFloat(v); !present {
		return nil
	}
	f := c.Float(field, v)
	return &f
}

// Unparsed returns the flagged field names, or nil.
func (c *Coercer) Unparsed() []string {
	if len(c.unparsed) == 0 {
		return nil
	}
	out := make([]string, len(c.unparsed))
	copy(out, c.unparsed)
	return out
}

// ParseFloat accepts float64, json.Number, ints, numeric strings (optionally
// suffixed with %) and pointers to those. present reports whether v carried
// any value at all; ok reports whether it parsed to a finite number.
func ParseFloat(v any) (f float64, present bool, ok bool) {
	switch x := v.(type) {
	case nil:
		return 0, false, false
	case *float64:
		if x == nil {
			return 0, false, false
		}
		return finite(*x)
	case *string:
		if x == nil {
			return 0, false, false
		}
		return ParseFloat(*x)
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x), true, true
	case int64:
		return float64(x), true, true
	case json.Number:
		return ParseFloat(string(x))
	case string:
		s := strings.TrimSpace(x)
		s = strings.TrimSuffix(s, "%")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return 0, false, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, true, false
		}
		return finite(d.InexactFloat64())
	default:
		return 0, true, false
	}
}

func finite(f float64) (float64, bool, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true, false
	}
	return f, true, true
}

// Series parses an ordered list of samples, dropping entries that are absent
// or unparseable. A dropped present entry flags field once.
func (c *Coercer) Series(field string, vs []any) []float64 {
	if len(vs) == 0 {
		return nil
	}
	out := make([]float64, 0, len(vs))
	flagged := false
	for _, v := range vs {
		f, present, ok := ParseFloat(v)
		if !ok {
			if present && !flagged {
				c.unparsed = append(c.unparsed, field)
				flagged = true
			}
			continue
		}
		out = append(out, f)
	}
	return out
}
