package index

import (
	"github.com/scigolib/mdf4/internal/core"
	"github.com/scigolib/mdf4/internal/utils"
)

// applyConversion mirrors core.ResolvedConversion.Apply over the
// JSON-serializable Conversion representation, so decoding via a loaded
// index never needs to reconstruct a core.ResolvedConversion.
func applyConversion(c *Conversion, raw core.RawValue) (interface{}, error) {
	if c == nil {
		return rawToInterface(raw), nil
	}

	switch c.ConversionType {
	case "identity":
		return rawToInterface(raw), nil

	case "linear":
		return c.A + c.B*rawToFloat(raw), nil

	case "rational":
		if len(c.Rational) < 6 {
			return nil, utils.ErrConversion
		}
		x := rawToFloat(raw)
		p := c.Rational
		num := p[0]*x*x + p[1]*x + p[2]
		den := p[3]*x*x + p[4]*x + p[5]
		if den == 0 {
			return nil, nil
		}
		return num / den, nil

	case "value_to_text", "status_string_table":
		x := rawToFloat(raw)
		for _, p := range c.Pairs {
			if p.Value == x {
				return p.Text, nil
			}
		}
		if c.DefaultText != nil {
			return *c.DefaultText, nil
		}
		return rawToInterface(raw), nil

	case "value_range_to_text":
		x := rawToFloat(raw)
		for _, p := range c.Ranges {
			if x >= p.Lo && x <= p.Hi {
				return p.Text, nil
			}
		}
		if c.DefaultText != nil {
			return *c.DefaultText, nil
		}
		return rawToInterface(raw), nil

	case "text_to_value":
		s := string(raw.Bytes)
		for _, p := range c.TextPairs {
			if p.Text == s {
				return p.Value, nil
			}
		}
		if c.DefaultVal != nil {
			return *c.DefaultVal, nil
		}
		return nil, nil

	case "text_range_to_text":
		s := string(raw.Bytes)
		for _, p := range c.TextRanges {
			if s >= p.Lo && s <= p.Hi {
				return p.Text, nil
			}
		}
		if c.DefaultText != nil {
			return *c.DefaultText, nil
		}
		return nil, nil

	case "algebraic":
		return core.EvalAlgebraic(c.Expression, rawToFloat(raw))

	default:
		return nil, utils.ErrUnsupported
	}
}

func rawToFloat(raw core.RawValue) float64 {
	switch raw.Kind {
	case core.RawKindInt:
		return float64(raw.Int)
	case core.RawKindUint:
		return float64(raw.Uint)
	case core.RawKindFloat:
		return raw.Float
	default:
		return 0
	}
}

func rawToInterface(raw core.RawValue) interface{} {
	switch raw.Kind {
	case core.RawKindNone:
		return nil
	case core.RawKindBytes:
		return raw.Bytes
	case core.RawKindFloat:
		return raw.Float
	case core.RawKindInt:
		return raw.Int
	case core.RawKindUint:
		return raw.Uint
	default:
		return nil
	}
}
