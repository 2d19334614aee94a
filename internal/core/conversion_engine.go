package core

import (
	"fmt"
	"math"
	"strconv"

	"github.com/scigolib/mdf4/internal/utils"
)

// ResolvedConversion is a CC chain with every referenced text block and
// nested conversion inlined, so applying it to a raw sample requires no
// further file access.
type ResolvedConversion struct {
	Type ConversionType

	// Linear
	A, B float64

	// Rational: P1..P6 map to Values[0:6]
	Rational [6]float64

	// Algebraic
	Expression string

	// ValueToText / ValueRangeToText / StatusStringTable
	Pairs       []ValueTextPair
	Ranges      []ValueRangeTextPair
	DefaultText *string

	// TextToValue / TextRangeToText
	TextPairs  []TextValuePair
	TextRanges []TextRangeTextPair
	DefaultVal *float64
}

// ValueTextPair maps one raw integer value to display text.
type ValueTextPair struct {
	Value float64
	Text  string
}

// ValueRangeTextPair maps a closed raw-value range to display text.
type ValueRangeTextPair struct {
	Lo, Hi float64
	Text   string
}

// TextValuePair maps one exact input string to a physical value.
type TextValuePair struct {
	Text  string
	Value float64
}

// TextRangeTextPair maps a lexicographic text range to output text.
type TextRangeTextPair struct {
	Lo, Hi string
	Text   string
}

// ResolveConversion walks the CC at offset (and its TX/CC children)
// eagerly, producing a self-contained ResolvedConversion. offset == 0
// yields nil (no conversion: the channel's raw value is its physical
// value).
func ResolveConversion(r utils.ReaderAt, offset uint64) (*ResolvedConversion, error) {
	if offset == 0 {
		return nil, nil
	}
	cc, err := ParseCC(r, offset)
	if err != nil {
		return nil, err
	}

	rc := &ResolvedConversion{Type: cc.Type}

	switch cc.Type {
	case ConversionIdentity:
		// no parameters

	case ConversionLinear:
		if len(cc.Values) < 2 {
			return nil, utils.WrapError(fmt.Sprintf("resolving linear conversion at 0x%x", offset), utils.ErrConversion)
		}
		rc.A, rc.B = cc.Values[0], cc.Values[1]

	case ConversionRational:
		if len(cc.Values) < 6 {
			return nil, utils.WrapError(fmt.Sprintf("resolving rational conversion at 0x%x", offset), utils.ErrConversion)
		}
		copy(rc.Rational[:], cc.Values[:6])

	case ConversionAlgebraic:
		expr, err := ReadText(r, firstNonZero(cc.RefLinks))
		if err != nil {
			return nil, err
		}
		rc.Expression = expr

	case ConversionValueToText, ConversionValueRangeToText, ConversionStatusStringTable:
		if err := resolveLookupToText(r, cc, rc); err != nil {
			return nil, err
		}

	case ConversionTextToValue:
		if err := resolveTextToValue(r, cc, rc); err != nil {
			return nil, err
		}

	case ConversionTextRangeToText:
		if err := resolveTextRangeToText(r, cc, rc); err != nil {
			return nil, err
		}

	default:
		return nil, utils.WrapError(fmt.Sprintf("resolving conversion at 0x%x", offset), utils.ErrUnsupported)
	}

	return rc, nil
}

func firstNonZero(links []uint64) uint64 {
	for _, l := range links {
		if l != 0 {
			return l
		}
	}
	return 0
}

// resolveLookupToText handles ValueToText (exact match over cc.Values) and
// ValueRangeToText (closed [lo,hi] pairs in cc.Values), distinguished by
// cc.Type. A trailing text child beyond the value pairs is the default.
func resolveLookupToText(r utils.ReaderAt, cc *CC, rc *ResolvedConversion) error {
	isRange := cc.Type == ConversionValueRangeToText
	pairStride := 1
	if isRange {
		pairStride = 2
	}
	nPairs := len(cc.Values) / pairStride
	hasDefault := len(cc.RefLinks) == nPairs+1

	texts := make([]string, 0, len(cc.RefLinks))
	for _, link := range cc.RefLinks {
		text, err := ReadText(r, link)
		if err != nil {
			return err
		}
		texts = append(texts, text)
	}

	for i := 0; i < nPairs && i < len(texts); i++ {
		text := texts[i]
		if isRange {
			rc.Ranges = append(rc.Ranges, ValueRangeTextPair{Lo: cc.Values[i*2], Hi: cc.Values[i*2+1], Text: text})
		} else {
			rc.Pairs = append(rc.Pairs, ValueTextPair{Value: cc.Values[i], Text: text})
		}
	}
	if hasDefault {
		d := texts[nPairs]
		rc.DefaultText = &d
	}
	return nil
}

func resolveTextToValue(r utils.ReaderAt, cc *CC, rc *ResolvedConversion) error {
	for i, link := range cc.RefLinks {
		text, err := ReadText(r, link)
		if err != nil {
			return err
		}
		if i < len(cc.Values) {
			rc.TextPairs = append(rc.TextPairs, TextValuePair{Text: text, Value: cc.Values[i]})
		} else {
			// trailing value-less ref with no paired Values entry is the default text; ignore for value conversions
			_ = text
		}
	}
	if len(cc.Values) > len(cc.RefLinks) {
		d := cc.Values[len(cc.Values)-1]
		rc.DefaultVal = &d
	}
	return nil
}

func resolveTextRangeToText(r utils.ReaderAt, cc *CC, rc *ResolvedConversion) error {
	// Links: pairs of (lo_tx, hi_tx omitted; MDF stores bounds as Values,
	// texts as refs) followed by an optional default text ref.
	nPairs := len(cc.Values) / 2
	hasDefault := len(cc.RefLinks) == nPairs+1

	texts := make([]string, 0, len(cc.RefLinks))
	for _, link := range cc.RefLinks {
		text, err := ReadText(r, link)
		if err != nil {
			return err
		}
		texts = append(texts, text)
	}
	for i := 0; i < nPairs && i < len(texts); i++ {
		lo := strconv.FormatFloat(cc.Values[i*2], 'g', -1, 64)
		hi := strconv.FormatFloat(cc.Values[i*2+1], 'g', -1, 64)
		rc.TextRanges = append(rc.TextRanges, TextRangeTextPair{Lo: lo, Hi: hi, Text: texts[i]})
	}
	if hasDefault {
		d := texts[nPairs]
		rc.DefaultText = &d
	}
	return nil
}

// Apply converts a raw sample to its physical representation: a float64,
// a string, the raw value, or nil. A value-to-text or value-range-to-text
// lookup with no matching rule and no default returns the raw value; a
// text-to-value or text-range lookup with no match and no default, and a
// zero denominator, yield nil.
func (rc *ResolvedConversion) Apply(raw RawValue) (interface{}, error) {
	if rc == nil {
		return rawToInterface(raw), nil
	}

	switch rc.Type {
	case ConversionIdentity:
		return rawToInterface(raw), nil

	case ConversionLinear:
		x := rawToFloat(raw)
		return rc.A + rc.B*x, nil

	case ConversionRational:
		x := rawToFloat(raw)
		p := rc.Rational
		num := p[0]*x*x + p[1]*x + p[2]
		den := p[3]*x*x + p[4]*x + p[5]
		if den == 0 {
			return nil, nil
		}
		return num / den, nil

	case ConversionAlgebraic:
		return evalAlgebraic(rc.Expression, rawToFloat(raw))

	case ConversionValueToText, ConversionStatusStringTable:
		x := rawToFloat(raw)
		for _, p := range rc.Pairs {
			if p.Value == x {
				return p.Text, nil
			}
		}
		if rc.DefaultText != nil {
			return *rc.DefaultText, nil
		}
		return rawToInterface(raw), nil

	case ConversionValueRangeToText:
		x := rawToFloat(raw)
		for _, p := range rc.Ranges {
			if x >= p.Lo && x <= p.Hi {
				return p.Text, nil
			}
		}
		if rc.DefaultText != nil {
			return *rc.DefaultText, nil
		}
		return rawToInterface(raw), nil

	case ConversionTextToValue:
		s := string(raw.Bytes)
		for _, p := range rc.TextPairs {
			if p.Text == s {
				return p.Value, nil
			}
		}
		if rc.DefaultVal != nil {
			return *rc.DefaultVal, nil
		}
		return nil, nil

	case ConversionTextRangeToText:
		s := string(raw.Bytes)
		for _, p := range rc.TextRanges {
			if s >= p.Lo && s <= p.Hi {
				return p.Text, nil
			}
		}
		if rc.DefaultText != nil {
			return *rc.DefaultText, nil
		}
		return nil, nil

	default:
		return nil, utils.WrapError("applying conversion", utils.ErrUnsupported)
	}
}

func rawToFloat(raw RawValue) float64 {
	switch raw.Kind {
	case RawKindInt:
		return float64(raw.Int)
	case RawKindUint:
		return float64(raw.Uint)
	case RawKindFloat:
		return raw.Float
	default:
		return 0
	}
}

func rawToInterface(raw RawValue) interface{} {
	switch raw.Kind {
	case RawKindNone:
		return nil
	case RawKindBytes:
		return raw.Bytes
	case RawKindFloat:
		return raw.Float
	case RawKindInt:
		return raw.Int
	case RawKindUint:
		return raw.Uint
	default:
		return nil
	}
}

// EvalAlgebraic evaluates expr at X=x, using the same grammar as
// ConversionAlgebraic's Apply path. Exported so the index package can
// evaluate a resolved index's stored Expression without reconstructing a
// ResolvedConversion.
func EvalAlgebraic(expr string, x float64) (interface{}, error) {
	return evalAlgebraic(expr, x)
}

// evalAlgebraic evaluates a minimal arithmetic grammar over variable X:
// + - * / ^, parens, float literals. Division by zero yields nil, not an
// error, matching the conversion engine's no-match-is-not-fatal policy.
func evalAlgebraic(expr string, x float64) (interface{}, error) {
	p := &algParser{input: expr, x: x}
	val, err := p.parseExpr()
	if err != nil {
		return nil, utils.WrapError("evaluating algebraic conversion", fmt.Errorf("%w: %v", utils.ErrConversion, err))
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, utils.WrapError("evaluating algebraic conversion", fmt.Errorf("%w: trailing input %q", utils.ErrConversion, p.input[p.pos:]))
	}
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return nil, nil
	}
	return val, nil
}

type algParser struct {
	input string
	pos   int
	x     float64
}

func (p *algParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *algParser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return v, nil
		}
		switch p.input[p.pos] {
		case '+':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v += rhs
		case '-':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

func (p *algParser) parseTerm() (float64, error) {
	v, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return v, nil
		}
		switch p.input[p.pos] {
		case '*':
			p.pos++
			rhs, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			v *= rhs
		case '/':
			p.pos++
			rhs, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return math.NaN(), nil
			}
			v /= rhs
		default:
			return v, nil
		}
	}
}

func (p *algParser) parsePower() (float64, error) {
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == '^' {
		p.pos++
		rhs, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(v, rhs), nil
	}
	return v, nil
}

func (p *algParser) parseUnary() (float64, error) {
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == '-' {
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	}
	return p.parseAtom()
}

func (p *algParser) parseAtom() (float64, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	if p.input[p.pos] == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, fmt.Errorf("missing closing paren")
		}
		p.pos++
		return v, nil
	}
	if p.input[p.pos] == 'X' || p.input[p.pos] == 'x' {
		p.pos++
		return p.x, nil
	}
	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] == '.' || (p.input[p.pos] >= '0' && p.input[p.pos] <= '9')) {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("unexpected character %q", p.input[p.pos])
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}
