package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	ErrFieldOverflow   = errors.New("value exceeds field width")
	ErrFieldNotNumeric = errors.New("value must contain digits only")
	ErrAmountNegative  = errors.New("amount must not be negative")
	ErrAmountScale     = errors.New("amount has more decimals than the field allows")
)

type Justify int

const (
	// JustifyLeft keeps the text on the left and pads on the right.
	JustifyLeft Justify = iota
	// JustifyRight pads on the left, used for zero-padded numeric text.
	JustifyRight
)

type OverflowPolicy int

const (
	OverflowReject OverflowPolicy = iota
	OverflowTruncate
)

// FixedText is a fixed-width text field of the core-banking contract.
type FixedText struct {
	Name       string
	Width      int
	Pad        rune
	Justify    Justify
	Overflow   OverflowPolicy
	DigitsOnly bool
}

var (
	BatchField      = FixedText{Name: "batch", Width: 8, Pad: '0', Justify: JustifyRight, Overflow: OverflowReject, DigitsOnly: true}
	SequenceField   = FixedText{Name: "sequence", Width: 12, Pad: '0', Justify: JustifyRight, Overflow: OverflowReject, DigitsOnly: true}
	AccountField    = FixedText{Name: "account", Width: 16, Pad: '0', Justify: JustifyRight, Overflow: OverflowReject, DigitsOnly: true}
	CostCenterField = FixedText{Name: "cost_center", Width: 6, Pad: '0', Justify: JustifyRight, Overflow: OverflowReject}
	CurrencyField   = FixedText{Name: "currency", Width: 3, Pad: '0', Justify: JustifyRight, Overflow: OverflowReject, DigitsOnly: true}
	MarkerField     = FixedText{Name: "marker", Width: 1, Pad: ' ', Justify: JustifyLeft, Overflow: OverflowReject}

	DescriptionField     = FixedText{Name: "description", Width: 40, Pad: ' ', Justify: JustifyLeft, Overflow: OverflowTruncate}
	ResponseCodeField    = FixedText{Name: "response_code", Width: 2, Pad: ' ', Justify: JustifyLeft, Overflow: OverflowReject}
	ResponseMessageField = FixedText{Name: "response_message", Width: 100, Pad: ' ', Justify: JustifyLeft, Overflow: OverflowTruncate}
	TraceFileField       = FixedText{Name: "trace_file", Width: 50, Pad: ' ', Justify: JustifyLeft, Overflow: OverflowTruncate}
)

// Format trims surrounding blanks, applies the overflow policy and pads to Width.
func (f FixedText) Format(s string) (string, error) {
	s = strings.TrimSpace(s)
	if f.DigitsOnly && !isDigits(s) {
		return "", fmt.Errorf("%s %q: %w", f.Name, s, ErrFieldNotNumeric)
	}
	if n := utf8.RuneCountInString(s); n > f.Width {
		if f.Overflow == OverflowReject {
			return "", fmt.Errorf("%s %q (%d > %d): %w", f.Name, s, n, f.Width, ErrFieldOverflow)
		}
		s = string([]rune(s)[:f.Width])
	}
	padding := strings.Repeat(string(f.Pad), f.Width-utf8.RuneCountInString(s))
	if f.Justify == JustifyRight {
		return padding + s, nil
	}
	return s + padding, nil
}

// MustFormat is for values already known to fit, such as constants.
func (f FixedText) MustFormat(s string) string {
	v, err := f.Format(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Zero is the value that marks an unused field.
func (f FixedText) Zero() string {
	return strings.Repeat(string(f.Pad), f.Width)
}

// IsZero reports whether s carries nothing but padding (zeros or blanks).
func (f FixedText) IsZero(s string) bool {
	return strings.Trim(s, string(f.Pad)+" ") == ""
}

// Split cuts s into at most n fragments of Width runes; used for descriptions.
func (f FixedText) Split(s string, n int) []string {
	r := []rune(strings.TrimSpace(s))
	out := make([]string, 0, n)
	for len(r) > 0 && len(out) < n {
		end := f.Width
		if end > len(r) {
			end = len(r)
		}
		out = append(out, strings.TrimSpace(string(r[:end])))
		r = r[end:]
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return true
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// FixedDecimal is a signed-less packed/zoned numeric field.
type FixedDecimal struct {
	Name      string
	Precision int32
	Scale     int32
}

var (
	AmountField   = FixedDecimal{Name: "amount", Precision: 15, Scale: 2}
	TypeCodeField = FixedDecimal{Name: "type_code", Precision: 3, Scale: 0}
)

// Format checks the value fits the declared precision/scale and returns it at exactly Scale decimals.
func (f FixedDecimal) Format(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s %s: %w", f.Name, d.String(), ErrAmountNegative)
	}
	if !d.Equal(d.Truncate(f.Scale)) {
		return decimal.Zero, fmt.Errorf("%s %s: %w", f.Name, d.String(), ErrAmountScale)
	}
	limit := decimal.New(1, f.Precision-f.Scale)
	if d.GreaterThanOrEqual(limit) {
		return decimal.Zero, fmt.Errorf("%s %s (precision %d,%d): %w", f.Name, d.String(), f.Precision, f.Scale, ErrFieldOverflow)
	}
	return d.Round(f.Scale), nil
}

// String renders d with exactly Scale decimals, as sent over the wire.
func (f FixedDecimal) String(d decimal.Decimal) string {
	return d.StringFixed(f.Scale)
}
