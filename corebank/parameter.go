package corebank

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindChar  Kind = "CHAR"
	KindZoned Kind = "ZONED"
)

// Output parameters of the posting procedure.
const (
	OutputResponseCode    = "RSPCOD"
	OutputResponseMessage = "RSPMSG"
	OutputTraceFile       = "TRCFIL"
)

var ErrParameterShape = errors.New("parameter does not match its declared shape")

// Parameter is one typed input of a program call. Char values must already be exactly Width long;
// zoned values are rendered with exactly Scale decimals.
type Parameter struct {
	Name      string `json:"name"`
	Kind      Kind   `json:"type"`
	Width     int    `json:"length,omitempty"`
	Precision int32  `json:"precision,omitempty"`
	Scale     int32  `json:"scale,omitempty"`
	Value     string `json:"value"`
}

func Char(name string, width int, value string) Parameter {
	return Parameter{Name: name, Kind: KindChar, Width: width, Value: value}
}

func Zoned(name string, precision, scale int32, value decimal.Decimal) Parameter {
	return Parameter{Name: name, Kind: KindZoned, Precision: precision, Scale: scale, Value: value.StringFixed(scale)}
}

// Validate rejects any value that would be silently reinterpreted by the core.
func (p Parameter) Validate() error {
	switch p.Kind {
	case KindChar:
		if n := utf8.RuneCountInString(p.Value); n != p.Width {
			return fmt.Errorf("%w: %s is %d chars, want %d", ErrParameterShape, p.Name, n, p.Width)
		}
		return nil
	case KindZoned:
		d, err := decimal.NewFromString(p.Value)
		if err != nil {
			return fmt.Errorf("%w: %s %q: %v", ErrParameterShape, p.Name, p.Value, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("%w: %s is negative", ErrParameterShape, p.Name)
		}
		intPart, frac, _ := strings.Cut(p.Value, ".")
		if int32(len(frac)) != p.Scale {
			return fmt.Errorf("%w: %s %q needs %d decimals", ErrParameterShape, p.Name, p.Value, p.Scale)
		}
		if int32(len(strings.TrimLeft(intPart, "0"))) > p.Precision-p.Scale {
			return fmt.Errorf("%w: %s %q exceeds zoned(%d,%d)", ErrParameterShape, p.Name, p.Value, p.Precision, p.Scale)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s has unknown kind %q", ErrParameterShape, p.Name, p.Kind)
	}
}

// OutputSpec declares an expected output parameter.
type OutputSpec struct {
	Name  string `json:"name"`
	Kind  Kind   `json:"type"`
	Width int    `json:"length"`
}

var PostingOutputs = []OutputSpec{
	{Name: OutputResponseCode, Kind: KindChar, Width: 2},
	{Name: OutputResponseMessage, Kind: KindChar, Width: 100},
	{Name: OutputTraceFile, Kind: KindChar, Width: 50},
}

// Outputs are the trimmed output values of a completed call.
type Outputs struct {
	ResponseCode    string
	ResponseMessage string
	TraceFile       string
}
