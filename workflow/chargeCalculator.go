package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmdatafocus/posting_backend/models"
	"github.com/shopspring/decimal"
)

// MaxChargeLines is the number of leg slots left after the two principal legs.
const MaxChargeLines = 2

var (
	ErrTooManyChargeLines = errors.New("charge lines exceed posting slots")
	ErrNetNotPositive     = errors.New("charges consume the whole amount")
)

type ChargeLine struct {
	Code       string
	GLAccount  string
	CostCenter string
	Amount     decimal.Decimal
	Marker     models.Marker
}

type ChargeBreakdown struct {
	Gross decimal.Decimal
	Lines []ChargeLine
	Total decimal.Decimal
	Net   decimal.Decimal
}

// RoundHalfAwayFromZero rounds to places decimals; 0.005 becomes 0.01 and -0.005 becomes -0.01.
func RoundHalfAwayFromZero(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// CalculateCharges applies the rules in order to gross. A line is emitted only when its amount is
// strictly positive, and always carries the marker opposite to principal.
func CalculateCharges(gross decimal.Decimal, rules []models.ChargeRule, principal models.Marker) ChargeBreakdown {
	out := ChargeBreakdown{Gross: gross, Total: decimal.Zero}
	for _, rule := range rules {
		amount := RoundHalfAwayFromZero(gross.Mul(rule.Percentage), 2).Add(rule.FixedAmount)
		if !amount.IsPositive() {
			continue
		}
		out.Lines = append(out.Lines, ChargeLine{
			Code:       rule.Code,
			GLAccount:  strings.TrimSpace(rule.GLAccount),
			CostCenter: strings.TrimSpace(rule.CostCenter),
			Amount:     amount,
			Marker:     principal.Opposite(),
		})
		out.Total = out.Total.Add(amount)
	}
	out.Net = RoundHalfAwayFromZero(gross.Sub(out.Total), 2)
	return out
}

// Check rejects breakdowns that cannot be posted in one call.
func (b ChargeBreakdown) Check() error {
	if len(b.Lines) > MaxChargeLines {
		return fmt.Errorf("%w: %d lines, %d slots", ErrTooManyChargeLines, len(b.Lines), MaxChargeLines)
	}
	if !b.Net.IsPositive() {
		return fmt.Errorf("%w: gross %s, charges %s", ErrNetNotPositive, b.Gross.StringFixed(2), b.Total.StringFixed(2))
	}
	return nil
}

// ApplyCharges moves the charges off the leg opposite to the gross (debit) leg and appends one
// leg per charge line. Debits equal credits afterwards.
func ApplyCharges(principal ResolvedLegs, b ChargeBreakdown, typeCodeFor func(models.Marker) int) ([4]models.LedgerLeg, error) {
	legs := [4]models.LedgerLeg{principal.Legs[0], principal.Legs[1], models.EmptyLeg(), models.EmptyLeg()}
	if err := b.Check(); err != nil {
		return legs, err
	}
	if len(b.Lines) == 0 {
		return legs, nil
	}
	for i := range principal.Legs {
		if legs[i].IsCredit() {
			legs[i].Amount = b.Net
		}
	}
	currency := principal.ClientLeg().Currency
	for i, line := range b.Lines {
		legs[2+i] = models.LedgerLeg{
			TypeCode:     typeCodeFor(line.Marker),
			Account:      padOrRaw(models.AccountField, line.GLAccount),
			Amount:       line.Amount,
			Marker:       line.Marker,
			CostCenter:   padOrRaw(models.CostCenterField, line.CostCenter),
			Currency:     currency,
			Descriptions: [3]string{"CHARGE " + line.Code},
		}
	}
	return legs, nil
}
