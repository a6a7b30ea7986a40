package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Marker is the one-character debit/credit indicator of a leg.
type Marker string

const (
	MarkerDebit  Marker = "D"
	MarkerCredit Marker = "C"
	MarkerNone   Marker = " "
)

func (m Marker) Opposite() Marker {
	switch m {
	case MarkerDebit:
		return MarkerCredit
	case MarkerCredit:
		return MarkerDebit
	default:
		return MarkerNone
	}
}

var (
	ErrLegHalfEmpty = errors.New("leg must have both account and amount, or neither")
	ErrLegMarker    = errors.New("leg with an amount needs a debit or credit marker")
)

// LedgerLeg is one posting line sent to the core. A leg whose account is all zeros and whose
// amount is zero is unused; the core treats it as a no-op.
type LedgerLeg struct {
	TypeCode     int
	Account      string
	Amount       decimal.Decimal
	Marker       Marker
	CostCenter   string
	Currency     string
	AccountType  AccountType
	Descriptions [3]string
}

// EmptyLeg fills an unused slot.
func EmptyLeg() LedgerLeg {
	return LedgerLeg{
		Account:    AccountField.Zero(),
		Amount:     decimal.Zero,
		Marker:     MarkerNone,
		CostCenter: CostCenterField.Zero(),
		Currency:   CurrencyField.Zero(),
	}
}

func (l LedgerLeg) IsEmpty() bool {
	return AccountField.IsZero(l.Account) && l.Amount.IsZero()
}

func (l LedgerLeg) IsDebit() bool  { return l.Marker == MarkerDebit }
func (l LedgerLeg) IsCredit() bool { return l.Marker == MarkerCredit }

// Validate enforces the unused-slot convention and the field widths of the contract.
func (l LedgerLeg) Validate() error {
	zeroAccount := AccountField.IsZero(l.Account)
	zeroAmount := l.Amount.IsZero()
	if zeroAccount != zeroAmount {
		return fmt.Errorf("%w (account=%q amount=%s)", ErrLegHalfEmpty, l.Account, l.Amount.String())
	}
	if zeroAmount {
		return nil
	}
	if l.Marker != MarkerDebit && l.Marker != MarkerCredit {
		return fmt.Errorf("%w (marker=%q)", ErrLegMarker, l.Marker)
	}
	if _, err := AccountField.Format(l.Account); err != nil {
		return err
	}
	if _, err := CostCenterField.Format(l.CostCenter); err != nil {
		return err
	}
	if _, err := AmountField.Format(l.Amount); err != nil {
		return err
	}
	return nil
}
