package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Nature is the side taken by the customer-facing leg.
type Nature string

const (
	NatureCredit Nature = "C"
	NatureDebit  Nature = "D"
)

func (n Nature) IsValid() bool {
	return n == NatureCredit || n == NatureDebit
}

// ClientMarker is the marker of the client leg; the internal leg always takes the opposite.
func (n Nature) ClientMarker() Marker {
	if n == NatureCredit {
		return MarkerCredit
	}
	return MarkerDebit
}

func (n *Nature) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("accounting nature must be a string: %w", err)
	}
	// validity is a business rule, checked after the request is reserved
	*n = Nature(strings.ToUpper(strings.TrimSpace(s)))
	return nil
}

type ReservationStatus string

const (
	ReservationStatusPending  ReservationStatus = "Pending"
	ReservationStatusApproved ReservationStatus = "Approved"
	ReservationStatusRejected ReservationStatus = "Rejected"
)

func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusApproved || s == ReservationStatusRejected
}

// AccountType is the core-banking numeric classification of a client account.
type AccountType int

const (
	AccountTypeSavings  AccountType = 1
	AccountTypeChecking AccountType = 6
	AccountTypeOther    AccountType = 40
)

// AccountTypeForProductClass maps the account master product class to the posting account type.
func AccountTypeForProductClass(class string) AccountType {
	switch strings.ToUpper(strings.TrimSpace(class)) {
	case "AH":
		return AccountTypeSavings
	case "CC":
		return AccountTypeChecking
	default:
		return AccountTypeOther
	}
}

type TerminalClass string

const (
	TerminalClassPhysical  TerminalClass = "PHYSICAL"
	TerminalClassEcommerce TerminalClass = "ECOMMERCE"
)

// ClassifyTerminal treats identifiers starting with E (any case) as virtual terminals.
func ClassifyTerminal(terminalId string) TerminalClass {
	id := strings.TrimSpace(terminalId)
	if id != "" && (id[0] == 'E' || id[0] == 'e') {
		return TerminalClassEcommerce
	}
	return TerminalClassPhysical
}

// ControlVariant selects which control record is consulted.
type ControlVariant string

const (
	ControlVariantPOS       ControlVariant = "POS"
	ControlVariantEcommerce ControlVariant = "ECOM"
)

func ControlVariantFor(ecommerce bool) ControlVariant {
	if ecommerce {
		return ControlVariantEcommerce
	}
	return ControlVariantPOS
}

// ResolutionSource records where the GL account came from.
type ResolutionSource string

const (
	ResolutionSourceAutoBalance  ResolutionSource = "AUTO_BALANCE"
	ResolutionSourceControlTable ResolutionSource = "CONTROL_TABLE"
)
