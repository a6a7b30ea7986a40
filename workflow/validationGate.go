package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmdatafocus/posting_backend/models"
)

// GateError is a business rejection detected before any resolution or posting work.
type GateError struct {
	Code    OutcomeCode
	Reason  string
	Message string
}

func (e *GateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s/%s: %s", e.Code.Name(), e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code.Name(), e.Message)
}

func validationError(reason, format string, args ...interface{}) *GateError {
	return &GateError{Code: OutcomeValidationFailure, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

type GateResult struct {
	TerminalClass models.TerminalClass
	Profile       models.PostingProfile
}

func (r GateResult) Ecommerce() bool { return r.TerminalClass == models.TerminalClassEcommerce }

// ValidationGate runs the ordered, fail-fast preconditions of a posting.
// Lookup failures are returned as plain errors, business failures as *GateError.
type ValidationGate struct {
	lookups models.LookupRepository
}

func NewValidationGate(lookups models.LookupRepository) *ValidationGate {
	return &ValidationGate{lookups: lookups}
}

func (g *ValidationGate) Check(ctx context.Context, req PostingRequest, profile string) (GateResult, error) {
	if err := checkAmounts(req); err != nil {
		return GateResult{}, err
	}

	merchantCode := strings.TrimSpace(req.MerchantCode)
	ok, err := g.lookups.MerchantExists(ctx, merchantCode, strings.TrimSpace(req.Account))
	if err != nil {
		return GateResult{}, fmt.Errorf("merchant lookup: %w", err)
	}
	if !ok {
		return GateResult{}, validationError(ReasonMerchant, "merchant %s not registered for account %s", merchantCode, strings.TrimSpace(req.Account))
	}

	terminal := strings.TrimSpace(req.Terminal)
	ok, err = g.lookups.TerminalExists(ctx, merchantCode, terminal)
	if err != nil {
		return GateResult{}, fmt.Errorf("terminal lookup: %w", err)
	}
	if !ok {
		return GateResult{}, validationError(ReasonTerminal, "terminal %s not registered for merchant %s", terminal, merchantCode)
	}
	result := GateResult{TerminalClass: models.ClassifyTerminal(terminal)}

	if strings.TrimSpace(profile) == "" {
		return GateResult{}, &GateError{Code: OutcomeConfigurationMissing, Message: "posting profile not configured"}
	}
	p, err := g.lookups.FindProfile(ctx, profile)
	if err != nil {
		return GateResult{}, fmt.Errorf("profile lookup: %w", err)
	}
	if p == nil {
		return GateResult{}, &GateError{Code: OutcomeConfigurationMissing, Message: fmt.Sprintf("posting profile %s not found", profile)}
	}
	result.Profile = *p
	return result, nil
}

func checkAmounts(req PostingRequest) *GateError {
	debit, credit := req.DebitAmount, req.CreditAmount
	if debit.IsNegative() || credit.IsNegative() {
		return validationError(ReasonAmount, "amounts must not be negative (debit=%s credit=%s)", debit.String(), credit.String())
	}
	if debit.IsPositive() == credit.IsPositive() {
		return validationError(ReasonAmount, "exactly one of debit or credit must be positive (debit=%s credit=%s)", debit.String(), credit.String())
	}
	if _, err := models.AmountField.Format(req.GrossAmount()); err != nil {
		return validationError(ReasonAmount, "%v", err)
	}
	switch req.AccountingNature {
	case models.NatureDebit:
		if !debit.IsPositive() {
			return validationError(ReasonNature, "nature D requires a debit amount")
		}
	case models.NatureCredit:
		if !credit.IsPositive() {
			return validationError(ReasonNature, "nature C requires a credit amount")
		}
	default:
		return validationError(ReasonNature, "invalid accounting nature %q", req.AccountingNature)
	}
	return nil
}
