package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/posting_backend/corebank"
	"github.com/mmdatafocus/posting_backend/models"
	"github.com/shopspring/decimal"
)

// PostingSlots is the fixed number of leg slots of the posting procedure.
const PostingSlots = 4

// ErrInvalidLeg means the call was never attempted because a leg does not fit the contract.
var ErrInvalidLeg = errors.New("leg does not fit the posting contract")

// PostingResult is the answer of the posting procedure. Answered is false when the core gave no
// usable response (Err is then set).
type PostingResult struct {
	Code      string
	Message   string
	TraceFile string
	Answered  bool
	Err       error
}

type LedgerPoster struct {
	caller      corebank.ProgramCaller
	procedure   string
	library     string
	successCode string
	timeout     time.Duration
}

func NewLedgerPoster(caller corebank.ProgramCaller, procedure, library, successCode string, timeout time.Duration) *LedgerPoster {
	return &LedgerPoster{caller: caller, procedure: procedure, library: library, successCode: successCode, timeout: timeout}
}

func (p *LedgerPoster) Succeeded(r PostingResult) bool {
	return r.Answered && r.Err == nil && r.Code == p.successCode
}

// Post invokes the procedure once under the configured deadline.
func (p *LedgerPoster) Post(ctx context.Context, legs [PostingSlots]models.LedgerLeg) PostingResult {
	params, err := BuildPostingCall(legs)
	if err != nil {
		return PostingResult{Err: fmt.Errorf("%w: %v", ErrInvalidLeg, err)}
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	out, err := p.caller.Call(ctx, p.procedure, p.library, params)
	if err != nil {
		var ce *corebank.CallError
		if !errors.As(err, &ce) {
			err = &corebank.CallError{Kind: corebank.FailureConnectivity, Err: err}
		}
		return PostingResult{Err: err}
	}
	return PostingResult{
		Code:      out.ResponseCode,
		Message:   out.ResponseMessage,
		TraceFile: out.TraceFile,
		Answered:  true,
	}
}

// BuildPostingCall renders the fixed call shape: per slot TYP, ATY, ACC, AMT, DC, CCO, MON, then
// three description fields for the debited side and three for the credited side.
func BuildPostingCall(legs [PostingSlots]models.LedgerLeg) ([]corebank.Parameter, error) {
	params := make([]corebank.Parameter, 0, PostingSlots*7+6)
	for i, leg := range legs {
		if err := leg.Validate(); err != nil {
			return nil, fmt.Errorf("slot %d: %w", i+1, err)
		}
		slot, err := slotParameters(i+1, leg)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i+1, err)
		}
		params = append(params, slot...)
	}
	debited, credited := sideDescriptions(legs)
	for i := 0; i < 3; i++ {
		params = append(params, corebank.Char(fmt.Sprintf("DSD%d", i+1), models.DescriptionField.Width, models.DescriptionField.MustFormat(debited[i])))
	}
	for i := 0; i < 3; i++ {
		params = append(params, corebank.Char(fmt.Sprintf("DSC%d", i+1), models.DescriptionField.Width, models.DescriptionField.MustFormat(credited[i])))
	}
	return params, nil
}

func slotParameters(n int, leg models.LedgerLeg) ([]corebank.Parameter, error) {
	if leg.IsEmpty() {
		return []corebank.Parameter{
			corebank.Zoned(fmt.Sprintf("TYP%d", n), models.TypeCodeField.Precision, 0, decimal.Zero),
			corebank.Zoned(fmt.Sprintf("ATY%d", n), 2, 0, decimal.Zero),
			corebank.Char(fmt.Sprintf("ACC%d", n), models.AccountField.Width, models.AccountField.Zero()),
			corebank.Zoned(fmt.Sprintf("AMT%d", n), models.AmountField.Precision, models.AmountField.Scale, decimal.Zero),
			corebank.Char(fmt.Sprintf("DC%d", n), models.MarkerField.Width, models.MarkerField.Zero()),
			corebank.Char(fmt.Sprintf("CCO%d", n), models.CostCenterField.Width, models.CostCenterField.Zero()),
			corebank.Char(fmt.Sprintf("MON%d", n), models.CurrencyField.Width, models.CurrencyField.Zero()),
		}, nil
	}
	typeCode, err := models.TypeCodeField.Format(decimal.NewFromInt(int64(leg.TypeCode)))
	if err != nil {
		return nil, err
	}
	account, err := models.AccountField.Format(leg.Account)
	if err != nil {
		return nil, err
	}
	amount, err := models.AmountField.Format(leg.Amount)
	if err != nil {
		return nil, err
	}
	costCenter, err := models.CostCenterField.Format(leg.CostCenter)
	if err != nil {
		return nil, err
	}
	currency, err := models.CurrencyField.Format(leg.Currency)
	if err != nil {
		return nil, err
	}
	return []corebank.Parameter{
		corebank.Zoned(fmt.Sprintf("TYP%d", n), models.TypeCodeField.Precision, 0, typeCode),
		corebank.Zoned(fmt.Sprintf("ATY%d", n), 2, 0, decimal.NewFromInt(int64(leg.AccountType))),
		corebank.Char(fmt.Sprintf("ACC%d", n), models.AccountField.Width, account),
		corebank.Zoned(fmt.Sprintf("AMT%d", n), models.AmountField.Precision, models.AmountField.Scale, amount),
		corebank.Char(fmt.Sprintf("DC%d", n), models.MarkerField.Width, string(leg.Marker)),
		corebank.Char(fmt.Sprintf("CCO%d", n), models.CostCenterField.Width, costCenter),
		corebank.Char(fmt.Sprintf("MON%d", n), models.CurrencyField.Width, currency),
	}, nil
}

// sideDescriptions takes the descriptions of the first debit and the first credit leg.
func sideDescriptions(legs [PostingSlots]models.LedgerLeg) (debited, credited [3]string) {
	var haveDebit, haveCredit bool
	for _, leg := range legs {
		if leg.IsEmpty() {
			continue
		}
		if leg.IsDebit() && !haveDebit {
			debited, haveDebit = leg.Descriptions, true
		}
		if leg.IsCredit() && !haveCredit {
			credited, haveCredit = leg.Descriptions, true
		}
	}
	return debited, credited
}
