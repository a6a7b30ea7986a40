package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmdatafocus/posting_backend/models"
	"github.com/shopspring/decimal"
)

type ResolveInput struct {
	Ecommerce            bool
	Profile              string
	Nature               models.Nature
	ClientAccount        string
	MerchantCode         string
	Currency             string
	Amount               decimal.Decimal
	ClientDescriptions   [3]string
	InternalDescriptions [3]string
}

// AccountResolution records which GL account was chosen and where it came from.
type AccountResolution struct {
	GLAccount  string
	CostCenter string
	TypeCode   int
	Source     models.ResolutionSource
	Variant    models.ControlVariant
	Resolved   bool
	// Diagnostic names the source consulted when Resolved is false.
	Diagnostic string
}

// ResolvedLegs are the two principal legs in posting order: leg 1 then leg 2.
type ResolvedLegs struct {
	Legs       [2]models.LedgerLeg
	Client     int
	Internal   int
	Resolution AccountResolution
}

func (r ResolvedLegs) ClientLeg() models.LedgerLeg   { return r.Legs[r.Client] }
func (r ResolvedLegs) InternalLeg() models.LedgerLeg { return r.Legs[r.Internal] }

// AccountResolver builds the client and internal (GL) legs of a posting.
type AccountResolver struct {
	lookups        models.LookupRepository
	typeCodeCredit int
	typeCodeDebit  int
}

func NewAccountResolver(lookups models.LookupRepository, typeCodeCredit, typeCodeDebit int) *AccountResolver {
	return &AccountResolver{lookups: lookups, typeCodeCredit: typeCodeCredit, typeCodeDebit: typeCodeDebit}
}

// TypeCodeFor returns the transaction type code of a leg with marker m.
func (r *AccountResolver) TypeCodeFor(m models.Marker) int {
	if m == models.MarkerCredit {
		return r.typeCodeCredit
	}
	return r.typeCodeDebit
}

// Resolve always returns both legs. A missing GL account is reported through Resolution.Resolved,
// not as an error; errors are lookup failures only.
func (r *AccountResolver) Resolve(ctx context.Context, in ResolveInput) (ResolvedLegs, error) {
	clientMarker := in.Nature.ClientMarker()
	internalMarker := clientMarker.Opposite()

	res := AccountResolution{
		TypeCode: r.TypeCodeFor(internalMarker),
		Variant:  models.ControlVariantFor(in.Ecommerce),
	}

	auto, err := r.lookups.AutoBalance(ctx, in.Profile)
	if err != nil {
		return ResolvedLegs{}, fmt.Errorf("auto-balance lookup: %w", err)
	}
	if auto != nil {
		res.Source = models.ResolutionSourceAutoBalance
		res.GLAccount, res.CostCenter = auto.Side(internalMarker)
		if strings.Trim(res.GLAccount, "0 ") == "" {
			res.Diagnostic = fmt.Sprintf("no %s GL account in auto-balance configuration (profile %s)", sideName(internalMarker), in.Profile)
		} else {
			res.Resolved = true
		}
	} else {
		res.Source = models.ResolutionSourceControlTable
		entries, err := r.lookups.ControlEntries(ctx, in.Profile, res.Variant)
		if err != nil {
			return ResolvedLegs{}, fmt.Errorf("control table lookup: %w", err)
		}
		if e, ok := models.FindControlEntry(entries, res.TypeCode); ok {
			res.GLAccount, res.CostCenter, res.Resolved = e.Account, e.CostCenter, true
		} else {
			res.Diagnostic = fmt.Sprintf("no GL account for type %d in control table (variant %s, profile %s)", res.TypeCode, res.Variant, in.Profile)
		}
	}

	accountType, err := r.lookups.ClassifyAccount(ctx, strings.TrimSpace(in.ClientAccount))
	if err != nil {
		return ResolvedLegs{}, fmt.Errorf("account type lookup: %w", err)
	}

	client := models.LedgerLeg{
		TypeCode:     r.TypeCodeFor(clientMarker),
		Account:      padOrRaw(models.AccountField, in.ClientAccount),
		Amount:       in.Amount,
		Marker:       clientMarker,
		CostCenter:   models.CostCenterField.Zero(),
		Currency:     padOrRaw(models.CurrencyField, in.Currency),
		AccountType:  accountType,
		Descriptions: in.ClientDescriptions,
	}
	internal := models.LedgerLeg{
		TypeCode:     res.TypeCode,
		Account:      models.AccountField.Zero(),
		Amount:       in.Amount,
		Marker:       internalMarker,
		CostCenter:   padOrRaw(models.CostCenterField, res.CostCenter),
		Currency:     client.Currency,
		Descriptions: in.InternalDescriptions,
	}
	if res.Resolved {
		internal.Account = padOrRaw(models.AccountField, res.GLAccount)
	}

	out := ResolvedLegs{Resolution: res}
	if in.Nature == models.NatureCredit {
		out.Legs = [2]models.LedgerLeg{internal, client}
		out.Internal, out.Client = 0, 1
	} else {
		out.Legs = [2]models.LedgerLeg{client, internal}
		out.Client, out.Internal = 0, 1
	}
	return out, nil
}

// padOrRaw leaves a value that does not fit untouched so leg validation reports it.
func padOrRaw(f models.FixedText, s string) string {
	v, err := f.Format(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return v
}

func sideName(m models.Marker) string {
	if m == models.MarkerDebit {
		return "debit"
	}
	return "credit"
}
