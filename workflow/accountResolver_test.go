package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/mmdatafocus/posting_backend/models"
	"github.com/shopspring/decimal"
)

func resolveFor(t *testing.T, lookups *fakeLookups, in ResolveInput) ResolvedLegs {
	t.Helper()
	r := NewAccountResolver(lookups, 210, 110)
	out, err := r.Resolve(context.Background(), in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return out
}

func baseInput(nature models.Nature) ResolveInput {
	return ResolveInput{
		Profile:       "P01",
		Nature:        nature,
		ClientAccount: "1234567890",
		MerchantCode:  "M001",
		Currency:      "340",
		Amount:        decimal.RequireFromString("100.00"),
	}
}

func TestResolve_NatureSymmetry(t *testing.T) {
	cases := []struct {
		nature         models.Nature
		clientMarker   models.Marker
		internalMarker models.Marker
		clientSlot     int
	}{
		{models.NatureCredit, models.MarkerCredit, models.MarkerDebit, 1},
		{models.NatureDebit, models.MarkerDebit, models.MarkerCredit, 0},
	}
	for _, tc := range cases {
		out := resolveFor(t, newFakeLookups(), baseInput(tc.nature))
		client, internal := out.ClientLeg(), out.InternalLeg()
		if out.Client != tc.clientSlot {
			t.Fatalf("nature %s: client leg expected in slot %d, got %d", tc.nature, tc.clientSlot+1, out.Client+1)
		}
		if client.Marker != tc.clientMarker || internal.Marker != tc.internalMarker {
			t.Fatalf("nature %s: markers client=%q internal=%q", tc.nature, client.Marker, internal.Marker)
		}
		if client.Marker != internal.Marker.Opposite() {
			t.Fatalf("nature %s: legs must take opposite sides", tc.nature)
		}
		if client.TypeCode == internal.TypeCode {
			t.Fatalf("nature %s: legs must use the opposite type code pair, both %d", tc.nature, client.TypeCode)
		}
		if !client.Amount.Equal(internal.Amount) {
			t.Fatalf("nature %s: amounts differ %s vs %s", tc.nature, client.Amount, internal.Amount)
		}
		for _, leg := range out.Legs {
			if leg.IsEmpty() {
				t.Fatalf("nature %s: both principal legs must be non-empty", tc.nature)
			}
		}
	}
}

func TestResolve_DebitNatureMirrorsLegs(t *testing.T) {
	out := resolveFor(t, newFakeLookups(), baseInput(models.NatureDebit))
	leg1, leg2 := out.Legs[0], out.Legs[1]

	if leg1.Marker != models.MarkerDebit || leg1.Account != "0000001234567890" {
		t.Fatalf("leg 1 should be the client debit, got %+v", leg1)
	}
	if leg2.Marker != models.MarkerCredit || leg2.Account != "9000000000000210" {
		t.Fatalf("leg 2 should be the GL credit, got %+v", leg2)
	}
	if !leg1.Amount.Equal(decimal.RequireFromString("100.00")) || !leg2.Amount.Equal(leg1.Amount) {
		t.Fatalf("expected 100.00 on both legs, got %s/%s", leg1.Amount, leg2.Amount)
	}
	if leg1.TypeCode != 110 || leg2.TypeCode != 210 {
		t.Fatalf("expected type codes 110/210, got %d/%d", leg1.TypeCode, leg2.TypeCode)
	}
	if leg2.CostCenter != "000102" {
		t.Fatalf("expected GL cost center 000102, got %q", leg2.CostCenter)
	}
	if leg1.AccountType != models.AccountTypeSavings {
		t.Fatalf("expected savings account type on client leg, got %d", leg1.AccountType)
	}
	if out.Resolution.Source != models.ResolutionSourceControlTable || out.Resolution.Variant != models.ControlVariantPOS {
		t.Fatalf("unexpected provenance %+v", out.Resolution)
	}
}

func TestResolve_EcommerceUsesEcomVariant(t *testing.T) {
	in := baseInput(models.NatureCredit)
	in.Ecommerce = true
	out := resolveFor(t, newFakeLookups(), in)
	if out.Resolution.Variant != models.ControlVariantEcommerce {
		t.Fatalf("expected ECOM variant, got %s", out.Resolution.Variant)
	}
	if out.InternalLeg().Account != "9100000000000110" {
		t.Fatalf("expected ECOM GL debit account, got %s", out.InternalLeg().Account)
	}
}

func TestResolve_MissingGLReportsSourceConsulted(t *testing.T) {
	lookups := newFakeLookups()
	lookups.entries[models.ControlVariantEcommerce] = []models.ControlEntry{
		{Position: 1, TypeCode: 110, Account: "9100000000000110", CostCenter: "000201"},
	}
	in := baseInput(models.NatureDebit)
	in.Ecommerce = true
	out := resolveFor(t, lookups, in)

	if out.Resolution.Resolved {
		t.Fatalf("expected unresolved GL account")
	}
	want := "no GL account for type 210 in control table (variant ECOM, profile P01)"
	if out.Resolution.Diagnostic != want {
		t.Fatalf("expected diagnostic %q, got %q", want, out.Resolution.Diagnostic)
	}
	if out.ClientLeg().IsEmpty() {
		t.Fatalf("client leg should still be built when GL is missing")
	}
}

func TestResolve_AutoBalanceTakesPrecedence(t *testing.T) {
	lookups := newFakeLookups()
	lookups.profiles["P01"] = &models.PostingProfile{
		Code:             "P01",
		AutoBalance:      true,
		DebitGLAccount:   "7000000000000001",
		DebitCostCenter:  "000301",
		CreditGLAccount:  "7000000000000002",
		CreditCostCenter: "000302",
	}

	credit := resolveFor(t, lookups, baseInput(models.NatureCredit))
	if credit.Resolution.Source != models.ResolutionSourceAutoBalance {
		t.Fatalf("expected auto-balance source, got %s", credit.Resolution.Source)
	}
	if credit.InternalLeg().Account != "7000000000000001" || credit.InternalLeg().CostCenter != "000301" {
		t.Fatalf("nature C should use the debit-side override, got %+v", credit.InternalLeg())
	}

	debit := resolveFor(t, lookups, baseInput(models.NatureDebit))
	if debit.InternalLeg().Account != "7000000000000002" || debit.InternalLeg().CostCenter != "000302" {
		t.Fatalf("nature D should use the credit-side override, got %+v", debit.InternalLeg())
	}
}

func TestResolve_AutoBalanceMissingSide(t *testing.T) {
	lookups := newFakeLookups()
	lookups.profiles["P01"] = &models.PostingProfile{Code: "P01", AutoBalance: true, DebitGLAccount: "7000000000000001"}
	out := resolveFor(t, lookups, baseInput(models.NatureDebit))
	if out.Resolution.Resolved {
		t.Fatalf("expected unresolved credit side")
	}
	if !strings.Contains(out.Resolution.Diagnostic, "auto-balance") || !strings.Contains(out.Resolution.Diagnostic, "credit") {
		t.Fatalf("diagnostic should name the auto-balance credit side, got %q", out.Resolution.Diagnostic)
	}
}

func TestResolve_LookupErrorIsReturned(t *testing.T) {
	lookups := newFakeLookups()
	lookups.err = errLookupDown
	_, err := NewAccountResolver(lookups, 210, 110).Resolve(context.Background(), baseInput(models.NatureDebit))
	if err == nil {
		t.Fatalf("expected lookup error")
	}
}
