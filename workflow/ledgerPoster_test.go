package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/posting_backend/corebank"
	"github.com/mmdatafocus/posting_backend/models"
	"github.com/shopspring/decimal"
)

func sampleLegs() [PostingSlots]models.LedgerLeg {
	return [PostingSlots]models.LedgerLeg{
		{
			TypeCode: 110, Account: "0000001234567890", Amount: decimal.RequireFromString("100"),
			Marker: models.MarkerDebit, CostCenter: "000000", Currency: "340", AccountType: models.AccountTypeChecking,
			Descriptions: [3]string{"Settlement of card sales"},
		},
		{
			TypeCode: 210, Account: "9000000000000210", Amount: decimal.RequireFromString("100"),
			Marker: models.MarkerCredit, CostCenter: "000102", Currency: "340",
			Descriptions: [3]string{"Corner Store", "MERCHANT M001 TERMINAL T0001", "BATCH 00000001 SEQ 000000000001"},
		},
		models.EmptyLeg(),
		models.EmptyLeg(),
	}
}

func paramMap(params []corebank.Parameter) map[string]corebank.Parameter {
	m := make(map[string]corebank.Parameter, len(params))
	for _, p := range params {
		m[p.Name] = p
	}
	return m
}

func TestBuildPostingCall_FixedShape(t *testing.T) {
	params, err := BuildPostingCall(sampleLegs())
	if err != nil {
		t.Fatalf("BuildPostingCall: %v", err)
	}
	if len(params) != PostingSlots*7+6 {
		t.Fatalf("expected %d parameters, got %d", PostingSlots*7+6, len(params))
	}
	var names []string
	for _, p := range params {
		names = append(names, p.Name)
		if err := p.Validate(); err != nil {
			t.Fatalf("parameter %s does not match its shape: %v", p.Name, err)
		}
	}
	if names[0] != "TYP1" || names[6] != "MON1" || names[7] != "TYP2" || names[28] != "DSD1" || names[33] != "DSC3" {
		t.Fatalf("unexpected parameter order %v", names)
	}

	m := paramMap(params)
	checks := map[string]string{
		"TYP1": "110",
		"ATY1": "6",
		"ACC1": "0000001234567890",
		"AMT1": "100.00",
		"DC1":  "D",
		"CCO1": "000000",
		"MON1": "340",
		"TYP2": "210",
		"ACC2": "9000000000000210",
		"DC2":  "C",
		"CCO2": "000102",
	}
	for name, want := range checks {
		if got := m[name].Value; got != want {
			t.Fatalf("%s expected %q, got %q", name, want, got)
		}
	}
	if m["AMT1"].Precision != 15 || m["AMT1"].Scale != 2 || m["ACC1"].Width != 16 || m["DSD1"].Width != 40 {
		t.Fatalf("contract widths changed: %+v %+v %+v", m["AMT1"], m["ACC1"], m["DSD1"])
	}
	if got := strings.TrimRight(m["DSD1"].Value, " "); got != "Settlement of card sales" {
		t.Fatalf("debited side description expected from the debit leg, got %q", got)
	}
	if got := strings.TrimRight(m["DSC2"].Value, " "); got != "MERCHANT M001 TERMINAL T0001" {
		t.Fatalf("credited side description expected from the credit leg, got %q", got)
	}
}

func TestBuildPostingCall_UnusedSlotsAreZeroFilled(t *testing.T) {
	params, err := BuildPostingCall(sampleLegs())
	if err != nil {
		t.Fatalf("BuildPostingCall: %v", err)
	}
	m := paramMap(params)
	for _, slot := range []int{3, 4} {
		want := map[string]string{
			"TYP": "0",
			"ATY": "0",
			"ACC": strings.Repeat("0", 16),
			"AMT": "0.00",
			"DC":  " ",
			"CCO": "000000",
			"MON": "000",
		}
		for prefix, v := range want {
			name := fmt.Sprintf("%s%d", prefix, slot)
			if m[name].Value != v {
				t.Fatalf("%s expected %q, got %q", name, v, m[name].Value)
			}
		}
	}
}

func TestBuildPostingCall_RejectsHalfEmptyLeg(t *testing.T) {
	legs := sampleLegs()
	legs[1].Account = models.AccountField.Zero()
	_, err := BuildPostingCall(legs)
	if !errors.Is(err, models.ErrLegHalfEmpty) {
		t.Fatalf("expected ErrLegHalfEmpty, got %v", err)
	}
}

func TestBuildPostingCall_LongDescriptionIsTruncated(t *testing.T) {
	legs := sampleLegs()
	legs[0].Descriptions[0] = strings.Repeat("x", 55)
	params, err := BuildPostingCall(legs)
	if err != nil {
		t.Fatalf("BuildPostingCall: %v", err)
	}
	if v := paramMap(params)["DSD1"].Value; v != strings.Repeat("x", 40) {
		t.Fatalf("expected description truncated to 40, got %q", v)
	}
}

func TestLedgerPoster_Post(t *testing.T) {
	caller := &fakeCaller{out: corebank.Outputs{ResponseCode: "00", ResponseMessage: "OK", TraceFile: "TRC1"}}
	p := NewLedgerPoster(caller, "PSTMOV", "CORELIB", "00", time.Second)

	res := p.Post(context.Background(), sampleLegs())
	if !p.Succeeded(res) || res.TraceFile != "TRC1" {
		t.Fatalf("expected success, got %+v", res)
	}

	caller.out = corebank.Outputs{ResponseCode: "14", ResponseMessage: "INSUFFICIENT FUNDS"}
	res = p.Post(context.Background(), sampleLegs())
	if p.Succeeded(res) || !res.Answered || res.Message != "INSUFFICIENT FUNDS" {
		t.Fatalf("expected an answered rejection, got %+v", res)
	}

	caller.err = errors.New("connection reset")
	res = p.Post(context.Background(), sampleLegs())
	if res.Answered || !corebank.IsCallError(res.Err) {
		t.Fatalf("expected an unanswered call error, got %+v", res)
	}
}

func TestLedgerPoster_PostHonorsDeadline(t *testing.T) {
	caller := &fakeCaller{block: true}
	p := NewLedgerPoster(caller, "PSTMOV", "CORELIB", "00", 20*time.Millisecond)

	start := time.Now()
	res := p.Post(context.Background(), sampleLegs())
	if res.Answered || res.Err == nil {
		t.Fatalf("expected timeout failure, got %+v", res)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("call deadline not applied")
	}
}

func TestLedgerPoster_InvalidLegIsNotSent(t *testing.T) {
	caller := &fakeCaller{}
	p := NewLedgerPoster(caller, "PSTMOV", "CORELIB", "00", time.Second)
	legs := sampleLegs()
	legs[0].Account = "12345678901234567"
	res := p.Post(context.Background(), legs)
	if !errors.Is(res.Err, ErrInvalidLeg) {
		t.Fatalf("expected ErrInvalidLeg, got %v", res.Err)
	}
	if caller.Calls() != 0 {
		t.Fatalf("procedure must not be called with an invalid leg")
	}
}
