package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoadPostingConfig_Defaults(t *testing.T) {
	t.Setenv("POSTING_PROFILE", "P01")
	t.Setenv("COREBANK_LIBRARY", "BNKLIB")
	t.Setenv("COREBANK_PROCEDURE", "")
	t.Setenv("COREBANK_SUCCESS_CODE", "")
	t.Setenv("POSTING_CURRENCY", "")
	t.Setenv("POSTING_TYPE_CODE_CREDIT", "")
	t.Setenv("POSTING_TYPE_CODE_DEBIT", "")
	t.Setenv("COREBANK_CALL_TIMEOUT_SECONDS", "")
	t.Setenv("RECONCILE_TIMEOUT_SECONDS", "")
	t.Setenv("POSTING_EVENTS_TOPIC", "")

	cfg, err := LoadPostingConfig()
	if err != nil {
		t.Fatalf("LoadPostingConfig: %v", err)
	}
	if cfg.ProcedureName != "PSTMOV" || cfg.SuccessCode != "00" || cfg.CurrencyCode != "340" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.TypeCodeCredit != 210 || cfg.TypeCodeDebit != 110 {
		t.Fatalf("expected type codes 210/110, got %d/%d", cfg.TypeCodeCredit, cfg.TypeCodeDebit)
	}
	if cfg.CallTimeout != 30*time.Second || cfg.ReconcileTimeout != 10*time.Second {
		t.Fatalf("unexpected timeouts: %s/%s", cfg.CallTimeout, cfg.ReconcileTimeout)
	}
	if cfg.EventsTopic != "" {
		t.Fatalf("expected events disabled, got topic %q", cfg.EventsTopic)
	}
}

func TestPostingConfigValidate_NamesEveryMissingKey(t *testing.T) {
	cfg := PostingConfig{
		ProcedureName:  "PSTMOV",
		SuccessCode:    "00",
		TypeCodeCredit: 210,
		TypeCodeDebit:  210,
		CallTimeout:    time.Second,
	}
	err := cfg.Validate()
	if !errors.Is(err, ErrMissingPostingConfig) {
		t.Fatalf("expected ErrMissingPostingConfig, got %v", err)
	}
	for _, key := range []string{"POSTING_PROFILE", "COREBANK_LIBRARY", "POSTING_TYPE_CODE_CREDIT"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected %s in %q", key, err.Error())
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	cases := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{12, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := backoffDelay(tc.attempt); got != tc.expected {
			t.Fatalf("backoffDelay(%d) expected %s, got %s", tc.attempt, tc.expected, got)
		}
	}
}

type appendOnlyRow struct{}

func (appendOnlyRow) AppendOnly() bool { return true }

func TestIsAppendOnly(t *testing.T) {
	if !isAppendOnly(&appendOnlyRow{}) || !isAppendOnly(appendOnlyRow{}) {
		t.Fatalf("expected append-only row to be guarded")
	}
	if isAppendOnly(nil) || isAppendOnly(&struct{}{}) {
		t.Fatalf("expected plain values not to be guarded")
	}
}

func TestPostingConfigValidate_RejectsSuccessCodeUsedForFailures(t *testing.T) {
	for _, code := range append([]string{""}, FailureResultCodes...) {
		cfg := PostingConfig{
			Profile:        "P01",
			Library:        "BNKLIB",
			ProcedureName:  "PSTMOV",
			SuccessCode:    code,
			TypeCodeCredit: 210,
			TypeCodeDebit:  110,
			CallTimeout:    time.Second,
		}
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "COREBANK_SUCCESS_CODE") {
			t.Fatalf("success code %q: expected COREBANK_SUCCESS_CODE error, got %v", code, err)
		}
	}
}
