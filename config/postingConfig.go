package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

// PostingConfig is the routing configuration handed to the posting workflow at construction.
// Workflow code never reads the environment directly.
type PostingConfig struct {
	Profile     string
	Environment string

	ProcedureName string
	Library       string
	SuccessCode   string

	CurrencyCode string

	// TypeCodeCredit is used by the leg taking the credit side, TypeCodeDebit by the debit side.
	TypeCodeCredit int
	TypeCodeDebit  int

	CallTimeout      time.Duration
	ReconcileTimeout time.Duration

	EventsTopic string
}

var ErrMissingPostingConfig = errors.New("missing posting configuration")

// FailureResultCodes are persisted for requests that failed before or around the core call,
// and "99" also marks a Pending row. The core's success code must not be one of them.
var FailureResultCodes = []string{"01", "10", "20", "30", "40", "50", "99"}

// LoadPostingConfig reads the posting configuration from env.
//
// Required:
// - POSTING_PROFILE
// - COREBANK_LIBRARY
//
// Optional:
// - COREBANK_PROCEDURE (default PSTMOV)
// - COREBANK_SUCCESS_CODE (default 00)
// - POSTING_CURRENCY (default 340)
// - POSTING_TYPE_CODE_CREDIT (default 210), POSTING_TYPE_CODE_DEBIT (default 110)
// - COREBANK_CALL_TIMEOUT_SECONDS (default 30), RECONCILE_TIMEOUT_SECONDS (default 10)
func LoadPostingConfig() (PostingConfig, error) {
	cfg := PostingConfig{
		Profile:          strings.TrimSpace(os.Getenv("POSTING_PROFILE")),
		Environment:      strings.TrimSpace(os.Getenv("GO_ENV")),
		ProcedureName:    stringFromEnv("COREBANK_PROCEDURE", "PSTMOV"),
		Library:          strings.TrimSpace(os.Getenv("COREBANK_LIBRARY")),
		SuccessCode:      stringFromEnv("COREBANK_SUCCESS_CODE", "00"),
		CurrencyCode:     stringFromEnv("POSTING_CURRENCY", "340"),
		TypeCodeCredit:   intFromEnv("POSTING_TYPE_CODE_CREDIT", 210),
		TypeCodeDebit:    intFromEnv("POSTING_TYPE_CODE_DEBIT", 110),
		CallTimeout:      time.Duration(intFromEnv("COREBANK_CALL_TIMEOUT_SECONDS", 30)) * time.Second,
		ReconcileTimeout: time.Duration(intFromEnv("RECONCILE_TIMEOUT_SECONDS", 10)) * time.Second,
		EventsTopic:      PostingEventsTopic(),
	}
	return cfg, cfg.Validate()
}

// Validate reports every missing or invalid key at once.
func (c PostingConfig) Validate() error {
	var missing []string
	if c.Profile == "" {
		missing = append(missing, "POSTING_PROFILE")
	}
	if c.Library == "" {
		missing = append(missing, "COREBANK_LIBRARY")
	}
	if c.ProcedureName == "" {
		missing = append(missing, "COREBANK_PROCEDURE")
	}
	if c.SuccessCode == "" || slices.Contains(FailureResultCodes, c.SuccessCode) {
		missing = append(missing, "COREBANK_SUCCESS_CODE")
	}
	if c.TypeCodeCredit <= 0 || c.TypeCodeDebit <= 0 || c.TypeCodeCredit == c.TypeCodeDebit {
		missing = append(missing, "POSTING_TYPE_CODE_CREDIT/POSTING_TYPE_CODE_DEBIT")
	}
	if c.CallTimeout <= 0 {
		missing = append(missing, "COREBANK_CALL_TIMEOUT_SECONDS")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingPostingConfig, strings.Join(missing, ", "))
	}
	return nil
}

func stringFromEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
