package workflow

import (
	"slices"
	"testing"

	"github.com/mmdatafocus/posting_backend/config"
	"github.com/mmdatafocus/posting_backend/models"
)

func TestFailureCodesAreReservedFromSuccessCode(t *testing.T) {
	for code := range outcomeNames {
		if code == OutcomeSuccess {
			continue
		}
		if !slices.Contains(config.FailureResultCodes, string(code)) {
			t.Fatalf("outcome %s (%s) may be configured as the core success code", code, code.Name())
		}
	}
	if !slices.Contains(config.FailureResultCodes, models.PendingErrorCode) {
		t.Fatalf("pending code %s may be configured as the core success code", models.PendingErrorCode)
	}
}
