package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/posting_backend/models"
	"github.com/mmdatafocus/posting_backend/workflow"
	"github.com/sirupsen/logrus"
)

type fakeProcessor struct {
	mu    sync.Mutex
	calls []workflow.PostingRequest
	out   workflow.Outcome
}

func (p *fakeProcessor) ProcessPosting(ctx context.Context, req workflow.PostingRequest) workflow.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)
	return p.out
}

func newTestRouter(p postingProcessor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	a := &app{}
	if p != nil {
		a.setProcessor(p)
	}
	return newRouter(a, logger)
}

const validBody = `{
	"batch_number": "1",
	"sequence_id": "42",
	"account": "1234567890",
	"debit_amount": "100.00",
	"credit_amount": "0",
	"merchant_code": "M001",
	"merchant_name": "Corner Store",
	"terminal": "T0001",
	"description": "settlement",
	"accounting_nature": "d"
}`

func post(r http.Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/postings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPostingHandler_ReturnsOutcome(t *testing.T) {
	p := &fakeProcessor{out: workflow.Outcome{Code: workflow.OutcomeBusinessRejection, Status: "BUSINESS_REJECTION", Message: "INSUFFICIENT FUNDS"}}
	r := newTestRouter(p)

	w := post(r, validBody, map[string]string{"X-Correlation-Id": "corr-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got workflow.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if got.Code != workflow.OutcomeBusinessRejection || got.Message != "INSUFFICIENT FUNDS" {
		t.Fatalf("unexpected outcome %+v", got)
	}
	if len(p.calls) != 1 {
		t.Fatalf("expected one workflow call, got %d", len(p.calls))
	}
	req := p.calls[0]
	if req.CorrelationId != "corr-1" || req.AccountingNature != models.NatureDebit || req.DebitAmount.StringFixed(2) != "100.00" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestPostingHandler_RejectsBadRequests(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"malformed json", `{"batch_number":`, ""},
		{"missing account", strings.Replace(validBody, `"account": "1234567890",`, "", 1), "Account"},
		{"batch too long", strings.Replace(validBody, `"batch_number": "1"`, `"batch_number": "123456789"`, 1), "BatchNumber"},
		{"nature too long", strings.Replace(validBody, `"accounting_nature": "d"`, `"accounting_nature": "debit"`, 1), "AccountingNature"},
	}
	for _, tc := range cases {
		p := &fakeProcessor{}
		w := post(newTestRouter(p), tc.body, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, w.Code)
		}
		var resp errorResponse
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if tc.field != "" && resp.Fields[tc.field] == "" {
			t.Fatalf("%s: expected field %s in %+v", tc.name, tc.field, resp)
		}
		if len(p.calls) != 0 {
			t.Fatalf("%s: workflow must not run", tc.name)
		}
	}
}

func TestPostingHandler_InvalidNatureReachesWorkflow(t *testing.T) {
	p := &fakeProcessor{out: workflow.Outcome{Code: workflow.OutcomeValidationFailure, Reason: workflow.ReasonNature}}
	w := post(newTestRouter(p), strings.Replace(validBody, `"accounting_nature": "d"`, `"accounting_nature": "x"`, 1), nil)
	if w.Code != http.StatusOK || len(p.calls) != 1 {
		t.Fatalf("expected the workflow to judge the nature, got %d calls=%d", w.Code, len(p.calls))
	}
}

func TestRouter_NotReady(t *testing.T) {
	r := newTestRouter(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("healthz expected 204, got %d", w.Code)
	}
	if w := post(r, validBody, nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before the workflow is ready, got %d", w.Code)
	}
}
