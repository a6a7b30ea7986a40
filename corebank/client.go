package corebank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/posting_backend/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ProgramCaller invokes a procedure of the core-banking system.
type ProgramCaller interface {
	Call(ctx context.Context, procedure, library string, in []Parameter) (Outputs, error)
}

// Client calls procedures through the program-call gateway over HTTP/JSON.
type Client struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
}

var ErrGatewayNotConfigured = errors.New("COREBANK_GATEWAY_URL not set")

func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: "X-API-Key",
		http:      httpClient,
	}
}

// NewClientFromEnv reads COREBANK_GATEWAY_URL, COREBANK_API_KEY and COREBANK_API_KEY_HEADER.
// The per-call deadline comes from the caller's context; the http timeout only bounds runaway requests.
func NewClientFromEnv() (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("COREBANK_GATEWAY_URL"))
	if baseURL == "" {
		return nil, ErrGatewayNotConfigured
	}
	c := NewClient(baseURL, strings.TrimSpace(os.Getenv("COREBANK_API_KEY")), &http.Client{
		Timeout:   2 * time.Minute,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	if hdr := strings.TrimSpace(os.Getenv("COREBANK_API_KEY_HEADER")); hdr != "" {
		c.apiKeyHdr = hdr
	}
	return c, nil
}

type callRequest struct {
	Procedure  string       `json:"procedure"`
	Library    string       `json:"library"`
	Parameters []Parameter  `json:"parameters"`
	Outputs    []OutputSpec `json:"outputs"`
}

type callResponse struct {
	Outputs map[string]string `json:"outputs"`
	Error   string            `json:"error"`
}

func (c *Client) Call(ctx context.Context, procedure, library string, in []Parameter) (Outputs, error) {
	for _, p := range in {
		if err := p.Validate(); err != nil {
			return Outputs{}, &CallError{Kind: FailureProtocol, Err: err}
		}
	}
	body, err := json.Marshal(callRequest{Procedure: procedure, Library: library, Parameters: in, Outputs: PostingOutputs})
	if err != nil {
		return Outputs{}, &CallError{Kind: FailureProtocol, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/programs/call", bytes.NewReader(body))
	if err != nil {
		return Outputs{}, &CallError{Kind: FailureProtocol, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHdr, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Outputs{}, &CallError{Kind: FailureTimeout, Err: err}
		}
		return Outputs{}, &CallError{Kind: FailureConnectivity, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outputs{}, &CallError{Kind: FailureConnectivity, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Outputs{}, &CallError{
			Kind:       FailureProtocol,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("gateway error: %s", strings.TrimSpace(string(raw))),
		}
	}

	var parsed callResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Outputs{}, &CallError{Kind: FailureProtocol, StatusCode: resp.StatusCode, Err: err}
	}
	if parsed.Error != "" {
		return Outputs{}, &CallError{Kind: FailureProtocol, StatusCode: resp.StatusCode, Err: errors.New(parsed.Error)}
	}
	rawCode, ok := parsed.Outputs[OutputResponseCode]
	if !ok {
		return Outputs{}, &CallError{Kind: FailureProtocol, StatusCode: resp.StatusCode, Err: fmt.Errorf("missing output %s", OutputResponseCode)}
	}
	// Outputs are held to their declared widths; an oversize code is not a valid answer.
	code, err := models.ResponseCodeField.Format(rawCode)
	if err != nil {
		return Outputs{}, &CallError{Kind: FailureProtocol, StatusCode: resp.StatusCode, Err: err}
	}
	message, _ := models.ResponseMessageField.Format(parsed.Outputs[OutputResponseMessage])
	traceFile, _ := models.TraceFileField.Format(parsed.Outputs[OutputTraceFile])
	return Outputs{
		ResponseCode:    strings.TrimSpace(code),
		ResponseMessage: strings.TrimSpace(message),
		TraceFile:       strings.TrimSpace(traceFile),
	}, nil
}
