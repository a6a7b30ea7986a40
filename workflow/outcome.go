package workflow

// OutcomeCode is the business code returned by ProcessPosting.
type OutcomeCode string

const (
	OutcomeSuccess              OutcomeCode = "00"
	OutcomeDuplicateRequest     OutcomeCode = "01"
	OutcomeValidationFailure    OutcomeCode = "10"
	OutcomeConfigurationMissing OutcomeCode = "20"
	OutcomeResolutionFailure    OutcomeCode = "30"
	OutcomeRpcFailure           OutcomeCode = "40"
	OutcomeBusinessRejection    OutcomeCode = "50"
	OutcomeUnknownError         OutcomeCode = "99"
)

var outcomeNames = map[OutcomeCode]string{
	OutcomeSuccess:              "SUCCESS",
	OutcomeDuplicateRequest:     "DUPLICATE_REQUEST",
	OutcomeValidationFailure:    "VALIDATION_FAILURE",
	OutcomeConfigurationMissing: "CONFIGURATION_MISSING",
	OutcomeResolutionFailure:    "RESOLUTION_FAILURE",
	OutcomeRpcFailure:           "RPC_FAILURE",
	OutcomeBusinessRejection:    "BUSINESS_REJECTION",
	OutcomeUnknownError:         "UNKNOWN_ERROR",
}

func (c OutcomeCode) Name() string {
	if n, ok := outcomeNames[c]; ok {
		return n
	}
	return outcomeNames[OutcomeUnknownError]
}

// Validation sub-reasons.
const (
	ReasonAmount   = "AMOUNT"
	ReasonNature   = "NATURE"
	ReasonMerchant = "MERCHANT"
	ReasonTerminal = "TERMINAL"
	ReasonKey      = "KEY"
)

// Outcome is everything the caller learns about a posting request.
type Outcome struct {
	Code    OutcomeCode `json:"code"`
	Status  string      `json:"status"`
	Reason  string      `json:"reason,omitempty"`
	Message string      `json:"message"`
}

func newOutcome(code OutcomeCode, reason, message string) Outcome {
	return Outcome{Code: code, Status: code.Name(), Reason: reason, Message: message}
}

func (o Outcome) Succeeded() bool { return o.Code == OutcomeSuccess }
