package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmdatafocus/posting_backend/config"
	"github.com/mmdatafocus/posting_backend/corebank"
	"github.com/mmdatafocus/posting_backend/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type WorkflowDeps struct {
	Reservations models.ReservationRepository
	Lookups      models.LookupRepository
	Caller       corebank.ProgramCaller
	Logger       *logrus.Logger
	Tracer       trace.Tracer
}

// PostingWorkflow posts one settlement movement at most once per (batch, sequence).
type PostingWorkflow struct {
	cfg      config.PostingConfig
	store    *ReservationStore
	gate     *ValidationGate
	resolver *AccountResolver
	poster   *LedgerPoster
	lookups  models.LookupRepository
	logger   *logrus.Logger
	tracer   trace.Tracer
}

func NewPostingWorkflow(deps WorkflowDeps, cfg config.PostingConfig) *PostingWorkflow {
	logger := deps.Logger
	if logger == nil {
		logger = config.GetLogger()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer("posting-workflow")
	}
	return &PostingWorkflow{
		cfg:      cfg,
		store:    NewReservationStore(deps.Reservations, cfg.SuccessCode, cfg.CurrencyCode),
		gate:     NewValidationGate(deps.Lookups),
		resolver: NewAccountResolver(deps.Lookups, cfg.TypeCodeCredit, cfg.TypeCodeDebit),
		poster:   NewLedgerPoster(deps.Caller, cfg.ProcedureName, cfg.Library, cfg.SuccessCode, cfg.CallTimeout),
		lookups:  deps.Lookups,
		logger:   logger,
		tracer:   tracer,
	}
}

// ProcessPosting runs Reserve, Validate, Resolve, Charges, Post and Reconcile. Every request that
// reserved its key is reconciled exactly once; a duplicate key stops before any other work.
func (w *PostingWorkflow) ProcessPosting(ctx context.Context, req PostingRequest) Outcome {
	ctx, span := w.tracer.Start(ctx, "ProcessPosting")
	defer span.End()

	key, err := models.NormalizeKey(req.BatchNumber, req.SequenceId)
	if err != nil {
		span.SetStatus(codes.Error, "invalid key")
		return newOutcome(OutcomeValidationFailure, ReasonKey, err.Error())
	}
	span.SetAttributes(
		attribute.String("posting.batch", key.Batch),
		attribute.String("posting.sequence", key.Sequence),
		attribute.String("posting.correlation_id", req.CorrelationId),
	)
	log := w.logger.WithFields(logrus.Fields{
		"field":          "PostingWorkflow",
		"batch":          key.Batch,
		"sequence":       key.Sequence,
		"correlation_id": req.CorrelationId,
	})

	reserveCtx, reserveSpan := w.tracer.Start(ctx, "reserve")
	res := w.store.Reserve(reserveCtx, key, req)
	reserveSpan.End()
	switch {
	case res.Duplicate:
		log.Info("duplicate posting request")
		return newOutcome(OutcomeDuplicateRequest, "", fmt.Sprintf("request %s already processed", key))
	case res.Err != nil:
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "reserve failed")
		config.LogError(w.logger, "PostingWorkflow", "ProcessPosting", "reserve", key, res.Err)
		return newOutcome(OutcomeUnknownError, "", res.Err.Error())
	}
	log.Debug("reservation created")

	st := w.execute(ctx, key, req)
	w.reconcile(ctx, res.Reservation, st)

	if !st.outcome.Succeeded() {
		span.SetStatus(codes.Error, st.outcome.Status)
	}
	log.WithFields(logrus.Fields{"code": st.outcome.Code, "reason": st.outcome.Reason}).Info("posting finished")
	return st.outcome
}

// execute runs every stage after Reserve. It never panics: a panic becomes UNKNOWN_ERROR so the
// reservation is still reconciled.
func (w *PostingWorkflow) execute(ctx context.Context, key models.ReservationKey, req PostingRequest) (st stageResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			config.LogError(w.logger, "PostingWorkflow", "execute", "recovered", key, err)
			st = failed(OutcomeUnknownError, "", err.Error())
		}
	}()

	vctx, vspan := w.tracer.Start(ctx, "validate")
	gate, err := w.gate.Check(vctx, req, w.cfg.Profile)
	endSpan(vspan, err)
	if err != nil {
		return gateFailure(err)
	}

	rctx, rspan := w.tracer.Start(ctx, "resolve")
	gross := req.GrossAmount()
	resolved, err := w.resolver.Resolve(rctx, ResolveInput{
		Ecommerce:            gate.Ecommerce(),
		Profile:              gate.Profile.Code,
		Nature:               req.AccountingNature,
		ClientAccount:        req.Account,
		MerchantCode:         req.MerchantCode,
		Currency:             w.cfg.CurrencyCode,
		Amount:               gross,
		ClientDescriptions:   req.clientDescriptions(),
		InternalDescriptions: req.internalDescriptions(key),
	})
	endSpan(rspan, err)
	if err != nil {
		return failed(OutcomeUnknownError, "", err.Error())
	}
	if !resolved.Resolution.Resolved {
		return failed(OutcomeResolutionFailure, "", resolved.Resolution.Diagnostic)
	}

	cctx, cspan := w.tracer.Start(ctx, "charges")
	rules, err := w.lookups.ChargeRules(cctx, gate.Profile.Code, strings.TrimSpace(req.MerchantCode))
	if err != nil {
		endSpan(cspan, err)
		return failed(OutcomeUnknownError, "", fmt.Sprintf("charge rules lookup: %v", err))
	}
	breakdown := CalculateCharges(gross, rules, models.MarkerDebit)
	legs, err := ApplyCharges(resolved, breakdown, w.resolver.TypeCodeFor)
	endSpan(cspan, err)
	if err != nil {
		return failed(OutcomeResolutionFailure, "", err.Error())
	}

	if err := ctx.Err(); err != nil {
		return failed(OutcomeRpcFailure, "", fmt.Sprintf("request cancelled before posting: %v", err))
	}

	pctx, pspan := w.tracer.Start(ctx, "post")
	result := w.poster.Post(pctx, legs)
	endSpan(pspan, result.Err)
	return w.postingOutcome(result, breakdown)
}

func (w *PostingWorkflow) postingOutcome(result PostingResult, b ChargeBreakdown) stageResult {
	switch {
	case errors.Is(result.Err, ErrInvalidLeg):
		return failed(OutcomeResolutionFailure, "", result.Err.Error())
	case !result.Answered:
		msg := "posting call failed"
		if result.Err != nil {
			msg = result.Err.Error()
		}
		return failed(OutcomeRpcFailure, "", msg)
	}
	st := stageResult{
		code:      result.Code,
		message:   result.Message,
		traceFile: result.TraceFile,
		net:       b.Net,
		charges:   b.Total,
	}
	if w.poster.Succeeded(result) {
		msg := result.Message
		if msg == "" {
			msg = "posted"
		}
		st.outcome = newOutcome(OutcomeSuccess, "", msg)
		return st
	}
	msg := result.Message
	if msg == "" {
		msg = fmt.Sprintf("core rejected posting with code %s", result.Code)
	}
	st.message = msg
	st.outcome = newOutcome(OutcomeBusinessRejection, "", msg)
	return st
}

func gateFailure(err error) stageResult {
	var ge *GateError
	if errors.As(err, &ge) {
		return failed(ge.Code, ge.Reason, ge.Message)
	}
	return failed(OutcomeUnknownError, "", err.Error())
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
