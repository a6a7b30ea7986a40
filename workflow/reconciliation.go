package workflow

import (
	"context"

	"github.com/mmdatafocus/posting_backend/config"
	"github.com/mmdatafocus/posting_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

// stageResult is what the stages after Reserve hand to reconciliation.
type stageResult struct {
	outcome Outcome
	// code and message are persisted on the reservation: the core's response when it answered,
	// the outcome code otherwise.
	code      string
	message   string
	traceFile string
	net       decimal.Decimal
	charges   decimal.Decimal
}

func failed(code OutcomeCode, reason, message string) stageResult {
	return stageResult{outcome: newOutcome(code, reason, message), code: string(code), message: message}
}

// reconcile finalizes the reservation exactly once. It runs detached from the request's cancellation
// so an abandoned request still leaves a terminal row; a crash before this point leaves it Pending.
func (w *PostingWorkflow) reconcile(ctx context.Context, row models.TransactionReservation, st stageResult) {
	rctx := context.WithoutCancel(ctx)
	if w.cfg.ReconcileTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(rctx, w.cfg.ReconcileTimeout)
		defer cancel()
	}
	rctx, span := w.tracer.Start(rctx, "reconcile")
	defer span.End()

	details := ReconcileDetails{TraceFile: st.traceFile, NetAmount: st.net, ChargeAmount: st.charges}
	if w.cfg.EventsTopic != "" {
		details.EventSource = &row
	}
	fields := logrus.Fields{
		"field":          "PostingWorkflow",
		"batch":          row.BatchNumber,
		"sequence":       row.SequenceId,
		"correlation_id": row.CorrelationId,
		"code":           st.code,
	}

	ok, err := w.store.Reconcile(rctx, row.Key(), st.code, st.message, details)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		config.LogError(w.logger, "PostingWorkflow", "reconcile", "reservation left Pending", fields, err)
		return
	}
	if !ok {
		span.SetStatus(codes.Error, "reservation not pending")
		w.logger.WithFields(fields).Warn("reservation was not Pending at reconciliation")
		return
	}
	w.logger.WithFields(fields).Info("reservation reconciled")
}
