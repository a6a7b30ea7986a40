package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/posting_backend/models"
	"github.com/shopspring/decimal"
)

// ReserveResult: exactly one of Inserted, Duplicate or Err is set.
type ReserveResult struct {
	Inserted    bool
	Duplicate   bool
	Err         error
	Reservation models.TransactionReservation
}

// ReconcileDetails carries what is written next to the final status.
type ReconcileDetails struct {
	TraceFile    string
	NetAmount    decimal.Decimal
	ChargeAmount decimal.Decimal
	// EventSource, when set, also writes an outbox event built from this row.
	EventSource *models.TransactionReservation
}

// ReservationStore is the idempotency ledger. The unique (batch, sequence) constraint of the repository
// is the only mutual exclusion between concurrent requests for the same key.
type ReservationStore struct {
	repo        models.ReservationRepository
	successCode string
	currency    string
	now         func() time.Time
}

func NewReservationStore(repo models.ReservationRepository, successCode, currency string) *ReservationStore {
	return &ReservationStore{repo: repo, successCode: successCode, currency: currency, now: func() time.Time { return time.Now().UTC() }}
}

func (s *ReservationStore) Reserve(ctx context.Context, key models.ReservationKey, req PostingRequest) ReserveResult {
	row := models.TransactionReservation{
		BatchNumber:      key.Batch,
		SequenceId:       key.Sequence,
		Account:          strings.TrimSpace(req.Account),
		DebitAmount:      storedAmount(req.DebitAmount),
		CreditAmount:     storedAmount(req.CreditAmount),
		Currency:         s.currency,
		MerchantCode:     strings.TrimSpace(req.MerchantCode),
		MerchantName:     strings.TrimSpace(req.MerchantName),
		Terminal:         strings.TrimSpace(req.Terminal),
		Description:      strings.TrimSpace(req.Description),
		AccountingNature: req.AccountingNature,
		Status:           models.ReservationStatusPending,
		ErrorCode:        models.PendingErrorCode,
		ErrorDescription: models.PendingErrorDescription,
		CorrelationId:    req.CorrelationId,
	}
	err := s.repo.Insert(ctx, &row)
	switch {
	case err == nil:
		return ReserveResult{Inserted: true, Reservation: row}
	case errors.Is(err, models.ErrDuplicateReservation):
		return ReserveResult{Duplicate: true}
	default:
		return ReserveResult{Err: err}
	}
}

// storedAmount is the value written to the reservation's decimal(15,2) column. An amount outside the
// column is stored as zero so the row still lands and the gate reports it as AMOUNT.
func storedAmount(d decimal.Decimal) decimal.Decimal {
	if _, err := models.AmountField.Format(d.Abs().Round(models.AmountField.Scale)); err != nil {
		return decimal.Zero
	}
	return d.Round(models.AmountField.Scale)
}

// Reconcile finalizes a Pending reservation: Approved iff finalCode is the success code, else Rejected.
// It reports false when the row was not Pending anymore.
func (s *ReservationStore) Reconcile(ctx context.Context, key models.ReservationKey, finalCode, finalMessage string, d ReconcileDetails) (bool, error) {
	status := models.ReservationStatusRejected
	if finalCode == s.successCode {
		status = models.ReservationStatusApproved
	}
	f := models.Finalization{
		Status:           status,
		ErrorCode:        finalCode,
		ErrorDescription: finalMessage,
		TraceFile:        d.TraceFile,
		NetAmount:        d.NetAmount,
		ChargeAmount:     d.ChargeAmount,
		ReconciledAt:     s.now(),
	}
	if d.EventSource != nil {
		f.Event = models.NewPostingOutboxRecord(*d.EventSource, f)
	}
	n, err := s.repo.Finalize(ctx, key, f)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
