package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrEmptyReservationKey = errors.New("batch and sequence must not be zero")

// PendingErrorCode is stored on a fresh reservation; it never equals the core's success code.
const (
	PendingErrorCode        = "99"
	PendingErrorDescription = "PENDING"
)

// TransactionReservation is the idempotency and audit row of one posting request.
// Unique constraint: (batch_number, sequence_id). Rows are never deleted.
type TransactionReservation struct {
	ID               int               `gorm:"primary_key" json:"id"`
	BatchNumber      string            `gorm:"size:8;not null;index:uniq_reservation,unique" json:"batch_number"`
	SequenceId       string            `gorm:"size:12;not null;index:uniq_reservation,unique" json:"sequence_id"`
	Account          string            `gorm:"size:16;not null;index" json:"account"`
	DebitAmount      decimal.Decimal   `gorm:"type:decimal(15,2);not null;default:0" json:"debit_amount"`
	CreditAmount     decimal.Decimal   `gorm:"type:decimal(15,2);not null;default:0" json:"credit_amount"`
	NetAmount        decimal.Decimal   `gorm:"type:decimal(15,2);not null;default:0" json:"net_amount"`
	ChargeAmount     decimal.Decimal   `gorm:"type:decimal(15,2);not null;default:0" json:"charge_amount"`
	Currency         string            `gorm:"size:3" json:"currency"`
	MerchantCode     string            `gorm:"size:20;not null;index" json:"merchant_code"`
	MerchantName     string            `gorm:"size:100" json:"merchant_name"`
	Terminal         string            `gorm:"size:20" json:"terminal"`
	Description      string            `gorm:"size:120" json:"description"`
	AccountingNature Nature            `gorm:"size:1;not null" json:"accounting_nature"`
	Status           ReservationStatus `gorm:"size:10;not null;index" json:"status"`
	ErrorCode        string            `gorm:"size:10;not null" json:"error_code"`
	ErrorDescription string            `gorm:"size:255" json:"error_description"`
	TraceFile        string            `gorm:"size:50" json:"trace_file"`
	CorrelationId    string            `gorm:"size:64;index" json:"correlation_id"`
	ReconciledAt     *time.Time        `json:"reconciled_at"`
	CreatedAt        time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TransactionReservation) AppendOnly() bool { return true }

func (r TransactionReservation) Key() ReservationKey {
	return ReservationKey{Batch: r.BatchNumber, Sequence: r.SequenceId}
}

// ReservationKey is the normalized (batch, sequence) identity of a posting request.
type ReservationKey struct {
	Batch    string `json:"batch"`
	Sequence string `json:"sequence"`
}

func (k ReservationKey) String() string {
	return k.Batch + "/" + k.Sequence
}

// NormalizeKey zero-pads both parts to their fixed widths.
func NormalizeKey(batch, sequence string) (ReservationKey, error) {
	b, err := BatchField.Format(batch)
	if err != nil {
		return ReservationKey{}, err
	}
	s, err := SequenceField.Format(sequence)
	if err != nil {
		return ReservationKey{}, err
	}
	if BatchField.IsZero(b) || SequenceField.IsZero(s) {
		return ReservationKey{}, ErrEmptyReservationKey
	}
	return ReservationKey{Batch: b, Sequence: s}, nil
}

// Finalization is the single mutation a reservation ever receives.
type Finalization struct {
	Status           ReservationStatus
	ErrorCode        string
	ErrorDescription string
	TraceFile        string
	NetAmount        decimal.Decimal
	ChargeAmount     decimal.Decimal
	ReconciledAt     time.Time
	// Event, when set, is written in the same transaction as the status change.
	Event *PostingOutboxRecord
}

// Bounded cuts the text columns to their stored sizes so an oversize value from the core
// cannot fail the final update.
func (f Finalization) Bounded() Finalization {
	f.ErrorCode = truncate(strings.TrimSpace(f.ErrorCode), 10)
	f.ErrorDescription = truncate(f.ErrorDescription, 255)
	f.TraceFile = truncate(strings.TrimSpace(f.TraceFile), TraceFileField.Width)
	return f
}
