package models

import (
	"time"

	"github.com/mmdatafocus/posting_backend/config"
)

// Outbox publish statuses for PostingOutboxRecord.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// PostingOutboxRecord is written in the reconciliation transaction and published after commit.
type PostingOutboxRecord struct {
	ID               int        `gorm:"primary_key;index:idx_posting_outbox_dispatch,priority:3" json:"id"`
	BatchNumber      string     `gorm:"size:8;not null;index:idx_posting_outbox_key,priority:1" json:"batch_number"`
	SequenceId       string     `gorm:"size:12;not null;index:idx_posting_outbox_key,priority:2" json:"sequence_id"`
	Status           string     `gorm:"size:10;not null" json:"status"`
	ErrorCode        string     `gorm:"size:10" json:"error_code"`
	ErrorMessage     string     `gorm:"size:255" json:"error_message"`
	MerchantCode     string     `gorm:"size:20" json:"merchant_code"`
	Account          string     `gorm:"size:16" json:"account"`
	Amount           string     `gorm:"size:20" json:"amount"`
	TraceFile        string     `gorm:"size:50" json:"trace_file"`
	ReconciledAt     time.Time  `gorm:"not null" json:"reconciled_at"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_posting_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_posting_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PostingOutboxRecord) AppendOnly() bool { return true }

// NewPostingOutboxRecord snapshots a reservation with the outcome about to be written.
func NewPostingOutboxRecord(r TransactionReservation, f Finalization) *PostingOutboxRecord {
	f = f.Bounded()
	amount := r.DebitAmount
	if amount.IsZero() {
		amount = r.CreditAmount
	}
	return &PostingOutboxRecord{
		BatchNumber:   r.BatchNumber,
		SequenceId:    r.SequenceId,
		Status:        string(f.Status),
		ErrorCode:     f.ErrorCode,
		ErrorMessage:  f.ErrorDescription,
		MerchantCode:  r.MerchantCode,
		Account:       r.Account,
		Amount:        AmountField.String(amount),
		TraceFile:     f.TraceFile,
		ReconciledAt:  f.ReconciledAt,
		CorrelationId: r.CorrelationId,
		PublishStatus: OutboxPublishStatusPending,
	}
}

func ConvertToPostingEvent(record PostingOutboxRecord) config.PostingEventMessage {
	return config.PostingEventMessage{
		OutboxId:      record.ID,
		BatchNumber:   record.BatchNumber,
		SequenceId:    record.SequenceId,
		Status:        record.Status,
		ErrorCode:     record.ErrorCode,
		ErrorMessage:  record.ErrorMessage,
		MerchantCode:  record.MerchantCode,
		Account:       record.Account,
		Amount:        record.Amount,
		TraceFile:     record.TraceFile,
		ReconciledAt:  record.ReconciledAt,
		CorrelationId: record.CorrelationId,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
