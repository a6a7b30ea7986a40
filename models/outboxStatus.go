package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// OutboxStatus is an operator view of the latest outcome event of one posting key.
type OutboxStatus struct {
	RecordId         int        `json:"record_id"`
	BatchNumber      string     `json:"batch_number"`
	SequenceId       string     `json:"sequence_id"`
	Status           string     `json:"status"`
	PublishStatus    string     `json:"publish_status"`
	PublishAttempts  int        `json:"publish_attempts"`
	NextAttemptAt    *time.Time `json:"next_attempt_at"`
	LastPublishError *string    `json:"last_publish_error"`
	CreatedAt        time.Time  `json:"created_at"`
	PublishedAt      *time.Time `json:"published_at"`
}

func GetOutboxStatus(ctx context.Context, db *gorm.DB, key ReservationKey) (*OutboxStatus, error) {
	var rec PostingOutboxRecord
	if err := db.WithContext(ctx).
		Where("batch_number = ? AND sequence_id = ?", key.Batch, key.Sequence).
		Order("id DESC").
		First(&rec).Error; err != nil {
		return nil, err
	}
	return &OutboxStatus{
		RecordId:         rec.ID,
		BatchNumber:      rec.BatchNumber,
		SequenceId:       rec.SequenceId,
		Status:           rec.Status,
		PublishStatus:    rec.PublishStatus,
		PublishAttempts:  rec.PublishAttempts,
		NextAttemptAt:    rec.NextAttemptAt,
		LastPublishError: rec.LastPublishError,
		CreatedAt:        rec.CreatedAt,
		PublishedAt:      rec.PublishedAt,
	}, nil
}

// ReplayOutbox puts FAILED and DEAD events of a key back in the dispatcher queue with a fresh attempt
// budget. SENT events are left alone; gorm.ErrRecordNotFound means nothing was replayable.
func ReplayOutbox(ctx context.Context, db *gorm.DB, key ReservationKey) (*OutboxStatus, error) {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&PostingOutboxRecord{}).
		Where("batch_number = ? AND sequence_id = ? AND publish_status IN ?", key.Batch, key.Sequence,
			[]string{OutboxPublishStatusFailed, OutboxPublishStatusDead}).
		Updates(map[string]interface{}{
			"locked_at":          nil,
			"locked_by":          nil,
			"publish_status":     OutboxPublishStatusPending,
			"publish_attempts":   0,
			"last_publish_error": nil,
			"next_attempt_at":    &now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return GetOutboxStatus(ctx, db, key)
}
