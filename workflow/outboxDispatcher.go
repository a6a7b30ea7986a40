package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/mmdatafocus/posting_backend/config"
	"github.com/mmdatafocus/posting_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const outboxLockKey = "lock:posting-outbox"

// EventPublisher publishes one event and returns the broker message id.
type EventPublisher func(ctx context.Context, topic string, msg config.PostingEventMessage) (string, error)

// OutboxDispatcher publishes posting outcome events written by reconciliation.
type OutboxDispatcher struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	Locker       *redislock.Client
	Publish      EventPublisher
	Topic        string
	DispatcherID string

	BatchSize      int
	PollInterval   time.Duration
	LockTimeout    time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration

	lease *redislock.Lock
}

func NewOutboxDispatcher(db *gorm.DB, locker *redislock.Client, topic string, logger *logrus.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:             db,
		Logger:         logger,
		Locker:         locker,
		Publish:        config.PublishPostingEventWithResult,
		Topic:          topic,
		DispatcherID:   uuid.NewString(),
		BatchSize:      50,
		PollInterval:   500 * time.Millisecond,
		LockTimeout:    30 * time.Second,
		MaxAttempts:    20,
		InitialBackoff: 5 * time.Second,
	}
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	defer d.releaseLease()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if d.holdLease(ctx) {
			d.DispatchOnce(ctx)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.PollInterval):
		}
	}
}

// holdLease keeps a single active dispatcher across instances. Without redis every instance
// dispatches; SKIP LOCKED keeps their batches disjoint.
func (d *OutboxDispatcher) holdLease(ctx context.Context) bool {
	if d.Locker == nil {
		return true
	}
	if d.lease != nil {
		if err := d.lease.Refresh(ctx, d.LockTimeout, nil); err == nil {
			return true
		}
		d.lease = nil
	}
	lock, err := d.Locker.Obtain(ctx, outboxLockKey, d.LockTimeout, nil)
	if err != nil {
		if !errors.Is(err, redislock.ErrNotObtained) {
			config.LogError(d.Logger, "OutboxDispatcher", "holdLease", d.DispatcherID, nil, err)
		}
		return false
	}
	d.lease = lock
	return true
}

func (d *OutboxDispatcher) releaseLease() {
	if d.lease == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = d.lease.Release(ctx)
	d.lease = nil
}

// DispatchOnce claims one batch of due events and publishes them.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) {
	now := time.Now().UTC()
	staleBefore := now.Add(-d.LockTimeout)
	db := d.DB
	if db == nil {
		return
	}

	var claimed []models.PostingOutboxRecord
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// PENDING/FAILED rows that are due, and PROCESSING rows whose claim went stale.
		q := tx.
			Where(`
				(
					publish_status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
				)
				OR
				(
					publish_status = ? AND locked_at IS NOT NULL AND locked_at <= ?
				)
			`, []string{models.OutboxPublishStatusPending, models.OutboxPublishStatusFailed}, now, models.OutboxPublishStatusProcessing, staleBefore).
			Order("id ASC").
			Limit(d.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		for i := range claimed {
			if d.MaxAttempts > 0 && claimed[i].PublishAttempts >= d.MaxAttempts {
				msg := fmt.Sprintf("max publish attempts exceeded (%d)", d.MaxAttempts)
				claimed[i].PublishStatus = models.OutboxPublishStatusDead
				if err := tx.Model(&models.PostingOutboxRecord{}).Where("id = ?", claimed[i].ID).Updates(map[string]interface{}{
					"publish_status":     models.OutboxPublishStatusDead,
					"last_publish_error": &msg,
					"next_attempt_at":    nil,
					"locked_at":          nil,
					"locked_by":          nil,
				}).Error; err != nil {
					return err
				}
				continue
			}

			claimed[i].PublishStatus = models.OutboxPublishStatusProcessing
			claimed[i].PublishAttempts++
			if err := tx.Model(&models.PostingOutboxRecord{}).Where("id = ?", claimed[i].ID).Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusProcessing,
				"locked_at":          &now,
				"locked_by":          &d.DispatcherID,
				"publish_attempts":   gorm.Expr("publish_attempts + 1"),
				"last_publish_error": nil,
				"next_attempt_at":    nil,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		config.LogError(d.Logger, "OutboxDispatcher", "DispatchOnce", "claim", nil, err)
		return
	}

	for _, rec := range claimed {
		if rec.PublishStatus == models.OutboxPublishStatusDead {
			continue
		}
		pubID, pubErr := d.Publish(ctx, d.Topic, models.ConvertToPostingEvent(rec))
		if pubErr != nil {
			d.markPublishFailed(ctx, rec, pubErr)
			continue
		}
		d.markPublishSent(ctx, rec.ID, pubID)
	}
}

func (d *OutboxDispatcher) markPublishSent(ctx context.Context, recordID int, pubsubMsgID string) {
	now := time.Now().UTC()
	_ = d.DB.WithContext(ctx).Model(&models.PostingOutboxRecord{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"publish_status":     models.OutboxPublishStatusSent,
			"published_at":       &now,
			"pub_sub_message_id": &pubsubMsgID,
			"locked_at":          nil,
			"locked_by":          nil,
			"next_attempt_at":    nil,
		}).Error
}

func (d *OutboxDispatcher) markPublishFailed(ctx context.Context, rec models.PostingOutboxRecord, err error) {
	db := d.DB.WithContext(ctx)
	msg := err.Error()
	attempt := rec.PublishAttempts
	fields := logrus.Fields{
		"field":     "OutboxDispatcher",
		"record_id": rec.ID,
		"batch":     rec.BatchNumber,
		"sequence":  rec.SequenceId,
		"attempt":   attempt,
	}

	if d.MaxAttempts > 0 && attempt >= d.MaxAttempts {
		_ = db.Model(&models.PostingOutboxRecord{}).
			Where("id = ?", rec.ID).
			Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusDead,
				"last_publish_error": &msg,
				"next_attempt_at":    nil,
				"locked_at":          nil,
				"locked_by":          nil,
			}).Error
		if d.Logger != nil {
			d.Logger.WithFields(fields).Error("outbox publish moved to DEAD after max attempts: " + msg)
		}
		return
	}

	next := time.Now().UTC().Add(publishBackoff(d.InitialBackoff, attempt))
	_ = db.Model(&models.PostingOutboxRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"publish_status":     models.OutboxPublishStatusFailed,
			"last_publish_error": &msg,
			"next_attempt_at":    &next,
			"locked_at":          nil,
			"locked_by":          nil,
		}).Error
	if d.Logger != nil {
		fields["next_attempt_at"] = next.Format(time.RFC3339Nano)
		d.Logger.WithFields(fields).Error("outbox publish failed: " + msg)
	}
}

// publishBackoff doubles per attempt and caps at 10 minutes.
func publishBackoff(initial time.Duration, attempt int) time.Duration {
	backoff := initial
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff > 10*time.Minute {
			return 10 * time.Minute
		}
	}
	return backoff
}
