package models

import (
	"context"
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrDuplicateReservation = errors.New("reservation already exists")
	ErrReservationNotFound  = errors.New("reservation not found")
)

// ReservationRepository is the persistence capability behind the reservation store.
// Insert reports a uniqueness conflict as ErrDuplicateReservation and nothing else.
type ReservationRepository interface {
	Insert(ctx context.Context, r *TransactionReservation) error
	Finalize(ctx context.Context, key ReservationKey, f Finalization) (int64, error)
	Find(ctx context.Context, key ReservationKey) (*TransactionReservation, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]TransactionReservation, error)
}

type GormReservationRepository struct {
	db *gorm.DB
}

func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (repo *GormReservationRepository) Insert(ctx context.Context, r *TransactionReservation) error {
	if err := repo.db.WithContext(ctx).Create(r).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return ErrDuplicateReservation
		}
		return err
	}
	return nil
}

// Finalize moves a Pending row to its terminal status. The update is guarded by status so a row
// can only ever be finalized once; a second call affects 0 rows and writes no event.
func (repo *GormReservationRepository) Finalize(ctx context.Context, key ReservationKey, f Finalization) (int64, error) {
	var affected int64
	f = f.Bounded()
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&TransactionReservation{}).
			Where("batch_number = ? AND sequence_id = ? AND status = ?", key.Batch, key.Sequence, ReservationStatusPending).
			Updates(map[string]interface{}{
				"status":            f.Status,
				"error_code":        f.ErrorCode,
				"error_description": f.ErrorDescription,
				"trace_file":        f.TraceFile,
				"net_amount":        f.NetAmount,
				"charge_amount":     f.ChargeAmount,
				"reconciled_at":     f.ReconciledAt,
			})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		if affected == 0 || f.Event == nil {
			return nil
		}
		return tx.Create(f.Event).Error
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (repo *GormReservationRepository) Find(ctx context.Context, key ReservationKey) (*TransactionReservation, error) {
	var r TransactionReservation
	err := repo.db.WithContext(ctx).
		Where("batch_number = ? AND sequence_id = ?", key.Batch, key.Sequence).
		First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (repo *GormReservationRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]TransactionReservation, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []TransactionReservation
	err := repo.db.WithContext(ctx).
		Where("status = ? AND created_at <= ?", ReservationStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
