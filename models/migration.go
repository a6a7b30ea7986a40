package models

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

func MigrateTable(db *gorm.DB) error {
	err := db.AutoMigrate(
		&TransactionReservation{}, &PostingOutboxRecord{},
		&Merchant{}, &Terminal{}, &PostingProfile{}, &AccountTypeRecord{}, &ChargeRule{},
	)
	if err != nil {
		return err
	}
	return db.Exec(controlRecordsDDL()).Error
}

// control_records keeps the core's denormalized layout; it is read through ControlEntries only.
func controlRecordsDDL() string {
	cols := make([]string, 0, ControlRecordSlots*3)
	for i := 1; i <= ControlRecordSlots; i++ {
		cols = append(cols,
			fmt.Sprintf("type_code_%02d INT NOT NULL DEFAULT 0", i),
			fmt.Sprintf("account_%02d VARCHAR(16) NOT NULL DEFAULT ''", i),
			fmt.Sprintf("cost_center_%02d VARCHAR(6) NOT NULL DEFAULT ''", i),
		)
	}
	return "CREATE TABLE IF NOT EXISTS control_records (" +
		"profile VARCHAR(10) NOT NULL, " +
		"variant VARCHAR(4) NOT NULL, " +
		strings.Join(cols, ", ") + ", " +
		"updated_at DATETIME(3) NULL, " +
		"PRIMARY KEY (profile, variant))"
}
