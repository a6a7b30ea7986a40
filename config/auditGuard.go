package config

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrAppendOnly is returned when a DELETE targets an append-only table.
var ErrAppendOnly = errors.New("append-only table: delete not permitted")

// appendOnlyModel is implemented by models whose rows form an audit trail.
type appendOnlyModel interface {
	AppendOnly() bool
}

// AuditGuardPlugin rejects deletes against append-only models.
//
// NOTE:
// - This does NOT apply to Raw/Exec SQL. Those are reviewed by hand.
type AuditGuardPlugin struct{}

func NewAuditGuardPlugin() *AuditGuardPlugin { return &AuditGuardPlugin{} }

func (p *AuditGuardPlugin) Name() string { return "audit_guard" }

func (p *AuditGuardPlugin) Initialize(db *gorm.DB) error {
	return db.Callback().Delete().Before("gorm:delete").Register("audit_guard:delete", auditGuardCallback)
}

func auditGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	if isAppendOnly(db.Statement.Model) || isAppendOnly(db.Statement.Dest) {
		table := db.Statement.Table
		_ = db.AddError(fmt.Errorf("%w (%s)", ErrAppendOnly, table))
	}
}

func isAppendOnly(v any) bool {
	if v == nil {
		return false
	}
	m, ok := v.(appendOnlyModel)
	return ok && m.AppendOnly()
}
