package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Merchant struct {
	ID           int       `gorm:"primary_key" json:"id"`
	MerchantCode string    `gorm:"size:20;not null;index:idx_merchant_account,priority:1" json:"merchant_code"`
	Account      string    `gorm:"size:16;not null;index:idx_merchant_account,priority:2" json:"account"`
	Name         string    `gorm:"size:100" json:"name"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Terminal struct {
	ID           int       `gorm:"primary_key" json:"id"`
	MerchantCode string    `gorm:"size:20;not null;index:idx_terminal_merchant,priority:1" json:"merchant_code"`
	TerminalId   string    `gorm:"size:20;not null;index:idx_terminal_merchant,priority:2" json:"terminal_id"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PostingProfile is the routing profile; when AutoBalance is set its GL columns are used as is.
type PostingProfile struct {
	ID               int       `gorm:"primary_key" json:"id"`
	Code             string    `gorm:"size:10;not null;uniqueIndex" json:"code"`
	Description      string    `gorm:"size:100" json:"description"`
	AutoBalance      bool      `gorm:"not null;default:false" json:"auto_balance"`
	DebitGLAccount   string    `gorm:"size:16" json:"debit_gl_account"`
	DebitCostCenter  string    `gorm:"size:6" json:"debit_cost_center"`
	CreditGLAccount  string    `gorm:"size:16" json:"credit_gl_account"`
	CreditCostCenter string    `gorm:"size:6" json:"credit_cost_center"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AutoBalanceConfig is the per-side GL override of a profile.
type AutoBalanceConfig struct {
	DebitGLAccount   string `json:"debit_gl_account"`
	DebitCostCenter  string `json:"debit_cost_center"`
	CreditGLAccount  string `json:"credit_gl_account"`
	CreditCostCenter string `json:"credit_cost_center"`
}

// AutoBalanceConfig returns nil when the profile does not override the control table.
func (p PostingProfile) AutoBalanceConfig() *AutoBalanceConfig {
	if !p.AutoBalance {
		return nil
	}
	return &AutoBalanceConfig{
		DebitGLAccount:   strings.TrimSpace(p.DebitGLAccount),
		DebitCostCenter:  strings.TrimSpace(p.DebitCostCenter),
		CreditGLAccount:  strings.TrimSpace(p.CreditGLAccount),
		CreditCostCenter: strings.TrimSpace(p.CreditCostCenter),
	}
}

// Side picks the GL account and cost center for a leg with the given marker.
func (c AutoBalanceConfig) Side(m Marker) (account, costCenter string) {
	if m == MarkerDebit {
		return c.DebitGLAccount, c.DebitCostCenter
	}
	return c.CreditGLAccount, c.CreditCostCenter
}

// ControlEntry is one (type code, account, cost center) triple of a control record.
type ControlEntry struct {
	Position   int    `json:"position"`
	TypeCode   int    `json:"type_code"`
	Account    string `json:"account"`
	CostCenter string `json:"cost_center"`
}

func (e ControlEntry) IsEmpty() bool {
	return e.TypeCode == 0 || strings.Trim(e.Account, "0 ") == ""
}

// FindControlEntry returns the first entry for typeCode.
func FindControlEntry(entries []ControlEntry, typeCode int) (ControlEntry, bool) {
	for _, e := range entries {
		if e.TypeCode == typeCode && !e.IsEmpty() {
			return e, true
		}
	}
	return ControlEntry{}, false
}

// AccountTypeRecord mirrors the account master product class.
type AccountTypeRecord struct {
	ID           int       `gorm:"primary_key" json:"id"`
	Account      string    `gorm:"size:16;not null;uniqueIndex" json:"account"`
	ProductClass string    `gorm:"size:4;not null" json:"product_class"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ChargeRule is a fee applied to the gross amount. An empty MerchantCode applies to every merchant of the profile.
type ChargeRule struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Profile      string          `gorm:"size:10;not null;index:idx_charge_rule_profile,priority:1" json:"profile"`
	MerchantCode string          `gorm:"size:20;not null;default:'';index:idx_charge_rule_profile,priority:2" json:"merchant_code"`
	Code         string          `gorm:"size:10;not null" json:"code"`
	GLAccount    string          `gorm:"size:16;not null" json:"gl_account"`
	CostCenter   string          `gorm:"size:6" json:"cost_center"`
	Percentage   decimal.Decimal `gorm:"type:decimal(7,6);not null;default:0" json:"percentage"`
	FixedAmount  decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"fixed_amount"`
	Sequence     int             `gorm:"not null;default:0" json:"sequence"`
	IsActive     bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
