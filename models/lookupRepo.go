package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ControlRecordSlots is the number of parallel (type code, account, cost center) columns per control record.
const ControlRecordSlots = 15

// LookupRepository holds the read-only reference queries used while posting.
type LookupRepository interface {
	MerchantExists(ctx context.Context, merchantCode, account string) (bool, error)
	TerminalExists(ctx context.Context, merchantCode, terminalId string) (bool, error)
	// FindProfile returns nil, nil when the profile does not exist.
	FindProfile(ctx context.Context, code string) (*PostingProfile, error)
	ControlEntries(ctx context.Context, profile string, variant ControlVariant) ([]ControlEntry, error)
	// AutoBalance returns nil, nil when the profile does not override the control table.
	AutoBalance(ctx context.Context, profile string) (*AutoBalanceConfig, error)
	ClassifyAccount(ctx context.Context, account string) (AccountType, error)
	ChargeRules(ctx context.Context, profile, merchantCode string) ([]ChargeRule, error)
}

type GormLookupRepository struct {
	db *gorm.DB
}

func NewGormLookupRepository(db *gorm.DB) *GormLookupRepository {
	return &GormLookupRepository{db: db}
}

func (repo *GormLookupRepository) MerchantExists(ctx context.Context, merchantCode, account string) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&Merchant{}).
		Where("merchant_code = ? AND account = ? AND is_active = true", merchantCode, account).
		Count(&count).Error
	return count > 0, err
}

func (repo *GormLookupRepository) TerminalExists(ctx context.Context, merchantCode, terminalId string) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&Terminal{}).
		Where("merchant_code = ? AND terminal_id = ? AND is_active = true", merchantCode, terminalId).
		Count(&count).Error
	return count > 0, err
}

func (repo *GormLookupRepository) FindProfile(ctx context.Context, code string) (*PostingProfile, error) {
	var p PostingProfile
	if err := repo.db.WithContext(ctx).Where("code = ?", code).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (repo *GormLookupRepository) AutoBalance(ctx context.Context, profile string) (*AutoBalanceConfig, error) {
	p, err := repo.FindProfile(ctx, profile)
	if err != nil || p == nil {
		return nil, err
	}
	return p.AutoBalanceConfig(), nil
}

// ControlEntries reads the control record of (profile, variant) as an ordered list, skipping unused triples.
func (repo *GormLookupRepository) ControlEntries(ctx context.Context, profile string, variant ControlVariant) ([]ControlEntry, error) {
	query, args := controlEntriesQuery(profile, variant)
	var rows []ControlEntry
	if err := repo.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]ControlEntry, 0, len(rows))
	for _, r := range rows {
		r.Account = strings.TrimSpace(r.Account)
		r.CostCenter = strings.TrimSpace(r.CostCenter)
		if r.IsEmpty() {
			continue
		}
		entries = append(entries, r)
	}
	return entries, nil
}

// controlEntriesQuery unpivots the slot columns into one row per slot.
func controlEntriesQuery(profile string, variant ControlVariant) (string, []interface{}) {
	parts := make([]string, 0, ControlRecordSlots)
	args := make([]interface{}, 0, ControlRecordSlots*2)
	for i := 1; i <= ControlRecordSlots; i++ {
		parts = append(parts, fmt.Sprintf(
			"SELECT %d AS position, type_code_%02d AS type_code, account_%02d AS account, cost_center_%02d AS cost_center FROM control_records WHERE profile = ? AND variant = ?",
			i, i, i, i))
		args = append(args, profile, string(variant))
	}
	return strings.Join(parts, " UNION ALL ") + " ORDER BY position", args
}

// ClassifyAccount maps the account master product class; unknown accounts are AccountTypeOther.
func (repo *GormLookupRepository) ClassifyAccount(ctx context.Context, account string) (AccountType, error) {
	var rec AccountTypeRecord
	if err := repo.db.WithContext(ctx).Where("account = ?", account).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AccountTypeOther, nil
		}
		return AccountTypeOther, err
	}
	return AccountTypeForProductClass(rec.ProductClass), nil
}

func (repo *GormLookupRepository) ChargeRules(ctx context.Context, profile, merchantCode string) ([]ChargeRule, error) {
	var rules []ChargeRule
	err := repo.db.WithContext(ctx).
		Where("profile = ? AND is_active = true AND (merchant_code = '' OR merchant_code = ?)", profile, merchantCode).
		Order("sequence ASC, id ASC").
		Find(&rules).Error
	return rules, err
}
